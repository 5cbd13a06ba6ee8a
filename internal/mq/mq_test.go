package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// fakeAck записывает решения consumer'а по сообщению.
type fakeAck struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (a *fakeAck) Ack(uint64, bool) error { a.acked = true; return nil }

func (a *fakeAck) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked = true
	a.requeued = requeue
	return nil
}

func (a *fakeAck) Reject(_ uint64, requeue bool) error {
	a.nacked = true
	a.requeued = requeue
	return nil
}

func delivery(t *testing.T, ack *fakeAck, redelivered bool) amqp.Delivery {
	t.Helper()

	body, err := json.Marshal(NewMessage(MessageTypePlanRequested, PlanRequestedPayload{
		PlanID: uuid.New(),
		UserID: "user-1",
	}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return amqp.Delivery{Acknowledger: ack, Body: body, Redelivered: redelivered}
}

func TestConsumer_AckOnSuccess(t *testing.T) {
	var got PlanRequestedPayload
	c := NewConsumer(nil, nil, ConsumerConfig{
		Queue: QueuePlansRequested,
		Handler: func(_ context.Context, d *Delivery) error {
			var err error
			got, err = ParsePayload[PlanRequestedPayload](&d.Message)
			return err
		},
	})

	ack := &fakeAck{}
	c.handleDelivery(context.Background(), delivery(t, ack, false))

	if !ack.acked {
		t.Error("expected ack")
	}
	if got.UserID != "user-1" || got.PlanID == uuid.Nil {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestConsumer_RequeueTransientError(t *testing.T) {
	c := NewConsumer(nil, nil, ConsumerConfig{
		Queue:   QueuePlansRequested,
		Handler: func(context.Context, *Delivery) error { return errors.New("db down") },
	})

	ack := &fakeAck{}
	c.handleDelivery(context.Background(), delivery(t, ack, false))

	if !ack.nacked || !ack.requeued {
		t.Errorf("transient error should nack with requeue: %+v", ack)
	}
}

func TestConsumer_DeadLetterPermanentOrRedelivered(t *testing.T) {
	permanent := NewConsumer(nil, nil, ConsumerConfig{
		Queue: QueuePlansRequested,
		Handler: func(context.Context, *Delivery) error {
			return fmt.Errorf("%w: plan not found", ErrPermanent)
		},
	})

	ack := &fakeAck{}
	permanent.handleDelivery(context.Background(), delivery(t, ack, false))
	if !ack.nacked || ack.requeued {
		t.Errorf("permanent error should go to DLQ: %+v", ack)
	}

	transient := NewConsumer(nil, nil, ConsumerConfig{
		Queue:   QueuePlansRequested,
		Handler: func(context.Context, *Delivery) error { return errors.New("timeout") },
	})

	ack = &fakeAck{}
	transient.handleDelivery(context.Background(), delivery(t, ack, true))
	if !ack.nacked || ack.requeued {
		t.Errorf("redelivered message should go to DLQ: %+v", ack)
	}
}

func TestConsumer_MalformedBody(t *testing.T) {
	c := NewConsumer(nil, nil, ConsumerConfig{
		Queue:   QueuePlansRequested,
		Handler: func(context.Context, *Delivery) error { return nil },
	})

	ack := &fakeAck{}
	c.handleDelivery(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("not json")})

	if !ack.nacked || ack.requeued {
		t.Errorf("malformed message should be dead-lettered: %+v", ack)
	}
}

func TestParsePayload_StageEvent(t *testing.T) {
	planID := uuid.New()
	msg := NewMessage(MessageTypeStageEvent, StageEventPayload{
		PlanID: planID,
		Kind:   "stage_succeeded",
		Stage:  "flights",
		Count:  2,
	})

	// Через JSON, как после доставки.
	body, _ := json.Marshal(msg)
	var decoded Message
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	p, err := ParsePayload[StageEventPayload](&decoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.PlanID != planID || p.Count != 2 || p.Stage != "flights" {
		t.Errorf("unexpected payload: %+v", p)
	}
}

func TestWithChannel_NoConnection(t *testing.T) {
	c := &Connection{}
	err := c.WithChannel(context.Background(), func(*amqp.Channel) error { return nil })
	if !errors.Is(err, ErrNoChannel) {
		t.Errorf("expected ErrNoChannel, got %v", err)
	}
}
