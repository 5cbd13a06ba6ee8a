package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения.
type MessageType string

const (
	MessageTypePlanRequested MessageType = "plan.requested"
	MessageTypeStageEvent    MessageType = "stage.event"
)

// Message — конверт сообщения.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// PlanRequestedPayload — запрос фонового выполнения плана.
type PlanRequestedPayload struct {
	PlanID uuid.UUID `json:"plan_id"`
	UserID string    `json:"user_id"`
}

// StageEventPayload — событие прогресса шага.
type StageEventPayload struct {
	PlanID      uuid.UUID `json:"plan_id"`
	Kind        string    `json:"kind"`
	Stage       string    `json:"stage"`
	Count       int       `json:"count,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Variant     string    `json:"variant"`
	Error       string    `json:"error,omitempty"`
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, logger: logger}
}

// NewMessage создаёт сообщение с новым ID и текущим временем.
func NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// Publish публикует сообщение в exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(ctx, string(exchange), string(routingKey), false, false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishPlanRequested публикует запрос фонового выполнения плана.
// Потребитель: Planner.
func (p *Publisher) PublishPlanRequested(ctx context.Context, planID uuid.UUID, userID string) error {
	msg := NewMessage(MessageTypePlanRequested, PlanRequestedPayload{PlanID: planID, UserID: userID})
	return p.Publish(ctx, ExchangePlans, RoutingKeyRequested, msg)
}

// PublishStageEvent публикует событие прогресса шага.
func (p *Publisher) PublishStageEvent(ctx context.Context, payload StageEventPayload) error {
	msg := NewMessage(MessageTypeStageEvent, payload)
	return p.Publish(ctx, ExchangeEvents, RoutingKeyStage, msg)
}
