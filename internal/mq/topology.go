package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — имя обменника.
type Exchange string

// Queue — имя очереди.
type Queue string

// RoutingKey — ключ маршрутизации.
type RoutingKey string

const (
	ExchangePlans  Exchange = "itinera.plans"
	ExchangeEvents Exchange = "itinera.events"
	ExchangeDLQ    Exchange = "itinera.dlq"
)

const (
	QueuePlansRequested Queue = "plans.requested"
	QueuePlanEvents     Queue = "plans.events"
	QueueDLQPlans       Queue = "dlq.plans"
)

const (
	RoutingKeyRequested RoutingKey = "requested"
	RoutingKeyStage     RoutingKey = "stage"
	RoutingKeyDLQPlans  RoutingKey = "plans"
)

// eventsTTLMillis — время жизни событий прогресса в очереди.
const eventsTTLMillis = 60 * 60 * 1000

// SetupTopology объявляет exchanges, queues и bindings. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}
		if err := declareQueues(ch); err != nil {
			return err
		}
		return bindQueues(ch)
	})
}

func declareExchanges(ch *amqp.Channel) error {
	for _, name := range []Exchange{ExchangePlans, ExchangeEvents, ExchangeDLQ} {
		err := ch.ExchangeDeclare(
			string(name), // name
			"direct",     // type
			true,         // durable
			false,        // auto-deleted
			false,        // internal
			false,        // no-wait
			nil,          // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", name, err)
		}
	}
	return nil
}

func declareQueues(ch *amqp.Channel) error {
	queues := []struct {
		name Queue
		args amqp.Table
	}{
		// Запрос, который planner не смог обработать, уходит в DLQ.
		{QueuePlansRequested, amqp.Table{
			"x-dead-letter-exchange":    string(ExchangeDLQ),
			"x-dead-letter-routing-key": string(RoutingKeyDLQPlans),
		}},
		{QueuePlanEvents, amqp.Table{
			"x-message-ttl": int32(eventsTTLMillis),
		}},
		{QueueDLQPlans, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}
	return nil
}

func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueuePlansRequested, RoutingKeyRequested, ExchangePlans},
		{QueuePlanEvents, RoutingKeyStage, ExchangeEvents},
		{QueueDLQPlans, RoutingKeyDLQPlans, ExchangeDLQ},
	}

	for _, b := range bindings {
		if err := ch.QueueBind(string(b.queue), string(b.routingKey), string(b.exchange), false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}
	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Itinera RabbitMQ Topology:

    itinera.plans (direct)
    └── plans.requested [routing: requested]
            Consumer: Planner
            DLQ: dlq.plans

    itinera.events (direct)
    └── plans.events [routing: stage, ttl 1h]
            Consumer: external subscribers

    itinera.dlq (direct)
    └── dlq.plans [routing: plans]
            Manual processing
`
}
