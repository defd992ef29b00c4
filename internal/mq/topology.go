package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Topology — имена exchange и очередей брокера.
type Topology struct {
	Exchange   string `yaml:"exchange"`
	Queue      string `yaml:"queue"`
	RoutingKey string `yaml:"routing_key"`

	// DeadLetterExchange и DeadLetterQueue — куда RabbitMQ отправляет
	// отклонённые сообщения. Пустые значения отключают DLQ.
	DeadLetterExchange string `yaml:"dead_letter_exchange"`
	DeadLetterQueue    string `yaml:"dead_letter_queue"`
}

// DefaultTopology возвращает топологию по умолчанию.
func DefaultTopology() Topology {
	return Topology{
		Exchange:           "taskrun",
		Queue:              "taskrun.tasks",
		RoutingKey:         "tasks",
		DeadLetterExchange: "taskrun.dlq",
		DeadLetterQueue:    "taskrun.dlq.tasks",
	}
}

// HasDeadLetter — включена ли DLQ.
func (t Topology) HasDeadLetter() bool {
	return t.DeadLetterExchange != "" && t.DeadLetterQueue != ""
}

// SetupTopology объявляет exchange, очереди и привязки. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection, t Topology) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		var queueArgs amqp.Table

		if t.HasDeadLetter() {
			if err := declare(ch, t.DeadLetterExchange, t.DeadLetterQueue, t.RoutingKey, nil); err != nil {
				return err
			}
			queueArgs = amqp.Table{
				"x-dead-letter-exchange":    t.DeadLetterExchange,
				"x-dead-letter-routing-key": t.RoutingKey,
			}
		}

		return declare(ch, t.Exchange, t.Queue, t.RoutingKey, queueArgs)
	})
}

// declare объявляет durable direct exchange, очередь и связывает их.
func declare(ch *amqp.Channel, exchange, queue, routingKey string, args amqp.Table) error {
	err := ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		args,  // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}

	if err := ch.QueueBind(queue, routingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", queue, exchange, err)
	}

	return nil
}
