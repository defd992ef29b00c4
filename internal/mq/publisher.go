package mq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// HeaderTaskName — заголовок с именем задачи.
const HeaderTaskName = "task_name"

// Publisher публикует сообщения о задачах.
type Publisher struct {
	conn        *Connection
	topology    Topology
	contentType string
	logger      *slog.Logger
}

// NewPublisher создаёт Publisher.
func NewPublisher(conn *Connection, topology Topology, contentType string, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:        conn,
		topology:    topology,
		contentType: contentType,
		logger:      logger,
	}
}

// Publish отправляет закодированное сообщение в очередь задач.
func (p *Publisher) Publish(ctx context.Context, taskName string, body []byte) error {
	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			p.topology.Exchange,
			p.topology.RoutingKey,
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  p.contentType,
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				Timestamp:    time.Now(),
				Type:         taskName,
				Headers:      amqp.Table{HeaderTaskName: taskName},
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", p.topology.Exchange, p.topology.RoutingKey, err)
		}

		p.logger.Debug("published task message",
			"exchange", p.topology.Exchange,
			"routing_key", p.topology.RoutingKey,
			"task_name", taskName,
		)
		return nil
	})
}
