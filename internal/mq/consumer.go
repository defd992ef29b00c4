package mq

import (
	"context"
	"errors"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/taskrun/internal/domain"
)

// Source — откуда Consumer получает доставки. Реализуется Connection.
type Source interface {
	// Subscribe начинает потребление очереди.
	Subscribe(queue string, prefetch int) (<-chan amqp.Delivery, error)

	// ReconnectNotify сигналит после переподключения.
	ReconnectNotify() <-chan struct{}
}

// Consumer читает очередь и передаёт сообщения в канал Delivery.
//
// Поток доставок может закрыться и при живом соединении: basic.cancel
// от сервера (очередь удалена, failover) или ошибка канала. В любом
// таком случае Consumer подписывается заново с экспоненциальной
// задержкой; переподключение соединения прерывает ожидание.
type Consumer struct {
	source   Source
	logger   *slog.Logger
	queue    string
	prefetch int
	out      chan<- domain.Delivery

	retryDelay    time.Duration
	maxRetryDelay time.Duration
}

// NewConsumer создаёт Consumer. prefetch 0 — без ограничения.
func NewConsumer(source Source, logger *slog.Logger, queue string, prefetch int, out chan<- domain.Delivery) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		source:        source,
		logger:        logger,
		queue:         queue,
		prefetch:      max(prefetch, 0),
		out:           out,
		retryDelay:    reconnectInitialDelay,
		maxRetryDelay: reconnectMaxDelay,
	}
}

// Run потребляет сообщения до отмены ctx.
func (c *Consumer) Run(ctx context.Context) error {
	delay := c.retryDelay

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		deliveries, err := c.source.Subscribe(c.queue, c.prefetch)
		if err == nil {
			c.logger.Info("consumer started", "queue", c.queue, "prefetch", c.prefetch)

			var forwarded int
			forwarded, err = c.forward(ctx, deliveries)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Поток работал — следующая попытка снова с минимальной задержкой.
			if forwarded > 0 {
				delay = c.retryDelay
			}
		}

		if errors.Is(err, ErrBrokerClosed) {
			return err
		}

		c.logger.Warn("consumer interrupted, resubscribing",
			"queue", c.queue,
			"error", err,
			"retry_in", delay,
		)
		if err := c.wait(ctx, delay); err != nil {
			return err
		}
		delay = min(delay*2, c.maxRetryDelay)
	}
}

// wait ждёт delay, переподключения соединения или отмены ctx.
func (c *Consumer) wait(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.source.ReconnectNotify():
		c.logger.Info("reconnected, restarting consumer", "queue", c.queue)
		return nil
	case <-timer.C:
		return nil
	}
}

// forward передаёт AMQP сообщения в out и возвращает, сколько передано.
func (c *Consumer) forward(ctx context.Context, deliveries <-chan amqp.Delivery) (int, error) {
	forwarded := 0
	for {
		select {
		case <-ctx.Done():
			return forwarded, ctx.Err()

		case raw, ok := <-deliveries:
			if !ok {
				return forwarded, ErrDeliveriesClosed
			}

			c.logger.Debug("received message",
				"queue", c.queue,
				"delivery_tag", raw.DeliveryTag,
				"redelivered", raw.Redelivered,
			)

			d := domain.Delivery{
				Body: raw.Body,
				Ack:  func() error { return raw.Ack(false) },
			}

			select {
			case c.out <- d:
				forwarded++
			case <-ctx.Done():
				// Не подтверждаем: RabbitMQ вернёт сообщение в очередь.
				return forwarded, ctx.Err()
			}
		}
	}
}
