package mq

import "errors"

var (
	// ErrBrokerClosed — брокер закрыт.
	ErrBrokerClosed = errors.New("broker is closed")

	// ErrNoChannel — нет открытого AMQP канала.
	ErrNoChannel = errors.New("no amqp channel available")

	// ErrNotStarted — Startup ещё не вызывался.
	ErrNotStarted = errors.New("broker is not started")

	// ErrDeliveriesClosed — сервер закрыл поток доставок (basic.cancel,
	// ошибка канала или разрыв соединения).
	ErrDeliveriesClosed = errors.New("deliveries channel closed")
)
