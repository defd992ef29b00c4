package mq

import (
	"context"
	"sync"

	"github.com/shaiso/taskrun/internal/domain"
)

// InMemoryBroker — брокер в памяти процесса.
//
// Используется в тестах и при локальной разработке, когда воркер
// и отправитель задач живут в одном процессе. Подтверждения не
// поддерживаются: Delivery.Ack всегда nil.
type InMemoryBroker struct {
	mu       sync.RWMutex
	ch       chan domain.Delivery
	closed   bool
	closedCh chan struct{}

	closeOnce sync.Once
}

// NewInMemoryBroker создаёт брокер с буфером на buffer сообщений.
func NewInMemoryBroker(buffer int) *InMemoryBroker {
	if buffer < 0 {
		buffer = 0
	}
	return &InMemoryBroker{
		ch:       make(chan domain.Delivery, buffer),
		closedCh: make(chan struct{}),
	}
}

// Startup ничего не делает.
func (b *InMemoryBroker) Startup(context.Context) error {
	return nil
}

// Listen возвращает поток сообщений.
func (b *InMemoryBroker) Listen(context.Context) (<-chan domain.Delivery, error) {
	return b.ch, nil
}

// Kick отправляет сообщение. Блокируется, если буфер заполнен.
func (b *InMemoryBroker) Kick(ctx context.Context, _ string, body []byte) error {
	return b.Send(ctx, domain.Delivery{Body: body})
}

// Send отправляет готовую Delivery.
func (b *InMemoryBroker) Send(ctx context.Context, d domain.Delivery) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBrokerClosed
	}

	select {
	case b.ch <- d:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.closedCh:
		return ErrBrokerClosed
	}
}

// Close закрывает поток сообщений. Повторный вызов ничего не делает.
func (b *InMemoryBroker) Close() error {
	b.closeOnce.Do(func() {
		// Будим Send, ожидающие под RLock, до захвата Lock.
		close(b.closedCh)

		b.mu.Lock()
		defer b.mu.Unlock()
		b.closed = true
		close(b.ch)
	})
	return nil
}
