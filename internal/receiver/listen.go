package receiver

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/shaiso/taskrun/internal/domain"
)

// Listen получает сообщения от брокера и обрабатывает их конкурентно.
//
// Перед каждым запуском обработки берётся разрешение (если задан
// MaxAsyncTasks), следующее сообщение читается без ожидания завершения
// предыдущих. Listen работает до отмены ctx; при выходе дожидается
// завершения всех запущенных обработок.
func (r *Receiver) Listen(ctx context.Context) error {
	if r.broker == nil {
		return fmt.Errorf("%w: broker is required to listen", ErrInvalidConfig)
	}

	if err := r.broker.Startup(ctx); err != nil {
		return fmt.Errorf("broker startup: %w", err)
	}

	deliveries, err := r.broker.Listen(ctx)
	if err != nil {
		return fmt.Errorf("broker listen: %w", err)
	}

	r.logger.Info("listening started",
		"tasks", r.registry.Names(),
		"max_async_tasks", r.maxAsyncTasks,
	)

	defer func() {
		r.inflight.wait()
		r.logger.Info("listening stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case d, ok := <-deliveries:
			if !ok {
				return ErrBrokerClosed
			}

			// Ждём свободное разрешение.
			if r.sem != nil {
				if err := r.sem.Acquire(ctx, 1); err != nil {
					return err
				}
			}

			r.spawn(ctx, d)
		}
	}
}

// spawn запускает обработку сообщения в отдельной горутине.
// Разрешение освобождается и запись из in-flight удаляется
// при любом выходе из горутины.
func (r *Receiver) spawn(ctx context.Context, d domain.Delivery) {
	id := r.inflight.add()
	r.metrics.InFlightInc()

	go func() {
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error("message processing panicked",
					"panic", p,
					"stack", string(debug.Stack()),
				)
			}
			r.inflight.remove(id)
			r.metrics.InFlightDec()
			if r.sem != nil {
				r.sem.Release(1)
			}
		}()

		if err := r.Callback(ctx, d.Body, false); err != nil {
			if ctx.Err() != nil {
				r.logger.Debug("message processing cancelled", "error", err)
				return
			}
			r.logger.Error("message processing failed", "error", err)
		}

		if d.Ack != nil {
			if err := d.Ack(); err != nil {
				r.logger.Warn("failed to ack message", "error", err)
			}
		}
	}()
}

// inflightSet — запущенные обработки сообщений.
type inflightSet struct {
	mu    sync.Mutex
	next  uint64
	units map[uint64]struct{}
	wg    sync.WaitGroup
}

func newInflightSet() *inflightSet {
	return &inflightSet{units: make(map[uint64]struct{})}
}

func (s *inflightSet) add() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	s.units[s.next] = struct{}{}
	s.wg.Add(1)
	return s.next
}

// remove удаляет запись; повторное удаление ничего не делает.
func (s *inflightSet) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.units[id]; !ok {
		return
	}
	delete(s.units, id)
	s.wg.Done()
}

func (s *inflightSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.units)
}

func (s *inflightSet) wait() {
	s.wg.Wait()
}
