// Package pool — ограниченный пул горутин для блокирующих вызовов.
//
// Блокирующие тела задач никогда не выполняются в горутине обработки
// сообщения: они передаются в Pool, а вызывающий ждёт завершения через
// канал done (future).
package pool

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
)

// ErrPoolClosed — пул остановлен, новые вызовы не принимаются.
var ErrPoolClosed = errors.New("pool is closed")

// Pool — фиксированный набор воркеров, читающих из общей очереди.
type Pool struct {
	workers int
	queue   chan func()
	logger  *slog.Logger

	wg       sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
	closedCh chan struct{}
}

// DefaultSize — размер пула по умолчанию: min(32, NumCPU+4).
func DefaultSize() int {
	return min(32, runtime.NumCPU()+4)
}

// New создаёт пул и запускает воркеры.
func New(workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pool{
		workers:  workers,
		queue:    make(chan func()),
		logger:   logger,
		closedCh: make(chan struct{}),
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

// Size возвращает количество воркеров.
func (p *Pool) Size() int {
	return p.workers
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.closedCh:
			return
		case fn := <-p.queue:
			p.run(fn)
		}
	}
}

func (p *Pool) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pool worker recovered panic",
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
}

// Do выполняет fn в пуле и ждёт завершения.
//
// Если ctx отменён раньше, чем fn взят воркером, fn не выполняется.
// Если ctx отменён во время выполнения, Do возвращает ctx.Err() сразу,
// а fn доработает в фоне: блокирующий вызов нельзя прервать.
func (p *Pool) Do(ctx context.Context, fn func()) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	p.mu.RUnlock()

	done := make(chan struct{})
	task := func() {
		defer close(done)
		fn()
	}

	select {
	case p.queue <- task:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.closedCh:
		return ErrPoolClosed
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close останавливает воркеры и ждёт завершения текущих вызовов.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.closedCh)
	p.mu.Unlock()

	p.wg.Wait()
}
