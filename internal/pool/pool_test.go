package pool

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_Do_RunsAndWaits(t *testing.T) {
	p := New(2, nil)
	defer p.Close()

	var ran bool
	start := time.Now()
	err := p.Do(context.Background(), func() {
		time.Sleep(50 * time.Millisecond)
		ran = true
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Error("fn should have run before Do returned")
	}
	if time.Since(start) < 40*time.Millisecond {
		t.Error("Do returned before fn finished")
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const size = 3
	p := New(size, nil)
	defer p.Close()

	var current, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Do(context.Background(), func() {
				n := atomic.AddInt32(&current, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&current, -1)
			})
		}()
	}
	wg.Wait()

	if peak > size {
		t.Errorf("peak concurrency %d exceeds pool size %d", peak, size)
	}
}

func TestPool_Do_PanicDoesNotKillWorker(t *testing.T) {
	p := New(1, nil)
	defer p.Close()

	_ = p.Do(context.Background(), func() { panic("boom") })

	var ran bool
	if err := p.Do(context.Background(), func() { ran = true }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Error("worker should survive a panic")
	}
}

func TestPool_Do_ContextCancelledWhileWaiting(t *testing.T) {
	p := New(1, nil)
	defer p.Close()

	release := make(chan struct{})
	go p.Do(context.Background(), func() { <-release })
	defer close(release)

	// Даём первому вызову занять единственный воркер.
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	var ran atomic.Bool
	err := p.Do(ctx, func() { ran.Store(true) })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if ran.Load() {
		t.Error("fn must not run after its context expired in the queue")
	}
}

func TestPool_Do_AfterClose(t *testing.T) {
	p := New(1, nil)
	p.Close()

	if err := p.Do(context.Background(), func() {}); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("expected ErrPoolClosed, got %v", err)
	}
}

func TestDefaultSize(t *testing.T) {
	want := min(32, runtime.NumCPU()+4)
	if n := DefaultSize(); n != want {
		t.Errorf("DefaultSize: got %d, want min(32, NumCPU+4) = %d", n, want)
	}
}

func TestNew_ZeroWorkersUsesDefaultSize(t *testing.T) {
	p := New(0, nil)
	defer p.Close()

	if got := p.Size(); got != DefaultSize() {
		t.Errorf("Size: got %d, want %d", got, DefaultSize())
	}
}
