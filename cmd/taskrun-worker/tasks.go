package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shaiso/taskrun/internal/depends"
	"github.com/shaiso/taskrun/internal/domain"
	"github.com/shaiso/taskrun/internal/kicker"
	"github.com/shaiso/taskrun/internal/receiver"
	"github.com/shaiso/taskrun/internal/tasks"
)

// stateEchoCalls — ключ счётчика вызовов echo_context в domain.State.
const stateEchoCalls = "echo_calls"

// demoTasks — задачи, которые регистрирует воркер.
//
//   - add: блокирующая задача, выполняется в пуле
//   - sleep: асинхронная задача, уважает отмену контекста
//   - echo_context: получает контекст запроса и State через зависимости
//   - add_later: отправляет add с теми же аргументами через Kicker
func demoTasks() []tasks.Definition {
	return []tasks.Definition{
		{
			Name:   "add",
			Func:   func(a, b float64) float64 { return a + b },
			Params: []string{"a", "b"},
		},
		{
			Name:   "sleep",
			Func:   sleepTask,
			Params: []string{"seconds"},
		},
		{
			Name:   "echo_context",
			Func:   echoContext,
			Params: []string{"rc", "state"},
			Depends: map[string]depends.Provider{
				"rc":    depends.FromSeed[*receiver.Context](),
				"state": depends.FromSeed[*domain.State](),
			},
		},
		{
			Name:   "add_later",
			Func:   addLater,
			Params: []string{"k", "a", "b"},
			Depends: map[string]depends.Provider{
				"k": depends.FromSeed[*kicker.Kicker](),
			},
		},
	}
}

func sleepTask(ctx context.Context, seconds float64) (float64, error) {
	if seconds < 0 {
		return 0, fmt.Errorf("negative duration: %v", seconds)
	}
	select {
	case <-time.After(time.Duration(seconds * float64(time.Second))):
		return seconds, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func echoContext(_ context.Context, rc *receiver.Context, state *domain.State) map[string]any {
	var calls int64
	if v, ok := state.Get(stateEchoCalls); ok {
		if counter, ok := v.(*atomic.Int64); ok {
			calls = counter.Add(1)
		}
	}
	return map[string]any{
		"task_id":   rc.Message.TaskID,
		"task_name": rc.Message.TaskName,
		"labels":    rc.Message.Labels,
		"calls":     calls,
	}
}

func addLater(ctx context.Context, k *kicker.Kicker, a, b float64) (string, error) {
	msg, err := k.Kick(ctx, kicker.Request{TaskName: "add", Args: []any{a, b}})
	if err != nil {
		return "", fmt.Errorf("kick add: %w", err)
	}
	return msg.TaskID, nil
}

// newState создаёт State воркера с начальными значениями.
func newState() *domain.State {
	state := domain.NewState()
	state.Set(stateEchoCalls, new(atomic.Int64))
	return state
}
