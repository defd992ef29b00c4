package receiver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/shaiso/taskrun/internal/depends"
	"github.com/shaiso/taskrun/internal/domain"
	"github.com/shaiso/taskrun/internal/tasks"
	"github.com/shaiso/taskrun/internal/telemetry"
)

// RunTask выполняет задачу и возвращает результат.
//
// Ошибка тела задачи не возвращается как error: она превращается
// в Result с IsErr=true, после чего вызываются on_error хуки.
// error возвращается только при ошибке валидации параметров
// (ErrBadParameters), ошибке on_error хука (ErrMiddleware) или
// отмене ctx.
func (r *Receiver) RunTask(ctx context.Context, task *tasks.Descriptor, msg *domain.TaskMessage) (*domain.Result, error) {
	msg.EnsureKwargs()
	logger := telemetry.WithTask(r.logger, msg.TaskID, msg.TaskName)

	if r.validateParams {
		if err := tasks.ParseParams(task, msg); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadParameters, err)
		}
	}

	returned, elapsed, execErr := r.execute(telemetry.WithLogger(ctx, logger), task, msg, logger)
	if execErr != nil && ctx.Err() != nil && errors.Is(execErr, ctx.Err()) {
		logger.Debug("task execution cancelled", "error", execErr)
		return nil, execErr
	}

	if execErr != nil {
		attrs := []any{"error", execErr}
		var panicErr *tasks.PanicError
		if errors.As(execErr, &panicErr) {
			attrs = append(attrs, "stack", string(panicErr.Stack))
		}
		logger.Error("exception found while executing function", attrs...)
	}

	result := &domain.Result{
		IsErr:         execErr != nil,
		ExecutionTime: elapsed,
	}
	if execErr != nil {
		result.Error = execErr.Error()
	} else {
		result.ReturnValue = returned
	}
	r.metrics.Executed(task.Name, result.Status(), elapsed)

	if execErr != nil {
		if err := r.hooks.runOnError(ctx, msg, result, execErr); err != nil {
			return result, err
		}
	}

	return result, nil
}

// execute разрешает зависимости, вызывает тело и закрывает Scope.
// Ошибка разрешения зависимостей считается ошибкой выполнения.
func (r *Receiver) execute(ctx context.Context, task *tasks.Descriptor, msg *domain.TaskMessage, logger *slog.Logger) (any, time.Duration, error) {
	if task.Graph != nil {
		scope := depends.NewScope(r.seeds(msg)...)
		defer func() {
			if err := scope.Close(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("failed to close dependency scope", "error", err)
			}
		}()

		values, err := task.Graph.Resolve(ctx, scope)
		if err != nil {
			return nil, 0, err
		}
		// Явные аргументы сообщения важнее внедрённых значений.
		for name, v := range values {
			if _, ok := msg.Kwargs[name]; !ok {
				msg.Kwargs[name] = v
			}
		}
	}

	start := time.Now()
	returned, err := r.dispatch(ctx, task, msg)
	return returned, time.Since(start), err
}

// dispatch вызывает тело в нужной полосе.
func (r *Receiver) dispatch(ctx context.Context, task *tasks.Descriptor, msg *domain.TaskMessage) (any, error) {
	if task.Lane == tasks.LaneAsync {
		return task.Call(ctx, msg.Args, msg.Kwargs)
	}

	args := append([]any(nil), msg.Args...)
	kwargs := maps.Clone(msg.Kwargs)

	var returned any
	var callErr error
	if err := r.executor.Do(ctx, func() {
		returned, callErr = task.Call(ctx, args, kwargs)
	}); err != nil {
		return nil, err
	}
	return returned, callErr
}
