package receiver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/taskrun/internal/domain"
	"github.com/shaiso/taskrun/internal/telemetry"
)

// Middleware — объект с любым подмножеством хуков ниже.
//
// Хук вызывается, только если middleware реализует соответствующий
// интерфейс. Набор хуков определяется один раз в New.
type Middleware = any

// PreExecuteHook вызывается перед выполнением и может заменить сообщение.
type PreExecuteHook interface {
	PreExecute(ctx context.Context, msg *domain.TaskMessage) (*domain.TaskMessage, error)
}

// PostExecuteHook вызывается после выполнения, до сохранения результата.
type PostExecuteHook interface {
	PostExecute(ctx context.Context, msg *domain.TaskMessage, result *domain.Result) error
}

// PostSaveHook вызывается после успешного сохранения результата.
type PostSaveHook interface {
	PostSave(ctx context.Context, msg *domain.TaskMessage, result *domain.Result) error
}

// ErrorHook вызывается, если тело задачи завершилось ошибкой.
type ErrorHook interface {
	OnError(ctx context.Context, msg *domain.TaskMessage, result *domain.Result, err error) error
}

// Имена хуков для логов и метрик.
const (
	hookPreExecute  = "pre_execute"
	hookPostExecute = "post_execute"
	hookPostSave    = "post_save"
	hookOnError     = "on_error"
)

// hookSet — хуки, разложенные по точкам жизненного цикла
// в порядке регистрации middleware.
type hookSet struct {
	preExecute  []PreExecuteHook
	postExecute []PostExecuteHook
	postSave    []PostSaveHook
	onError     []ErrorHook

	metrics *telemetry.Metrics
}

func newHookSet(middlewares []Middleware, logger *slog.Logger, metrics *telemetry.Metrics) hookSet {
	h := hookSet{metrics: metrics}
	for _, m := range middlewares {
		matched := false
		if hook, ok := m.(PreExecuteHook); ok {
			h.preExecute = append(h.preExecute, hook)
			matched = true
		}
		if hook, ok := m.(PostExecuteHook); ok {
			h.postExecute = append(h.postExecute, hook)
			matched = true
		}
		if hook, ok := m.(PostSaveHook); ok {
			h.postSave = append(h.postSave, hook)
			matched = true
		}
		if hook, ok := m.(ErrorHook); ok {
			h.onError = append(h.onError, hook)
			matched = true
		}
		if !matched {
			logger.Warn("middleware implements no hooks", "middleware", fmt.Sprintf("%T", m))
		}
	}
	return h
}

func (h *hookSet) fail(hook string, m any, err error) error {
	h.metrics.MiddlewareError(hook)
	return fmt.Errorf("%w: %s %T: %w", ErrMiddleware, hook, m, err)
}

func (h *hookSet) runPreExecute(ctx context.Context, msg *domain.TaskMessage) (*domain.TaskMessage, error) {
	for _, m := range h.preExecute {
		next, err := m.PreExecute(ctx, msg)
		if err != nil {
			return nil, h.fail(hookPreExecute, m, err)
		}
		// nil означает "без изменений".
		if next != nil {
			msg = next
		}
	}
	return msg, nil
}

func (h *hookSet) runPostExecute(ctx context.Context, msg *domain.TaskMessage, result *domain.Result) error {
	for _, m := range h.postExecute {
		if err := m.PostExecute(ctx, msg, result); err != nil {
			return h.fail(hookPostExecute, m, err)
		}
	}
	return nil
}

func (h *hookSet) runPostSave(ctx context.Context, msg *domain.TaskMessage, result *domain.Result) error {
	for _, m := range h.postSave {
		if err := m.PostSave(ctx, msg, result); err != nil {
			return h.fail(hookPostSave, m, err)
		}
	}
	return nil
}

func (h *hookSet) runOnError(ctx context.Context, msg *domain.TaskMessage, result *domain.Result, execErr error) error {
	for _, m := range h.onError {
		if err := m.OnError(ctx, msg, result, execErr); err != nil {
			return h.fail(hookOnError, m, err)
		}
	}
	return nil
}
