package receiver

import (
	"context"
	"fmt"

	"github.com/shaiso/taskrun/internal/telemetry"
)

// maxLoggedBody — сколько байт сообщения попадает в лог при ошибке декодирования.
const maxLoggedBody = 512

// Callback обрабатывает одно сырое сообщение.
//
// Нераспознанные сообщения и неизвестные задачи логируются
// и отбрасываются без ошибки. Ошибка сохранения результата
// возвращается только при raiseErr=true.
func (r *Receiver) Callback(ctx context.Context, raw []byte, raiseErr bool) error {
	r.metrics.Received()

	msg, err := r.formatter.Loads(raw)
	if err != nil {
		body := raw
		if len(body) > maxLoggedBody {
			body = body[:maxLoggedBody]
		}
		r.logger.Warn("cannot parse message, skipping execution",
			"message", string(body),
			"error", err,
		)
		r.metrics.Dropped(telemetry.DropReasonDecode)
		return nil
	}

	logger := telemetry.WithTask(r.logger, msg.TaskID, msg.TaskName)
	logger.Debug("received message")

	task, ok := r.registry.Get(msg.TaskName)
	if !ok {
		logger.Warn("task is not found, maybe it is not registered")
		r.metrics.Dropped(telemetry.DropReasonUnknownTask)
		return nil
	}

	msg, err = r.hooks.runPreExecute(ctx, msg)
	if err != nil {
		return err
	}

	logger.Info("executing task", "lane", task.Lane.String())
	result, err := r.RunTask(ctx, task, msg)
	if err != nil {
		return err
	}

	if err := r.hooks.runPostExecute(ctx, msg, result); err != nil {
		return err
	}

	if err := r.backend.SetResult(ctx, msg.TaskID, result); err != nil {
		logger.Error("cannot save result in result backend", "error", err)
		r.metrics.SaveError()
		if raiseErr {
			return fmt.Errorf("%w: %s: %w", ErrSaveResult, msg.TaskID, err)
		}
		return nil
	}

	logger.Debug("task result saved",
		"is_err", result.IsErr,
		"execution_time", result.ExecutionTime,
	)

	return r.hooks.runPostSave(ctx, msg, result)
}
