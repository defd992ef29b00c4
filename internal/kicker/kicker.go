// Package kicker отправляет задачи в очередь.
package kicker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/taskrun/internal/domain"
)

// ErrEmptyTaskName — не указано имя задачи.
var ErrEmptyTaskName = errors.New("empty task name")

// Publisher публикует закодированные сообщения.
type Publisher interface {
	Kick(ctx context.Context, taskName string, body []byte) error
}

// Encoder кодирует сообщения.
type Encoder interface {
	Dumps(msg *domain.TaskMessage) ([]byte, error)
}

// Kicker собирает TaskMessage и отправляет его в брокер.
type Kicker struct {
	publisher Publisher
	encoder   Encoder
	logger    *slog.Logger
}

// New создаёт Kicker.
func New(publisher Publisher, encoder Encoder, logger *slog.Logger) *Kicker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Kicker{publisher: publisher, encoder: encoder, logger: logger}
}

// Request — параметры отправки задачи.
type Request struct {
	TaskName string
	Args     []any
	Kwargs   map[string]any
	Labels   map[string]string

	// TaskID — идентификатор задачи. Пустой заменяется новым UUID.
	TaskID string
}

// Kick отправляет задачу и возвращает отправленное сообщение.
// Результат задачи будет сохранён под msg.TaskID.
func (k *Kicker) Kick(ctx context.Context, req Request) (*domain.TaskMessage, error) {
	if req.TaskName == "" {
		return nil, ErrEmptyTaskName
	}

	msg := &domain.TaskMessage{
		TaskID:   req.TaskID,
		TaskName: req.TaskName,
		Labels:   req.Labels,
		Args:     req.Args,
		Kwargs:   req.Kwargs,
	}
	if msg.TaskID == "" {
		msg.TaskID = uuid.NewString()
	}
	if msg.Args == nil {
		msg.Args = []any{}
	}
	msg.EnsureKwargs()

	body, err := k.encoder.Dumps(msg)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	if err := k.publisher.Kick(ctx, msg.TaskName, body); err != nil {
		return nil, fmt.Errorf("kick %s: %w", msg.TaskName, err)
	}

	k.logger.Debug("task kicked", "task_id", msg.TaskID, "task_name", msg.TaskName)
	return msg, nil
}
