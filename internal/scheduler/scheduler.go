package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/taskrun/internal/domain"
	"github.com/shaiso/taskrun/internal/kicker"
)

// Kicker отправляет задачи.
type Kicker interface {
	Kick(ctx context.Context, req kicker.Request) (*domain.TaskMessage, error)
}

// Config — конфигурация Scheduler.
type Config struct {
	Schedules []domain.Schedule
	Kicker    Kicker
	Logger    *slog.Logger
}

// Scheduler — планировщик, отправляющий задачи по расписаниям.
type Scheduler struct {
	kicker Kicker
	logger *slog.Logger

	mu        sync.Mutex
	schedules []domain.Schedule
}

// New проверяет расписания и вычисляет первое время отправки от now.
func New(cfg Config, now time.Time) (*Scheduler, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	seen := make(map[string]bool, len(cfg.Schedules))
	schedules := make([]domain.Schedule, len(cfg.Schedules))
	copy(schedules, cfg.Schedules)

	for i := range schedules {
		sched := &schedules[i]
		if sched.Name == "" {
			return nil, fmt.Errorf("%w: schedule %d has no name", ErrInvalidSchedule, i)
		}
		if seen[sched.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSchedule, sched.Name)
		}
		seen[sched.Name] = true

		if sched.TaskName == "" {
			return nil, fmt.Errorf("%w: %s: task is required", ErrInvalidSchedule, sched.Name)
		}

		next, err := CalculateNextDue(sched, now)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sched.Name, err)
		}
		sched.NextDueAt = &next
	}

	return &Scheduler{
		kicker:    cfg.Kicker,
		logger:    logger,
		schedules: schedules,
	}, nil
}

// Tick выполняет один тик планировщика.
//
// 1. Находит due schedules (NextDueAt <= now)
// 2. Отправляет задачу
// 3. Обновляет NextDueAt
//
// Ошибки одного schedule не блокируют обработку остальных.
// Возвращает число отправленных задач.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due, kicked int
	for i := range s.schedules {
		sched := &s.schedules[i]
		if !sched.IsDue(now) {
			continue
		}
		due++

		if err := s.kick(ctx, sched, now); err != nil {
			s.logger.Error("failed to process schedule",
				"schedule_name", sched.Name,
				"task_name", sched.TaskName,
				"error", err,
			)
			continue
		}
		kicked++
	}

	if due > 0 {
		s.logger.Info("scheduler tick completed", "due", due, "kicked", kicked)
	}
	return kicked
}

func (s *Scheduler) kick(ctx context.Context, sched *domain.Schedule, now time.Time) error {
	msg, err := s.kicker.Kick(ctx, kicker.Request{
		TaskName: sched.TaskName,
		Args:     sched.Args,
		Kwargs:   cloneKwargs(sched.Kwargs),
		Labels:   sched.Labels,
	})
	if err != nil {
		// NextDueAt не трогаем: попробуем на следующем тике.
		return err
	}

	next, err := CalculateNextDue(sched, now)
	if err != nil {
		return err
	}
	sched.RecordKick(msg.TaskID, now, next)

	s.logger.Info("kicked task from schedule",
		"schedule_name", sched.Name,
		"task_id", msg.TaskID,
		"task_name", sched.TaskName,
		"next_due_at", next,
	)
	return nil
}

// Schedules возвращает копию текущего состояния расписаний.
func (s *Scheduler) Schedules() []domain.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Schedule, len(s.schedules))
	copy(out, s.schedules)
	return out
}

func cloneKwargs(kwargs map[string]any) map[string]any {
	if kwargs == nil {
		return nil
	}
	out := make(map[string]any, len(kwargs))
	for k, v := range kwargs {
		out[k] = v
	}
	return out
}
