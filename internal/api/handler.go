package api

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shaiso/taskrun/internal/domain"
	"github.com/shaiso/taskrun/internal/kicker"
	"github.com/shaiso/taskrun/internal/tasks"
)

// Kicker отправляет задачи в очередь.
type Kicker interface {
	Kick(ctx context.Context, req kicker.Request) (*domain.TaskMessage, error)
}

// ResultReader читает сохранённые результаты.
type ResultReader interface {
	GetResult(ctx context.Context, taskID string) (*domain.Result, error)
}

// ScheduleLister отдаёт текущее состояние расписаний.
type ScheduleLister interface {
	Schedules() []domain.Schedule
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	registry  *tasks.Registry
	kicker    Kicker
	results   ResultReader
	schedules ScheduleLister
	requests  *prometheus.CounterVec
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler. Все поля, кроме Logger,
// опциональны.
type Config struct {
	Registry  *tasks.Registry
	Kicker    Kicker
	Results   ResultReader
	Schedules ScheduleLister

	// Registerer — куда регистрировать счётчик запросов; nil — без метрик.
	Registerer prometheus.Registerer

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var requests *prometheus.CounterVec
	if cfg.Registerer != nil {
		requests = NewRequestCounter(cfg.Registerer)
	}
	return &Handler{
		registry:  cfg.Registry,
		kicker:    cfg.Kicker,
		results:   cfg.Results,
		schedules: cfg.Schedules,
		requests:  requests,
		logger:    logger,
	}
}
