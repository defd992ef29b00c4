package receiver

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"github.com/shaiso/taskrun/internal/domain"
	"github.com/shaiso/taskrun/internal/pool"
	"github.com/shaiso/taskrun/internal/tasks"
	"github.com/shaiso/taskrun/internal/telemetry"
)

// Broker — источник сообщений.
type Broker interface {
	// Startup подготавливает брокер (соединение, топология).
	Startup(ctx context.Context) error

	// Listen возвращает бесконечный поток сообщений.
	// Канал закрывается только при остановке брокера.
	Listen(ctx context.Context) (<-chan domain.Delivery, error)
}

// Formatter декодирует сырые сообщения.
type Formatter interface {
	Loads(data []byte) (*domain.TaskMessage, error)
}

// ResultBackend сохраняет результаты задач.
type ResultBackend interface {
	SetResult(ctx context.Context, taskID string, result *domain.Result) error
}

// Executor выполняет блокирующие вызовы и ждёт их завершения.
type Executor interface {
	Do(ctx context.Context, fn func()) error
}

// Context — контекст запроса, доступный задачам как зависимость.
//
//	tasks.Definition{
//	    Name:    "whoami",
//	    Func:    func(ctx context.Context, rc *receiver.Context) string { return rc.Message.TaskID },
//	    Params:  []string{"rc"},
//	    Depends: map[string]depends.Provider{"rc": depends.FromSeed[*receiver.Context]()},
//	}
type Context struct {
	Message *domain.TaskMessage
	Broker  Broker
	State   *domain.State
}

// Config — конфигурация Receiver.
type Config struct {
	// Broker — источник сообщений (обязателен для Listen).
	Broker Broker

	// Registry — зарегистрированные задачи.
	Registry *tasks.Registry

	// Formatter — декодер сообщений.
	Formatter Formatter

	// ResultBackend — хранилище результатов.
	ResultBackend ResultBackend

	// Middlewares — middleware в порядке вызова.
	Middlewares []Middleware

	// State — общее состояние процесса (default: пустое).
	State *domain.State

	// DependencyContext — дополнительные значения для внедрения
	// зависимостей, индексируются по динамическому типу.
	DependencyContext []any

	// Executor — пул для блокирующих задач.
	// Если nil — создаётся pool.Pool размера pool.DefaultSize().
	Executor Executor

	// DisableParamValidation отключает приведение аргументов к типам параметров.
	DisableParamValidation bool

	// MaxAsyncTasks — максимум одновременно обрабатываемых сообщений.
	// 0 или меньше — без ограничения.
	MaxAsyncTasks int

	// Logger
	Logger *slog.Logger

	// Metrics — опционально.
	Metrics *telemetry.Metrics
}

// Receiver обрабатывает сообщения о задачах.
type Receiver struct {
	broker    Broker
	registry  *tasks.Registry
	formatter Formatter
	backend   ResultBackend
	hooks     hookSet

	state      *domain.State
	depContext []any

	executor     Executor
	ownsExecutor *pool.Pool

	validateParams bool
	maxAsyncTasks  int

	// Admission — единственное разделяемое изменяемое состояние.
	sem      *semaphore.Weighted
	inflight *inflightSet

	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// New создаёт Receiver.
func New(cfg Config) (*Receiver, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("%w: registry is required", ErrInvalidConfig)
	}
	if cfg.Formatter == nil {
		return nil, fmt.Errorf("%w: formatter is required", ErrInvalidConfig)
	}
	if cfg.ResultBackend == nil {
		return nil, fmt.Errorf("%w: result backend is required", ErrInvalidConfig)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	state := cfg.State
	if state == nil {
		state = domain.NewState()
	}

	r := &Receiver{
		broker:         cfg.Broker,
		registry:       cfg.Registry,
		formatter:      cfg.Formatter,
		backend:        cfg.ResultBackend,
		hooks:          newHookSet(cfg.Middlewares, logger, cfg.Metrics),
		state:          state,
		depContext:     cfg.DependencyContext,
		executor:       cfg.Executor,
		validateParams: !cfg.DisableParamValidation,
		maxAsyncTasks:  cfg.MaxAsyncTasks,
		inflight:       newInflightSet(),
		logger:         logger,
		metrics:        cfg.Metrics,
	}

	if r.executor == nil {
		p := pool.New(pool.DefaultSize(), logger)
		r.executor = p
		r.ownsExecutor = p
	}

	if cfg.MaxAsyncTasks > 0 {
		r.sem = semaphore.NewWeighted(int64(cfg.MaxAsyncTasks))
	} else {
		logger.Warn("setting unlimited number of async tasks can result in undefined behavior")
	}

	return r, nil
}

// Close освобождает пул, если Receiver создал его сам.
func (r *Receiver) Close() {
	if r.ownsExecutor != nil {
		r.ownsExecutor.Close()
	}
}

// Inflight возвращает число обрабатываемых сейчас сообщений.
func (r *Receiver) Inflight() int {
	return r.inflight.len()
}

// seeds — начальные значения Scope для одного вызова.
func (r *Receiver) seeds(msg *domain.TaskMessage) []any {
	seeds := make([]any, 0, len(r.depContext)+2)
	seeds = append(seeds, r.depContext...)
	seeds = append(seeds,
		&Context{Message: msg, Broker: r.broker, State: r.state},
		r.state,
	)
	return seeds
}
