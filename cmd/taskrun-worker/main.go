// Taskrun Worker — выполняет задачи из очереди.
//
// Worker:
//   - Получает сообщения из RabbitMQ (или in-memory брокера)
//   - Выполняет зарегистрированные задачи (async или в пуле блокирующих вызовов)
//   - Сохраняет результаты в PostgreSQL (или в память)
//   - Отдаёт служебный API: список задач, отправка задачи, результат
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/shaiso/taskrun/internal/api"
	"github.com/shaiso/taskrun/internal/config"
	"github.com/shaiso/taskrun/internal/formatter"
	"github.com/shaiso/taskrun/internal/kicker"
	"github.com/shaiso/taskrun/internal/mq"
	"github.com/shaiso/taskrun/internal/pool"
	"github.com/shaiso/taskrun/internal/receiver"
	"github.com/shaiso/taskrun/internal/repo"
	"github.com/shaiso/taskrun/internal/tasks"
	"github.com/shaiso/taskrun/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

// broker — то, что воркеру нужно от брокера.
type broker interface {
	receiver.Broker
	kicker.Publisher
	Close() error
}

// resultStore — то, что воркеру нужно от хранилища результатов.
type resultStore interface {
	receiver.ResultBackend
	api.ResultReader
}

func main() {
	var configPath string
	var maxAsyncTasks, workers int
	var noValidate bool

	rootCmd := &cobra.Command{
		Use:           "taskrun-worker",
		Short:         "Taskrun worker — executes tasks from the queue",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFiles(".env"); err != nil {
				return err
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			// Флаги имеют приоритет над файлом и окружением
			if cmd.Flags().Changed("max-async-tasks") {
				cfg.Worker.MaxAsyncTasks = maxAsyncTasks
			}
			if cmd.Flags().Changed("workers") {
				cfg.Worker.Workers = workers
			}
			if noValidate {
				off := false
				cfg.Worker.ValidateParams = &off
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", os.Getenv("TASKRUN_CONFIG"), "Path to YAML config file")
	rootCmd.Flags().IntVar(&maxAsyncTasks, "max-async-tasks", 0, "Max messages processed at once (0 = unlimited)")
	rootCmd.Flags().IntVar(&workers, "workers", 0, "Blocking pool size (0 = min(32, NumCPU+4))")
	rootCmd.Flags().BoolVar(&noValidate, "no-validate-params", false, "Disable argument coercion to parameter types")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting taskrun-worker", "version", version)

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Формат сообщений
	f, err := formatter.New(cfg.Worker.Formatter)
	if err != nil {
		return err
	}

	// Хранилище результатов
	results, closeResults, err := openResults(ctx, cfg.ResultBackend, logger)
	if err != nil {
		return err
	}
	defer closeResults()

	// Брокер
	b := openBroker(cfg.Broker, cfg.BrokerPrefetch(), f.ContentType(), logger)
	defer b.Close()

	// Пул блокирующих задач
	size := cfg.Worker.Workers
	if size <= 0 {
		size = pool.DefaultSize()
	}
	execPool := pool.New(size, logger)
	defer execPool.Close()

	registry, err := tasks.NewRegistry(demoTasks()...)
	if err != nil {
		return err
	}

	k := kicker.New(b, f, logger)

	r, err := receiver.New(receiver.Config{
		Broker:                 b,
		Registry:               registry,
		Formatter:              f,
		ResultBackend:          results,
		State:                  newState(),
		DependencyContext:      []any{k},
		Executor:               execPool,
		DisableParamValidation: !cfg.Worker.ValidateParamsEnabled(),
		MaxAsyncTasks:          cfg.Worker.MaxAsyncTasks,
		Logger:                 logger,
		Metrics:                telemetry.NewMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return err
	}
	defer r.Close()

	// HTTP mux: /healthz + /metrics + API
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	api.NewHandler(api.Config{
		Registry:   registry,
		Kicker:     k,
		Results:    results,
		Registerer: prometheus.DefaultRegisterer,
		Logger:     logger,
	}).RegisterRoutes(mux)

	addr := ":" + strconv.Itoa(cfg.Worker.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	logger.Info("worker started",
		"tasks", registry.Names(),
		"max_async_tasks", cfg.Worker.MaxAsyncTasks,
		"workers", size,
		"formatter", cfg.Worker.Formatter,
	)

	// Listen возвращается после отмены ctx и завершения всех задач
	listenErr := r.Listen(ctx)
	if errors.Is(listenErr, context.Canceled) {
		listenErr = nil
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	if listenErr != nil {
		return fmt.Errorf("listen: %w", listenErr)
	}
	logger.Info("taskrun-worker stopped")
	return nil
}

func openResults(ctx context.Context, cfg config.BackendConfig, logger *slog.Logger) (resultStore, func(), error) {
	if cfg.Kind == config.KindMemory {
		logger.Warn("using in-memory result backend, results are lost on restart")
		return repo.NewMemoryResultRepo(), func() {}, nil
	}

	dbPool, err := repo.NewPool(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info("database connected")

	results := repo.NewResultRepo(dbPool)
	if err := results.EnsureSchema(ctx); err != nil {
		dbPool.Close()
		return nil, nil, err
	}
	return results, dbPool.Close, nil
}

func openBroker(cfg config.BrokerConfig, prefetch int, contentType string, logger *slog.Logger) broker {
	if cfg.Kind == config.KindMemory {
		logger.Warn("using in-memory broker, only tasks kicked by this process are received")
		return mq.NewInMemoryBroker(prefetch)
	}
	return mq.NewBroker(mq.BrokerConfig{
		URL:         cfg.URL,
		Topology:    cfg.Topology,
		Prefetch:    prefetch,
		ContentType: contentType,
		Logger:      logger,
	})
}
