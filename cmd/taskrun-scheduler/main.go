// Taskrun Scheduler — отправляет задачи по расписаниям.
//
// Расписания читаются из YAML конфигурации (scheduler.schedules).
// Несколько экземпляров могут работать одновременно: задачи отправляет
// только лидер, выбранный через pg_try_advisory_lock.
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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/shaiso/taskrun/internal/api"
	"github.com/shaiso/taskrun/internal/config"
	"github.com/shaiso/taskrun/internal/formatter"
	"github.com/shaiso/taskrun/internal/kicker"
	"github.com/shaiso/taskrun/internal/mq"
	"github.com/shaiso/taskrun/internal/repo"
	"github.com/shaiso/taskrun/internal/scheduler"
	"github.com/shaiso/taskrun/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

var (
	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskrun_scheduler_ticks_total",
		Help: "Scheduler ticks executed as leader.",
	})
	kickedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskrun_scheduler_kicked_total",
		Help: "Tasks kicked by the scheduler.",
	})
	isLeader = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "taskrun_scheduler_leader",
		Help: "1 if this instance holds the scheduler lock.",
	})
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "taskrun-scheduler",
		Short:         "Taskrun scheduler — kicks tasks on cron and interval schedules",
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
			if err := cfg.Validate(); err != nil {
				return err
			}
			if cfg.Broker.Kind != config.KindRabbitMQ {
				return fmt.Errorf("%w: scheduler needs a %s broker, got %q",
					config.ErrInvalidConfig, config.KindRabbitMQ, cfg.Broker.Kind)
			}
			return run(cfg)
		},
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", os.Getenv("TASKRUN_CONFIG"), "Path to YAML config file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logger := telemetry.SetupLogger()
	logger.Info("starting taskrun-scheduler", "version", version)

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	f, err := formatter.New(cfg.Worker.Formatter)
	if err != nil {
		return err
	}

	// RabbitMQ
	b := mq.NewBroker(mq.BrokerConfig{
		URL:         cfg.Broker.URL,
		Topology:    cfg.Broker.Topology,
		ContentType: f.ContentType(),
		Logger:      logger,
	})
	defer b.Close()
	if err := b.Startup(ctx); err != nil {
		return fmt.Errorf("broker startup: %w", err)
	}

	sched, err := scheduler.New(scheduler.Config{
		Schedules: cfg.Scheduler.Schedules,
		Kicker:    kicker.New(b, f, logger),
		Logger:    logger,
	}, time.Now())
	if err != nil {
		return err
	}

	// Leader election работает только с PostgreSQL
	var dbPool *pgxpool.Pool
	if cfg.ResultBackend.Kind == config.KindPostgres {
		dbPool, err = repo.NewPool(ctx, cfg.ResultBackend.DSN)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer dbPool.Close()
		logger.Info("database connected")
	} else {
		logger.Warn("no database for leader election, run a single scheduler instance")
	}

	// HTTP mux: /healthz + /metrics + API
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	api.NewHandler(api.Config{
		Schedules:  sched,
		Registerer: prometheus.DefaultRegisterer,
		Logger:     logger,
	}).RegisterRoutes(mux)

	addr := ":" + strconv.Itoa(cfg.Scheduler.Port)
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

	logger.Info("scheduler started", "schedules", len(cfg.Scheduler.Schedules))
	loop(ctx, sched, dbPool, cfg.Scheduler, logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("taskrun-scheduler stopped")
	return nil
}

// loop вызывает Tick каждые cfg.TickInterval, пока этот экземпляр — лидер.
// dbPool == nil — экземпляр всегда лидер.
func loop(ctx context.Context, sched *scheduler.Scheduler, dbPool *pgxpool.Pool, cfg config.SchedulerConfig, logger *slog.Logger) {
	tk := time.NewTicker(cfg.TickInterval)
	defer tk.Stop()

	// Lock сессионный: держим одно соединение всё время лидерства.
	var lockConn *pgxpool.Conn
	hasLock := dbPool == nil
	if hasLock {
		isLeader.Set(1)
	}
	defer func() {
		if lockConn == nil {
			return
		}
		if hasLock {
			if err := repo.AdvisoryUnlock(context.Background(), lockConn, cfg.LockKey); err != nil {
				logger.Warn("failed to release scheduler lock", "error", err)
			}
		}
		lockConn.Release()
		isLeader.Set(0)
	}()

	for {
		select {
		case t := <-tk.C:
			// пытаемся стать лидером
			if !hasLock {
				if lockConn == nil {
					conn, err := dbPool.Acquire(ctx)
					if err != nil {
						logger.Warn("failed to acquire lock connection", "error", err)
						continue
					}
					lockConn = conn
				}

				ok, err := repo.TryAdvisoryLock(ctx, lockConn, cfg.LockKey)
				if err != nil {
					logger.Warn("lock attempt failed", "error", err)
					lockConn.Release()
					lockConn = nil
					continue
				}
				if !ok {
					// не лидер — пропускаем тик
					continue
				}
				hasLock = true
				isLeader.Set(1)
				logger.Info("became scheduler leader", "lock_key", cfg.LockKey)
			}

			ticksTotal.Inc()
			kickedTotal.Add(float64(sched.Tick(ctx, t)))

		case <-ctx.Done():
			return
		}
	}
}
