package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/anchor/internal/adapters/http/api"
	"github.com/okian/anchor/internal/adapters/http/site"
	"github.com/okian/anchor/internal/adapters/http/swagger"
	"github.com/okian/anchor/internal/adapters/repository"
	app "github.com/okian/anchor/internal/app"
	"github.com/okian/anchor/internal/config"
	"github.com/okian/anchor/internal/domain/assistant"
	"github.com/okian/anchor/internal/domain/economy"
	"github.com/okian/anchor/internal/domain/focus"
	"github.com/okian/anchor/internal/domain/planner"
	"github.com/okian/anchor/internal/domain/streak"
	"github.com/okian/anchor/pkg/logger"
	"github.com/okian/anchor/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use fmt for initialization errors since logger isn't available yet
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	if err := logger.InitWithWriter(os.Stderr, cfg.LogFormat); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, loggerInstance); err != nil {
		loggerInstance.Error(ctx, "anchor exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	svc, err := startService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Error(ctx, "close service", logger.Error(err))
		}
	}()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc, cfg),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// startService builds and starts the service. If Start fails the storage
// backend is released before returning.
func startService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, error) {
	svc, err := buildService(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if err := svc.Start(ctx); err != nil {
		if cerr := svc.Close(); cerr != nil {
			log.Warn(ctx, "close after failed start", logger.Error(cerr))
		}
		return nil, fmt.Errorf("start service: %w", err)
	}
	return svc, nil
}

// buildService turns the configuration into a Service. The storage backend
// is opened here and released by Service.Close.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	undo, err := economy.ParseUndoPolicy(cfg.UndoPolicy)
	if err != nil {
		return nil, err
	}

	var backend repository.Backend
	switch cfg.StorageBackend {
	case config.BackendSQLite:
		db, err := repository.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		backend = db
	default:
		backend = repository.NewMemoryBackend()
	}

	latency := func(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }
	minutes := func(m int) time.Duration { return time.Duration(m) * time.Minute }
	stub := assistant.NewStub(assistant.WithLatencyRange(latency(cfg.AssistantLatencyMinMS), latency(cfg.AssistantLatencyMaxMS)))

	return app.New(
		app.WithLogger(log.Named("service")),
		app.WithBackend(backend),
		app.WithCalendar(streak.NewCalendar(loc, time.Now)),
		app.WithMaxHealth(cfg.MaxHealth),
		app.WithHabitPenalty(cfg.HabitPenalty),
		app.WithHabitReward(economy.Reward{XP: cfg.HabitRewardXP, Gold: cfg.HabitRewardGold}),
		app.WithTaskRoller(economy.NewRoller(
			economy.Range{Min: cfg.TaskXPMin, Max: cfg.TaskXPMax},
			economy.Range{Min: cfg.TaskGoldMin, Max: cfg.TaskGoldMax})),
		app.WithSubtaskRoller(economy.NewRoller(
			economy.Range{Min: cfg.SubtaskXPMin, Max: cfg.SubtaskXPMax},
			economy.Range{Min: cfg.SubtaskGoldMin, Max: cfg.SubtaskGoldMax})),
		app.WithRoutineRewards(focus.Rewards{
			Step:     economy.Reward{XP: cfg.RoutineStepXP, Gold: cfg.RoutineStepGold},
			Complete: economy.Reward{XP: cfg.RoutineBonusXP, Gold: cfg.RoutineBonusGold},
		}),
		app.WithUndoPolicy(undo),
		app.WithPlanner(planner.New(
			planner.WithEstimate(minutes(cfg.PlannerTaskMinutes)),
			planner.WithAvailable(minutes(cfg.PlannerDayMinutes)))),
		app.WithAssistant(assistant.NewSuite(stub)),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithSweepSchedule(cfg.SweepSchedule),
	), nil
}

// newMux registers the API, the docs and the dashboard.
func newMux(ctx context.Context, svc *app.Service, cfg *config.Config) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc, api.WithMaxAudioBytes(cfg.MaxAudioBytes)).Register(ctx, mux)
	site.Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that refreshes
// the service gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes queue, worker and player gauges.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()
	metrics.UpdateQueueSize(stats.QueueLength)
	metrics.UpdateQueueCapacity(stats.QueueCapacity)
}
