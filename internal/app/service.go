// Package service implements every anchor operation on top of the state
// store, the domain packages and the voice pipeline. The HTTP API and the
// scheduler depend on it.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/anchor/internal/adapters/mq/queue"
	"github.com/okian/anchor/internal/adapters/mq/worker"
	"github.com/okian/anchor/internal/adapters/repository"
	"github.com/okian/anchor/internal/domain/assistant"
	"github.com/okian/anchor/internal/domain/dedupe"
	"github.com/okian/anchor/internal/domain/economy"
	"github.com/okian/anchor/internal/domain/focus"
	"github.com/okian/anchor/internal/domain/model"
	"github.com/okian/anchor/internal/domain/planner"
	"github.com/okian/anchor/internal/domain/streak"
	"github.com/okian/anchor/internal/jobs"
	"github.com/okian/anchor/pkg/logger"
	"github.com/okian/anchor/pkg/metrics"
)

// Service implements the API dependencies for anchor.
type Service struct {
	mu sync.RWMutex

	// Core components
	backend   repository.Backend
	store     *repository.Store
	calendar  streak.Calendar
	catalog   *economy.Catalog
	routines  []model.Routine
	planner   *planner.Planner
	assistant assistant.Suite
	newID     func() string

	// Rules
	maxHealth      int
	habitPenalty   int
	habitReward    economy.Reward
	taskRoller     *economy.Roller
	subtaskRoller  *economy.Roller
	routineRewards focus.Rewards
	undo           economy.UndoPolicy

	// Voice pipeline
	queueSize   int
	workerCount int
	dedupeSize  int
	queue       *queue.InMemoryQueue
	pool        *worker.Pool
	deduper     dedupe.Deduper
	jobsMu      sync.RWMutex
	jobs        map[string]model.JobResult

	// Daily sweep
	sweepSchedule string
	scheduler     *jobs.Scheduler

	// Purchases live for the process only.
	historyMu sync.Mutex
	history   []model.Purchase

	// Focus routine
	focusMu      sync.Mutex
	session      *focus.Session
	tickInterval time.Duration
	tickStop     context.CancelFunc
	lastTick     time.Time

	// State
	started bool
	closed  bool
	cancel  context.CancelFunc

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithBackend sets the persistence backend. The default keeps state in memory.
func WithBackend(b repository.Backend) Option {
	return func(s *Service) {
		if b != nil {
			s.backend = b
		}
	}
}

// WithCalendar sets the clock and timezone used for calendar days.
func WithCalendar(c streak.Calendar) Option {
	return func(s *Service) {
		s.calendar = c
	}
}

// WithMaxHealth sets the player's maximum health.
func WithMaxHealth(maxHealth int) Option {
	return func(s *Service) {
		if maxHealth > 0 {
			s.maxHealth = maxHealth
		}
	}
}

// WithPlanner replaces the morning brief planner.
func WithPlanner(p *planner.Planner) Option {
	return func(s *Service) {
		if p != nil {
			s.planner = p
		}
	}
}

// WithHabitPenalty sets the damage per missed habit.
func WithHabitPenalty(penalty int) Option {
	return func(s *Service) {
		if penalty >= 0 {
			s.habitPenalty = penalty
		}
	}
}

// WithHabitReward sets what completing a habit pays.
func WithHabitReward(r economy.Reward) Option {
	return func(s *Service) {
		s.habitReward = r
	}
}

// WithTaskRoller sets the reward roller for manually created tasks.
func WithTaskRoller(r *economy.Roller) Option {
	return func(s *Service) {
		if r != nil {
			s.taskRoller = r
		}
	}
}

// WithSubtaskRoller sets the reward roller for decomposed tasks.
func WithSubtaskRoller(r *economy.Roller) Option {
	return func(s *Service) {
		if r != nil {
			s.subtaskRoller = r
		}
	}
}

// WithRoutineRewards sets the focus routine payouts.
func WithRoutineRewards(r focus.Rewards) Option {
	return func(s *Service) {
		s.routineRewards = r
	}
}

// WithUndoPolicy sets what un-completing a task or habit does to its reward.
func WithUndoPolicy(p economy.UndoPolicy) Option {
	return func(s *Service) {
		if p != "" {
			s.undo = p
		}
	}
}

// WithAssistant sets the transcription, tone and decomposition capabilities.
func WithAssistant(a assistant.Suite) Option {
	return func(s *Service) {
		if a.Transcriber != nil && a.ToneAdjuster != nil && a.Decomposer != nil {
			s.assistant = a
		}
	}
}

// WithWorkerCount sets the number of voice pipeline workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending voice jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many request ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithSweepSchedule sets the cron expression for the penalty sweep. An empty
// schedule disables the scheduler; the start-up sweep still runs.
func WithSweepSchedule(schedule string) Option {
	return func(s *Service) {
		s.sweepSchedule = schedule
	}
}

// WithTickInterval sets how often a running routine is advanced.
func WithTickInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		calendar:      streak.NewCalendar(time.Local, time.Now),
		catalog:       economy.NewCatalog(model.DefaultCatalog()),
		routines:      model.DefaultRoutines(),
		planner:       planner.New(),
		assistant:     assistant.NewSuite(assistant.NewStub()),
		newID:         uuid.NewString,
		maxHealth:     100,
		habitPenalty:  5,
		habitReward:   economy.Reward{XP: 10, Gold: 3},
		taskRoller:    economy.NewRoller(economy.Range{Min: 15, Max: 24}, economy.Range{Min: 5, Max: 9}),
		subtaskRoller: economy.NewRoller(economy.Range{Min: 10, Max: 24}, economy.Range{Min: 3, Max: 9}),
		routineRewards: focus.Rewards{
			Step:     economy.Reward{XP: 5, Gold: 2},
			Complete: economy.Reward{XP: 50, Gold: 20},
		},
		undo:          economy.KeepReward,
		queueSize:     64,
		workerCount:   2,
		dedupeSize:    10_000,
		sweepSchedule: "0 0 * * *",
		tickInterval:  time.Second,
		jobs:          make(map[string]model.JobResult),
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.backend == nil {
		s.backend = repository.NewMemoryBackend()
	}
	s.store = repository.NewStore(s.backend,
		repository.WithLogger(s.logger.Named("store")),
		repository.WithMaxHealth(s.maxHealth),
	)
	return s
}

// Start loads state, runs the session-start sweep and launches the voice
// workers and the daily scheduler.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting anchor service...")

	if err := s.store.Load(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	if _, err := s.SweepHabits(runCtx); err != nil {
		cancel()
		return err
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, voiceProcessor{s},
		worker.WithPoolLogger(s.logger.Named("voice")))
	s.pool.Start(runCtx)

	if s.sweepSchedule != "" {
		sched, err := jobs.NewScheduler(s.calendar.Location(), s.sweepSchedule, s,
			jobs.WithLogger(s.logger.Named("scheduler")))
		if err != nil {
			cancel()
			return err
		}
		if err := sched.Start(runCtx); err != nil {
			cancel()
			return err
		}
		s.scheduler = sched
	}

	s.started = true
	s.publishPlayer(s.store.Snapshot().Player)
	s.logger.Info(ctx, "anchor service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("undoPolicy", string(s.undo)),
	)
	return nil
}

// Stop halts the voice workers, the routine ticker and the scheduler. The
// backend stays open, so Start may be called again; Close releases it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping anchor service...")

	if s.scheduler != nil {
		s.scheduler.Stop()
		s.scheduler = nil
	}
	s.stopTicker()
	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "voice pool shutdown", logger.Error(err))
		}
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "anchor service stopped")
}

// Close stops the service if it is running and releases the storage backend.
// It also cleans up after a failed Start. A closed service cannot be started
// again.
func (s *Service) Close() error {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}

// Stats is a snapshot of service counters for monitoring.
type Stats struct {
	Started        bool   `json:"started"`
	Level          int    `json:"level"`
	OpenTasks      int    `json:"open_tasks"`
	CompletedTasks int    `json:"completed_tasks"`
	Habits         int    `json:"habits"`
	QueueLength    int    `json:"queue_length"`
	QueueCapacity  int    `json:"queue_capacity"`
	WorkerCount    int    `json:"worker_count"`
	TrackedJobs    int    `json:"tracked_jobs"`
	Purchases      int    `json:"purchases"`
	RoutineActive  bool   `json:"routine_active"`
	UndoPolicy     string `json:"undo_policy"`
	NextSweep      string `json:"next_sweep,omitempty"`
}

// GetStats returns service statistics and refreshes the gauges.
func (s *Service) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.store.Snapshot()
	stats := Stats{
		Started:       s.started,
		Level:         st.Player.Level,
		Habits:        len(st.Habits),
		QueueCapacity: s.queueSize,
		WorkerCount:   s.workerCount,
		UndoPolicy:    string(s.undo),
	}
	for _, t := range st.Tasks {
		if t.Completed {
			stats.CompletedTasks++
		} else {
			stats.OpenTasks++
		}
	}
	if s.queue != nil {
		stats.QueueLength = s.queue.Len()
		metrics.UpdateQueueSize(stats.QueueLength)
	}
	if s.scheduler != nil {
		if next := s.scheduler.Next(); !next.IsZero() {
			stats.NextSweep = next.Format(time.RFC3339)
		}
	}

	s.jobsMu.RLock()
	stats.TrackedJobs = len(s.jobs)
	s.jobsMu.RUnlock()

	s.historyMu.Lock()
	stats.Purchases = len(s.history)
	s.historyMu.Unlock()

	s.focusMu.Lock()
	stats.RoutineActive = s.session != nil && !s.session.Finished()
	s.focusMu.Unlock()

	metrics.UpdateWorkerCount(s.workerCount)
	s.publishPlayer(st.Player)
	return stats
}

// Started reports whether Start completed.
func (s *Service) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func (s *Service) publishPlayer(p model.Player) {
	metrics.UpdatePlayer(p.Experience, p.Level, p.Health, p.Gold)
}
