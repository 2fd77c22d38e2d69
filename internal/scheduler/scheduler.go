package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/marquee/marquee/internal/metrics"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrTaskRunning  = errors.New("task is already running")
)

// TaskFunc is the function signature for scheduled tasks.
type TaskFunc func(ctx context.Context) error

// TaskConfig describes a periodic background task.
type TaskConfig struct {
	ID          string
	Name        string
	Description string
	Interval    time.Duration
	Func        TaskFunc
	RunOnStart  bool
}

// TaskInfo is the API view of a task.
type TaskInfo struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Interval    string     `json:"interval"`
	LastRun     *time.Time `json:"lastRun,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
	NextRun     *time.Time `json:"nextRun,omitempty"`
	Running     bool       `json:"running"`
	Runs        int        `json:"runs"`
	Failures    int        `json:"failures"`
}

type task struct {
	cfg      TaskConfig
	job      gocron.Job
	lastRun  *time.Time
	lastErr  error
	running  bool
	runs     int
	failures int
}

// Scheduler runs registered tasks on fixed intervals through gocron.
type Scheduler struct {
	cron   gocron.Scheduler
	clock  clockwork.Clock
	logger zerolog.Logger

	mu    sync.RWMutex
	tasks map[string]*task

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new scheduler. A nil clock means wall time.
func New(clock clockwork.Clock, logger zerolog.Logger) (*Scheduler, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	cron, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("create gocron scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron,
		clock:  clock,
		logger: logger.With().Str("component", "scheduler").Logger(),
		tasks:  make(map[string]*task),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// RegisterTask adds a task. IDs must be unique and intervals positive.
func (s *Scheduler) RegisterTask(cfg TaskConfig) error {
	if cfg.Interval <= 0 {
		return fmt.Errorf("task %q: interval must be positive", cfg.ID)
	}
	if cfg.Func == nil {
		return fmt.Errorf("task %q: no function", cfg.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[cfg.ID]; exists {
		return fmt.Errorf("task %q already registered", cfg.ID)
	}

	id := cfg.ID
	job, err := s.cron.NewJob(
		gocron.DurationJob(cfg.Interval),
		gocron.NewTask(func() { _, _ = s.run(id) }),
		gocron.WithName(cfg.Name),
		gocron.WithTags(id),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule task %q: %w", id, err)
	}

	s.tasks[id] = &task{cfg: cfg, job: job}

	s.logger.Info().
		Str("id", id).
		Str("name", cfg.Name).
		Dur("interval", cfg.Interval).
		Bool("runOnStart", cfg.RunOnStart).
		Msg("Registered task")
	return nil
}

// run executes a task once. ran is false when the task is unknown or an
// earlier run is still in progress.
func (s *Scheduler) run(id string) (ran bool, err error) {
	s.mu.Lock()
	t, exists := s.tasks[id]
	switch {
	case !exists:
		s.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	case t.running:
		s.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrTaskRunning, id)
	}
	t.running = true
	s.mu.Unlock()

	log := s.logger.With().Str("id", id).Str("name", t.cfg.Name).Logger()
	start := s.clock.Now()
	log.Debug().Msg("Starting task")

	err = t.cfg.Func(s.ctx)
	elapsed := s.clock.Since(start)
	metrics.ObserveTask(id, elapsed, err)

	s.mu.Lock()
	t.running = false
	t.lastRun = &start
	t.lastErr = err
	t.runs++
	if err != nil {
		t.failures++
	}
	s.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Dur("duration", elapsed).Msg("Task failed")
	} else {
		log.Debug().Dur("duration", elapsed).Msg("Task completed")
	}
	return true, err
}

// Start begins the interval schedule and fires RunOnStart tasks in the background.
func (s *Scheduler) Start() error {
	s.logger.Info().Msg("Starting scheduler")
	s.cron.Start()

	s.mu.RLock()
	var eager []string
	for id, t := range s.tasks {
		if t.cfg.RunOnStart {
			eager = append(eager, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range eager {
		go func() { _, _ = s.run(id) }()
	}
	return nil
}

// Stop cancels running tasks' context and shuts gocron down.
func (s *Scheduler) Stop() error {
	s.logger.Info().Msg("Stopping scheduler")
	s.cancel()
	return s.cron.Shutdown()
}

// RunNow runs a task synchronously and returns its error. It fails with
// ErrTaskNotFound or ErrTaskRunning without running anything.
func (s *Scheduler) RunNow(id string) error {
	_, err := s.run(id)
	return err
}

// ListTasks returns all registered tasks sorted by ID.
func (s *Scheduler) ListTasks() []TaskInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]TaskInfo, 0, len(s.tasks))
	for _, t := range s.tasks {
		infos = append(infos, t.info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// GetTask returns one task, or ErrTaskNotFound.
func (s *Scheduler) GetTask(id string) (*TaskInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.tasks[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	info := t.info()
	return &info, nil
}

// info must be called with the scheduler lock held.
func (t *task) info() TaskInfo {
	info := TaskInfo{
		ID:          t.cfg.ID,
		Name:        t.cfg.Name,
		Description: t.cfg.Description,
		Interval:    t.cfg.Interval.String(),
		LastRun:     t.lastRun,
		Running:     t.running,
		Runs:        t.runs,
		Failures:    t.failures,
	}
	if t.lastErr != nil {
		info.LastError = t.lastErr.Error()
	}
	if next, err := t.job.NextRun(); err == nil && !next.IsZero() {
		info.NextRun = &next
	}
	return info
}
