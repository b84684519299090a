package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jsamuelsen/quote-sync-service/internal/platform/logging"
)

// Overlap policies for the periodic sync driver.
const (
	// OverlapAllow starts a run on every tick even if one is in flight.
	OverlapAllow = "allow"

	// OverlapSkip drops a tick while the previous run is still going.
	OverlapSkip = "skip"
)

// DefaultSweepSpec is the cron spec of the session housekeeping job.
const DefaultSweepSpec = "@hourly"

// Syncer runs one sync.
type Syncer interface {
	Sync(ctx context.Context, opts SyncOptions) (SyncReport, error)
}

// Sweeper evicts expired sessions.
type Sweeper interface {
	Sweep() int
}

// Sweepers runs several sweepers as one and sums their evictions.
type Sweepers []Sweeper

// Sweep implements Sweeper.
func (s Sweepers) Sweep() int {
	n := 0
	for _, sw := range s {
		n += sw.Sweep()
	}

	return n
}

// SchedulerConfig configures the periodic sync driver.
type SchedulerConfig struct {
	Syncer  Syncer
	Overlap string

	// Sweeper is optional. When set it runs on SweepSpec.
	Sweeper   Sweeper
	SweepSpec string

	Logger *slog.Logger
}

// Scheduler drives SyncService on a fixed interval. Only one schedule is
// active at a time: Start replaces any previous one, and runs already in
// flight are left to finish.
type Scheduler struct {
	cfg    SchedulerConfig
	logger *slog.Logger

	mu       sync.Mutex
	cron     *cron.Cron
	interval time.Duration
}

// NewScheduler creates a stopped scheduler.
// Panics if Syncer is nil.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Syncer == nil {
		panic("Scheduler: Syncer is required")
	}

	if cfg.Overlap == "" {
		cfg.Overlap = OverlapAllow
	}

	if cfg.SweepSpec == "" {
		cfg.SweepSpec = DefaultSweepSpec
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{cfg: cfg, logger: logger.With(slog.String("component", "scheduler"))}
}

// every is a fixed-delay schedule. Unlike cron.Every it keeps sub-second
// precision.
type every time.Duration

func (e every) Next(t time.Time) time.Time {
	return t.Add(time.Duration(e))
}

// Start schedules a sync every interval, replacing any earlier schedule.
// ctx is the parent of every run.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("sync interval must be positive")
	}

	cl := cronLogger{logger: s.logger}

	wrappers := []cron.JobWrapper{cron.Recover(cl)}
	if s.cfg.Overlap == OverlapSkip {
		wrappers = append(wrappers, cron.SkipIfStillRunning(cl))
	}

	c := cron.New(cron.WithLogger(cl), cron.WithChain(wrappers...))
	c.Schedule(every(interval), cron.FuncJob(func() { s.tick(ctx) }))

	if s.cfg.Sweeper != nil {
		if _, err := c.AddFunc(s.cfg.SweepSpec, s.sweep); err != nil {
			return err
		}
	}

	s.mu.Lock()
	previous := s.cron
	s.cron = c
	s.interval = interval
	s.mu.Unlock()

	if previous != nil {
		previous.Stop()
		s.logger.Info("replaced sync schedule")
	}

	c.Start()
	s.logger.Info("sync scheduled",
		slog.Duration("interval", interval),
		slog.String("overlap", s.cfg.Overlap))

	return nil
}

// Stop cancels the schedule. The returned context is done once runs that
// were in flight have finished.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.interval = 0
	s.mu.Unlock()

	if c == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		return ctx
	}

	s.logger.Info("sync schedule stopped")

	return c.Stop()
}

// Interval returns the active interval, or zero when stopped.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.interval
}

func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	ctx = logging.WithContext(ctx, s.logger)
	if _, err := s.cfg.Syncer.Sync(ctx, SyncOptions{Trigger: TriggerScheduled}); err != nil {
		s.logger.ErrorContext(ctx, "scheduled sync rejected", slog.Any("error", err))
	}
}

func (s *Scheduler) sweep() {
	if n := s.cfg.Sweeper.Sweep(); n > 0 {
		s.logger.Info("expired sessions evicted", slog.Int("count", n))
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, slog.Any("error", err))...)
}
