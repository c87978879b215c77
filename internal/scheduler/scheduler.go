// Package scheduler implements C12: cron-driven daily/weekly crawl sweeps,
// a retry sweep, and a health tick, all single-instance-per-tick.
package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mjochum64/law-crawler-service/internal/clock"
	"github.com/mjochum64/law-crawler-service/internal/clock/system"
	"github.com/mjochum64/law-crawler-service/internal/logging"
	"github.com/mjochum64/law-crawler-service/internal/orchestrator"
)

// Config configures the scheduler's cron triggers (spec §4.12).
type Config struct {
	Enabled bool

	DaysBack int

	DailyCron  string
	WeeklyCron string
	RetryCron  string
	HealthCron string

	DailyInterDateSleepMs  int
	WeeklyInterDateSleepMs int
}

func (c Config) withDefaults() Config {
	if c.DaysBack <= 0 {
		c.DaysBack = 7
	}
	if c.DailyCron == "" {
		c.DailyCron = "0 6 * * *"
	}
	if c.WeeklyCron == "" {
		c.WeeklyCron = "0 2 * * 0"
	}
	if c.RetryCron == "" {
		c.RetryCron = "0 */6 * * *"
	}
	if c.HealthCron == "" {
		c.HealthCron = "0 * * * *"
	}
	if c.DailyInterDateSleepMs <= 0 {
		c.DailyInterDateSleepMs = 5000
	}
	if c.WeeklyInterDateSleepMs <= 0 {
		c.WeeklyInterDateSleepMs = 10000
	}
	return c
}

// Scheduler implements C12. Each job type guards itself against overlapping
// runs with its own atomic flag: a trigger that fires while the previous run
// of the same job is still in flight is skipped, not queued.
type Scheduler struct {
	cron   *cron.Cron
	orch   *orchestrator.Orchestrator
	cfg    Config
	clock  clock.Clock
	logger *zap.Logger

	dailyRunning  atomic.Bool
	weeklyRunning atomic.Bool
	retryRunning  atomic.Bool
}

// New constructs a Scheduler over orch.
func New(orch *orchestrator.Orchestrator, cfg Config, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		orch:   orch,
		cfg:    cfg.withDefaults(),
		clock:  system.New(),
		logger: logging.NopIfNil(logger),
	}
}

// SetClock overrides the scheduler's clock (tests).
func (s *Scheduler) SetClock(c clock.Clock) { s.clock = c }

// Start registers the four triggers and starts the cron loop. It is a no-op
// if the scheduler is disabled.
func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		s.logger.Info("scheduler disabled, no jobs registered")
		return nil
	}

	jobs := []struct {
		name string
		spec string
		fn   func()
	}{
		{"daily", s.cfg.DailyCron, s.runDaily},
		{"weekly", s.cfg.WeeklyCron, s.runWeekly},
		{"retry_sweep", s.cfg.RetryCron, s.runRetrySweep},
		{"health_tick", s.cfg.HealthCron, s.runHealthTick},
	}
	for _, j := range jobs {
		if _, err := s.cron.AddFunc(j.spec, j.fn); err != nil {
			return fmt.Errorf("register %s job (%q): %w", j.name, j.spec, err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits for any in-flight job to finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runDaily() {
	if !s.dailyRunning.CompareAndSwap(false, true) {
		s.logger.Debug("daily sweep already running, skipping tick")
		return
	}
	defer s.dailyRunning.Store(false)

	ctx := context.Background()
	yesterday := s.clock.Now().Truncate(24 * time.Hour).AddDate(0, 0, -1)
	s.sweepDates(ctx, yesterday, s.cfg.DaysBack, false, s.cfg.DailyInterDateSleepMs)
}

func (s *Scheduler) runWeekly() {
	if !s.weeklyRunning.CompareAndSwap(false, true) {
		s.logger.Debug("weekly sweep already running, skipping tick")
		return
	}
	defer s.weeklyRunning.Store(false)

	ctx := context.Background()
	yesterday := s.clock.Now().Truncate(24 * time.Hour).AddDate(0, 0, -1)
	s.sweepDates(ctx, yesterday, 30, true, s.cfg.WeeklyInterDateSleepMs)
}

// sweepDates walks backward from end for count days, invoking the per-date
// orchestrator on each and pacing with an inter-date sleep.
func (s *Scheduler) sweepDates(ctx context.Context, end time.Time, count int, forceUpdate bool, sleepMs int) {
	for i := 0; i < count; i++ {
		date := end.AddDate(0, 0, -i)
		summary, err := s.orch.Crawl(ctx, date, forceUpdate)
		if err != nil {
			s.logger.Warn("scheduled crawl failed", zap.Time("date", date), zap.Error(err))
			sleepCtx(ctx, sleepMs)
			continue
		}
		s.logger.Info("scheduled crawl completed",
			zap.Time("date", date),
			zap.Int("new", summary.NewDocs),
			zap.Int("updated", summary.UpdatedDocs),
			zap.Int("failed", summary.FailedDocs),
		)
		sleepCtx(ctx, sleepMs)
	}
}

func (s *Scheduler) runRetrySweep() {
	if !s.retryRunning.CompareAndSwap(false, true) {
		s.logger.Debug("retry sweep already running, skipping tick")
		return
	}
	defer s.retryRunning.Store(false)

	succeeded, err := s.orch.RetryFailed(context.Background(), s.clock.Now())
	if err != nil {
		s.logger.Warn("retry sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("retry sweep completed", zap.Int("succeeded", succeeded))
}

func (s *Scheduler) runHealthTick() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	s.logger.Info("health tick",
		zap.Uint64("heap_alloc_bytes", mem.HeapAlloc),
		zap.Uint64("sys_bytes", mem.Sys),
		zap.Int("goroutines", runtime.NumGoroutine()),
	)
}

func sleepCtx(ctx context.Context, ms int) {
	if ms <= 0 {
		return
	}
	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
