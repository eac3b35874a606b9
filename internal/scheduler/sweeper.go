// Package scheduler runs the periodic cache sweeps.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SweepFunc drops expired entries and returns how many it removed.
type SweepFunc func(ctx context.Context) int

// Sweeper runs every registered sweep on one cron schedule.
type Sweeper struct {
	cron   *cron.Cron
	spec   string // cron spec, e.g. "@every 5m"
	logger *zap.Logger

	mu   sync.Mutex
	jobs map[string]SweepFunc
}

func New(spec string, logger *zap.Logger) *Sweeper {
	cl := cronLogger{logger.Sugar()}
	return &Sweeper{
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl))),
		spec:   spec,
		logger: logger,
		jobs:   make(map[string]SweepFunc),
	}
}

// Add registers a sweep under name. Adding after Start is not supported.
func (s *Sweeper) Add(name string, fn SweepFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[name] = fn
}

// Start registers the job and starts the scheduler.
func (s *Sweeper) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	s.cron.Start()
	s.logger.Info("cache sweeper started", zap.String("spec", s.spec))
	return nil
}

// Stop stops the scheduler and waits for a running sweep.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("cache sweeper stopped")
}

// RunOnce runs every sweep in name order and returns the removed counts.
func (s *Sweeper) RunOnce(ctx context.Context) map[string]int {
	s.mu.Lock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	jobs := s.jobs
	s.mu.Unlock()
	sort.Strings(names)

	removed := make(map[string]int, len(names))
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		removed[name] = jobs[name](ctx)
		if removed[name] > 0 {
			s.logger.Debug("cache swept", zap.String("cache", name), zap.Int("removed", removed[name]))
		}
	}
	return removed
}

// cronLogger routes cron's own messages to zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
