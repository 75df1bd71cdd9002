package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs the periodic pool and chart refreshes.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
	ctx    context.Context
}

// NewScheduler creates a scheduler using standard five-field cron specs and
// descriptors such as "@midnight", evaluated in UTC. Overlapping runs of one
// job are skipped.
func NewScheduler(ctx context.Context, logger *zap.Logger) *Scheduler {
	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		ctx:    ctx,
	}
}

// AddPoolRefresh reloads the pool directory on spec.
func (s *Scheduler) AddPoolRefresh(spec string, d *Directory) error {
	if spec == "" {
		return nil
	}
	if _, err := s.cron.AddFunc(spec, func() {
		if err := d.Refresh(s.ctx); err != nil {
			s.logger.Warn("scheduled pool refresh failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("register pool refresh: %w", err)
	}
	s.logger.Info("pool refresh scheduled", zap.String("spec", spec))
	return nil
}

// AddChartRefresh calls reload on spec. An empty spec disables it.
func (s *Scheduler) AddChartRefresh(spec string, reload func()) error {
	if spec == "" {
		return nil
	}
	if _, err := s.cron.AddFunc(spec, reload); err != nil {
		return fmt.Errorf("register chart refresh: %w", err)
	}
	s.logger.Info("chart refresh scheduled", zap.String("spec", spec))
	return nil
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
