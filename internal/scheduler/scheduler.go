package scheduler

import (
	"context"
	"fmt"
	"time"

	"PowerPull/internal/usecase"
	"PowerPull/pkg/lock"
	applogger "PowerPull/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Importer runs one flat-file import.
type Importer interface {
	Run(ctx context.Context) (usecase.ImportResult, error)
}

const importLockKey = "flatfile-import"

// Option configures Scheduler.
type Option func(*Scheduler)

// WithImportLock makes replicas sharing locker take turns on the import.
func WithImportLock(locker lock.Locker) Option {
	return func(s *Scheduler) { s.locker = locker }
}

// Scheduler runs periodic jobs. Specs carry a seconds field.
type Scheduler struct {
	cron     *cron.Cron
	importer Importer
	locker   lock.Locker
	timeout  time.Duration
	l        *applogger.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewScheduler(importer Importer, loc *time.Location, timeout time.Duration, l *applogger.Logger, opts ...Option) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if l == nil {
		l = applogger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		importer: importer,
		timeout:  timeout,
		l:        l,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterImport schedules the flat-file import. An empty spec disables it.
func (s *Scheduler) RegisterImport(spec string) error {
	if spec == "" || s.importer == nil {
		return nil
	}
	if _, err := s.cron.AddFunc(spec, s.importTask); err != nil {
		return fmt.Errorf("register import task: %w", err)
	}
	s.l.Info("import task registered", applogger.String("spec", spec))
	return nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int { return len(s.cron.Entries()) }

func (s *Scheduler) Start() {
	s.cron.Start()
	s.l.Info("scheduler started", applogger.Int("jobs", s.Jobs()))
}

// Stop cancels running jobs and waits for them until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.l.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunImportNow executes the import immediately.
func (s *Scheduler) RunImportNow() {
	s.importTask()
}

func (s *Scheduler) importTask() {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, importLockKey, s.leaseTTL())
		if err != nil {
			s.l.Error("import lock failed", applogger.Error(err))
			return
		}
		if !ok {
			s.l.Debug("import skipped, lease held elsewhere")
			return
		}
		defer func() {
			if err := s.locker.Unlock(context.WithoutCancel(ctx), importLockKey, token); err != nil {
				s.l.Warn("import unlock failed", applogger.Error(err))
			}
		}()
	}

	res, err := s.importer.Run(ctx)
	if err != nil {
		s.l.Error("scheduled import failed", applogger.Error(err))
		return
	}
	s.l.Debug("scheduled import done",
		applogger.Int("read", res.Read),
		applogger.Int("written", res.Written),
	)
}

func (s *Scheduler) leaseTTL() time.Duration {
	if s.timeout > 0 {
		return s.timeout
	}
	return time.Minute
}
