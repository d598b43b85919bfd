package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	mid "PowerPull/internal/middleware"
	"PowerPull/internal/scheduler"
	"PowerPull/pkg/config"
	xhttp "PowerPull/pkg/http"
	pkgkafka "PowerPull/pkg/kafka"
	applogger "PowerPull/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	batcher    *mid.IngestBatcher
	scheduler  *scheduler.Scheduler
}

// New creates a new App. consumer and batcher are nil when Kafka is disabled.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	batcher *mid.IngestBatcher,
	sched *scheduler.Scheduler,
) *App {
	return &App{
		cfg:        cfg,
		l:          l,
		httpServer: httpServer,
		consumer:   consumer,
		batcher:    batcher,
		scheduler:  sched,
	}
}

// Run starts every component and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	if a.batcher != nil {
		a.batcher.Start(context.WithoutCancel(ctx))
	}
	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			a.l.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
		a.l.Info("kafka consumer started", applogger.String("topic", a.cfg.Kafka.IngestTopic))
	}
	if a.scheduler != nil {
		a.scheduler.Start()
	}
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("powerpull started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("store", a.cfg.Store.Driver),
		applogger.Int("port", a.cfg.Server.Port),
	)

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown stops intake first, then drains buffered rows.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}
	if a.scheduler != nil {
		if err := a.scheduler.Stop(ctx); err != nil {
			a.l.Warn("scheduler stop error", applogger.Error(err))
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.batcher != nil {
		if err := a.batcher.Stop(ctx); err != nil {
			a.l.Warn("ingest batcher stop error", applogger.Error(err))
		}
	}
	a.l.Info("shutdown complete")
	return nil
}
