package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	domrepo "PricePulse/internal/domain/repository"
	"PricePulse/internal/usecase"
	"PricePulse/pkg/config"
	xhttp "PricePulse/pkg/http"
	pkgkafka "PricePulse/pkg/kafka"
	applogger "PricePulse/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	loader     *usecase.StoreLoader
	pipeline   *usecase.IngestPipeline
	advisor    *usecase.PriceAdvisor
	events     domrepo.EventPublisher

	consumer *pkgkafka.Consumer
	kh       pkgkafka.MessageHandler
	logPub   applogger.Publisher
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	loader *usecase.StoreLoader,
	pipeline *usecase.IngestPipeline,
	advisor *usecase.PriceAdvisor,
	events domrepo.EventPublisher,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		httpServer: httpServer,
		loader:     loader,
		pipeline:   pipeline,
		advisor:    advisor,
		events:     events,
	}
}

// WithConsumer attaches the Kafka price-row consumer.
func (a *App) WithConsumer(c *pkgkafka.Consumer, h pkgkafka.MessageHandler) {
	a.consumer, a.kh = c, h
}

// WithLogPublisher enables the log collector when configured.
func (a *App) WithLogPublisher(p applogger.Publisher) {
	a.logPub = p
}

// Start loads the store, starts background workers and the HTTP server.
func (a *App) Start(ctx context.Context) error {
	lc := a.cfg.Logging.Collector
	if lc.Enabled && a.logPub != nil {
		a.log.AddCollector(&applogger.CollectionConfig{
			Service:        "pricepulse",
			TimeInterval:   lc.Interval,
			CountThreshold: lc.CountThreshold,
			Topic:          lc.Topic,
			Publisher:      a.logPub,
		})
		a.log.Info("log collector enabled", applogger.String("topic", lc.Topic))
	}

	if a.cfg.Store.LoadOnStart {
		if _, err := a.loader.Reload(ctx); err != nil {
			if !errors.Is(err, usecase.ErrNoSource) {
				// serve anyway; health reports empty until a reload succeeds
				a.log.Warn("initial price load failed", applogger.Error(err))
			}
		}
	}
	if err := a.loader.Schedule(a.cfg.Store.ReloadCron); err != nil {
		return err
	}

	a.pipeline.Start()

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			return err
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	return a.httpServer.Start()
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx := context.Background()
	if err := a.Start(ctx); err != nil {
		a.log.Error("app start error", applogger.Error(err))
		_ = a.Shutdown(ctx)
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.Shutdown(ctx)
}

// Shutdown stops intake first, then drains workers and publishers.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	a.pipeline.Stop()
	a.loader.Stop(shutdownCtx)
	a.advisor.Close()

	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.log.Warn("event publisher close error", applogger.Error(err))
		}
	}

	a.log.RemoveCollector()
	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
