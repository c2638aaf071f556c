package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	domrepo "github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/repository"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/config"
	xhttp "github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/http"
	pkgkafka "github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/kafka"
	applogger "github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	handler    xhttp.Handler
	store      domrepo.Store
	events     domrepo.EventPublisher
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies. consumer and kh are
// nil when Kafka is disabled.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	handler xhttp.Handler,
	store domrepo.Store,
	events domrepo.EventPublisher,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
) *App {
	return &App{
		cfg:      cfg,
		logger:   logger,
		handler:  handler,
		store:    store,
		events:   events,
		consumer: consumer,
		kh:       kh,
	}
}

// Run starts the application and blocks until interrupted or until the
// HTTP server stops on its own.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout),
		xhttp.WithBodyLimit(a.cfg.Server.BodyLimit),
		xhttp.WithSlowThreshold(a.cfg.Server.SlowThreshold),
		xhttp.WithCORS(true, a.cfg.Server.CORSOrigins...),
		xhttp.WithLogger(a.logger),
	)

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			a.logger.Error("kafka consumer error", applogger.Error(err))
			return err
		}
		a.logger.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		_ = a.shutdown(ctx)
		return err
	}
	a.logger.Info("dashboard ready",
		applogger.String("env", a.cfg.Environment),
		applogger.String("store", a.cfg.Store.Backend),
		applogger.Bool("kafka", a.cfg.Kafka.Enabled),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var serveErr error
	select {
	case sig := <-sigCh:
		a.logger.Info("shutdown signal received", applogger.String("signal", sig.String()))
	case serveErr = <-a.httpServer.Done():
		a.logger.Warn("http server exited", applogger.Error(serveErr))
	}
	if err := a.shutdown(ctx); err != nil {
		return err
	}
	return serveErr
}

// shutdown stops intake first, then releases the stores and producers
// the request path depends on.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// The collector flushes through the event producer, so detach it first.
	a.logger.RemoveCollector()
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.logger.Warn("event publisher close error", applogger.Error(err))
		}
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("store close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
