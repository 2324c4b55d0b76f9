package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	xhttp "LunarPull/pkg/http"
	applogger "LunarPull/pkg/logger"
)

// App encapsulates the read API lifecycle.
type App struct {
	httpServer      *xhttp.Server
	shutdownTimeout time.Duration
	log             *applogger.Logger
}

// New creates an App serving httpServer. Infrastructure clients are released
// by the cleanup returned from dependency injection, not by App.
func New(httpServer *xhttp.Server, shutdownTimeout time.Duration, log *applogger.Logger) *App {
	if log == nil {
		log = applogger.NewNop()
	}
	return &App{
		httpServer:      httpServer,
		shutdownTimeout: shutdownTimeout,
		log:             log,
	}
}

// Run starts the application and blocks until interrupted or ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return fmt.Errorf("start http server: %w", err)
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	a.log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		return err
	}

	a.log.Info("shutdown complete")
	return nil
}
