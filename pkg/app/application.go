package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/julienschmidt/httprouter"

	"voucherdesk/pkg/config"
	"voucherdesk/pkg/contracts"
	"voucherdesk/pkg/middleware"
)

// Stopper is a background worker stopped during graceful shutdown, in the
// order it was registered.
type Stopper interface {
	Stop()
}

// StopFunc adapts a plain function to Stopper.
type StopFunc func()

func (f StopFunc) Stop() { f() }

type Application struct {
	cfg            *config.Config
	server         *http.Server
	workers        []Stopper
	healthHandler  http.Handler
	appHttpHandler http.Handler
}

func NewApplication(cfg *config.Config) *Application {
	return &Application{cfg: cfg}
}

func (a *Application) SetApp(healthHandler, appHandler contracts.Handler, workers ...Stopper) {
	a.workers = workers
	a.setHealthHandler(healthHandler)
	a.setAppHandler(appHandler)
	a.setAppServer()
}

func (a *Application) setHealthHandler(handler contracts.Handler) {
	healthRouter := httprouter.New()
	handler.RegisterRoutes(healthRouter)

	var healthHTTPHandler http.Handler = healthRouter
	healthHTTPHandler = middleware.RequestLogging(a.cfg.Log)(healthHTTPHandler)
	healthHTTPHandler = middleware.Recovery(a.cfg.Log)(healthHTTPHandler)
	a.healthHandler = healthHTTPHandler
	a.cfg.Log.Info("Health endpoints configured with minimal middleware (Recovery + Logging only)")
}

func (a *Application) setAppHandler(handler contracts.Handler) {
	appRouter := httprouter.New()
	handler.RegisterRoutes(appRouter)

	var appHttpHandler http.Handler = appRouter
	appHttpHandler = middleware.RequestTimeout(a.cfg.RequestTimeout)(appHttpHandler)
	appHttpHandler = middleware.ContentTypeValidation(a.cfg.Log, middleware.ContentTypeForm, middleware.ContentTypeJSON)(appHttpHandler)
	appHttpHandler = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize))(appHttpHandler)
	appHttpHandler = middleware.RequestLogging(a.cfg.Log)(appHttpHandler)
	appHttpHandler = middleware.Recovery(a.cfg.Log)(appHttpHandler)
	a.appHttpHandler = appHttpHandler
	a.cfg.Log.Info("Screen endpoints configured with full middleware stack")
}

func (a *Application) setAppServer() {
	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      a.Handler(),
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

// Handler returns the routed handler tree served by Run.
func (a *Application) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/health", a.healthHandler)
	mux.Handle("/ready", a.healthHandler)
	mux.Handle("/", a.appHttpHandler)
	return mux
}

func (a *Application) Run() {
	serverErrors := make(chan error, 1)

	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		a.cfg.Log.Fatal("HTTP server failed", "error", err)

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		a.gracefulShutdown()
	}
}

func (a *Application) gracefulShutdown() {
	a.cfg.Log.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Fatal("Could not stop server gracefully", "error", err)
		}
	}
	a.cfg.Log.Info("Server stopped gracefully")

	a.cfg.Log.Info("Stopping background workers...", "count", len(a.workers))
	for _, w := range a.workers {
		w.Stop()
	}
	a.cfg.Log.Info("Background workers stopped")

	a.cfg.GracefulShutdown()
}
