// Package app wires the application together: configuration, logging,
// observability, the license store, the state machine, and the HTTP router.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"issuerd/internal/config"
	"issuerd/internal/infrastructure"
	custommw "issuerd/internal/middleware"
	"issuerd/internal/services"
	"issuerd/internal/store"
	handlers "issuerd/internal/transport/http"
)

const (
	AppName = "Cloud Zoo Issuer Callback Server"
	Version = "1.0.0"
)

// Application is the main application container.
type Application struct {
	Config         *config.Config
	Router         *chi.Mux
	Server         *http.Server
	Store          *store.PostgresStore
	LicenseService services.LicenseService
	Logger         *slog.Logger
	OTelProviders  *infrastructure.OTelProviders
}

// NewApplication creates a new application instance with all dependencies
// constructed and injected.
func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Startup log lines share one trace ID so a boot sequence can be
	// correlated the same way a request can.
	ctx = infrastructure.EnsureTraceID(ctx)

	logger.InfoContext(ctx, "application starting",
		slog.String("name", AppName),
		slog.String("version", Version))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := app.initializeServices(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices connects the store and constructs the state machine.
func (a *Application) initializeServices(ctx context.Context) error {
	st, err := store.NewPostgresStore(ctx, a.Config.Database, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize license store: %w", err)
	}
	a.Store = st

	if a.Config.Database.BootstrapSchema {
		if err := st.Bootstrap(ctx); err != nil {
			st.Close()
			return fmt.Errorf("failed to bootstrap schema: %w", err)
		}
	}

	metrics, err := infrastructure.CreateLicenseMetrics(a.OTelProviders.Meter)
	if err != nil {
		a.Logger.Warn("license metrics unavailable", slog.String("error", err.Error()))
	}

	a.LicenseService = services.NewLicenseService(st, a.Logger, metrics)
	return nil
}

// setupRouter configures the HTTP router. The root liveness route and the
// Prometheus endpoint stay outside the authenticated group; everything else
// requires the issuer credential pair.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)
	r.Use(custommw.StructuredLogger(a.Logger))
	r.Use(custommw.Recoverer(a.Logger))
	r.Use(custommw.SecurityHeaders)

	healthHandler := handlers.NewHealthHandler(a.Store, a.Logger)
	r.Get("/", healthHandler.Index)
	r.Get("/healthz", healthHandler.Healthz)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(custommw.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		if a.Config.RateLimit.Enabled {
			r.Use(custommw.NewRateLimiter(
				a.Config.RateLimit.RPS,
				a.Config.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.Use(custommw.BasicAuth(a.Config.Issuer, a.Logger))

		licenseHandler := handlers.NewLicenseHandler(a.LicenseService, a.Config.Issuer.ID,
			a.Config.Database.QueryTimeout, a.Logger)
		licenseHandler.RegisterRoutes(r)
	})

	a.Router = r
}

// createServer creates the HTTP server.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start begins serving. A listen failure cancels the run context.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) {
	a.Logger.InfoContext(ctx, "server listening",
		slog.Int("port", a.Config.Server.Port))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()
}

// Stop gracefully stops the application.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down OpenTelemetry",
				slog.String("error", err.Error()))
		}
	}

	a.Store.Close()

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return nil
}

// Run runs the application until interrupted.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	a.Start(ctx, cancel)

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "received interrupt signal")
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}
