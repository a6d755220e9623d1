// Package app wires configuration, logging, observability, middleware and
// handlers into a runnable HTTP application.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"upixl/internal/config"
	apierrors "upixl/internal/errors"
	"upixl/internal/infrastructure"
	"upixl/internal/middleware"
	"upixl/internal/services"
	transporthttp "upixl/internal/transport/http"
	"upixl/internal/workbook"
)

// App is the assembled converter service.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	otel   *infrastructure.OTelProviders
	router chi.Router
	server *http.Server
}

// New builds the application from configuration.
func New(cfg *config.Config) (*App, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	providers, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	var metrics *infrastructure.ConversionMetrics
	if providers.Meter != nil {
		metrics, err = infrastructure.CreateConversionMetrics(providers.Meter)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics: %w", err)
		}
	}

	convertService := services.NewConvertService(logger, providers.Tracer, metrics)

	app := &App{
		cfg:    cfg,
		logger: logger,
		otel:   providers,
	}
	app.router = app.buildRouter(convertService, metrics)
	app.server = &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        app.router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	return app, nil
}

// Router exposes the assembled router, mainly for tests.
func (a *App) Router() chi.Router {
	return a.router
}

func (a *App) buildRouter(convertService transporthttp.ConvertServiceInterface, metrics *infrastructure.ConversionMetrics) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.NewOTelMiddleware(a.otel.Tracer, metrics, a.logger).Handler)
	r.Use(middleware.StructuredLogger(a.logger))
	r.Use(middleware.Recoverer(a.logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Compress(5))

	if a.cfg.Security.EnableCORS {
		r.Use(middleware.CORS(middleware.CORSConfig{
			AllowedOrigins: a.cfg.Security.AllowedOrigins,
			Logger:         a.logger,
		}))
	}
	if a.cfg.Security.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(
			a.cfg.Security.RateLimit.RPS,
			a.cfg.Security.RateLimit.Burst,
			a.logger,
		)
		r.Use(limiter.Handler)
	}

	errorHandler := apierrors.NewErrorHandler(a.logger)
	convertHandler := transporthttp.NewConvertHandler(
		convertService,
		a.logger,
		errorHandler,
		a.cfg.Convert.MaxUploadBytes,
		workbook.Mode(a.cfg.Convert.DefaultMode),
	)

	r.Mount("/api", convertHandler.Routes())
	r.Mount("/healthz", transporthttp.NewHealthHandler().Routes())
	r.Method(http.MethodGet, "/metrics", transporthttp.NewMetricsHandler(a.otel.PrometheusHTTP))

	return r
}

// Run starts the HTTP server and blocks until ctx is cancelled, an OS
// signal arrives, or the server fails. Shutdown is graceful within the
// configured timeout.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("server starting",
			slog.String("addr", a.server.Addr),
			slog.String("default_mode", a.cfg.Convert.DefaultMode))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		if err := a.otel.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("observability shutdown failed", slog.String("error", err.Error()))
		}
		return infrastructure.CloseLogFile()
	})

	return g.Wait()
}
