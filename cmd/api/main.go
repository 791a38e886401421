// Package main is the entrypoint for the Snaplink API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/snaplink/snaplink/internal/analytics"
	"github.com/snaplink/snaplink/internal/config"
	"github.com/snaplink/snaplink/internal/handler"
	"github.com/snaplink/snaplink/internal/middleware"
	"github.com/snaplink/snaplink/internal/server"
	"github.com/snaplink/snaplink/internal/shortener"
	"github.com/snaplink/snaplink/internal/store"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize Redis
	st, err := store.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer st.Close()
	logger.Info("connected to Redis")

	// Initialize stores and the click-event pipeline
	aliasStore := store.NewAliasStore(st)
	counterStore := store.NewCounterStore(st)
	stream := analytics.NewStream(st.Client())
	publisher := analytics.NewPublisher(stream, logger)

	aggregator := analytics.NewAggregator(stream, counterStore, logger, analytics.NewConsumerID())
	aggregator.SetPollInterval(cfg.PollInterval)
	aggregator.SetBatchSize(cfg.BatchSize)

	// Initialize services
	linkService := shortener.NewService(aliasStore, counterStore, cfg.BaseURL, cfg.AliasTTL)

	// Initialize handlers
	h := handler.New()
	healthHandler := handler.NewHealthHandler(st)
	shortenHandler := handler.NewShortenHandler(linkService, logger)
	redirectHandler := handler.NewRedirectHandler(linkService, publisher, logger)
	statsHandler := handler.NewStatsHandler(linkService, logger)

	// Setup router
	r := setupRouter(h, healthHandler, shortenHandler, redirectHandler, statsHandler, logger)

	// Create server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Run the aggregator in the background; it drains on shutdown after the
	// HTTP server has stopped producing click events.
	aggCtx, aggCancel := context.WithCancel(ctx)
	defer aggCancel()
	go func() {
		if err := aggregator.Run(aggCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("aggregator stopped", "error", err)
		}
	}()
	srv.OnShutdown("click-aggregator", aggregator.Shutdown)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_url", cfg.BaseURL,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h *handler.Handler,
	healthHandler *handler.HealthHandler,
	shortenHandler *handler.ShortenHandler,
	redirectHandler *handler.RedirectHandler,
	statsHandler *handler.StatsHandler,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	// Health endpoints
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)

	// Root info endpoint
	r.Get("/", h.Hello)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/shorten", shortenHandler.Shorten)
		r.Get("/stats/{alias}", statsHandler.Stats)
	})

	// Redirect handler
	r.Get("/{alias}", redirectHandler.Redirect)

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
