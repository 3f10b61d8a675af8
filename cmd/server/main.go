// PromptLabs - AI prompt-injection training server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ashureev/promptlabs/internal/api"
	"github.com/ashureev/promptlabs/internal/catalogue"
	"github.com/ashureev/promptlabs/internal/config"
	"github.com/ashureev/promptlabs/internal/gateway"
	"github.com/ashureev/promptlabs/internal/identity"
	"github.com/ashureev/promptlabs/internal/middleware"
	"github.com/ashureev/promptlabs/internal/orchestrator"
	"github.com/ashureev/promptlabs/internal/session"
	"github.com/ashureev/promptlabs/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Load the challenge catalogue; templates are validated here so a bad
	// placeholder fails at startup, not at request time.
	var cat *catalogue.Catalogue
	if cfg.ChallengesPath != "" {
		cat, err = catalogue.LoadFile(cfg.ChallengesPath)
	} else {
		cat, err = catalogue.LoadDefault()
	}
	if err != nil {
		slog.Error("Failed to load challenge catalogue", "error", err)
		os.Exit(1)
	}
	slog.Info("Challenge catalogue loaded", "challenges", len(cat.Slugs()))

	model, err := gateway.NewOpenAIGateway(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.GatewayTimeout)
	if err != nil {
		slog.Error("Failed to initialize model gateway", "error", err)
		os.Exit(1)
	}

	sessions := session.NewStore(session.WithMaxTurnPairs(cfg.MaxTurnPairs))
	orch := orchestrator.New(cat, sessions, model, repo)

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, cat, orch)
	challengeHandler := api.NewChallengeHandler(baseHandler, cfg)
	healthHandler := api.NewHealthHandler(repo)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	// Health stays outside the identity middleware: a database outage must
	// surface as a degraded report, not as a failed identity lookup, and a
	// cookie-less probe must not provision a user row.
	healthHandler.RegisterHealth(r)

	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo, cfg.IsDevelopment()))
		challengeHandler.RegisterRoutes(r)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * cfg.GatewayTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start session sweeper.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions.StartSweeper(ctx, cfg.SweepInterval, cfg.SessionIdleTTL)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
