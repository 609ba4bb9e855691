// Paradox - voice-enabled study tutor server
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
	"google.golang.org/genai"

	"github.com/ashureev/paradox/internal/api"
	"github.com/ashureev/paradox/internal/assistant"
	"github.com/ashureev/paradox/internal/config"
	"github.com/ashureev/paradox/internal/healthsrv"
	"github.com/ashureev/paradox/internal/identity"
	"github.com/ashureev/paradox/internal/live"
	"github.com/ashureev/paradox/internal/middleware"
	"github.com/ashureev/paradox/internal/retention"
	"github.com/ashureev/paradox/internal/speech"
	"github.com/ashureev/paradox/internal/store"
	"github.com/ashureev/paradox/internal/studio"
	"github.com/ashureev/paradox/web"
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

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "streaming", cfg.Models.Streaming)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	if err := repo.Ping(ctx); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Models.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		slog.Error("Failed to initialize model client", "error", err)
		os.Exit(1)
	}
	slog.Info("Model client initialized",
		"text_model", cfg.Models.Text,
		"tts_model", cfg.Models.TTS,
		"live_model", cfg.Models.Live,
	)

	conversationLogger, err := assistant.NewConversationLogger(cfg.ConversationLog, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}

	// Initialize services.
	processor := assistant.NewGeminiProcessor(client, cfg.Models.Text, logger)
	service := assistant.NewService(processor, cfg.Models.Streaming, logger)
	limiter := assistant.NewRateLimiter(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowDuration)
	voices := speech.NewVoiceTable(cfg.Voices, nil)

	registry := studio.NewRegistry(studio.Deps{
		Repo:        repo,
		Assistant:   service,
		Words:       processor,
		Synth:       speech.NewGeminiSynthesizer(client, cfg.Models.TTS),
		Transcriber: speech.NewGeminiTranscriber(client, cfg.Models.Transcribe),
		Voices:      voices,
		HistoryCap:  cfg.Limits.HistoryCap,
		Lockout:     cfg.Limits.LockoutDuration,
	})
	liveMgr := live.NewManager()

	// Initialize handlers.
	assistantHandler := assistant.NewHandler(limiter, conversationLogger, cfg)
	defer assistantHandler.Close()
	apiHandler := api.NewHandler(repo, registry, assistantHandler, voices, cfg)
	healthHandler := api.NewHealthHandler(repo, 5*time.Second)
	wsHandler := live.NewWebSocketHandler(repo, live.NewGeminiDialer(client, cfg.Models.Live), liveMgr, voices, cfg.FrontendURL, cfg.IsDevelopment())

	allowedOrigins := []string{"*"}
	if !cfg.IsDevelopment() {
		allowedOrigins = []string{cfg.FrontendURL}
	}

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(allowedOrigins))
	r.Use(identity.Middleware(repo, cfg.IsDevelopment()))

	// Public routes.
	healthHandler.RegisterHealth(r)

	// All routes use identity middleware (no auth needed).
	apiHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/live", wsHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// SSE responses stream for the life of a request, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// Start background workers.
	retention.NewWorker(repo, cfg.Retention, cfg.Limits.HistoryCap,
		registry,
		retention.EvictFunc(limiter.Evict),
	).Start(ctx)

	if cfg.GRPCHealthAddr != "" {
		healthSrv := healthsrv.New(repo, 15*time.Second)
		go func() {
			if err := healthSrv.ListenAndServe(ctx, cfg.GRPCHealthAddr); err != nil {
				slog.Error("gRPC health server failed", "error", err)
			}
		}()
	}

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

	liveMgr.CloseAll()
	registry.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
