// Package main is the entrypoint for the Inkwell API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/inkwell/inkwell/internal/cache"
	"github.com/inkwell/inkwell/internal/config"
	"github.com/inkwell/inkwell/internal/genai"
	"github.com/inkwell/inkwell/internal/handler"
	"github.com/inkwell/inkwell/internal/identity"
	"github.com/inkwell/inkwell/internal/media"
	"github.com/inkwell/inkwell/internal/metrics"
	"github.com/inkwell/inkwell/internal/middleware"
	"github.com/inkwell/inkwell/internal/quota"
	"github.com/inkwell/inkwell/internal/repository"
	"github.com/inkwell/inkwell/internal/server"
	"github.com/inkwell/inkwell/internal/service"
)

func main() {
	ctx := context.Background()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	identityClient := identity.NewClient(identity.Config{
		BaseURL:          cfg.IdentityAPIURL,
		SecretKey:        cfg.IdentitySecretKey,
		SessionJWTSecret: cfg.SessionJWTSecret,
		Timeout:          cfg.IdentityTimeout,
	})
	textClient := genai.NewClient(genai.Config{
		BaseURL: cfg.LLMBaseURL,
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
		Timeout: cfg.LLMTimeout,
	})
	imageClient := genai.NewImageClient(genai.ImageConfig{
		Endpoint: cfg.ImageAPIURL,
		APIKey:   cfg.ImageAPIKey,
		Timeout:  cfg.ImageTimeout,
	})
	mediaClient := media.NewClient(media.Config{
		UploadURL:   cfg.MediaUploadURL,
		DeliveryURL: cfg.MediaDeliveryURL,
		CloudName:   cfg.MediaCloudName,
		APIKey:      cfg.MediaAPIKey,
		APISecret:   cfg.MediaAPISecret,
		Timeout:     cfg.MediaTimeout,
	})

	metricsRecorder := metrics.NewNoop()

	creationService := service.NewCreationService(service.CreationServiceConfig{
		Repo:    repo,
		Plans:   identityClient,
		Cache:   cacheClient,
		Text:    textClient,
		Images:  imageClient,
		Assets:  mediaClient,
		Gate:    quota.NewGate(cfg.FreeTierLimit),
		Metrics: metricsRecorder,
		Logger:  logger,
	})

	aiHandler := handler.NewAIHandler(creationService, cfg.MaxUploadSize, logger)
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	webhookHandler := handler.NewWebhookHandler(cfg.IdentityWebhookSecret, identity.DefaultReplayWindow, cacheClient, logger)

	r := setupRouter(aiHandler, healthHandler, webhookHandler, identityClient, cacheClient, metricsRecorder, cfg, logger)

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	logger.Info("starting server",
		"port", cfg.AppPort,
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
	aiHandler *handler.AIHandler,
	healthHandler *handler.HealthHandler,
	webhookHandler *handler.WebhookHandler,
	identityClient *identity.Client,
	cacheClient *cache.Cache,
	metricsRecorder metrics.Recorder,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()
	r.Use(middleware.CORS(corsCfg))

	// Health endpoints (no auth required)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)

	r.Get("/", handler.Root)

	// Identity provider push notifications (HMAC-verified, no session auth)
	r.Post("/webhooks/identity", webhookHandler.HandleIdentityEvent)

	authCfg := middleware.AuthConfig{
		Provider: identityClient,
		Cache:    cacheClient,
		CacheTTL: cfg.PlanCacheTTL,
		Metrics:  metricsRecorder,
		Logger:   logger,
	}
	rateLimitCfg := middleware.RateLimitConfig{
		Limiter:       cacheClient,
		RatePerMinute: cfg.RateLimitPerMinute,
		Burst:         cfg.RateLimitBurst,
		Enabled:       cfg.RateLimitEnabled,
		Logger:        logger,
	}

	// AI routes (require authentication)
	r.Route("/api/ai", func(r chi.Router) {
		r.Use(middleware.Auth(authCfg))
		r.Use(middleware.RateLimitUser(rateLimitCfg))

		r.Post("/generate-article", aiHandler.GenerateArticle)
		r.Post("/generate-blog-title", aiHandler.GenerateBlogTitle)
		r.Post("/generate-image", aiHandler.GenerateImage)
		r.Post("/remove-background", aiHandler.RemoveBackground)
		r.Post("/remove-object", aiHandler.RemoveObject)
		r.Post("/resume-review", aiHandler.ReviewResume)

		r.Route("/user", func(r chi.Router) {
			r.Get("/get-user-creations", aiHandler.GetUserCreations)
			r.Get("/get-published-creations", aiHandler.GetPublishedCreations)
			r.Post("/toggle-like", aiHandler.ToggleLike)
		})
	})

	// 404 and 405 handlers
	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

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
