// Package main is the entrypoint for the taskdeck API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/cache"
	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/handler"
	"github.com/taskdeck/taskdeck/internal/metrics"
	"github.com/taskdeck/taskdeck/internal/repository"
	"github.com/taskdeck/taskdeck/internal/server"
	"github.com/taskdeck/taskdeck/internal/service"
)

func main() {
	if err := run(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}

	// Initialize logger
	logger := initLogger(cfg)

	cookies := cookiePolicy(cfg)
	if err := cookies.Validate(); err != nil {
		logger.Error("invalid session cookie policy", "error", err)
		return err
	}

	// Apply schema migrations
	if cfg.MigrateOnStart {
		if err := repository.Migrate(ctx, cfg.DatabaseURL); err != nil {
			logger.Error(
				"failed to apply migrations",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
				slog.String("database_url", redactURL(cfg.DatabaseURL)),
			)
			return err
		}
		logger.Info("database migrations applied")
	}

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL, repository.WithMaxConns(cfg.DatabaseMaxConns))
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return err
	}
	logger.Info("connected to database")

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL,
		cache.WithPoolSize(cfg.RedisPoolSize),
		cache.WithKeyPrefix(cfg.RedisKeyPrefix),
	)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		repo.Close()
		return err
	}
	logger.Info("connected to Redis")

	// Initialize services
	metricsRecorder := metrics.NewInMemory()
	codec := auth.NewCodec([]byte(cfg.TokenSecret))
	authService := service.NewAuthService(repo, cacheClient, codec, service.AuthConfig{
		TokenTTL:   cfg.TokenTTL,
		BcryptCost: cfg.BcryptCost,
	}, metricsRecorder)
	taskService := service.NewTaskService(repo, metricsRecorder)

	// Setup router
	r := handler.NewRouter(handler.RouterConfig{
		Logger:                 logger,
		Sessions:               authService,
		Authenticator:          authService,
		Tasks:                  taskService,
		Cookies:                cookies,
		Metrics:                metricsRecorder,
		Snapshotter:            metricsRecorder,
		DB:                     repo,
		Cache:                  cacheClient,
		RateLimiter:            cacheClient,
		AuthRateLimitEnabled:   cfg.AuthRateLimitEnabled,
		AuthRateLimitPerMinute: cfg.AuthRateLimitPerMinute,
		AuthRateLimitBurst:     cfg.AuthRateLimitBurst,
		CORSAllowedOrigins:     cfg.GetCORSAllowedOrigins(),
		IsDevelopment:          cfg.IsDevelopment(),
		MaxRequestBodySize:     cfg.MaxRequestBodySize,
	})

	// Create and run server
	srv := server.New(r, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
		TLSCertFile:     cfg.TLSCertFile,
		TLSKeyFile:      cfg.TLSKeyFile,
	}, logger)

	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(context.Context) error {
		return cacheClient.Close()
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"cookie_secure", cookies.Transport == auth.TransportHTTPS,
		"cookie_samesite", string(cookies.SameSite),
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		return err
	}
	return nil
}

// cookiePolicy builds the session cookie policy from explicit settings.
func cookiePolicy(cfg *config.Config) auth.CookiePolicy {
	return auth.CookiePolicy{
		Name:      cfg.CookieName,
		HTTPOnly:  cfg.CookieHTTPOnly,
		Transport: auth.Transport(cfg.CookieTransport),
		SameSite:  auth.SameSite(cfg.CookieSameSite),
		Domain:    cfg.CookieDomain,
		Path:      cfg.CookiePath,
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
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
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
