package handler

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/handler/dto"
	"github.com/taskdeck/taskdeck/internal/metrics"
	"github.com/taskdeck/taskdeck/internal/middleware"
)

// authRateLimitScope keys the login and register buckets.
const authRateLimitScope = "auth"

// RouterConfig holds everything the HTTP surface is built from.
type RouterConfig struct {
	Logger *slog.Logger

	Sessions      SessionService
	Authenticator middleware.Authenticator
	Tasks         TaskService
	Cookies       auth.CookiePolicy

	Metrics     metrics.Recorder
	Snapshotter metrics.Snapshotter

	// Readiness dependencies; nil reports "not configured".
	DB    HealthChecker
	Cache HealthChecker

	// Login and register rate limiting, per client IP.
	RateLimiter            middleware.IPRateLimiter
	AuthRateLimitEnabled   bool
	AuthRateLimitPerMinute int
	AuthRateLimitBurst     int

	CORSAllowedOrigins []string
	IsDevelopment      bool
	MaxRequestBodySize int64
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}

	h := New()
	healthHandler := NewHealthHandler(cfg.DB, cfg.Cache)
	metricsHandler := NewMetricsHandler(cfg.Snapshotter)
	authHandler := NewAuthHandler(cfg.Sessions, cfg.Cookies, cfg.Logger)
	taskHandler := NewTaskHandler(cfg.Tasks, cfg.Logger)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment}))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	// Health and metrics endpoints (no auth required)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)

	// Root info endpoint
	r.Get("/", h.Hello)

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:        cfg.Logger,
		Limiter:       cfg.RateLimiter,
		Metrics:       cfg.Metrics,
		Scope:         authRateLimitScope,
		Enabled:       cfg.AuthRateLimitEnabled,
		RatePerMinute: cfg.AuthRateLimitPerMinute,
		Burst:         cfg.AuthRateLimitBurst,
	}

	authCfg := middleware.AuthConfig{
		Logger:        cfg.Logger,
		Authenticator: cfg.Authenticator,
		Cookies:       cfg.Cookies,
		Metrics:       cfg.Metrics,
	}

	r.Route("/api", func(r chi.Router) {
		// Credential endpoints, rate limited per client IP
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitIP(rateLimitCfg))
			r.With(middleware.ValidateBody[dto.RegisterRequest]()).Post("/register", authHandler.Register)
			r.With(middleware.ValidateBody[dto.LoginRequest]()).Post("/login", authHandler.Login)
		})

		r.Post("/logout", authHandler.Logout)
		r.Get("/verify", authHandler.Verify)

		// Task management (requires a session)
		r.Route("/tasks", func(r chi.Router) {
			r.Use(middleware.Auth(authCfg))

			r.Get("/", taskHandler.List)
			r.With(middleware.ValidateBody[dto.TaskRequest]()).Post("/", taskHandler.Create)
			r.Get("/{id}", taskHandler.Get)
			r.With(middleware.ValidateBody[dto.TaskRequest]()).Put("/{id}", taskHandler.Update)
			r.Delete("/{id}", taskHandler.Delete)
		})
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
