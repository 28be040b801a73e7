package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/karierin/career-assistant/internal/identity"
	"github.com/karierin/career-assistant/internal/middleware"
	"github.com/karierin/career-assistant/pkg/logger"
)

// RouterConfig collects the handlers and settings of the API router.
type RouterConfig struct {
	JWTSecret          string
	Revoker            *identity.Revoker
	RateLimitRequests  int
	RateLimitWindow    time.Duration
	CORSAllowedOrigins []string
	Logger             *logger.Logger

	Health    *HealthHandler
	Auth      *AuthHandler
	Dashboard *DashboardHandler
	Sessions  *SessionHandler
	Messages  *MessageHandler
	Stream    *StreamHandler
}

// NewRouter builds the chi router for the API server.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// Health and metrics endpoints (no auth required, limited per IP)
	r.Group(func(r chi.Router) {
		if cfg.RateLimitRequests > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		}

		r.Get("/health", cfg.Health.Health)
		r.Get("/ready", cfg.Health.Ready)
		r.Handle("/metrics", promhttp.Handler())
	})

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret, cfg.Revoker))
		if cfg.RateLimitRequests > 0 {
			r.Use(middleware.UserRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		}

		r.Get("/me", cfg.Auth.Me)
		r.Post("/auth/signout", cfg.Auth.SignOut)

		r.Get("/dashboard", cfg.Dashboard.Get)
		r.Put("/dashboard/active", cfg.Dashboard.Select)
		r.Get("/suggestions", cfg.Dashboard.Suggestions)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", cfg.Sessions.List)
			r.Post("/", cfg.Sessions.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", cfg.Sessions.Get)
				r.Put("/", cfg.Sessions.Rename)
				r.Delete("/", cfg.Sessions.Delete)

				// Messages
				r.Get("/messages", cfg.Messages.List)
				r.Post("/messages", cfg.Messages.Send)
				r.Get("/turn", cfg.Messages.TurnState)

				// Streaming
				r.Post("/stream", cfg.Stream.StreamWithMessage)
			})
		})
	})

	return r
}
