package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kislikjeka/zapfeed/internal/transport/httpapi/handler"
	"github.com/kislikjeka/zapfeed/internal/transport/httpapi/middleware"
	"github.com/kislikjeka/zapfeed/pkg/logger"
)

// Config holds router configuration
type Config struct {
	Logger           *logger.Logger
	AllowedOrigins   []string
	HealthHandler    *handler.HealthHandler
	FeedHandler      *handler.FeedHandler
	WalletHandler    *handler.WalletHandler
	TransferHandler  *handler.TransferHandler
	AllowanceHandler *handler.AllowanceHandler
	// JWTMiddleware guards /api/v1 when set
	JWTMiddleware func(http.Handler) http.Handler
	// MetricsMiddleware and MetricsHandler expose Prometheus metrics when set
	MetricsMiddleware func(http.Handler) http.Handler
	MetricsHandler    http.Handler
	// DisableRateLimit is for tests
	DisableRateLimit bool
}

// NewRouter creates a new HTTP router
func NewRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	if cfg.MetricsMiddleware != nil {
		r.Use(cfg.MetricsMiddleware)
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Compress(5))
	if !cfg.DisableRateLimit {
		r.Use(middleware.RateLimit())
	}

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	r.Get("/health/live", handler.GetLiveness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}
	if cfg.HealthHandler != nil {
		r.Get("/health", cfg.HealthHandler.GetHealth)
		r.Get("/health/ready", cfg.HealthHandler.GetReadiness)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.JWTMiddleware != nil {
			r.Use(cfg.JWTMiddleware)
		}

		if cfg.FeedHandler != nil {
			r.Get("/feed", cfg.FeedHandler.GetFeed)
		}

		if cfg.WalletHandler != nil {
			r.Route("/users/{userID}/wallets", func(r chi.Router) {
				r.Get("/", cfg.WalletHandler.GetWallets)
				r.Get("/{role}/transactions", cfg.WalletHandler.GetWalletLog)
			})
		}

		if cfg.TransferHandler != nil {
			r.Post("/transfers", cfg.TransferHandler.CreateTransfer)
		}

		// on-demand clearing moves money, so it is only mounted behind auth
		if cfg.AllowanceHandler != nil && cfg.JWTMiddleware != nil {
			r.Post("/allowance/run", cfg.AllowanceHandler.RunAllowance)
		}
	})

	return r
}
