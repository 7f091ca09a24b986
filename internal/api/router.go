package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/maltedev/listing-scraper/internal/ratelimit"
)

type RouterConfig struct {
	AllowedOrigins     []string
	RateLimitPerMinute int
	// LimitCounter shares rate-limit state. Nil keeps it in memory.
	LimitCounter   httprate.LimitCounter
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

func NewRouter(h *Handlers, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(logger.With("component", "http")))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(ratelimit.ByIP(cfg.RateLimitPerMinute, cfg.LimitCounter))
		r.Get("/scrape", h.Scrape)
		r.Get("/api/scrape", h.Scrape)
	})

	return r
}
