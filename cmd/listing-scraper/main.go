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

	"github.com/go-chi/httprate"
	"github.com/redis/go-redis/v9"

	"github.com/maltedev/listing-scraper/internal/api"
	"github.com/maltedev/listing-scraper/internal/browser"
	"github.com/maltedev/listing-scraper/internal/config"
	"github.com/maltedev/listing-scraper/internal/extract"
	"github.com/maltedev/listing-scraper/internal/ratelimit"
	"github.com/maltedev/listing-scraper/internal/scraper"
	"github.com/maltedev/listing-scraper/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logging
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Browser setup
	b, err := browser.New(&browser.Options{
		Headless:        cfg.Browser.Headless,
		ExtendedStealth: cfg.Browser.ExtendedStealth,
		Install:         cfg.Browser.Install,
		ProxyServer:     cfg.Browser.ProxyServer,
		UserAgents:      cfg.Browser.UserAgents,
		Logger:          log,
	})
	if err != nil {
		log.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	// Optional shared rate-limit counter
	var counter httprate.LimitCounter
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		counter = ratelimit.NewRedisCounter(redisClient, cfg.Redis.Prefix)
		log.Info("rate limit counters shared via redis", "addr", cfg.Redis.Addr)
	}

	// Initialize services
	opts := scraper.DefaultOptions()
	opts.HardLimit = cfg.Scraper.HardLimit
	opts.PerSiteLimit = cfg.Scraper.PerSiteLimit
	opts.MaxPages = cfg.Scraper.MaxPages
	opts.NavTimeout = cfg.Scraper.NavTimeout

	registry := extract.DefaultRegistry()
	service := scraper.NewService(b, registry, opts, log)

	handlers := api.NewHandlers(service, registry, api.Limits{
		PerSiteLimit: cfg.Scraper.PerSiteLimit,
		MaxPages:     cfg.Scraper.MaxPages,
	}, log)

	router := api.NewRouter(handlers, api.RouterConfig{
		AllowedOrigins:     cfg.Server.AllowedOrigins,
		RateLimitPerMinute: cfg.RateLimit.PerMinute,
		LimitCounter:       counter,
		RequestTimeout:     cfg.Server.RequestTimeout,
		Logger:             log,
	})

	// Start server
	server := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	log.Info("starting server", "addr", server.Addr, "platforms", registry.Platforms())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}

	<-done
	log.Info("server stopped")
}
