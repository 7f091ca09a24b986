package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/maltedev/listing-scraper/internal/api"
	"github.com/maltedev/listing-scraper/internal/browser"
	"github.com/maltedev/listing-scraper/internal/config"
	"github.com/maltedev/listing-scraper/internal/diag"
	"github.com/maltedev/listing-scraper/internal/extract"
	"github.com/maltedev/listing-scraper/internal/models"
	"github.com/maltedev/listing-scraper/internal/scraper"
	"github.com/maltedev/listing-scraper/pkg/logger"
)

func main() {
	var (
		amazonURL   = flag.String("amazon", "", "Amazon search URL")
		flipkartURL = flag.String("flipkart", "", "Flipkart search URL")
		perSite     = flag.Int("limit", 0, "Maximum rows per platform (default from config)")
		maxPages    = flag.Int("pages", 0, "Maximum result pages per platform (default from config)")
		headless    = flag.Bool("headless", true, "Run browser in headless mode")
		debug       = flag.Bool("debug", false, "Include the diagnostic trail")
		shot        = flag.Bool("shot", false, "Include a screenshot of the first page")
		outputFile  = flag.String("output", "", "Write JSON to file instead of stdout")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *perSite > 0 {
		cfg.Scraper.PerSiteLimit = *perSite
	}
	if *maxPages > 0 {
		cfg.Scraper.MaxPages = *maxPages
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Logs go to stderr so stdout stays a clean JSON document.
	logger := logger.NewWithWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	registry := extract.DefaultRegistry()
	raw := map[models.Platform]string{
		models.PlatformAmazon:   *amazonURL,
		models.PlatformFlipkart: *flipkartURL,
	}

	req := &models.ScrapeRequest{
		RequestID:    uuid.NewString(),
		Targets:      make(map[models.Platform]string),
		PerSiteLimit: cfg.Scraper.PerSiteLimit,
		MaxPages:     cfg.Scraper.MaxPages,
		Debug:        *debug,
		Screenshot:   *shot,
	}
	for platform, rawURL := range raw {
		strat, ok := registry.Lookup(platform)
		if !ok {
			continue
		}
		if target, ok := api.ResolveTarget(rawURL, strat); ok {
			req.Targets[platform] = target
		}
	}
	if len(req.Targets) == 0 {
		fmt.Fprintln(os.Stderr, "Please provide a valid -amazon and/or -flipkart search URL")
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	b, err := browser.New(&browser.Options{
		Headless:        *headless && cfg.Browser.Headless,
		ExtendedStealth: cfg.Browser.ExtendedStealth,
		Install:         cfg.Browser.Install,
		ProxyServer:     cfg.Browser.ProxyServer,
		UserAgents:      cfg.Browser.UserAgents,
		Logger:          logger,
	})
	if err != nil {
		logger.Error("Failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	opts := scraper.DefaultOptions()
	opts.HardLimit = cfg.Scraper.HardLimit
	opts.NavTimeout = cfg.Scraper.NavTimeout
	service := scraper.NewService(b, registry, opts, logger)

	trail := diag.New(req.Debug, logger.With("request_id", req.RequestID))
	result, err := service.Scrape(ctx, req, trail)
	if err != nil {
		logger.Error("Scrape failed", "error", err)
		os.Exit(1)
	}

	out := os.Stdout
	if *outputFile != "" {
		f, err := os.Create(*outputFile)
		if err != nil {
			logger.Error("Failed to create output file", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logger.Error("Failed to write result", "error", err)
		os.Exit(1)
	}

	logger.Info("Scrape completed", "rows", result.Count, "captcha", result.Captcha)
}
