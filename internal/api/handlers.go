package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/maltedev/listing-scraper/internal/diag"
	"github.com/maltedev/listing-scraper/internal/extract"
	"github.com/maltedev/listing-scraper/internal/models"
	"github.com/maltedev/listing-scraper/internal/scraper"
)

const invalidTargetsMessage = "Provide a valid Amazon and/or Flipkart listing URL (https://…)"

// Limits are applied to every request.
type Limits struct {
	PerSiteLimit int
	MaxPages     int
}

type Handlers struct {
	scraper  scraper.Scraper
	registry *extract.Registry
	limits   Limits
	logger   *slog.Logger
}

func NewHandlers(s scraper.Scraper, registry *extract.Registry, limits Limits, logger *slog.Logger) *Handlers {
	if registry == nil {
		registry = extract.DefaultRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		scraper:  s,
		registry: registry,
		limits:   limits,
		logger:   logger.With("component", "api"),
	}
}

// Scrape handles GET /scrape?amazon_url=...&flipkart_url=...&debug=1&debug_shot=1
func (h *Handlers) Scrape(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	requestID := middleware.GetReqID(r.Context())
	if requestID == "" {
		requestID = uuid.NewString()
	}
	logger := h.logger.With("request_id", requestID)

	req := &models.ScrapeRequest{
		RequestID:    requestID,
		Targets:      make(map[models.Platform]string),
		PerSiteLimit: h.limits.PerSiteLimit,
		MaxPages:     h.limits.MaxPages,
		Debug:        q.Get("debug") == "1",
		Screenshot:   q.Get("debug_shot") == "1",
	}
	trail := diag.New(req.Debug, logger)

	raw := make(map[string]string)
	for _, strat := range h.registry.Ordered() {
		param := QueryParam(strat)
		raw[param] = q.Get(param)
		if target, ok := ResolveTarget(q.Get(param), strat); ok {
			req.Targets[strat.Platform()] = target
		}
	}
	trail.Add("params", "targets", req.Targets, "raw", raw)

	if len(req.Targets) == 0 {
		h.respondJSON(w, http.StatusBadRequest, models.ErrorResponse{
			Error: invalidTargetsMessage,
			Debug: trail.Lines(),
		})
		return
	}

	result, err := h.scraper.Scrape(r.Context(), req, trail)
	if err != nil {
		if errors.Is(err, models.ErrNoTargets) {
			h.respondJSON(w, http.StatusBadRequest, models.ErrorResponse{
				Error: invalidTargetsMessage,
				Debug: trail.Lines(),
			})
			return
		}
		logger.Error("scrape failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
