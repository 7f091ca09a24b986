package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/listing-scraper/internal/diag"
	"github.com/maltedev/listing-scraper/internal/extract"
	"github.com/maltedev/listing-scraper/internal/models"
)

type MockScraper struct {
	mock.Mock
}

func (m *MockScraper) Scrape(ctx context.Context, req *models.ScrapeRequest, trail *diag.Trail) (*models.ScrapeResult, error) {
	args := m.Called(ctx, req, trail)
	if res := args.Get(0); res != nil {
		return res.(*models.ScrapeResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestRouter(s *MockScraper, rpm int) http.Handler {
	h := NewHandlers(s, extract.DefaultRegistry(), Limits{PerSiteLimit: 12, MaxPages: 1}, nil)
	return NewRouter(h, RouterConfig{RateLimitPerMinute: rpm})
}

func hasTarget(req *models.ScrapeRequest, p models.Platform) bool {
	_, ok := req.Target(p)
	return ok
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestScrapeRejectsMissingTargets(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"no params", "/scrape"},
		{"blank", "/scrape?amazon_url=%20%20"},
		{"wrong host", "/scrape?amazon_url=https://www.flipkart.com/search?q=tv"},
		{"both foreign", "/scrape?amazon_url=https://example.com&flipkart_url=https://example.org"},
		{"look-alike hosts", "/scrape?amazon_url=https://notamazon.com/s&flipkart_url=https://flipkart.com.attacker.example/search"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := new(MockScraper)
			router := newTestRouter(s, 0)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.query, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["ok"])
			assert.Equal(t, invalidTargetsMessage, body["error"])
			assert.NotContains(t, body, "debug")
			s.AssertNotCalled(t, "Scrape", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestScrapeRejectionCarriesTrail(t *testing.T) {
	s := new(MockScraper)
	router := newTestRouter(s, 0)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scrape?debug=1&amazon_url=https://example.com", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	trail, ok := body["debug"].([]any)
	require.True(t, ok)
	require.Len(t, trail, 1)
	assert.Contains(t, trail[0], "params")
}

func TestScrapeBuildsRequest(t *testing.T) {
	s := new(MockScraper)
	result := &models.ScrapeResult{
		OK:      true,
		Rows:    []models.Listing{},
		Captcha: map[models.Platform]bool{models.PlatformAmazon: false},
	}
	s.On("Scrape", mock.Anything, mock.MatchedBy(func(req *models.ScrapeRequest) bool {
		return req.Targets[models.PlatformAmazon] == "https://www.amazon.in/s?k=tv" &&
			!hasTarget(req, models.PlatformFlipkart) &&
			req.PerSiteLimit == 12 &&
			req.Debug && !req.Screenshot &&
			req.RequestID == "abc-123"
	}), mock.Anything).Return(result, nil)

	router := newTestRouter(s, 0)
	req := httptest.NewRequest(http.MethodGet, "/api/scrape?debug=1&amazon_url=www.amazon.in/s?k=tv", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, []any{}, body["rows"])
	s.AssertExpectations(t)
}

func TestScrapeFailure(t *testing.T) {
	s := new(MockScraper)
	s.On("Scrape", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, models.NewRunError(errors.New("browser crashed")))

	router := newTestRouter(s, 0)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scrape?flipkart_url=https://www.flipkart.com/search?q=tv", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["ok"])
	assert.Contains(t, body["error"], "browser crashed")
}

func TestScrapeNoTargetsFromService(t *testing.T) {
	s := new(MockScraper)
	s.On("Scrape", mock.Anything, mock.Anything, mock.Anything).Return(nil, models.ErrNoTargets)

	router := newTestRouter(s, 0)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scrape?flipkart_url=https://www.flipkart.com/search?q=tv", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(new(MockScraper), 0)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestScrapeRateLimited(t *testing.T) {
	s := new(MockScraper)
	router := newTestRouter(s, 1)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/scrape", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
		ok       bool
	}{
		{"https://www.amazon.in/s?k=tv", "https://www.amazon.in/s?k=tv", true},
		{"  HTTP://www.flipkart.com/x  ", "HTTP://www.flipkart.com/x", true},
		{"www.amazon.in/s?k=tv", "https://www.amazon.in/s?k=tv", true},
		{"//www.amazon.in/s", "https://www.amazon.in/s", true},
		{"", "", false},
		{"   ", "", false},
		{"https://", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := NormalizeURL(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestResolveTarget(t *testing.T) {
	amazon := extract.NewAmazon()
	flipkart := extract.NewFlipkart()

	_, ok := ResolveTarget("https://www.amazon.in/s?k=tv", amazon)
	assert.True(t, ok)
	_, ok = ResolveTarget("https://www.amazon.in/s?k=tv", flipkart)
	assert.False(t, ok)
	_, ok = ResolveTarget("dl.flipkart.com/search?q=tv", flipkart)
	assert.True(t, ok)
	_, ok = ResolveTarget("https://www.flipkart.com:443/search?q=tv", flipkart)
	assert.True(t, ok, "port is ignored")

	foreign := []struct {
		raw   string
		strat extract.Strategy
	}{
		{"https://flipkart.com.attacker.example/search?q=x", flipkart},
		{"https://notflipkart.com/search?q=x", flipkart},
		{"https://amazon.attacker.example/s?k=x", amazon},
		{"https://notamazon.com/s?k=x", amazon},
		{"http://169.254.169.254.amazon.nip.io/latest", amazon},
		{"https://user@evil.example/?www.amazon.in", amazon},
	}
	for _, tt := range foreign {
		_, ok := ResolveTarget(tt.raw, tt.strat)
		assert.False(t, ok, tt.raw)
	}

	assert.Equal(t, "amazon_url", QueryParam(amazon))
}
