package newsapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"gitlab.com/newsinsight.net/internal/config"
	"gitlab.com/newsinsight.net/internal/core/ports/primary"
	"gitlab.com/newsinsight.net/internal/core/ports/secondary"
	"gitlab.com/newsinsight.net/internal/domain"
)

const (
	everythingPath   = "/everything"
	headlinesPath    = "/top-headlines"
	sourcesPath      = "/top-headlines/sources"
	apiKeyHeader     = "X-Api-Key"
	maxResponseBytes = 8 << 20
)

var _ secondary.NewsProvider = (*Client)(nil)

// Client calls the news API. HTTP error statuses are returned as responses, not errors.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	logger  primary.Logger
}

// NewClient creates a rate-limited news API client
func NewClient(cfg *config.NewsApiConfig, logger primary.Logger) *Client {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.ApiKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// Search queries /everything, or /top-headlines when a country or category filter is set
func (c *Client) Search(ctx context.Context, q domain.SearchQuery) (*domain.RawResponse, error) {
	params := url.Values{}
	setIf(params, "q", q.Query)
	setIf(params, "language", q.Language)
	setIf(params, "sources", q.Sources)
	if q.PageSize > 0 {
		params.Set("pageSize", strconv.Itoa(q.PageSize))
	}

	path := everythingPath
	if q.Country != "" || q.Category != "" {
		path = headlinesPath
		setIf(params, "country", q.Country)
		setIf(params, "category", q.Category)
		// top-headlines rejects sources combined with country or category
		params.Del("sources")
		params.Del("language")
	} else {
		setIf(params, "sortBy", q.SortBy)
	}

	return c.get(ctx, path, params)
}

// ListSources queries the source catalog
func (c *Client) ListSources(ctx context.Context, f domain.SourceFilter) (*domain.RawResponse, error) {
	params := url.Values{}
	setIf(params, "language", f.Language)
	setIf(params, "category", f.Category)
	setIf(params, "country", f.Country)
	return c.get(ctx, sourcesPath, params)
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (*domain.RawResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for rate limiter: %w", err)
	}

	endpoint := c.baseURL + path
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call news api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read news api response: %w", err)
	}

	c.logger.Debug("News API call", "path", path, "status", resp.StatusCode, "bytes", len(body))
	return &domain.RawResponse{Status: resp.StatusCode, Body: body}, nil
}

func setIf(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}
