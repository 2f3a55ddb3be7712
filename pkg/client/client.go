// Package client provides the HTTP client for the Socrata-style open-data
// API: paged record queries, error classification, optional page caching
// and the dataset-info probe.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/assessment-parcels/pkg/cache"
	"github.com/Sternrassler/assessment-parcels/pkg/dataset"
	"github.com/Sternrassler/assessment-parcels/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SoQL query parameter names.
const (
	ParamLimit  = "$limit"
	ParamOffset = "$offset"
	ParamSelect = "$select"
)

// Prometheus metrics for API requests.
var (
	requestsTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "assessments_requests_total",
		Help: "Total API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.With(metrics.Registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "assessments_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	errorsTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "assessments_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})
)

// Client talks to one open-data API. It never retries.
type Client struct {
	httpClient *http.Client
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the default dataset resource, used when a call passes an
	// empty endpoint.
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// AppToken is sent as X-App-Token when set.
	AppToken string

	// Timeout bounds a whole HTTP exchange including the body read.
	Timeout time.Duration

	// Cache enables the Redis page cache when non-nil.
	Cache *cache.Manager
}

// DefaultConfig returns a configuration for the given resource URL.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
	}
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %s)", cfg.Timeout)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache:  cfg.Cache,
		config: cfg,
		logger: log.With().Str("component", "api-client").Logger(),
	}, nil
}

// Do performs a request with caching and error classification.
// Any answer other than 2xx (or a 304 for a cached entry) is returned as a
// *TransportError; the caller only ever sees successful responses.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if c.config.AppToken != "" {
		req.Header.Set("X-App-Token", c.config.AppToken)
	}

	// Fresh cache entries answer without touching the network; stale ones
	// are revalidated.
	var cacheKey cache.CacheKey
	var cached *cache.CacheEntry
	if c.cache != nil {
		cacheKey = cache.KeyForRequest(req)
		entry, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil && !entry.IsExpired():
			c.logger.Debug().Str("endpoint", req.URL.String()).Msg("Serving page from cache")
			requestsTotal.WithLabelValues(endpoint, "cache").Inc()
			return cache.EntryToResponse(entry, req), nil
		case err == nil && cache.ShouldMakeConditionalRequest(entry):
			cached = entry
			cache.AddConditionalHeaders(req, entry)
		case err != nil && !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	c.logger.Debug().
		Str("endpoint", req.URL.String()).
		Str("method", req.Method).
		Msg("Executing API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, &TransportError{
			Endpoint:   req.URL.String(),
			ErrorClass: ErrorClassNetwork,
			Err:        err,
		}
	}

	status := strconv.Itoa(resp.StatusCode)
	requestsTotal.WithLabelValues(endpoint, status).Inc()

	if resp.StatusCode == http.StatusNotModified && cached != nil {
		resp.Body.Close()
		if err := c.cache.Revalidated(ctx, cacheKey, cached); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
		}
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		return cache.EntryToResponse(cached, req), nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		errClass := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(errClass)).Inc()

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("API request error")

		return nil, &TransportError{
			Endpoint:   req.URL.String(),
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    errorMessage(resp),
		}
	}

	if c.cache != nil {
		entry, err := cache.ResponseToEntry(resp, c.cache.TTL())
		if err != nil {
			resp.Body.Close()
			return nil, &TransportError{
				Endpoint:   req.URL.String(),
				StatusCode: resp.StatusCode,
				ErrorClass: ErrorClassNetwork,
				Message:    "read body",
				Err:        err,
			}
		}
		if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		}
	}

	return resp, nil
}

// classifyStatus categorizes a non-success status code.
func classifyStatus(code int) ErrorClass {
	switch {
	case code == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case code >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// errorMessage extracts the server's explanation for a failed request.
// Socrata answers errors with {"code": ..., "message": ...}.
func errorMessage(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(bytes.TrimSpace(body)) == 0 {
		return resp.Status
	}

	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		return payload.Message
	}

	text := strings.TrimSpace(string(body))
	if len(text) > 256 {
		text = text[:256] + "..."
	}
	return resp.Status + ": " + text
}

// Query issues one GET against endpoint with the given SoQL parameters and
// decodes the answer as a batch of records. An empty endpoint means the
// configured base URL.
func (c *Client) Query(ctx context.Context, endpoint string, params url.Values) (dataset.Batch, error) {
	target, err := c.resolve(endpoint, params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &TransportError{
			Endpoint:   target,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    "read body",
			Err:        err,
		}
	}

	batch, err := dataset.DecodeBatchBytes(body)
	if err != nil {
		return nil, &DecodeError{Endpoint: target, Err: err}
	}
	return batch, nil
}

// FetchPage requests up to limit records starting at offset.
// $offset is omitted for the first page.
func (c *Client) FetchPage(ctx context.Context, endpoint string, limit, offset int) (dataset.Batch, error) {
	params := url.Values{}
	params.Set(ParamLimit, strconv.Itoa(limit))
	if offset > 0 {
		params.Set(ParamOffset, strconv.Itoa(offset))
	}

	batch, err := c.Query(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("limit", limit).
		Int("offset", offset).
		Int("records", len(batch)).
		Msg("Page received")
	return batch, nil
}

// resolve merges params into the endpoint URL.
func (c *Client) resolve(endpoint string, params url.Values) (string, error) {
	if endpoint == "" {
		endpoint = c.config.BaseURL
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}

	q := u.Query()
	for name, values := range params {
		q[name] = values
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// BaseURL returns the configured dataset resource URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
