// Package client provides the upstream recipe API client: five read-only
// JSON endpoints with typed errors and retry with backoff.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/mealkeeper/mealkeeper/pkg/logging"
)

// Prometheus metrics for upstream requests.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mealkeeper_upstream_requests_total",
		Help: "Total upstream requests by endpoint and status",
	}, []string{"endpoint", "status"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mealkeeper_upstream_request_duration_seconds",
		Help:    "Upstream request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mealkeeper_upstream_errors_total",
		Help: "Total upstream errors by class",
	}, []string{"class"})
)

// DefaultBaseURL is the public recipe database API root.
const DefaultBaseURL = "https://www.themealdb.com/api/json/v1/1"

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root (endpoint paths are appended to it).
	BaseURL string

	// UserAgent identifies this application to the upstream.
	UserAgent string

	// Retry controls backoff for transport and 5xx failures.
	Retry RetryConfig

	// HTTPClient overrides the transport (for testing). The default
	// client carries no explicit timeout; the transport's behavior
	// applies.
	HTTPClient *http.Client
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: "mealkeeper/1.0",
		Retry:     DefaultRetryConfig(),
	}
}

// Client is the upstream recipe API client.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a recipe API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
		logger:     logging.NewLogger("recipe-client"),
	}, nil
}

// SearchByName searches recipes by name. An empty result is not an
// error: the upstream answers `{"meals": null}`.
func (c *Client) SearchByName(ctx context.Context, name string) ([]Meal, error) {
	var env mealsEnvelope
	err := c.get(ctx, "/search.php", url.Values{"s": {name}}, &env)
	if err != nil {
		return nil, err
	}
	return env.Meals, nil
}

// LookupByID fetches the full record of one recipe.
// Returns ErrNotFound when the ID matches nothing.
func (c *Client) LookupByID(ctx context.Context, id string) (*Meal, error) {
	var env mealsEnvelope
	err := c.get(ctx, "/lookup.php", url.Values{"i": {id}}, &env)
	if err != nil {
		return nil, err
	}
	if len(env.Meals) == 0 {
		return nil, fmt.Errorf("lookup %s: %w", id, ErrNotFound)
	}
	return &env.Meals[0], nil
}

// Categories lists every recipe category.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var env categoriesEnvelope
	err := c.get(ctx, "/categories.php", nil, &env)
	if err != nil {
		return nil, err
	}
	return env.Categories, nil
}

// FilterByCategory lists the recipes of one category (summary records:
// ID, name and thumbnail only).
func (c *Client) FilterByCategory(ctx context.Context, category string) ([]Meal, error) {
	var env mealsEnvelope
	err := c.get(ctx, "/filter.php", url.Values{"c": {category}}, &env)
	if err != nil {
		return nil, err
	}
	return env.Meals, nil
}

// Random picks one random recipe.
func (c *Client) Random(ctx context.Context) (*Meal, error) {
	var env mealsEnvelope
	err := c.get(ctx, "/random.php", nil, &env)
	if err != nil {
		return nil, err
	}
	if len(env.Meals) == 0 {
		return nil, ErrNotFound
	}
	return &env.Meals[0], nil
}

// get performs one JSON GET with retry, classification and metrics.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	u := c.config.BaseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	startTime := time.Now()
	defer func() {
		upstreamRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	var body []byte

	err := retryWithBackoff(ctx, c.config.Retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Upstream request failed")
			upstreamErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			upstreamRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return &UpstreamError{Offline: true, Message: "transport failure", Err: err}
		}
		defer resp.Body.Close()

		upstreamRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			upstreamErr := &UpstreamError{
				StatusCode: resp.StatusCode,
				Message:    resp.Status,
			}
			upstreamErrorsTotal.WithLabelValues(string(upstreamErr.Class())).Inc()
			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(upstreamErr.Class())).
				Msg("Upstream HTTP error")
			return upstreamErr
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return &UpstreamError{Offline: true, Message: "read response body", Err: err}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}
