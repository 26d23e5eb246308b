package openaq

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// DefaultBaseURL is the production OpenAQ v3 endpoint.
const DefaultBaseURL = "https://api.openaq.org/v3"

const (
	defaultPageSize       = 1000
	defaultRequestTimeout = 30 * time.Second
)

// Client fetches locations, sensors and daily measurements from the
// OpenAQ v3 API. It walks paginated responses, sends the static API key
// on every request, and trips a circuit breaker on repeated failures.
// Retry policy belongs to the caller; the client only classifies errors.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	pageSize   int
	breaker    *gobreaker.CircuitBreaker
	log        *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different endpoint (tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger attaches a logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithPageSize overrides the page size used when walking results.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// NewClient builds a live API client. A missing key is rejected here so
// that misconfiguration surfaces before any fetch begins.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}

	c := &Client{
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		pageSize:   defaultPageSize,
		log:        zap.NewNop(),
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openaq",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Locations returns up to limit locations for the country, walking
// pages until exhaustion or the cap.
func (c *Client) Locations(ctx context.Context, countryCode string, limit int) ([]Location, error) {
	perPage := c.pageSize
	if limit > 0 && limit < perPage {
		perPage = limit
	}

	out := make([]Location, 0, perPage)
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("iso", countryCode)
		q.Set("limit", strconv.Itoa(perPage))
		q.Set("page", strconv.Itoa(page))

		var resp locationsResponse
		if err := c.getJSON(ctx, "/locations", q, &resp); err != nil {
			return nil, err
		}
		out = append(out, resp.Results...)

		if limit > 0 && len(out) >= limit {
			return out[:limit], nil
		}
		if len(resp.Results) < perPage {
			return out, nil
		}
	}
}

// Sensors returns all sensors for a location.
func (c *Client) Sensors(ctx context.Context, locationID int64) ([]Sensor, error) {
	path := fmt.Sprintf("/locations/%d/sensors", locationID)

	out := make([]Sensor, 0)
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(c.pageSize))
		q.Set("page", strconv.Itoa(page))

		var resp sensorsResponse
		if err := c.getJSON(ctx, path, q, &resp); err != nil {
			return nil, err
		}
		out = append(out, resp.Results...)

		if len(resp.Results) < c.pageSize {
			return out, nil
		}
	}
}

// DailyMeasurements returns daily aggregates for a sensor over a date
// window.
func (c *Client) DailyMeasurements(ctx context.Context, sensorID int64, dateFrom, dateTo time.Time) ([]DailyMeasurement, error) {
	path := fmt.Sprintf("/sensors/%d/measurements/daily", sensorID)

	out := make([]DailyMeasurement, 0)
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("datetime_from", dateFrom.UTC().Format(time.RFC3339))
		q.Set("datetime_to", dateTo.UTC().Format(time.RFC3339))
		q.Set("limit", strconv.Itoa(c.pageSize))
		q.Set("page", strconv.Itoa(page))

		var resp measurementsResponse
		if err := c.getJSON(ctx, path, q, &resp); err != nil {
			return nil, err
		}
		out = append(out, resp.Results...)

		if len(resp.Results) < c.pageSize {
			return out, nil
		}
	}
}

// getJSON performs one GET through the circuit breaker and decodes the
// body into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	reqURL := c.baseURL + path + "?" + query.Encode()

	result, err := c.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-API-Key", c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("openaq: request %s: %w", path, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			io.Copy(io.Discard, resp.Body)
			return nil, &APIError{StatusCode: resp.StatusCode, URL: reqURL}
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("openaq: read %s: %w", path, err)
		}
		return body, nil
	})
	if err != nil {
		c.log.Warn("openaq request failed", zap.String("path", path), zap.Error(err))
		return err
	}

	if err := json.Unmarshal(result.([]byte), out); err != nil {
		return fmt.Errorf("openaq: decode %s: %w", path, err)
	}
	return nil
}
