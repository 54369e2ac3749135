package accuweather

import (
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

	"weather-etl/pkg/logging"
	"weather-etl/pkg/metrics"
)

const (
	DefaultBaseURL = "https://dataservice.accuweather.com"
	defaultTimeout = 30 * time.Second
	language       = "en-us"

	endpointCitySearch        = "city_search"
	endpointCurrentConditions = "current_conditions"
	endpointForecast          = "forecast"
)

// ErrInvalidForecastDays is returned for a day count the API does not serve
var ErrInvalidForecastDays = errors.New("forecast days must be one of 1, 5, 10 or 15")

// Payload is a decoded JSON object from the API
type Payload = map[string]any

// Location is the part of a city search result the pipeline needs
type Location struct {
	Key           string `json:"Key"`
	LocalizedName string `json:"LocalizedName"`
}

// NumericKey converts the location key to the integer stored in staging tables
func (l Location) NumericKey() (int, error) {
	key, err := strconv.Atoi(l.Key)
	if err != nil {
		return 0, fmt.Errorf("location key %q is not numeric: %w", l.Key, err)
	}
	return key, nil
}

// Client talks to the AccuWeather data service. It never retries.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
}

// Option customises a Client
type Option func(*Client)

// WithBaseURL points the client at another host, e.g. an httptest server
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the default *http.Client. A nil client keeps the default.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the timeout of the default *http.Client. It has no
// effect on a client supplied through WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient creates an API client. An empty API key is rejected.
func NewClient(apiKey string, logger *logging.StructuredLogger, metricsCollector *metrics.Collector, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("API key cannot be empty")
	}

	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		timeout:    defaultTimeout,
		logger:     logger,
		metrics:    metricsCollector,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}

	return c, nil
}

// SearchCity resolves a city name to its first matching location
func (c *Client) SearchCity(ctx context.Context, name string) (Location, error) {
	params := url.Values{}
	params.Set("q", name)

	var locations []Location
	if err := c.get(ctx, endpointCitySearch, "/locations/v1/cities/search", params, &locations); err != nil {
		return Location{}, err
	}

	if len(locations) == 0 || locations[0].Key == "" {
		return Location{}, &MissingKeyError{Endpoint: endpointCitySearch, Key: "Key"}
	}

	return locations[0], nil
}

// GetCurrentConditions returns the latest observation for a location
func (c *Client) GetCurrentConditions(ctx context.Context, locationKey string) (Payload, error) {
	params := url.Values{}
	params.Set("details", "true")

	var observations []Payload
	path := "/currentconditions/v1/" + url.PathEscape(locationKey)
	if err := c.get(ctx, endpointCurrentConditions, path, params, &observations); err != nil {
		return nil, err
	}

	if len(observations) == 0 {
		return nil, &MissingKeyError{Endpoint: endpointCurrentConditions, Key: "LocalObservationDateTime"}
	}

	return observations[0], nil
}

// GetForecast returns the DailyForecasts array for the next days days
func (c *Client) GetForecast(ctx context.Context, locationKey int, days int) ([]Payload, error) {
	switch days {
	case 1, 5, 10, 15:
	default:
		return nil, fmt.Errorf("%w: got %d", ErrInvalidForecastDays, days)
	}

	params := url.Values{}
	params.Set("details", "true")
	params.Set("metric", "true")

	var body struct {
		DailyForecasts []Payload `json:"DailyForecasts"`
	}
	path := fmt.Sprintf("/forecasts/v1/daily/%dday/%d", days, locationKey)
	if err := c.get(ctx, endpointForecast, path, params, &body); err != nil {
		return nil, err
	}

	if body.DailyForecasts == nil {
		return nil, &MissingKeyError{Endpoint: endpointForecast, Key: "DailyForecasts"}
	}

	return body.DailyForecasts, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, out interface{}) error {
	params.Set("apikey", c.apiKey)
	params.Set("language", language)
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = redactKey(err)
		c.metrics.RecordUpstreamRequest(endpoint, "error", time.Since(start))
		c.logger.Error(ctx, "[API_ERROR] Request failed", logging.Fields{
			"endpoint": endpoint,
			"path":     path,
		}, err)
		return fmt.Errorf("failed to call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	c.metrics.RecordUpstreamRequest(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(body)}
		c.logger.Error(ctx, "[API_ERROR] Non-200 response", logging.Fields{
			"endpoint":    endpoint,
			"status_code": resp.StatusCode,
		}, apiErr)
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}

	c.logger.Debug(ctx, "[API] Request completed", logging.Fields{
		"endpoint":    endpoint,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

// redactKey strips the apikey parameter from the URL carried by transport errors
func redactKey(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	u, parseErr := url.Parse(urlErr.URL)
	if parseErr != nil {
		urlErr.URL = "<unparseable url>"
		return err
	}
	q := u.Query()
	q.Del("apikey")
	u.RawQuery = q.Encode()
	urlErr.URL = u.String()
	return err
}
