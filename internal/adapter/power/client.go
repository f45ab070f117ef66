// Package power fetches daily point data from the NASA POWER API.
package power

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// DefaultBaseURL is the daily point endpoint of the NASA POWER API.
const DefaultBaseURL = "https://power.larc.nasa.gov/api/temporal/daily/point"

const dateLayout = "20060102"

// Options configures a Client.
type Options struct {
	BaseURL      string
	Community    string
	Timeout      time.Duration // per request
	LookbackDays int
	MaxRetries   int           // total attempts per Fetch
	RetryBackoff time.Duration // sleep before attempt n+1 is RetryBackoff * n
}

// Client implements domain.Fetcher against NASA POWER.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	community    string
	timeout      time.Duration
	lookbackDays int
	maxRetries   int
	retryBackoff time.Duration
	clock        clockwork.Clock
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// NewClient creates a NASA POWER client.
func NewClient(opts Options, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Community == "" {
		opts.Community = "AG"
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	return &Client{
		httpClient:   &http.Client{Timeout: opts.Timeout},
		baseURL:      opts.BaseURL,
		community:    opts.Community,
		timeout:      opts.Timeout,
		lookbackDays: opts.LookbackDays,
		maxRetries:   opts.MaxRetries,
		retryBackoff: opts.RetryBackoff,
		clock:        clock,
		metrics:      metrics,
		logger:       logger,
	}
}

// Fetch returns the newest date in the lookback window on which every feature
// is available. Transport failures, timeouts, 429 and 5xx responses are
// retried; an all-fill window is reported as domain.ErrNoValidData without retrying.
func (c *Client) Fetch(ctx context.Context, lat, lon float64) (domain.Observation, error) {
	reqURL := c.buildURL(lat, lon)

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		resp, err := c.doRequest(ctx, reqURL)
		if err == nil {
			c.metrics.FetchAttempts.WithLabelValues("success").Inc()
			return selectObservation(resp)
		}
		lastErr = err

		if !isTransient(err) || ctx.Err() != nil || attempt == c.maxRetries {
			break
		}

		c.metrics.FetchAttempts.WithLabelValues("retry").Inc()
		wait := c.retryBackoff * time.Duration(attempt)
		c.logger.Warn("power request failed, retrying",
			"lat", lat,
			"lon", lon,
			"attempt", attempt,
			"backoff", wait,
			"error", err,
		)
		if !c.sleep(ctx, wait) {
			lastErr = ctx.Err()
			break
		}
	}

	c.metrics.FetchAttempts.WithLabelValues("failed").Inc()
	return domain.Observation{}, fmt.Errorf("%w: %w", domain.ErrFetchFailed, lastErr)
}

func (c *Client) buildURL(lat, lon float64) string {
	end := c.clock.Now().UTC()
	start := end.AddDate(0, 0, -c.lookbackDays)

	params := url.Values{
		"parameters": {strings.Join(domain.FeatureNames[:], ",")},
		"community":  {c.community},
		"latitude":   {strconv.FormatFloat(lat, 'f', -1, 64)},
		"longitude":  {strconv.FormatFloat(lon, 'f', -1, 64)},
		"start":      {start.Format(dateLayout)},
		"end":        {end.Format(dateLayout)},
		"format":     {"JSON"},
	}
	return c.baseURL + "?" + params.Encode()
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (*response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := c.clock.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.FetchDuration.Observe(c.clock.Since(start).Seconds())
	if err != nil {
		return nil, &transientError{err: fmt.Errorf("power request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("power API error: status %d: %s", resp.StatusCode, body)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, &transientError{err: err}
		}
		return nil, err
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-c.clock.After(d):
		return true
	}
}

// selectObservation scans candidate dates newest-first and returns the first
// one where all features are present and not the fill value.
func selectObservation(resp *response) (domain.Observation, error) {
	params := resp.Properties.Parameter
	first, ok := params[domain.FeatureNames[0]]
	if !ok {
		return domain.Observation{}, fmt.Errorf("%w: response has no %s series", domain.ErrNoValidData, domain.FeatureNames[0])
	}

	dates := make([]string, 0, len(first))
	for d := range first {
		dates = append(dates, d)
	}
	// YYYYMMDD sorts lexically in date order.
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	for _, d := range dates {
		values := make(map[string]float64, len(domain.FeatureNames))
		for _, name := range domain.FeatureNames {
			if v, ok := params[name][d]; ok {
				values[name] = v
			}
		}
		fv, err := domain.FeatureVectorFromMap(values)
		if err != nil {
			continue
		}
		date, err := time.Parse(dateLayout, d)
		if err != nil {
			continue
		}
		return domain.Observation{Date: date, Features: fv}, nil
	}
	return domain.Observation{}, fmt.Errorf("%w: scanned %d dates", domain.ErrNoValidData, len(dates))
}

// transientError marks failures worth retrying.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// NASA POWER API response types.

type response struct {
	Properties struct {
		Parameter map[string]map[string]float64 `json:"parameter"`
	} `json:"properties"`
}
