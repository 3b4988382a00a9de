// Package fetcher retrieves records from the records API.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/robinvenneman/flux-challenge/internal/metrics"
	"github.com/robinvenneman/flux-challenge/pkg/roster"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds a single record request.
const DefaultTimeout = 10 * time.Second

// Fetcher returns the record with the given id.
type Fetcher interface {
	Fetch(ctx context.Context, id int) (roster.Record, error)
}

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	ID         int
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("record %d: unexpected status %d %s", e.ID, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsNotFound returns true if the API reported that the record does not exist.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// HTTPFetcher fetches records from <base-url>/<id>.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	metrics *metrics.Metrics
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *HTTPFetcher) { f.client = c }
}

// WithRateLimit caps outgoing requests per second. Zero or less disables the limit.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(f *HTTPFetcher) {
		if perSecond <= 0 {
			f.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithMetrics records fetch counts and latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *HTTPFetcher) { f.metrics = m }
}

// NewHTTP creates a fetcher for the given API base URL.
func NewHTTP(baseURL string, opts ...Option) (*HTTPFetcher, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("records API base URL cannot be empty")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("records API base URL must be http or https: %s", baseURL)
	}

	f := &HTTPFetcher{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// URL returns the resource locator of a record.
func (f *HTTPFetcher) URL(id int) string {
	return f.baseURL + "/" + strconv.Itoa(id)
}

// Fetch issues GET <base-url>/<id> and decodes the JSON body.
func (f *HTTPFetcher) Fetch(ctx context.Context, id int) (roster.Record, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return roster.Record{}, fmt.Errorf("rate limit wait for record %d: %w", id, err)
		}
	}

	start := time.Now()
	rec, err := f.get(ctx, id)
	if err != nil {
		f.metrics.ObserveFetch("error", time.Since(start))
		return roster.Record{}, err
	}
	f.metrics.ObserveFetch("ok", time.Since(start))
	return rec, nil
}

func (f *HTTPFetcher) get(ctx context.Context, id int) (roster.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(id), nil)
	if err != nil {
		return roster.Record{}, fmt.Errorf("failed to build request for record %d: %w", id, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return roster.Record{}, fmt.Errorf("failed to fetch record %d: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return roster.Record{}, &StatusError{ID: id, StatusCode: resp.StatusCode}
	}

	var rec roster.Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return roster.Record{}, fmt.Errorf("failed to decode record %d: %w", id, err)
	}

	return rec, nil
}
