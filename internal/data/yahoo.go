package data

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mohamedkhairy/stock-isolator/pkg/logger"
	"github.com/mohamedkhairy/stock-isolator/pkg/magnitude"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "download_requests_total",
			Help: "Provider requests by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	requestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "download_request_latency_seconds",
			Help:    "Provider request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)

const sharesLabel = "Shares Outstanding"

// errPermanent marks responses that retrying cannot fix
var errPermanent = errors.New("permanent failure")

// YahooProvider downloads history and statistics pages over HTTP. Every
// request waits on a shared rate limiter, passes through a circuit breaker
// and is retried with exponential backoff.
type YahooProvider struct {
	config  ProviderConfig
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewYahooProvider creates a new Yahoo provider
func NewYahooProvider(config ProviderConfig) (*YahooProvider, error) {
	if config.BaseURL == "" || config.StatsURL == "" {
		return nil, fmt.Errorf("base and stats URLs are required")
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 1
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = time.Second
	}
	if config.MaxRetryDelay < config.RetryDelay {
		config.MaxRetryDelay = config.RetryDelay
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "yahoo",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errPermanent)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	})

	return &YahooProvider{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		breaker: breaker,
	}, nil
}

// GetName returns the provider name
func (y *YahooProvider) GetName() string {
	return "yahoo"
}

// Prices downloads the daily price history CSV
func (y *YahooProvider) Prices(ctx context.Context, symbol string) ([]byte, error) {
	u, err := y.downloadURL(symbol, "history")
	if err != nil {
		return nil, err
	}
	return y.fetch(ctx, "prices", u)
}

// Splits downloads the split events CSV
func (y *YahooProvider) Splits(ctx context.Context, symbol string) ([]byte, error) {
	u, err := y.downloadURL(symbol, "split")
	if err != nil {
		return nil, err
	}
	return y.fetch(ctx, "splits", u)
}

// Shares scrapes the shares outstanding figure from the statistics page
func (y *YahooProvider) Shares(ctx context.Context, symbol string) (float64, error) {
	if strings.TrimSpace(symbol) == "" {
		return 0, ErrInvalidSymbol
	}
	u := fmt.Sprintf("%s/%s/key-statistics", strings.TrimSuffix(y.config.StatsURL, "/"), url.PathEscape(symbol))

	body, err := y.fetch(ctx, "shares", u)
	if err != nil {
		return 0, err
	}
	return ParseSharesOutstanding(body)
}

// ParseSharesOutstanding extracts the shares outstanding value from a
// statistics page. A missing row or "N/A" is ErrNotListed.
func ParseSharesOutstanding(page []byte) (float64, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return 0, fmt.Errorf("failed to parse statistics page: %w", err)
	}

	var raw string
	found := false
	doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 2 || !strings.Contains(cells.First().Text(), sharesLabel) {
			return true
		}
		raw = strings.TrimSpace(cells.Eq(1).Text())
		found = true
		return false
	})

	if !found || raw == "" || strings.EqualFold(raw, "N/A") {
		return 0, ErrNotListed
	}
	value, err := magnitude.Parse(raw)
	if err != nil {
		return 0, fmt.Errorf("shares outstanding %q: %w", raw, err)
	}
	return value, nil
}

func (y *YahooProvider) downloadURL(symbol, events string) (string, error) {
	if strings.TrimSpace(symbol) == "" {
		return "", ErrInvalidSymbol
	}
	q := url.Values{}
	q.Set("period1", fmt.Sprint(y.config.PeriodStart))
	q.Set("period2", fmt.Sprint(y.config.PeriodEnd))
	q.Set("interval", "1d")
	q.Set("events", events)
	return fmt.Sprintf("%s/%s?%s", strings.TrimSuffix(y.config.BaseURL, "/"), url.PathEscape(symbol), q.Encode()), nil
}

// fetch performs a GET with bounded retries. The returned error wraps
// ErrRequestFailed once the retries are exhausted.
func (y *YahooProvider) fetch(ctx context.Context, kind, u string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= y.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := y.backoff(attempt)
			logger.Debug("Retrying request",
				logger.String("kind", kind),
				logger.String("url", u),
				logger.Int("attempt", attempt),
				logger.Duration("delay", delay),
				logger.ErrorField(lastErr),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := y.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		start := time.Now()
		result, err := y.breaker.Execute(func() (interface{}, error) {
			return y.get(ctx, u)
		})
		requestLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())

		if err == nil {
			requestsTotal.WithLabelValues(kind, "success").Inc()
			return result.([]byte), nil
		}
		requestsTotal.WithLabelValues(kind, "failure").Inc()
		lastErr = err

		if errors.Is(err, errPermanent) || ctx.Err() != nil {
			break
		}
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrRequestFailed, u, lastErr)
}

func (y *YahooProvider) backoff(attempt int) time.Duration {
	delay := y.config.RetryDelay << uint(attempt-1)
	if delay <= 0 || delay > y.config.MaxRetryDelay {
		return y.config.MaxRetryDelay
	}
	return delay
}

func (y *YahooProvider) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errPermanent, err)
	}
	for k, v := range y.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: status %d", errPermanent, resp.StatusCode)
	}
	if bytes.Contains(body, []byte("Invalid cookie")) {
		return nil, fmt.Errorf("invalid cookie")
	}
	return body, nil
}
