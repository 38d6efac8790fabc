package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"roe-outage-bot/internal/domain"
	"roe-outage-bot/internal/infra/metrics"
)

// ErrFetch оборачивает любые сбои загрузки страницы.
var ErrFetch = errors.New("source fetch failed")

const (
	maxBodyBytes     = 8 << 20
	defaultUserAgent = "Mozilla/5.0 (compatible; roe-outage-bot/1.0)"
)

// HTTPFetcher загружает страницу графиков по HTTP.
type HTTPFetcher struct {
	client  *http.Client
	url     string
	target  string
	limiter *rate.Limiter
}

var _ domain.SourceFetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher создаёт загрузчик. minInterval ограничивает частоту запросов к сайту.
func NewHTTPFetcher(sourceURL string, timeout, minInterval time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	target := sourceURL
	if parsed, err := url.Parse(sourceURL); err == nil && parsed.Host != "" {
		target = parsed.Host
	}
	return &HTTPFetcher{
		client:  &http.Client{Timeout: timeout},
		url:     sourceURL,
		target:  target,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Fetch возвращает тело страницы.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %v", ErrFetch, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrFetch, err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	start := time.Now()
	body, err := f.do(req)
	metrics.ObserveNetworkRequest("source", "fetch", f.target, start, err)
	if err != nil {
		metrics.SourceFetchErrors.Inc()
		return nil, err
	}
	return body, nil
}

func (f *HTTPFetcher) do(req *http.Request) ([]byte, error) {
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrFetch, err)
	}
	return body, nil
}
