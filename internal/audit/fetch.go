package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrFetch is returned when a page could not be retrieved directly or
// through any proxy.
var ErrFetch = errors.New("audit: fetch failed")

// maxBody caps the bytes read from a response.
const maxBody = 2 << 20

// DefaultProxies are public pass-through proxies tried after a direct fetch
// fails. "%s" is replaced by the query-escaped target URL.
var DefaultProxies = []string{
	"https://api.allorigins.win/raw?url=%s",
	"https://corsproxy.io/?url=%s",
}

const userAgent = "Mozilla/5.0 (compatible; seoplan/1.0; content audit)"

// Fetcher retrieves a page, falling back to proxy templates in order.
type Fetcher struct {
	Client  *http.Client
	Proxies []string
	Logger  *zap.Logger
}

// NewFetcher creates a Fetcher with the given timeout and proxies.
func NewFetcher(timeout time.Duration, proxies []string, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		Client:  &http.Client{Timeout: timeout},
		Proxies: proxies,
		Logger:  logger,
	}
}

// Fetch returns the body of target. Only http and https URLs are accepted.
func (f *Fetcher) Fetch(ctx context.Context, target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: invalid url %q", ErrFetch, target)
	}

	attempts := []string{target}
	for _, p := range f.Proxies {
		attempts = append(attempts, strings.Replace(p, "%s", url.QueryEscape(target), 1))
	}

	var errs []error
	for i, addr := range attempts {
		body, err := f.get(ctx, addr)
		if err == nil {
			if i > 0 {
				f.logger().Info("page fetched through proxy", zap.String("url", target), zap.Int("attempt", i))
			}
			return body, nil
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrFetch, target, ctx.Err())
		}
		f.logger().Debug("fetch attempt failed", zap.String("addr", addr), zap.Error(err))
		errs = append(errs, err)
	}
	return "", fmt.Errorf("%w: %s: %w", ErrFetch, target, errors.Join(errs...))
}

func (f *Fetcher) get(ctx context.Context, addr string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("GET %s: HTTP %d", addr, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", addr, err)
	}
	return string(body), nil
}

func (f *Fetcher) logger() *zap.Logger {
	if f.Logger == nil {
		return zap.NewNop()
	}
	return f.Logger
}
