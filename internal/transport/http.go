package transport

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
	"golang.org/x/time/rate"
)

// HTTPGetter fetches pages with net/http, paced by a token bucket.
type HTTPGetter struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	userAgent   string
	encoding    encoding.Encoding
}

type HTTPOptions struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	UserAgent         string
	Encoding          string // response body encoding label, e.g. "utf-8" or "gbk"
}

// NewHTTPGetter creates a getter. An unknown encoding label is an error.
func NewHTTPGetter(opts HTTPOptions) (*HTTPGetter, error) {
	label := opts.Encoding
	if label == "" {
		label = "utf-8"
	}
	enc, _ := charset.Lookup(label)
	if enc == nil {
		return nil, errors.Errorf("unknown response encoding %q", opts.Encoding)
	}

	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}

	return &HTTPGetter{
		httpClient:  &http.Client{Timeout: opts.Timeout},
		rateLimiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst),
		userAgent:   opts.UserAgent,
		encoding:    enc,
	}, nil
}

// Get waits for the rate limiter, then performs the request and decodes the body to UTF-8.
func (g *HTTPGetter) Get(ctx context.Context, rawURL string, cookies ...*http.Cookie) ([]byte, error) {
	if err := g.rateLimiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, errors.Wrapf(ErrStatus, "GET %s: %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(transform.NewReader(resp.Body, g.encoding.NewDecoder()))
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}
	return body, nil
}
