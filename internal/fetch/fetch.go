// Package fetch loads article pages over HTTP and hands them over settled:
// redirects followed, body read, content type checked. It owns the retry
// and timeout policy so the extractor never has to.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hyperifyio/goscrape/internal/cache"
)

// maxBodyBytes caps how much of a page is read.
const maxBodyBytes = 16 << 20

// Page is a fetched document. URL is the final location after redirects.
type Page struct {
	RequestedURL string
	URL          string
	StatusCode   int
	ContentType  string
	Body         []byte
	FromCache    bool
	FetchedAt    time.Time
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	if e.Code >= 500 {
		return fmt.Sprintf("server error: %d", e.Code)
	}
	return fmt.Sprintf("unexpected status: %d", e.Code)
}

// ErrUnsupportedContent is returned for responses that are not HTML.
var ErrUnsupportedContent = errors.New("unsupported content type")

// Client wraps http.Client and provides timeouts and limited retry on transient errors.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// Header is added to every request (Accept-Language and the like).
	Header http.Header
	// MaxAttempts includes the initial attempt. Minimum 1.
	MaxAttempts int
	// PerRequestTimeout bounds each request.
	PerRequestTimeout time.Duration
	// Backoff is the base delay between attempts; attempt i waits i*Backoff.
	Backoff time.Duration
	// Optional on-disk cache for page bodies and validators.
	Cache *cache.HTTPCache
	// If true, skip conditional revalidation but still refresh the cache.
	BypassCache bool
	// CacheOnly serves from cache and never touches the network.
	CacheOnly bool

	// RedirectMaxHops caps redirect following. Zero means default (5).
	RedirectMaxHops int
	// MaxConcurrent limits in-flight requests per client. Zero means unlimited.
	MaxConcurrent int

	limiter     chan struct{}
	limiterOnce sync.Once
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{Timeout: c.PerRequestTimeout, CheckRedirect: c.checkRedirectFunc()}
}

// Get fetches rawURL with bounded retry for transient errors.
func (c *Client) Get(ctx context.Context, rawURL string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if !isHTTPScheme(u) {
		return nil, fmt.Errorf("unsupported URL scheme: %q", rawURL)
	}
	if c.CacheOnly {
		return c.fromCache(ctx, rawURL)
	}

	var etag, lastMod string
	if c.Cache != nil && !c.BypassCache {
		if meta, err := c.Cache.LoadMeta(ctx, rawURL); err == nil && meta != nil {
			etag = meta.ETag
			lastMod = meta.LastModified
		}
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := c.Backoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		page, err := c.tryOnce(ctx, rawURL, etag, lastMod)
		if err == nil {
			return c.settle(ctx, page)
		}
		lastErr = err
		if !isTransient(err) || i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * backoff):
		}
	}
	return nil, lastErr
}

// settle writes fresh bodies to the cache and swaps a 304 for the cached body.
func (c *Client) settle(ctx context.Context, page *response) (*Page, error) {
	if c.Cache == nil {
		return page.Page, nil
	}
	if page.StatusCode == http.StatusNotModified {
		cached, err := c.fromCache(ctx, page.RequestedURL)
		if err != nil {
			return nil, fmt.Errorf("not modified but cache unreadable: %w", err)
		}
		cached.StatusCode = http.StatusNotModified
		return cached, nil
	}
	meta := cache.HTTPEntry{URL: page.RequestedURL, FinalURL: page.URL, ContentType: page.ContentType}
	meta.ETag, meta.LastModified = page.etag, page.lastModified
	_ = c.Cache.Save(ctx, meta, page.Body)
	return page.Page, nil
}

func (c *Client) fromCache(ctx context.Context, rawURL string) (*Page, error) {
	if c.Cache == nil {
		return nil, errors.New("cache-only fetch without cache")
	}
	meta, err := c.Cache.LoadMeta(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("cache miss for %s: %w", rawURL, err)
	}
	body, err := c.Cache.LoadBody(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("cache body for %s: %w", rawURL, err)
	}
	final := meta.FinalURL
	if final == "" {
		final = rawURL
	}
	return &Page{
		RequestedURL: rawURL,
		URL:          final,
		StatusCode:   http.StatusOK,
		ContentType:  meta.ContentType,
		Body:         body,
		FromCache:    true,
		FetchedAt:    meta.SavedAt,
	}, nil
}

// response carries validators alongside the page until it is cached.
type response struct {
	*Page
	etag         string
	lastModified string
}

func (c *Client) tryOnce(ctx context.Context, rawURL, etag, lastMod string) (*response, error) {
	c.acquire()
	defer c.release()

	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.PerRequestTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	for k, vs := range c.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	final := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	page := &Page{
		RequestedURL: rawURL,
		URL:          final,
		StatusCode:   resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
		FetchedAt:    time.Now().UTC(),
	}
	out := &response{Page: page, etag: resp.Header.Get("ETag"), lastModified: resp.Header.Get("Last-Modified")}

	if resp.StatusCode == http.StatusNotModified {
		return out, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode}
	}
	if !isAllowedHTMLContentType(page.ContentType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContent, page.ContentType)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	page.Body = b
	return out, nil
}

// isTransient treats 5xx, 429 and deadline expiry as retryable.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	return false
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) > max {
			return errors.New("too many redirects")
		}
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		// keep the identity headers across hops
		if len(via) > 0 && c.UserAgent != "" {
			req.Header.Set("User-Agent", c.UserAgent)
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isAllowedHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}

func (c *Client) acquire() {
	if c.MaxConcurrent <= 0 {
		return
	}
	c.limiterOnce.Do(func() {
		c.limiter = make(chan struct{}, c.MaxConcurrent)
	})
	c.limiter <- struct{}{}
}

func (c *Client) release() {
	if c.MaxConcurrent <= 0 || c.limiter == nil {
		return
	}
	select {
	case <-c.limiter:
	default:
	}
}
