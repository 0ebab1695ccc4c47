// Package robots decides whether an article URL may be fetched. robots.txt
// bodies are parsed with temoto/robotstxt, kept in memory for EntryExpiry and
// revalidated against the on-disk HTTP cache with ETag/Last-Modified.
package robots

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"

	"github.com/hyperifyio/goscrape/internal/cache"
)

// ErrDisallowed is returned by Check when robots.txt forbids the URL.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// maxRobotsBytes caps the robots.txt body read from the network.
const maxRobotsBytes = 512 << 10

const defaultTimeout = 10 * time.Second

type Source int

const (
	SourceNetwork Source = iota
	SourceMemory
	SourceCache304
)

func (s Source) String() string {
	switch s {
	case SourceMemory:
		return "memory"
	case SourceCache304:
		return "cache-304"
	default:
		return "network"
	}
}

// Rules is a parsed robots.txt for one origin.
type Rules struct {
	data *robotstxt.RobotsData
}

// IsAllowed evaluates path (which may carry a query string) for userAgent.
// Nil rules allow everything.
func (r Rules) IsAllowed(userAgent, path string) bool {
	if r.data == nil {
		return true
	}
	if path == "" {
		path = "/"
	}
	return r.data.TestAgent(path, userAgent)
}

// CrawlDelayFor returns the crawl delay of the group matching userAgent, or
// zero when none is set.
func (r Rules) CrawlDelayFor(userAgent string) time.Duration {
	if r.data == nil {
		return 0
	}
	if g := r.data.FindGroup(userAgent); g != nil {
		return g.CrawlDelay
	}
	return 0
}

// Sitemaps lists Sitemap directives.
func (r Rules) Sitemaps() []string {
	if r.data == nil {
		return nil
	}
	return append([]string(nil), r.data.Sitemaps...)
}

// Parse builds rules from a response status and body. 4xx allows
// everything, 5xx disallows everything.
func Parse(status int, body []byte) (Rules, error) {
	data, err := robotstxt.FromStatusAndBytes(status, body)
	if err != nil {
		return Rules{}, fmt.Errorf("parse robots: %w", err)
	}
	return Rules{data: data}, nil
}

// Decision is the outcome of Check for one page URL.
type Decision struct {
	RobotsURL  string
	Allowed    bool
	CrawlDelay time.Duration
	Sitemaps   []string
	Source     Source
}

type Manager struct {
	HTTPClient        *http.Client
	Cache             *cache.HTTPCache
	UserAgent         string
	EntryExpiry       time.Duration
	AllowPrivateHosts bool
	// Timeout bounds one robots.txt request including the body read.
	Timeout time.Duration

	mu  sync.Mutex
	mem map[string]memEntry
	now func() time.Time
	// concurrent misses for one origin share a single request
	inflight singleflight.Group
}

type memEntry struct {
	rules  Rules
	expiry time.Time
}

// RobotsURL returns the robots.txt location for pageURL's origin.
func RobotsURL(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if !isHTTPScheme(u) || u.Host == "" {
		return "", fmt.Errorf("unsupported url: %q", pageURL)
	}
	return (&url.URL{Scheme: strings.ToLower(u.Scheme), Host: u.Host, Path: "/robots.txt"}).String(), nil
}

// Check resolves robots.txt for pageURL's origin and evaluates the page path.
// A disallowed page yields the decision together with ErrDisallowed.
func (m *Manager) Check(ctx context.Context, pageURL string) (Decision, error) {
	robotsURL, err := RobotsURL(pageURL)
	if err != nil {
		return Decision{}, err
	}
	rules, src, err := m.Get(ctx, robotsURL)
	if err != nil {
		return Decision{RobotsURL: robotsURL, Source: src}, err
	}
	u, _ := url.Parse(pageURL)
	path := u.EscapedPath()
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	d := Decision{
		RobotsURL:  robotsURL,
		Allowed:    rules.IsAllowed(m.UserAgent, path),
		CrawlDelay: rules.CrawlDelayFor(m.UserAgent),
		Sitemaps:   rules.Sitemaps(),
		Source:     src,
	}
	if !d.Allowed {
		return d, fmt.Errorf("%w: %s", ErrDisallowed, pageURL)
	}
	return d, nil
}

// Get returns the rules at robotsURL, from memory when fresh, otherwise via a
// conditional request that falls back to the cached body on 304.
func (m *Manager) Get(ctx context.Context, robotsURL string) (Rules, Source, error) {
	m.mu.Lock()
	if m.now == nil {
		m.now = time.Now
	}
	if m.mem == nil {
		m.mem = make(map[string]memEntry)
	}
	m.mu.Unlock()

	u, err := url.Parse(robotsURL)
	if err != nil {
		return Rules{}, SourceNetwork, fmt.Errorf("parse url: %w", err)
	}
	if !isHTTPScheme(u) {
		return Rules{}, SourceNetwork, fmt.Errorf("unsupported url scheme: %q", robotsURL)
	}
	host := u.Hostname()
	if !m.AllowPrivateHosts && isLocalOrPrivateHost(host) {
		return Rules{}, SourceNetwork, fmt.Errorf("private host not allowed: %s", host)
	}

	if rules, ok := m.fromMem(robotsURL); ok {
		return rules, SourceMemory, nil
	}
	v, err, _ := m.inflight.Do(robotsURL, func() (any, error) {
		// a call that finished just before this one may have stored the rules
		if rules, ok := m.fromMem(robotsURL); ok {
			return fetched{rules, SourceMemory}, nil
		}
		rules, src, err := m.fetch(ctx, robotsURL)
		return fetched{rules, src}, err
	})
	f, _ := v.(fetched)
	return f.rules, f.src, err
}

type fetched struct {
	rules Rules
	src   Source
}

func (m *Manager) fetch(parent context.Context, robotsURL string) (Rules, Source, error) {
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	var etag, lastMod string
	if m.Cache != nil {
		if meta, err := m.Cache.LoadMeta(ctx, robotsURL); err == nil && meta != nil {
			etag = meta.ETag
			lastMod = meta.LastModified
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return Rules{}, SourceNetwork, fmt.Errorf("new request: %w", err)
	}
	if m.UserAgent != "" {
		req.Header.Set("User-Agent", m.UserAgent)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}
	client := m.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		if isTimeout(err) && parent.Err() == nil {
			return m.unresponsive(robotsURL), SourceNetwork, nil
		}
		return Rules{}, SourceNetwork, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && m.Cache != nil {
		body, err := m.Cache.LoadBody(ctx, robotsURL)
		if err != nil {
			return Rules{}, SourceCache304, fmt.Errorf("load cached robots: %w", err)
		}
		rules, err := Parse(http.StatusOK, body)
		if err != nil {
			return Rules{}, SourceCache304, err
		}
		m.storeMem(robotsURL, rules)
		return rules, SourceCache304, nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		if isTimeout(err) && parent.Err() == nil {
			return m.unresponsive(robotsURL), SourceNetwork, nil
		}
		return Rules{}, SourceNetwork, fmt.Errorf("read robots: %w", err)
	}
	rules, err := Parse(resp.StatusCode, data)
	if err != nil {
		return Rules{}, SourceNetwork, err
	}
	if m.Cache != nil && resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		meta := cache.HTTPEntry{
			URL:          robotsURL,
			ContentType:  "text/plain",
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		_ = m.Cache.Save(ctx, meta, data)
	}
	m.storeMem(robotsURL, rules)
	return rules, SourceNetwork, nil
}

// unresponsive stores disallow-all for robotsURL, as for a 5xx, until expiry.
func (m *Manager) unresponsive(robotsURL string) Rules {
	rules, _ := Parse(http.StatusServiceUnavailable, nil)
	m.storeMem(robotsURL, rules)
	return rules
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (m *Manager) fromMem(key string) (Rules, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ent, ok := m.mem[key]
	if !ok || !m.now().Before(ent.expiry) {
		return Rules{}, false
	}
	return ent.rules, true
}

func (m *Manager) storeMem(key string, rules Rules) {
	exp := m.EntryExpiry
	if exp <= 0 {
		exp = 30 * time.Minute
	}
	m.mu.Lock()
	m.mem[key] = memEntry{rules: rules, expiry: m.now().Add(exp)}
	m.mu.Unlock()
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isLocalOrPrivateHost(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	if h == "localhost" || h == "localhost.localdomain" || h == "::1" || h == "[::1]" {
		return true
	}
	if ip := net.ParseIP(h); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
			return true
		}
	}
	return false
}
