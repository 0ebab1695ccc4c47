package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/goscrape/internal/article"
	"github.com/hyperifyio/goscrape/internal/cache"
	"github.com/hyperifyio/goscrape/internal/extract"
	"github.com/hyperifyio/goscrape/internal/fetch"
	"github.com/hyperifyio/goscrape/internal/platform"
	"github.com/hyperifyio/goscrape/internal/robots"
	"github.com/hyperifyio/goscrape/internal/targets"
)

// ErrNoArticles is returned when no input produced a valid article. Per the
// exit code policy this maps to a non-zero process exit.
var ErrNoArticles = errors.New("no valid articles extracted")

// ErrInput marks unreadable input lists; ErrOutput marks results that could
// not be written. Both map to a non-zero exit.
var (
	ErrInput  = errors.New("input unavailable")
	ErrOutput = errors.New("output not written")
)

type App struct {
	cfg       Config
	fields    extract.Fields
	profile   platform.Profile
	httpCache *cache.HTTPCache
	fetcher   *fetch.Client
	robots    *robots.Manager
	gate      *hostGate

	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

func New(ctx context.Context, cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	fields := article.MergeFields(article.DefaultFields(), cfg.Fields)
	if err := fields.Validate(); err != nil {
		return nil, fmt.Errorf("config fields: %w", err)
	}

	p, err := platform.Parse(cfg.Platform)
	if err != nil {
		return nil, err
	}
	profile := platform.For(p, cfg.Headless)
	if strings.TrimSpace(cfg.UserAgent) != "" {
		profile = profile.WithUserAgent(cfg.UserAgent)
	}
	log.Debug().Str("platform", string(profile.Platform)).Str("user_agent", profile.UserAgent).
		Strs("launch_args", profile.LaunchArgs).Msg("request identity")

	a := &App{
		cfg:     cfg,
		fields:  fields,
		profile: profile,
		gate:    newHostGate(),
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		now:     func() time.Time { return time.Now().UTC() },
	}

	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
			}
		}
		if cfg.CacheMaxAge > 0 {
			if n, err := cache.PurgeHTTPCacheByAge(cfg.CacheDir, cfg.CacheMaxAge); err == nil && n > 0 {
				log.Info().Int("removed", n).Dur("max_age", cfg.CacheMaxAge).Msg("cache purged by age")
			}
		}
		a.httpCache = &cache.HTTPCache{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
	}

	client := newHTTPClient(cfg.Concurrency)
	a.fetcher = &fetch.Client{
		HTTPClient:        client,
		UserAgent:         profile.UserAgent,
		Header:            http.Header{"Accept": {"text/html,application/xhtml+xml;q=0.9,*/*;q=0.8"}},
		MaxAttempts:       cfg.FetchAttempts,
		PerRequestTimeout: cfg.FetchTimeout,
		Cache:             a.httpCache,
		CacheOnly:         cfg.CacheOnly,
		RedirectMaxHops:   cfg.MaxRedirects,
		MaxConcurrent:     cfg.Concurrency,
	}
	if cfg.AcceptLanguage != "" {
		a.fetcher.Header["Accept-Language"] = []string{cfg.AcceptLanguage}
	}
	a.robots = &robots.Manager{
		HTTPClient:        client,
		Cache:             a.httpCache,
		UserAgent:         profile.UserAgent,
		AllowPrivateHosts: cfg.AllowPrivateHosts,
		Timeout:           cfg.FetchTimeout,
	}
	return a, nil
}

// SetOutput redirects the summary and stdout JSON. Tests use it to capture
// console output.
func (a *App) SetOutput(stdout, stderr io.Writer) {
	a.stdout, a.stderr = stdout, stderr
}

func (a *App) Close() {
	if a.httpCache == nil || (a.cfg.CacheMaxBytes <= 0 && a.cfg.CacheMaxEntries <= 0) {
		return
	}
	n, err := cache.EnforceHTTPCacheLimits(a.cfg.CacheDir, a.cfg.CacheMaxBytes, a.cfg.CacheMaxEntries)
	if err != nil {
		log.Warn().Err(err).Msg("cache limit enforcement failed")
		return
	}
	if n > 0 {
		log.Info().Int("evicted", n).Msg("cache limits enforced")
	}
}

// job is one unit of work: a URL to fetch or a local HTML file.
type job struct {
	url  string
	file string
}

func (a *App) Run(ctx context.Context) error {
	jobs, err := a.jobs()
	if err != nil {
		return err
	}
	log.Info().Int("targets", len(jobs)).Int("concurrency", a.concurrency()).Msg("scrape started")

	records := make([]article.Record, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency())
	for i, j := range jobs {
		g.Go(func() error {
			records[i] = a.process(gctx, j)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := a.writeOutputs(records); err != nil {
		return fmt.Errorf("%w: %w", ErrOutput, err)
	}
	a.printSummary(records)

	valid := 0
	for _, r := range records {
		if r.IsArticle() {
			valid++
		}
	}
	log.Info().Int("articles", valid).Int("targets", len(records)).Msg("scrape finished")
	if valid == 0 {
		return ErrNoArticles
	}
	return nil
}

func (a *App) concurrency() int {
	if a.cfg.Concurrency <= 0 {
		return 1
	}
	return a.cfg.Concurrency
}

// jobs resolves local HTML files and the selected target URLs, files first.
func (a *App) jobs() ([]job, error) {
	out := make([]job, 0, len(a.cfg.HTMLFiles)+len(a.cfg.URLs))
	for _, f := range a.cfg.HTMLFiles {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("%w: html file %s: %w", ErrInput, f, err)
		}
		u := "file://" + filepath.ToSlash(abs)
		if a.cfg.BaseURL != "" && len(a.cfg.HTMLFiles) == 1 {
			u = a.cfg.BaseURL
		}
		out = append(out, job{url: u, file: f})
	}

	list := targets.FromURLs(a.cfg.URLs)
	if strings.TrimSpace(a.cfg.URLsFile) != "" {
		fromFile, err := targets.LoadFile(a.cfg.URLsFile)
		if err != nil {
			return nil, fmt.Errorf("%w: load targets: %w", ErrInput, err)
		}
		list = append(list, fromFile...)
	}
	if len(list) > 0 {
		normalized := targets.Normalize(list)
		selected := targets.Select(normalized, targets.Options{
			MaxTotal: a.cfg.MaxTargets,
			PerHost:  a.cfg.PerHost,
			Allow:    a.cfg.DomainAllowlist,
			Deny:     a.cfg.DomainDenylist,
		})
		if dropped := len(list) - len(selected); dropped > 0 {
			log.Info().Int("given", len(list)).Int("selected", len(selected)).Msg("targets filtered")
		}
		for _, t := range selected {
			out = append(out, job{url: t.URL})
		}
	}
	if len(out) == 0 {
		return nil, targets.ErrNoTargets
	}
	return out, nil
}
