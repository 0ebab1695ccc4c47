package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goscrape/internal/app"
	"github.com/hyperifyio/goscrape/internal/platform"
	"github.com/hyperifyio/goscrape/internal/targets"
)

// configError marks failures that stem from bad configuration rather than
// from scraping.
type configError struct{ err error }

func (e configError) Error() string { return e.err.Error() }
func (e configError) Unwrap() error { return e.err }

type options struct {
	configPath   string
	envFile      string
	showPlatform bool
	showVersion  bool

	urls         string
	urlsFile     string
	htmlFiles    string
	htmlURL      string
	outDir       string
	stdout       bool
	markdown     bool
	pdf          bool
	summary      bool
	userAgent    string
	acceptLang   string
	platformName string
	headless     bool
	timeout      time.Duration
	attempts     int
	maxRedirects int
	concurrency  int
	maxDelay     time.Duration
	maxTargets   int
	perHost      int
	domainsAllow string
	domainsDeny  string
	cacheDir     string
	cacheMaxAge  time.Duration
	cacheClear   bool
	cacheStrict  bool
	cacheOnly    bool
	cacheBytes   int64
	cacheEntries int
	robotsIgnore bool
	allowPrivate bool
	verbose      bool

	args []string
	set  map[string]bool
}

func parseFlags(args []string, errOut io.Writer) (options, error) {
	d := app.Defaults()
	var o options
	fs := flag.NewFlagSet("goscrape", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.Usage = func() {
		fmt.Fprintln(errOut, "Usage: goscrape [flags] [url ...]")
		fs.PrintDefaults()
	}

	fs.StringVar(&o.configPath, "config", "", "Path to YAML or JSON config file")
	fs.StringVar(&o.envFile, "env.file", "", "Additional dotenv file loaded after .env")
	fs.BoolVar(&o.showPlatform, "platform.show", false, "Print the request identity for the selected platform and exit")
	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")

	fs.StringVar(&o.urls, "urls", "", "Comma-separated article URLs (positional arguments are added too)")
	fs.StringVar(&o.urlsFile, "urls.file", "", "File with article URLs: JSON array or one per line")
	fs.StringVar(&o.htmlFiles, "html", "", "Comma-separated saved HTML files to extract offline")
	fs.StringVar(&o.htmlURL, "html.url", "", "URL recorded for a single offline HTML file")
	fs.StringVar(&o.outDir, "out.dir", d.OutputDir, "Directory for JSON, Markdown and PDF outputs")
	fs.BoolVar(&o.stdout, "stdout", false, "Write JSON results to stdout")
	fs.BoolVar(&o.markdown, "markdown", false, "Also write a Markdown rendition of each article")
	fs.BoolVar(&o.pdf, "pdf", false, "Also write a PDF rendition of each article")
	fs.BoolVar(&o.summary, "summary", d.Summary, "Print the crawling summary table")
	fs.StringVar(&o.userAgent, "ua", "", "User-Agent override (default: platform profile)")
	fs.StringVar(&o.acceptLang, "lang", d.AcceptLanguage, "Accept-Language header")
	fs.StringVar(&o.platformName, "platform", "", "Platform profile: linux, darwin or windows (default: current OS)")
	fs.BoolVar(&o.headless, "headless", d.Headless, "Record headless launch arguments in the platform profile")
	fs.DurationVar(&o.timeout, "fetch.timeout", d.FetchTimeout, "Per-request timeout")
	fs.IntVar(&o.attempts, "fetch.attempts", d.FetchAttempts, "Attempts per URL including the first")
	fs.IntVar(&o.maxRedirects, "fetch.maxRedirects", d.MaxRedirects, "Maximum redirects followed")
	fs.IntVar(&o.concurrency, "concurrency", d.Concurrency, "Parallel scrapes")
	fs.DurationVar(&o.maxDelay, "crawl.maxDelay", d.MaxCrawlDelay, "Upper bound for robots.txt crawl delay")
	fs.IntVar(&o.maxTargets, "max.targets", 0, "Maximum URLs per run (0 = no cap)")
	fs.IntVar(&o.perHost, "max.perHost", 0, "Maximum URLs per host (0 = no cap)")
	fs.StringVar(&o.domainsAllow, "domains.allow", "", "Comma-separated allowlist of domains; subdomains included")
	fs.StringVar(&o.domainsDeny, "domains.deny", "", "Comma-separated denylist of domains; takes precedence over allow")
	fs.StringVar(&o.cacheDir, "cache.dir", d.CacheDir, "Cache directory path")
	fs.DurationVar(&o.cacheMaxAge, "cache.maxAge", 0, "Purge cache entries older than this before the run; 0 disables")
	fs.BoolVar(&o.cacheClear, "cache.clear", false, "Clear cache directory before run")
	fs.BoolVar(&o.cacheStrict, "cache.strictPerms", false, "Restrict cache permissions (0700 dirs, 0600 files)")
	fs.BoolVar(&o.cacheOnly, "cache.only", false, "Serve pages from cache only; never touch the network")
	fs.Int64Var(&o.cacheBytes, "cache.maxBytes", 0, "Evict least recently used cache entries above this size; 0 disables")
	fs.IntVar(&o.cacheEntries, "cache.maxEntries", 0, "Evict least recently used cache entries above this count; 0 disables")
	fs.BoolVar(&o.robotsIgnore, "robots.ignore", false, "Do not consult robots.txt")
	fs.BoolVar(&o.allowPrivate, "robots.allowPrivate", false, "Allow robots.txt lookups on private and loopback hosts")
	fs.BoolVar(&o.verbose, "v", false, "Verbose logging")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	o.args = fs.Args()
	o.set = map[string]bool{}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o, nil
}

// buildConfig applies defaults, then the config file, then environment,
// then explicitly set flags.
func buildConfig(o options) (app.Config, error) {
	cfg := app.Defaults()
	if strings.TrimSpace(o.configPath) != "" {
		fc, err := app.LoadConfigFile(o.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)

	set := o.set
	if set["urls"] {
		cfg.URLs = splitList(o.urls)
	}
	cfg.URLs = append(cfg.URLs, o.args...)
	if set["urls.file"] {
		cfg.URLsFile = o.urlsFile
	}
	if set["html"] {
		cfg.HTMLFiles = splitList(o.htmlFiles)
	}
	if set["html.url"] {
		cfg.BaseURL = o.htmlURL
	}
	if set["out.dir"] {
		cfg.OutputDir = o.outDir
	}
	if set["stdout"] {
		cfg.Stdout = o.stdout
	}
	if set["markdown"] {
		cfg.EnableMarkdown = o.markdown
	}
	if set["pdf"] {
		cfg.EnablePDF = o.pdf
	}
	if set["summary"] {
		cfg.Summary = o.summary
	}
	if set["ua"] {
		cfg.UserAgent = o.userAgent
	}
	if set["lang"] {
		cfg.AcceptLanguage = o.acceptLang
	}
	if set["platform"] {
		cfg.Platform = o.platformName
	}
	if set["headless"] {
		cfg.Headless = o.headless
	}
	if set["fetch.timeout"] {
		cfg.FetchTimeout = o.timeout
	}
	if set["fetch.attempts"] {
		cfg.FetchAttempts = o.attempts
	}
	if set["fetch.maxRedirects"] {
		cfg.MaxRedirects = o.maxRedirects
	}
	if set["concurrency"] {
		cfg.Concurrency = o.concurrency
	}
	if set["crawl.maxDelay"] {
		cfg.MaxCrawlDelay = o.maxDelay
	}
	if set["max.targets"] {
		cfg.MaxTargets = o.maxTargets
	}
	if set["max.perHost"] {
		cfg.PerHost = o.perHost
	}
	if set["domains.allow"] {
		cfg.DomainAllowlist = splitList(o.domainsAllow)
	}
	if set["domains.deny"] {
		cfg.DomainDenylist = splitList(o.domainsDeny)
	}
	if set["cache.dir"] {
		cfg.CacheDir = o.cacheDir
	}
	if set["cache.maxAge"] {
		cfg.CacheMaxAge = o.cacheMaxAge
	}
	if set["cache.clear"] {
		cfg.CacheClear = o.cacheClear
	}
	if set["cache.strictPerms"] {
		cfg.CacheStrictPerms = o.cacheStrict
	}
	if set["cache.only"] {
		cfg.CacheOnly = o.cacheOnly
	}
	if set["cache.maxBytes"] {
		cfg.CacheMaxBytes = o.cacheBytes
	}
	if set["cache.maxEntries"] {
		cfg.CacheMaxEntries = o.cacheEntries
	}
	if set["robots.ignore"] {
		cfg.RobotsIgnore = o.robotsIgnore
	}
	if set["robots.allowPrivate"] {
		cfg.AllowPrivateHosts = o.allowPrivate
	}
	if set["v"] {
		cfg.Verbose = o.verbose
	}
	return cfg, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			list = append(list, v)
		}
	}
	return list
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	o, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}
	if o.showVersion {
		fmt.Println(app.VersionString())
		return
	}
	if err := app.LoadEnvFiles(".env", o.envFile); err != nil {
		log.Warn().Err(err).Msg("dotenv load failed")
	}

	cfg, err := buildConfig(o)
	if err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(2)
	}
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	if o.showPlatform {
		if err := showPlatform(os.Stdout, cfg); err != nil {
			log.Error().Err(err).Msg("platform")
			os.Exit(2)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("run failed")
		code := exitCode(err)
		stop()
		os.Exit(code)
	}
}

// exitCode maps run errors to the process exit status: 2 when nothing
// usable came out of the run, inputs or outputs failed, or the
// configuration is invalid. Cancellation exits 0 like partial runs.
func exitCode(err error) int {
	var ce configError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, app.ErrNoArticles), errors.Is(err, targets.ErrNoTargets),
		errors.Is(err, app.ErrInput), errors.Is(err, app.ErrOutput), errors.As(err, &ce):
		return 2
	default:
		return 0
	}
}

func run(ctx context.Context, cfg app.Config) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return configError{fmt.Errorf("init app: %w", err)}
	}
	defer a.Close()

	return a.Run(ctx)
}

func showPlatform(w io.Writer, cfg app.Config) error {
	p, err := platform.Parse(cfg.Platform)
	if err != nil {
		return err
	}
	prof := platform.For(p, cfg.Headless).WithUserAgent(cfg.UserAgent)
	fmt.Fprintf(w, "platform:   %s\n", prof.Platform)
	fmt.Fprintf(w, "user agent: %s\n", prof.UserAgent)
	fmt.Fprintln(w, "launch args:")
	for _, a := range prof.LaunchArgs {
		fmt.Fprintf(w, "  %s\n", a)
	}
	return nil
}
