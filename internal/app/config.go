package app

import (
	"time"

	"github.com/hyperifyio/goscrape/internal/article"
)

// Config holds runtime configuration for the application.
type Config struct {
	// Inputs
	URLs      []string
	URLsFile  string
	HTMLFiles []string
	// BaseURL is recorded as the url of offline HTML files. Empty means the
	// file:// location.
	BaseURL string

	// Outputs
	OutputDir      string
	Stdout         bool
	EnableMarkdown bool
	EnablePDF      bool
	Summary        bool

	// Navigation
	UserAgent      string
	AcceptLanguage string
	Platform       string
	Headless       bool
	FetchTimeout   time.Duration
	FetchAttempts  int
	MaxRedirects   int
	Concurrency    int
	MaxCrawlDelay  time.Duration

	// Selection
	MaxTargets      int
	PerHost         int
	DomainAllowlist []string
	DomainDenylist  []string

	// Cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool
	CacheOnly        bool
	CacheMaxBytes    int64
	CacheMaxEntries  int

	// Robots
	RobotsIgnore      bool
	AllowPrivateHosts bool

	// Fields overlays the built-in article profile.
	Fields article.Overrides

	Verbose bool
}

// Defaults returns the configuration used when neither file, environment
// nor flags say otherwise.
func Defaults() Config {
	return Config{
		OutputDir:      "output",
		Summary:        true,
		AcceptLanguage: "en-US,en;q=0.9",
		Headless:       true,
		FetchTimeout:   30 * time.Second,
		FetchAttempts:  2,
		MaxRedirects:   5,
		Concurrency:    4,
		MaxCrawlDelay:  10 * time.Second,
		CacheDir:       ".goscrape-cache",
	}
}
