package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/goscrape/internal/article"
)

// FileConfig represents the single-file configuration schema.
type FileConfig struct {
	Output struct {
		Dir      string `yaml:"dir" json:"dir"`
		Stdout   bool   `yaml:"stdout" json:"stdout"`
		Markdown bool   `yaml:"markdown" json:"markdown"`
		PDF      bool   `yaml:"pdf" json:"pdf"`
		Summary  *bool  `yaml:"summary" json:"summary"`
	} `yaml:"output" json:"output"`

	Fetch struct {
		UserAgent      string        `yaml:"userAgent" json:"userAgent"`
		AcceptLanguage string        `yaml:"acceptLanguage" json:"acceptLanguage"`
		Timeout        time.Duration `yaml:"timeout" json:"timeout"`
		Attempts       int           `yaml:"attempts" json:"attempts"`
		MaxRedirects   int           `yaml:"maxRedirects" json:"maxRedirects"`
		Concurrency    int           `yaml:"concurrency" json:"concurrency"`
		MaxCrawlDelay  time.Duration `yaml:"maxCrawlDelay" json:"maxCrawlDelay"`
	} `yaml:"fetch" json:"fetch"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
		Only        bool          `yaml:"only" json:"only"`
		MaxBytes    int64         `yaml:"maxBytes" json:"maxBytes"`
		MaxEntries  int           `yaml:"maxEntries" json:"maxEntries"`
	} `yaml:"cache" json:"cache"`

	Robots struct {
		Ignore            bool `yaml:"ignore" json:"ignore"`
		AllowPrivateHosts bool `yaml:"allowPrivateHosts" json:"allowPrivateHosts"`
	} `yaml:"robots" json:"robots"`

	Targets struct {
		URLs    []string `yaml:"urls" json:"urls"`
		File    string   `yaml:"file" json:"file"`
		Max     int      `yaml:"max" json:"max"`
		PerHost int      `yaml:"perHost" json:"perHost"`
		Allow   []string `yaml:"allow" json:"allow"`
		Deny    []string `yaml:"deny" json:"deny"`
	} `yaml:"targets" json:"targets"`

	Platform struct {
		Name     string `yaml:"name" json:"name"`
		Headless *bool  `yaml:"headless" json:"headless"`
	} `yaml:"platform" json:"platform"`

	Fields article.Overrides `yaml:"fields" json:"fields"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays every value the file sets onto cfg. It runs
// after Defaults and before environment and flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	setStr := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}
	setDur := func(dst *time.Duration, v time.Duration) {
		if v > 0 {
			*dst = v
		}
	}
	setList := func(dst *[]string, v []string) {
		if len(v) > 0 {
			*dst = append([]string(nil), v...)
		}
	}

	setStr(&cfg.OutputDir, fc.Output.Dir)
	cfg.Stdout = cfg.Stdout || fc.Output.Stdout
	cfg.EnableMarkdown = cfg.EnableMarkdown || fc.Output.Markdown
	cfg.EnablePDF = cfg.EnablePDF || fc.Output.PDF
	if fc.Output.Summary != nil {
		cfg.Summary = *fc.Output.Summary
	}

	setStr(&cfg.UserAgent, fc.Fetch.UserAgent)
	setStr(&cfg.AcceptLanguage, fc.Fetch.AcceptLanguage)
	setDur(&cfg.FetchTimeout, fc.Fetch.Timeout)
	setInt(&cfg.FetchAttempts, fc.Fetch.Attempts)
	setInt(&cfg.MaxRedirects, fc.Fetch.MaxRedirects)
	setInt(&cfg.Concurrency, fc.Fetch.Concurrency)
	setDur(&cfg.MaxCrawlDelay, fc.Fetch.MaxCrawlDelay)

	setStr(&cfg.CacheDir, fc.Cache.Dir)
	setDur(&cfg.CacheMaxAge, fc.Cache.MaxAge)
	cfg.CacheClear = cfg.CacheClear || fc.Cache.Clear
	cfg.CacheStrictPerms = cfg.CacheStrictPerms || fc.Cache.StrictPerms
	cfg.CacheOnly = cfg.CacheOnly || fc.Cache.Only
	if fc.Cache.MaxBytes > 0 {
		cfg.CacheMaxBytes = fc.Cache.MaxBytes
	}
	setInt(&cfg.CacheMaxEntries, fc.Cache.MaxEntries)

	cfg.RobotsIgnore = cfg.RobotsIgnore || fc.Robots.Ignore
	cfg.AllowPrivateHosts = cfg.AllowPrivateHosts || fc.Robots.AllowPrivateHosts

	setList(&cfg.URLs, fc.Targets.URLs)
	setStr(&cfg.URLsFile, fc.Targets.File)
	setInt(&cfg.MaxTargets, fc.Targets.Max)
	setInt(&cfg.PerHost, fc.Targets.PerHost)
	setList(&cfg.DomainAllowlist, fc.Targets.Allow)
	setList(&cfg.DomainDenylist, fc.Targets.Deny)

	setStr(&cfg.Platform, fc.Platform.Name)
	if fc.Platform.Headless != nil {
		cfg.Headless = *fc.Platform.Headless
	}

	if len(fc.Fields) > 0 {
		if cfg.Fields == nil {
			cfg.Fields = article.Overrides{}
		}
		for name, o := range fc.Fields {
			cfg.Fields[name] = o
		}
	}
	cfg.Verbose = cfg.Verbose || fc.Verbose
}

// ValidateConfig performs minimal schema validation for required settings.
func ValidateConfig(cfg Config) error {
	if len(cfg.URLs) == 0 && strings.TrimSpace(cfg.URLsFile) == "" && len(cfg.HTMLFiles) == 0 {
		return errors.New("config: at least one url, urls file or html file is required")
	}
	if strings.TrimSpace(cfg.OutputDir) == "" && !cfg.Stdout {
		return errors.New("config: output dir is required unless writing to stdout")
	}
	if cfg.FetchAttempts < 0 || cfg.Concurrency < 0 || cfg.MaxTargets < 0 || cfg.PerHost < 0 ||
		cfg.MaxRedirects < 0 || cfg.CacheMaxBytes < 0 || cfg.CacheMaxEntries < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.FetchTimeout < 0 || cfg.CacheMaxAge < 0 || cfg.MaxCrawlDelay < 0 {
		return errors.New("config: negative durations are not allowed")
	}
	if cfg.CacheOnly && strings.TrimSpace(cfg.CacheDir) == "" {
		return errors.New("config: cache-only mode needs a cache dir")
	}
	return nil
}
