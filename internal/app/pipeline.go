package app

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goscrape/internal/article"
	"github.com/hyperifyio/goscrape/internal/extract"
)

// process turns one job into a record. Failures become the failure envelope
// so one bad URL never aborts the batch.
func (a *App) process(ctx context.Context, j job) article.Record {
	started := time.Now()
	var (
		body    []byte
		page    article.Page
		fromNet bool
	)
	if j.file != "" {
		b, err := os.ReadFile(j.file)
		if err != nil {
			return a.fail(j.url, fmt.Errorf("read html: %w", err))
		}
		body = b
		page = article.Page{URL: j.url, FetchedAt: a.now()}
	} else {
		if !a.cfg.RobotsIgnore && !a.cfg.CacheOnly {
			d, err := a.robots.Check(ctx, j.url)
			log.Debug().Str("url", j.url).Bool("allowed", d.Allowed).Str("source", d.Source.String()).
				Dur("crawl_delay", d.CrawlDelay).Strs("sitemaps", d.Sitemaps).Err(err).Msg("robots decision")
			if err != nil {
				return a.fail(j.url, err)
			}
			if err := a.gate.wait(ctx, hostOf(j.url), a.crawlDelay(d.CrawlDelay)); err != nil {
				return a.fail(j.url, err)
			}
		}
		p, err := a.fetcher.Get(ctx, j.url)
		if err != nil {
			return a.fail(j.url, fmt.Errorf("fetch: %w", err))
		}
		log.Debug().Str("url", j.url).Str("final_url", p.URL).Int("status", p.StatusCode).
			Bool("from_cache", p.FromCache).Int("bytes", len(p.Body)).Msg("page fetched")
		body = p.Body
		page = article.Page{URL: p.URL, FetchedAt: p.FetchedAt}
		fromNet = !p.FromCache
	}

	doc, err := extract.FromHTML(body)
	if err != nil {
		return a.fail(j.url, err)
	}
	page.Title = doc.Title()
	rec, res, err := article.Extract(doc, page, a.fields)
	if err != nil {
		return a.fail(j.url, err)
	}
	logTrace(page.URL, res.Trace)

	ev := log.Info()
	if !rec.IsArticle() {
		ev = log.Warn()
	}
	ev.Str("url", rec.URL).
		Str("title", article.Value(rec.Title, "")).
		Str("author", article.Value(rec.Author, "")).
		Int("paragraphs", len(rec.ContentParagraphs)).
		Int("content_length", rec.ContentLength).
		Int("tags", len(rec.Tags)).
		Bool("network", fromNet).
		Dur("took", time.Since(started)).
		Msg(articleMsg(rec))
	return rec
}

func articleMsg(r article.Record) string {
	if r.IsArticle() {
		return "article extracted"
	}
	return "no title found; page does not look like an article"
}

func (a *App) fail(u string, err error) article.Record {
	log.Warn().Str("url", u).Err(err).Msg("scrape failed")
	return article.Failed(u, err, a.now())
}

func (a *App) crawlDelay(d time.Duration) time.Duration {
	if a.cfg.MaxCrawlDelay > 0 && d > a.cfg.MaxCrawlDelay {
		return a.cfg.MaxCrawlDelay
	}
	return d
}

// logTrace reports how each field was resolved: the winning locator index
// and the reason every earlier locator missed.
func logTrace(u string, trace []extract.FieldTrace) {
	for _, ft := range trace {
		misses := make([]string, 0, len(ft.Attempts))
		for _, at := range ft.Attempts {
			if at.Outcome.Found() {
				continue
			}
			misses = append(misses, fmt.Sprintf("%s => %s", at.Locator, at.Outcome.Reason))
		}
		log.Debug().Str("url", u).Str("field", ft.Field).Int("winner", ft.Winner).
			Strs("misses", misses).Msg("field resolved")
	}
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Hostname()
}

// hostGate spaces requests to the same host by the robots crawl delay.
type hostGate struct {
	mu   sync.Mutex
	next map[string]time.Time
}

func newHostGate() *hostGate {
	return &hostGate{next: make(map[string]time.Time)}
}

func (g *hostGate) wait(ctx context.Context, host string, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	g.mu.Lock()
	now := time.Now()
	at := g.next[host]
	if at.Before(now) {
		at = now
	}
	g.next[host] = at.Add(delay)
	g.mu.Unlock()

	wait := time.Until(at)
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
