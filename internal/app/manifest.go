package app

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/hyperifyio/goscrape/internal/article"
)

// manifestEntry is a compact record of one scraped URL and where it went.
type manifestEntry struct {
	Index   int    `json:"index"`
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	File    string `json:"file,omitempty"`
	SHA256  string `json:"sha256,omitempty"`
	Chars   int    `json:"chars"`
	Success bool   `json:"success"`
	Article bool   `json:"article"`
}

// manifestMeta captures run details that aid reproducibility.
type manifestMeta struct {
	Version     string    `json:"version"`
	Platform    string    `json:"platform"`
	UserAgent   string    `json:"user_agent"`
	HTTPCache   bool      `json:"http_cache"`
	Robots      bool      `json:"robots"`
	GeneratedAt time.Time `json:"generated_at"`
}

type manifest struct {
	Meta    manifestMeta    `json:"meta"`
	Entries []manifestEntry `json:"entries"`
}

// computeSHA256Hex returns a lowercase hex-encoded SHA-256 of the given text.
func computeSHA256Hex(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// buildManifest digests the extracted content of every record so reruns
// can be compared without diffing the JSON files.
func (a *App) buildManifest(records []article.Record, files []string) manifest {
	m := manifest{
		Meta: manifestMeta{
			Version:     BuildVersion,
			Platform:    string(a.profile.Platform),
			UserAgent:   a.profile.UserAgent,
			HTTPCache:   a.httpCache != nil,
			Robots:      !a.cfg.RobotsIgnore,
			GeneratedAt: a.now(),
		},
		Entries: make([]manifestEntry, 0, len(records)),
	}
	for i, r := range records {
		e := manifestEntry{
			Index:   i + 1,
			URL:     r.URL,
			Title:   article.Value(r.Title, ""),
			Chars:   r.ContentLength,
			Success: r.Success,
			Article: r.IsArticle(),
		}
		if i < len(files) {
			e.File = files[i]
		}
		if content := strings.Join(r.ContentParagraphs, "\n"); content != "" {
			e.SHA256 = computeSHA256Hex(content)
		}
		m.Entries = append(m.Entries, e)
	}
	return m
}
