package report

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/hyperifyio/goscrape/internal/article"
)

const maxSlugLen = 60

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify folds s to lower-case ASCII words joined by hyphens. Accents are
// stripped rather than dropped, so "Café Über" becomes "cafe-uber".
func Slugify(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}
	folded = nonSlug.ReplaceAllString(strings.ToLower(strings.TrimSpace(folded)), "-")
	folded = strings.Trim(folded, "-")
	if len(folded) > maxSlugLen {
		folded = strings.TrimRight(folded[:maxSlugLen], "-")
	}
	if folded == "" {
		return "article"
	}
	return folded
}

// OutputPath returns a stable path under dir for r. The name is the slug of
// the best available title plus a short hash of the URL to avoid collisions.
func OutputPath(dir string, r article.Record, ext string) string {
	if strings.TrimSpace(dir) == "" {
		dir = "output"
	}
	h := sha256.Sum256([]byte(r.URL))
	short := hex.EncodeToString(h[:])[:12]
	name := Slugify(nameSource(r)) + "-" + short
	if ext = strings.TrimPrefix(ext, "."); ext != "" {
		name += "." + ext
	}
	return filepath.Join(dir, name)
}

func nameSource(r article.Record) string {
	if r.Title != nil && strings.TrimSpace(*r.Title) != "" {
		return *r.Title
	}
	if strings.TrimSpace(r.PageTitle) != "" {
		return r.PageTitle
	}
	if u, err := url.Parse(r.URL); err == nil {
		if base := path.Base(u.Path); base != "/" && base != "." {
			return base
		}
		return u.Hostname()
	}
	return ""
}
