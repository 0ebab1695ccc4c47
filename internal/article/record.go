package article

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hyperifyio/goscrape/internal/extract"
)

// Record is the serialized outcome for one article URL. Missing scalar
// fields encode as null and missing collections as empty arrays.
type Record struct {
	URL               string                   `json:"url"`
	PageTitle         string                   `json:"page_title"`
	Title             *string                  `json:"title"`
	Author            *string                  `json:"author"`
	PublishDate       *string                  `json:"publish_date"`
	Subtitle          *string                  `json:"subtitle"`
	ContentParagraphs []string                 `json:"content_paragraphs"`
	ContentLength     int                      `json:"content_length"`
	Tags              []string                 `json:"tags"`
	ReadingTime       *string                  `json:"reading_time"`
	Extra             map[string]extract.Value `json:"extra,omitempty"`
	Success           bool                     `json:"success"`
	Error             *string                  `json:"error"`
	FetchedAt         time.Time                `json:"fetched_at"`
}

// Page describes the document the result was extracted from.
type Page struct {
	URL       string
	Title     string
	FetchedAt time.Time
}

var known = map[string]struct{}{
	Title: {}, Author: {}, PublishDate: {}, Subtitle: {}, ReadingTime: {}, ContentParagraphs: {}, Tags: {},
}

// FromResult builds a record from an extraction result. Fields outside the
// article profile land in Extra.
func FromResult(p Page, res extract.Result) Record {
	r := Record{
		URL:               p.URL,
		PageTitle:         p.Title,
		Title:             textPtr(res, Title),
		Author:            textPtr(res, Author),
		PublishDate:       textPtr(res, PublishDate),
		Subtitle:          textPtr(res, Subtitle),
		ReadingTime:       textPtr(res, ReadingTime),
		ContentParagraphs: res.Items(ContentParagraphs),
		ContentLength:     res.ContentLength,
		Tags:              res.Items(Tags),
		Success:           res.Success,
		FetchedAt:         p.FetchedAt,
	}
	if res.Error != "" {
		msg := res.Error
		r.Error = &msg
	}
	for name, v := range res.Values {
		if _, ok := known[name]; ok {
			continue
		}
		if r.Extra == nil {
			r.Extra = make(map[string]extract.Value)
		}
		r.Extra[name] = v
	}
	return r
}

// Failed builds the envelope for a URL that could not be processed.
func Failed(url string, err error, at time.Time) Record {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Record{
		URL:               url,
		ContentParagraphs: []string{},
		Tags:              []string{},
		Success:           false,
		Error:             &msg,
		FetchedAt:         at,
	}
}

func textPtr(res extract.Result, field string) *string {
	v, ok := res.Text(field)
	if !ok {
		return nil
	}
	return &v
}

// IsArticle reports whether the page looks like an article: a successful
// extraction with a title.
func (r Record) IsArticle() bool {
	return r.Success && r.Title != nil && strings.TrimSpace(*r.Title) != ""
}

// Err returns the error description or "".
func (r Record) Err() string {
	if r.Error == nil {
		return ""
	}
	return *r.Error
}

// Value dereferences an optional scalar, returning fallback when nil.
func Value(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

// Preview joins the first n paragraphs with blank lines and truncates the
// result to maxChars characters, appending "..." when cut.
func (r Record) Preview(n, maxChars int) string {
	paras := r.ContentParagraphs
	if n > 0 && len(paras) > n {
		paras = paras[:n]
	}
	text := strings.Join(paras, "\n\n")
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxChars]) + "..."
}

// Extract runs fields against doc and builds the record. The extraction
// result is returned alongside for per-field tracing.
func Extract(doc extract.Document, p Page, fields extract.Fields) (Record, extract.Result, error) {
	res, err := extract.Extract(doc, fields)
	if err != nil {
		return Record{}, extract.Result{}, err
	}
	return FromResult(p, res), res, nil
}
