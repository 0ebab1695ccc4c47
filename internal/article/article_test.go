package article

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/goscrape/internal/extract"
)

func parse(t *testing.T, html string) *extract.HTMLDocument {
	t.Helper()
	doc, err := extract.FromHTML([]byte(html))
	require.NoError(t, err)
	return doc
}

func TestDefaultFields_AreValid(t *testing.T) {
	fields := DefaultFields()
	require.NoError(t, fields.Validate())
	assert.Len(t, fields, 7)
	assert.Equal(t, extract.Collection, fields[ContentParagraphs].Mode)
	assert.Equal(t, MinParagraphLength, fields[ContentParagraphs].MinLength)
	assert.True(t, fields[Tags].Deduplicate)
	assert.Equal(t, "datetime", fields[PublishDate].Attribute)
}

func TestExtract_HelloWorldScenario(t *testing.T) {
	p50 := strings.Repeat("a", 50)
	p10 := strings.Repeat("b", 10)
	p40 := strings.Repeat("c", 40)
	doc := parse(t, `<html><head><title>Page</title></head><body>
		<h1 data-testid="storyTitle">Hello World</h1>
		<p>`+p50+`</p><p>`+p10+`</p><p>`+p40+`</p>
	</body></html>`)

	rec, _, err := Extract(doc, Page{URL: "https://medium.com/x", Title: doc.Title()}, DefaultFields())
	require.NoError(t, err)

	require.NotNil(t, rec.Title)
	assert.Equal(t, "Hello World", *rec.Title)
	assert.Nil(t, rec.Author)
	assert.Equal(t, []string{p50, p40}, rec.ContentParagraphs)
	assert.Equal(t, 50+1+40, rec.ContentLength)
	assert.Equal(t, "Page", rec.PageTitle)
	assert.True(t, rec.IsArticle())
}

func TestExtract_MediumMarkupPrefersSelectableParagraphs(t *testing.T) {
	long := "This paragraph is long enough to be kept by the filter."
	doc := parse(t, `<html><body>
		<h1 class="pw-post-title">Fallback title</h1>
		<div data-testid="authorName"><a href="/@jo">Jo Writer</a></div>
		<span data-testid="storyPublishDate">Mar 1, 2024</span>
		<span data-testid="storyReadTime">7 min read</span>
		<p data-selectable-paragraph="true">`+long+`</p>
		<p>`+long+` (outside the story body)</p>
		<div data-testid="storyTags"><a>Go</a><a>Scraping</a><a>Go</a></div>
	</body></html>`)

	rec, res, err := Extract(doc, Page{}, DefaultFields())
	require.NoError(t, err)
	assert.Equal(t, "Fallback title", Value(rec.Title, ""))
	assert.Equal(t, "Jo Writer", Value(rec.Author, ""))
	assert.Equal(t, "Mar 1, 2024", Value(rec.PublishDate, ""))
	assert.Equal(t, "7 min read", Value(rec.ReadingTime, ""))
	assert.Equal(t, []string{long}, rec.ContentParagraphs)
	assert.Equal(t, []string{"Go", "Scraping"}, rec.Tags)

	for _, tr := range res.Trace {
		if tr.Field == Title {
			assert.Equal(t, 1, tr.Winner)
		}
	}
}

func TestExtract_PublishDateFallsBackToDatetimeAttribute(t *testing.T) {
	doc := parse(t, `<html><body><time datetime="2024-02-02T00:00:00Z"></time></body></html>`)
	rec, _, err := Extract(doc, Page{}, DefaultFields())
	require.NoError(t, err)
	assert.Equal(t, "2024-02-02T00:00:00Z", Value(rec.PublishDate, ""))
	assert.False(t, rec.IsArticle())
}

func TestExtract_CustomFieldsLandInExtra(t *testing.T) {
	doc := parse(t, `<html><body><h1>T</h1><span class="claps">1.2K</span></body></html>`)
	fields := MergeFields(DefaultFields(), Overrides{"claps": {Locators: []string{".claps"}}})
	rec, _, err := Extract(doc, Page{}, fields)
	require.NoError(t, err)
	require.Contains(t, rec.Extra, "claps")
	got, ok := rec.Extra["claps"].Scalar()
	assert.True(t, ok)
	assert.Equal(t, "1.2K", got)
}

func TestExtract_InvalidOverridePropagates(t *testing.T) {
	doc := parse(t, `<html></html>`)
	fields := MergeFields(DefaultFields(), Overrides{Title: {Mode: "regex"}})
	_, _, err := Extract(doc, Page{}, fields)
	assert.ErrorIs(t, err, extract.ErrInvalidInput)
}

func TestMergeFields_InheritsAndDoesNotAlias(t *testing.T) {
	base := DefaultFields()
	ten := 10
	merged := MergeFields(base, Overrides{
		Title:             {Locators: []string{"header h1"}},
		ContentParagraphs: {MinLength: &ten},
	})
	assert.Equal(t, []string{"header h1"}, merged[Title].Locators)
	assert.Equal(t, extract.Scalar, merged[Title].Mode)
	assert.Equal(t, 10, merged[ContentParagraphs].MinLength)
	assert.Equal(t, base[ContentParagraphs].Locators, merged[ContentParagraphs].Locators)

	merged[Author].Locators[0] = "changed"
	assert.NotEqual(t, "changed", base[Author].Locators[0])
}

func TestMergeFields_ExplicitZeroTurnsFeaturesOff(t *testing.T) {
	zero, off := 0, false
	merged := MergeFields(DefaultFields(), Overrides{
		ContentParagraphs: {MinLength: &zero},
		Tags:              {Deduplicate: &off},
	})
	assert.Equal(t, 0, merged[ContentParagraphs].MinLength)
	assert.False(t, merged[Tags].Deduplicate)

	inherited := MergeFields(DefaultFields(), Overrides{Tags: {Locators: []string{".tag"}}})
	assert.True(t, inherited[Tags].Deduplicate)
	assert.Equal(t, MinParagraphLength, inherited[ContentParagraphs].MinLength)
}

func TestRecord_JSONShape(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := Failed("https://medium.com/x", errors.New("timeout"), at)
	b, err := json.Marshal(rec)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, false, m["success"])
	assert.Equal(t, "timeout", m["error"])
	assert.Nil(t, m["title"])
	assert.Equal(t, []any{}, m["content_paragraphs"])
	assert.NotContains(t, m, "extra")
	assert.False(t, rec.IsArticle())
}

func TestRecord_Preview(t *testing.T) {
	rec := Record{ContentParagraphs: []string{"one", "two", "three", "four", "five", "six"}}
	assert.Equal(t, "one\n\ntwo\n\nthree\n\nfour\n\nfive", rec.Preview(5, 800))
	assert.Equal(t, "one\n\n...", rec.Preview(2, 5))
	assert.Equal(t, "", Record{}.Preview(5, 800))
}
