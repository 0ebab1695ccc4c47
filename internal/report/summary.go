package report

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/hyperifyio/goscrape/internal/article"
)

const (
	previewParagraphs = 5
	previewChars      = 800
	cellWidth         = 48
)

// Summary renders one row per record plus a totals footer.
func Summary(w io.Writer, records []article.Record) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Crawling summary")
	t.AppendHeader(table.Row{"#", "OK", "Title", "Author", "Date", "Reading time", "Length", "Paragraphs", "Tags", "Error"})
	var ok, chars int
	for i, r := range records {
		if r.Success {
			ok++
		}
		chars += r.ContentLength
		t.AppendRow(table.Row{
			i + 1,
			mark(r.Success),
			clip(article.Value(r.Title, "N/A")),
			clip(article.Value(r.Author, "N/A")),
			article.Value(r.PublishDate, "N/A"),
			article.Value(r.ReadingTime, "N/A"),
			r.ContentLength,
			len(r.ContentParagraphs),
			len(r.Tags),
			clip(r.Err()),
		})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d/%d", ok, len(records)), "", "", "", "", chars, "", "", ""})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

// Detail prints the field-by-field view of a single record followed by a
// preview of its first paragraphs.
func Detail(w io.Writer, r article.Record) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(clip(r.URL))
	t.AppendRows([]table.Row{
		{"Success", mark(r.Success)},
		{"Title", article.Value(r.Title, "N/A")},
		{"Author", article.Value(r.Author, "N/A")},
		{"Date", article.Value(r.PublishDate, "N/A")},
		{"Reading time", article.Value(r.ReadingTime, "N/A")},
		{"Content length", fmt.Sprintf("%d characters", r.ContentLength)},
		{"Paragraphs", len(r.ContentParagraphs)},
		{"Tags", len(r.Tags)},
	})
	if r.Error != nil {
		t.AppendRow(table.Row{"Error", *r.Error})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()

	if preview := r.Preview(previewParagraphs, previewChars); preview != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Content preview:")
		fmt.Fprintln(w, preview)
	}
}

func mark(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}

func clip(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= cellWidth {
		return s
	}
	return string([]rune(s)[:cellWidth-3]) + "..."
}
