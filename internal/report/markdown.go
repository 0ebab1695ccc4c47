package report

import (
	"fmt"
	"strings"

	"github.com/hyperifyio/goscrape/internal/article"
)

// RenderMarkdown renders one record as a standalone Markdown document.
func RenderMarkdown(r article.Record) string {
	var b strings.Builder
	if !r.Success {
		fmt.Fprintf(&b, "# Failed: %s\n\n", r.URL)
		fmt.Fprintf(&b, "Error: %s\n", r.Err())
		return b.String()
	}
	title := article.Value(r.Title, r.PageTitle)
	if strings.TrimSpace(title) == "" {
		title = "Untitled"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if r.Subtitle != nil {
		fmt.Fprintf(&b, "_%s_\n\n", *r.Subtitle)
	}

	var meta []string
	if r.Author != nil {
		meta = append(meta, "By "+*r.Author)
	}
	if r.PublishDate != nil {
		meta = append(meta, *r.PublishDate)
	}
	if r.ReadingTime != nil {
		meta = append(meta, *r.ReadingTime)
	}
	if len(meta) > 0 {
		b.WriteString(strings.Join(meta, " · "))
		b.WriteString("\n\n")
	}
	label := r.PageTitle
	if strings.TrimSpace(label) == "" {
		label = r.URL
	}
	fmt.Fprintf(&b, "Source: [%s](%s)\n\n", label, r.URL)

	for _, p := range r.ContentParagraphs {
		b.WriteString(p)
		b.WriteString("\n\n")
	}
	if len(r.Tags) > 0 {
		b.WriteString("## Tags\n\n")
		for _, t := range r.Tags {
			fmt.Fprintf(&b, "- %s\n", t)
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// WriteMarkdown renders r to path.
func WriteMarkdown(path string, r article.Record) error {
	return writeFile(path, []byte(RenderMarkdown(r)))
}

