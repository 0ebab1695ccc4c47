package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// HTMLDocument is a Document backed by a parsed HTML tree.
type HTMLDocument struct {
	doc *goquery.Document
}

// ParseHTML parses r into an HTMLDocument.
func ParseHTML(r io.Reader) (*HTMLDocument, error) {
	node, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &HTMLDocument{doc: goquery.NewDocumentFromNode(node)}, nil
}

// FromHTML parses raw HTML bytes.
func FromHTML(input []byte) (*HTMLDocument, error) {
	return ParseHTML(bytes.NewReader(input))
}

// Title returns the trimmed <title> text, or "".
func (d *HTMLDocument) Title() string {
	return strings.TrimSpace(d.doc.Find("head title").First().Text())
}

// FindOne returns the first element matching selector, or ErrNotFound.
func (d *HTMLDocument) FindOne(selector string) (Element, error) {
	sel, err := d.find(selector)
	if err != nil {
		return nil, err
	}
	first := sel.First()
	if first.Length() == 0 {
		return nil, ErrNotFound
	}
	return htmlElement{sel: first}, nil
}

// FindAll returns every element matching selector in document order. No
// match is an empty slice, not an error.
func (d *HTMLDocument) FindAll(selector string) ([]Element, error) {
	sel, err := d.find(selector)
	if err != nil {
		return nil, err
	}
	out := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, htmlElement{sel: s})
	})
	return out, nil
}

// find compiles the selector explicitly; goquery.Find would silently treat
// a malformed selector as matching nothing.
func (d *HTMLDocument) find(selector string) (*goquery.Selection, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("compile selector %q: %w", selector, err)
	}
	return d.doc.FindMatcher(m), nil
}

type htmlElement struct {
	sel *goquery.Selection
}

func (e htmlElement) Text() (string, error) {
	return e.sel.Text(), nil
}

func (e htmlElement) Attribute(name string) (string, bool, error) {
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}
