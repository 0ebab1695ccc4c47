package extract

import "errors"

// ErrNotFound is returned by a Document when a selector matches nothing.
var ErrNotFound = errors.New("extract: no element matches selector")

// Document is the read-only view of a settled page that the extractor
// queries. Implementations must not navigate or wait; the page is assumed
// to be fully loaded before it is handed over.
//
// FindOne returns ErrNotFound when nothing matches. Any other error (for
// example an unsupported selector) is treated by the extractor exactly like
// a miss.
type Document interface {
	FindOne(selector string) (Element, error)
	FindAll(selector string) ([]Element, error)
}

// Element is a single node resolved from a Document. Errors signal that the
// node can no longer be read (stale reference).
type Element interface {
	Text() (string, error)
	// Attribute reports the named attribute value and whether it exists.
	Attribute(name string) (string, bool, error)
}
