// Package extract pulls structured fields out of an already-loaded HTML
// document by walking ordered chains of CSS selectors per field. The first
// locator that yields something usable wins; every lookup failure is
// absorbed as a miss so the result always carries a value for each field.
package extract

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// ContentParagraphs is the collection field whose joined text length is
// reported as Result.ContentLength.
const ContentParagraphs = "content_paragraphs"

// Value is the extracted value of one field. A scalar field holds Text (nil
// when every locator missed); a collection field holds Items (empty, never
// nil, when every locator missed).
type Value struct {
	Mode  Mode
	Text  *string
	Items []string
}

// Scalar returns the scalar text and whether it was found.
func (v Value) Scalar() (string, bool) {
	if v.Text == nil {
		return "", false
	}
	return *v.Text, true
}

// MarshalJSON renders a scalar as a string or null and a collection as an
// array.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Mode == Collection {
		items := v.Items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(items)
	}
	if v.Text == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*v.Text)
}

// UnmarshalJSON accepts the forms MarshalJSON writes: null or a string for a
// scalar, an array for a collection.
func (v *Value) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	switch {
	case trimmed == "null":
		*v = Value{Mode: Scalar}
		return nil
	case strings.HasPrefix(trimmed, "["):
		var items []string
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		if items == nil {
			items = []string{}
		}
		*v = Value{Mode: Collection, Items: items}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*v = Value{Mode: Scalar, Text: &s}
	return nil
}

// Attempt records how one locator of a field was evaluated.
type Attempt struct {
	Locator string
	Outcome Outcome
}

// FieldTrace lists the locators consulted for a field, in order. Winner is
// the index of the locator that produced the value, or -1.
type FieldTrace struct {
	Field    string
	Attempts []Attempt
	Winner   int
}

// Result is a snapshot of one extraction. It is never shared with the
// document or with other results.
type Result struct {
	Values        map[string]Value
	ContentLength int
	Success       bool
	Error         string
	Trace         []FieldTrace
}

// Text returns the scalar value of a field, or "" and false.
func (r Result) Text(field string) (string, bool) {
	return r.Values[field].Scalar()
}

// Items returns a copy of a collection field's values.
func (r Result) Items(field string) []string {
	items := r.Values[field].Items
	out := make([]string, len(items))
	copy(out, items)
	return out
}

// Extract evaluates every field spec against doc. Fields are independent of
// each other. The only error returned wraps ErrInvalidInput, and it is
// returned before doc is queried.
func Extract(doc Document, fields Fields) (Result, error) {
	if err := fields.Validate(); err != nil {
		return Result{}, err
	}
	res := Result{
		Values:  make(map[string]Value, len(fields)),
		Trace:   make([]FieldTrace, 0, len(fields)),
		Success: true,
	}
	for _, name := range fields.Names() {
		v, tr := extractField(doc, name, fields[name])
		res.Values[name] = v
		res.Trace = append(res.Trace, tr)
	}
	res.ContentLength = ContentLength(res.Values[ContentParagraphs].Items)
	return res, nil
}

// extractField is the single dispatch loop over a field's locator chain.
// Each locator is consulted at most once.
func extractField(doc Document, name string, spec FieldSpec) (Value, FieldTrace) {
	tr := FieldTrace{Field: name, Winner: -1, Attempts: make([]Attempt, 0, len(spec.Locators))}
	st := strategyFor(spec)
	for i, loc := range spec.Locators {
		out := st.lookup(doc, loc)
		tr.Attempts = append(tr.Attempts, Attempt{Locator: loc, Outcome: out})
		if !out.Found() {
			continue
		}
		tr.Winner = i
		if spec.Mode == Collection {
			return Value{Mode: Collection, Items: out.Values}, tr
		}
		text := out.Values[0]
		return Value{Mode: Scalar, Text: &text}, tr
	}
	if spec.Mode == Collection {
		return Value{Mode: Collection, Items: []string{}}, tr
	}
	return Value{Mode: Scalar}, tr
}

// ContentLength is the character count of paragraphs joined by single
// newlines.
func ContentLength(paragraphs []string) int {
	if len(paragraphs) == 0 {
		return 0
	}
	return utf8.RuneCountInString(strings.Join(paragraphs, "\n"))
}
