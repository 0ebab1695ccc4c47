package extract

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MissReason explains why a locator produced nothing usable.
type MissReason int

const (
	// NoMatch: the selector resolved no element.
	NoMatch MissReason = iota + 1
	// Empty: an element resolved but its text and attribute were empty.
	Empty
	// Filtered: elements resolved but none passed the minimum length.
	Filtered
	// StaleOrMalformed: the selector was rejected by the document or an
	// element could not be read.
	StaleOrMalformed
)

func (r MissReason) String() string {
	switch r {
	case NoMatch:
		return "no_match"
	case Empty:
		return "empty"
	case Filtered:
		return "filtered"
	case StaleOrMalformed:
		return "stale_or_malformed"
	}
	return "unknown"
}

// Outcome is the result of evaluating one locator: either Found with one or
// more values, or a Miss with a reason.
type Outcome struct {
	Values []string
	Reason MissReason
	Err    error
}

// Found reports whether the locator produced a value.
func (o Outcome) Found() bool { return o.Reason == 0 && len(o.Values) > 0 }

func found(values ...string) Outcome { return Outcome{Values: values} }

func miss(reason MissReason, err error) Outcome { return Outcome{Reason: reason, Err: err} }

// missFromErr classifies a document error.
func missFromErr(err error) Outcome {
	if errors.Is(err, ErrNotFound) {
		return miss(NoMatch, nil)
	}
	return miss(StaleOrMalformed, err)
}

// strategy evaluates one locator for a particular mode.
type strategy interface {
	lookup(doc Document, selector string) Outcome
}

func strategyFor(s FieldSpec) strategy {
	if s.Mode == Collection {
		return collectionStrategy{minLength: s.MinLength, dedupe: s.Deduplicate}
	}
	return scalarStrategy{attribute: s.Attribute}
}

type scalarStrategy struct {
	attribute string
}

func (st scalarStrategy) lookup(doc Document, selector string) (out Outcome) {
	defer recoverMiss(&out)
	el, err := doc.FindOne(selector)
	if err != nil {
		return missFromErr(err)
	}
	if el == nil {
		return miss(NoMatch, nil)
	}
	text, err := el.Text()
	if err != nil {
		return miss(StaleOrMalformed, err)
	}
	if v := strings.TrimSpace(text); v != "" {
		return found(v)
	}
	if st.attribute == "" {
		return miss(Empty, nil)
	}
	attr, ok, err := el.Attribute(st.attribute)
	if err != nil {
		return miss(StaleOrMalformed, err)
	}
	if v := strings.TrimSpace(attr); ok && v != "" {
		return found(v)
	}
	return miss(Empty, nil)
}

type collectionStrategy struct {
	minLength int
	dedupe    bool
}

func (st collectionStrategy) lookup(doc Document, selector string) (out Outcome) {
	defer recoverMiss(&out)
	els, err := doc.FindAll(selector)
	if err != nil {
		return missFromErr(err)
	}
	if len(els) == 0 {
		return miss(NoMatch, nil)
	}
	var seen map[string]struct{}
	if st.dedupe {
		seen = make(map[string]struct{}, len(els))
	}
	values := make([]string, 0, len(els))
	for _, el := range els {
		if el == nil {
			continue
		}
		text, err := el.Text()
		if err != nil {
			// a stale node drops out; the rest of the set still counts
			continue
		}
		v := strings.TrimSpace(text)
		if v == "" || utf8.RuneCountInString(v) < st.minLength {
			continue
		}
		if seen != nil {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return miss(Filtered, nil)
	}
	return found(values...)
}

// recoverMiss turns a panicking document into a StaleOrMalformed miss so
// one bad locator cannot abort the whole extraction.
func recoverMiss(out *Outcome) {
	if r := recover(); r != nil {
		*out = miss(StaleOrMalformed, fmt.Errorf("document panic: %v", r))
	}
}
