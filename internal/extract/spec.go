package extract

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Mode selects how a field's locator chain is evaluated.
type Mode string

const (
	// Scalar stops at the first locator that yields non-empty text or
	// attribute value.
	Scalar Mode = "scalar"
	// Collection gathers every qualifying element from the first locator
	// that yields at least one.
	Collection Mode = "collection"
)

// ErrInvalidInput marks a malformed field specification. It is the only
// error Extract ever returns.
var ErrInvalidInput = errors.New("extract: invalid field spec")

// SpecError describes which field spec was rejected and why.
type SpecError struct {
	Field  string
	Reason string
}

func (e *SpecError) Error() string {
	return fmt.Sprintf("extract: field %q: %s", e.Field, e.Reason)
}

func (e *SpecError) Unwrap() error { return ErrInvalidInput }

// FieldSpec describes how to extract one logical field.
type FieldSpec struct {
	Mode Mode `yaml:"mode" json:"mode"`
	// Locators are CSS selectors in priority order.
	Locators []string `yaml:"locators" json:"locators"`
	// Attribute is read when a scalar element has empty text.
	Attribute string `yaml:"attribute,omitempty" json:"attribute,omitempty"`
	// MinLength drops collection elements whose trimmed text is shorter
	// than this many characters.
	MinLength int `yaml:"minLength,omitempty" json:"minLength,omitempty"`
	// Deduplicate suppresses repeated trimmed text in a collection.
	Deduplicate bool `yaml:"deduplicate,omitempty" json:"deduplicate,omitempty"`
}

// Fields maps a field name to its spec.
type Fields map[string]FieldSpec

// Names returns the field names in lexical order.
func (f Fields) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks every spec without touching any document.
func (f Fields) Validate() error {
	for _, name := range f.Names() {
		if err := f[name].validate(name); err != nil {
			return err
		}
	}
	return nil
}

func (s FieldSpec) validate(name string) error {
	if strings.TrimSpace(name) == "" {
		return &SpecError{Field: name, Reason: "empty field name"}
	}
	switch s.Mode {
	case Scalar, Collection:
	default:
		return &SpecError{Field: name, Reason: fmt.Sprintf("unsupported mode %q", s.Mode)}
	}
	if len(s.Locators) == 0 {
		return &SpecError{Field: name, Reason: "empty locator list"}
	}
	for i, loc := range s.Locators {
		if strings.TrimSpace(loc) == "" {
			return &SpecError{Field: name, Reason: fmt.Sprintf("locator %d is blank", i)}
		}
	}
	if s.MinLength < 0 {
		return &SpecError{Field: name, Reason: "negative minimum length"}
	}
	return nil
}
