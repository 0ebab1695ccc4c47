// Package article maps generic extraction results onto article records and
// ships the built-in selector profile for Medium story pages.
package article

import "github.com/hyperifyio/goscrape/internal/extract"

// Field names of the article profile. They double as JSON keys of Record.
const (
	Title             = "title"
	Author            = "author"
	PublishDate       = "publish_date"
	Subtitle          = "subtitle"
	ReadingTime       = "reading_time"
	ContentParagraphs = extract.ContentParagraphs
	Tags              = "tags"
)

// MinParagraphLength drops decorative or empty nodes when harvesting
// paragraphs.
const MinParagraphLength = 30

// DefaultFields returns a fresh copy of the Medium story selector profile.
func DefaultFields() extract.Fields {
	return extract.Fields{
		Title: {
			Mode: extract.Scalar,
			Locators: []string{
				`h1[data-testid="storyTitle"]`,
				"h1.pw-post-title",
				"h1",
				`[data-testid="storyTitle"]`,
			},
		},
		Author: {
			Mode: extract.Scalar,
			Locators: []string{
				`[data-testid="authorName"] a`,
				`[data-testid="authorName"]`,
				".author-name a",
				`a[rel="author"]`,
			},
		},
		PublishDate: {
			Mode: extract.Scalar,
			Locators: []string{
				`[data-testid="storyPublishDate"]`,
				"time",
				".published-date",
			},
			Attribute: "datetime",
		},
		Subtitle: {
			Mode: extract.Scalar,
			Locators: []string{
				`[data-testid="storySubtitle"]`,
				".subtitle",
				"h2.graf--subtitle",
			},
		},
		ReadingTime: {
			Mode:     extract.Scalar,
			Locators: []string{`[data-testid="storyReadTime"]`},
		},
		ContentParagraphs: {
			Mode: extract.Collection,
			Locators: []string{
				`[data-selectable-paragraph="true"]`,
				".graf--p",
				"p",
			},
			MinLength: MinParagraphLength,
		},
		Tags: {
			Mode: extract.Collection,
			Locators: []string{
				`[data-testid="storyTags"] a`,
				".tags a",
				".tag",
			},
			Deduplicate: true,
		},
	}
}

// FieldOverride adjusts one field of a profile. Nil and empty members
// inherit from the base field; set pointers apply even when zero, so a
// config can turn the minimum length or deduplication off.
type FieldOverride struct {
	Mode        extract.Mode `yaml:"mode,omitempty" json:"mode,omitempty"`
	Locators    []string     `yaml:"locators,omitempty" json:"locators,omitempty"`
	Attribute   string       `yaml:"attribute,omitempty" json:"attribute,omitempty"`
	MinLength   *int         `yaml:"minLength,omitempty" json:"minLength,omitempty"`
	Deduplicate *bool        `yaml:"deduplicate,omitempty" json:"deduplicate,omitempty"`
}

// Overrides maps a field name to its override.
type Overrides map[string]FieldOverride

// MergeFields overlays overrides onto base and returns a new set. A field
// unknown to base defaults to scalar mode.
func MergeFields(base extract.Fields, overrides Overrides) extract.Fields {
	out := make(extract.Fields, len(base)+len(overrides))
	for name, spec := range base {
		spec.Locators = append([]string(nil), spec.Locators...)
		out[name] = spec
	}
	for name, o := range overrides {
		merged, ok := out[name]
		if !ok {
			merged = extract.FieldSpec{Mode: extract.Scalar}
		}
		if o.Mode != "" {
			merged.Mode = o.Mode
		}
		if len(o.Locators) > 0 {
			merged.Locators = append([]string(nil), o.Locators...)
		}
		if o.Attribute != "" {
			merged.Attribute = o.Attribute
		}
		if o.MinLength != nil {
			merged.MinLength = *o.MinLength
		}
		if o.Deduplicate != nil {
			merged.Deduplicate = *o.Deduplicate
		}
		out[name] = merged
	}
	return out
}
