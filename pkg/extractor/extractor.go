package extractor

import (
	"errors"
	"fmt"

	"github.com/santaclaude2025/flowsync/pkg/classifier"
	"github.com/santaclaude2025/flowsync/pkg/document"
	"github.com/santaclaude2025/flowsync/pkg/placeholder"
)

// ErrInvalidDocument is returned when the input is not JSON at all
var ErrInvalidDocument = errors.New("document is not valid JSON")

// Stats counts the placeholders created by one extraction
type Stats struct {
	Emails  int `json:"emails"`
	URLs    int `json:"urls"`
	GUIDs   int `json:"guids"`
	Strings int `json:"strings"`
}

// Total returns the number of placeholders across all kinds
func (s Stats) Total() int {
	return s.Emails + s.URLs + s.GUIDs + s.Strings
}

// Result is the outcome of a successful extraction
type Result struct {
	Redacted []byte
	Mapping  placeholder.Mapping
	Stats    Stats
}

// Extractor replaces sensitive string values with placeholders
type Extractor struct {
	classifier *classifier.Classifier
}

// New creates an extractor that uses c to decide what stays visible
func New(c *classifier.Classifier) *Extractor {
	if c == nil {
		c = classifier.Default()
	}
	return &Extractor{classifier: c}
}

// Extract redacts doc with the builtin classifier
func Extract(doc []byte) (*Result, error) {
	return New(nil).Extract(doc)
}

// counters hold the next number per kind for one extraction run
type counters struct {
	email, url, guid, str int
}

func (c *counters) next(kind placeholder.Kind) int {
	switch kind {
	case placeholder.Email:
		c.email++
		return c.email
	case placeholder.URL:
		c.url++
		return c.url
	case placeholder.GUID:
		c.guid++
		return c.guid
	default:
		c.str++
		return c.str
	}
}

// StatsFor counts the entries of m per kind
func StatsFor(m placeholder.Mapping) Stats {
	counts := m.CountByKind()
	return Stats{
		Emails:  counts[placeholder.Email],
		URLs:    counts[placeholder.URL],
		GUIDs:   counts[placeholder.GUID],
		Strings: counts[placeholder.String],
	}
}

// run is the state threaded through a single extraction
type run struct {
	counters counters
	mapping  placeholder.Mapping
	// reserved holds tokens already present in the input text
	reserved map[string]bool
}

func (r *run) add(kind placeholder.Kind, value string) string {
	token := placeholder.Format(kind, r.counters.next(kind))
	for r.reserved[token] {
		token = placeholder.Format(kind, r.counters.next(kind))
	}
	r.mapping[token] = value
	return token
}

// replaceTyped swaps every match of p in s for a fresh placeholder.
// Identical matches each get their own counter value.
func (r *run) replaceTyped(s string, p classifier.TypedPattern) string {
	return p.Regex.ReplaceAllStringFunc(s, func(match string) string {
		if p.Skip != nil && p.Skip(match) {
			return match
		}
		return r.add(p.Kind, match)
	})
}

// Extract walks every string value of doc. Typed values (emails, then
// URLs, then GUIDs) are replaced wherever they occur; afterwards each value
// the classifier does not preserve becomes a STRING placeholder.
//
// Keys, numbers, booleans and nulls are never touched.
func (e *Extractor) Extract(doc []byte) (*Result, error) {
	root, err := document.Parse(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	leaves := root.StringValues()
	r := &run{
		mapping:  make(placeholder.Mapping),
		reserved: make(map[string]bool),
	}

	originals := make([]string, len(leaves))
	for i, leaf := range leaves {
		originals[i] = leaf.Value
		for _, token := range placeholder.FindAll(leaf.Value) {
			r.reserved[token] = true
		}
	}

	for _, p := range classifier.TypedPatterns() {
		for _, leaf := range leaves {
			if placeholder.IsToken(leaf.Value) {
				continue
			}
			leaf.Value = r.replaceTyped(leaf.Value, p)
		}
	}

	for i, leaf := range leaves {
		if placeholder.IsToken(leaf.Value) {
			continue
		}
		if e.classifier.Classify(originals[i]) == classifier.Preserve {
			continue
		}
		leaf.Value = r.add(placeholder.String, leaf.Value)
	}

	redacted, err := root.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to write redacted document: %w", err)
	}

	return &Result{
		Redacted: redacted,
		Mapping:  r.mapping,
		Stats:    StatsFor(r.mapping),
	}, nil
}
