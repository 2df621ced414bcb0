package rehydrator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/santaclaude2025/flowsync/pkg/document"
	"github.com/santaclaude2025/flowsync/pkg/placeholder"
)

// maxDepth bounds expansion of mapping values that themselves hold tokens
// (a STRING value whose email was extracted first).
const maxDepth = 8

// ErrInvalidDocument is returned when the edited document is not valid JSON
var ErrInvalidDocument = errors.New("edited document is not valid JSON")

// Result is the outcome of a rehydration
type Result struct {
	Document []byte
	// Substituted counts token occurrences replaced in the document
	Substituted int
	// Unused lists mapping tokens that no longer appear; the editor removed them
	Unused []string
	// Unknown lists tokens in the document that the mapping does not know;
	// they are left as literal text
	Unknown []string
}

// Rehydrate puts the original values back into an edited document.
// Only string values are rewritten; structure and every other leaf
// pass through unchanged.
func Rehydrate(doc []byte, m placeholder.Mapping) (*Result, error) {
	root, err := document.Parse(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	s := newSubstitution(m)
	for _, leaf := range root.StringValues() {
		leaf.Value = s.expand(leaf.Value, 0, true)
	}

	out, err := root.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to write rehydrated document: %w", err)
	}

	return &Result{
		Document:    out,
		Substituted: s.substituted,
		Unused:      s.unused(),
		Unknown:     sortedKeys(s.unknown),
	}, nil
}

// RehydrateString substitutes tokens in a single piece of text
func RehydrateString(text string, m placeholder.Mapping) string {
	return newSubstitution(m).expand(text, 0, true)
}

type substitution struct {
	mapping     placeholder.Mapping
	used        map[string]bool
	unknown     map[string]bool
	substituted int
}

func newSubstitution(m placeholder.Mapping) *substitution {
	return &substitution{
		mapping: m,
		used:    make(map[string]bool),
		unknown: make(map[string]bool),
	}
}

// expand replaces exact tokens in text. top is false for text that came
// out of the mapping, so nested references are not counted as document hits.
func (s *substitution) expand(text string, depth int, top bool) string {
	if depth >= maxDepth {
		return text
	}
	return placeholder.ReplaceAll(text, func(token string) string {
		value, ok := s.mapping[token]
		if !ok {
			if top {
				s.unknown[token] = true
			}
			return token
		}
		s.used[token] = true
		if top {
			s.substituted++
		}
		return s.expand(value, depth+1, false)
	})
}

func (s *substitution) unused() []string {
	var out []string
	for token := range s.mapping {
		if !s.used[token] {
			out = append(out, token)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return placeholder.Less(out[i], out[j])
	})
	return out
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		return placeholder.Less(out[i], out[j])
	})
	return out
}
