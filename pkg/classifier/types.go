package classifier

import "github.com/santaclaude2025/flowsync/pkg/placeholder"

// Classification is the decision taken for a single string value
type Classification int

const (
	// Preserve keeps the value visible; it is structural
	Preserve Classification = iota
	ExtractAsEmail
	ExtractAsURL
	ExtractAsGUID
	// ExtractAsString is the fallback for everything no other rule claims
	ExtractAsString
)

func (c Classification) String() string {
	switch c {
	case Preserve:
		return "preserve"
	case ExtractAsEmail:
		return "email"
	case ExtractAsURL:
		return "url"
	case ExtractAsGUID:
		return "guid"
	case ExtractAsString:
		return "string"
	default:
		return "unknown"
	}
}

// Kind returns the placeholder kind used for an extracting classification
func (c Classification) Kind() (placeholder.Kind, bool) {
	switch c {
	case ExtractAsEmail:
		return placeholder.Email, true
	case ExtractAsURL:
		return placeholder.URL, true
	case ExtractAsGUID:
		return placeholder.GUID, true
	case ExtractAsString:
		return placeholder.String, true
	default:
		return "", false
	}
}

// Rule is one entry of the preserve table
type Rule struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	Reason  string `yaml:"reason,omitempty"`
}

// RulesFile is the on-disk format for operator-defined preserve rules
type RulesFile struct {
	Preserve []Rule `yaml:"preserve"`
}

// Decision explains how a value was classified.
// Rule is set only when a preserve-table entry matched.
type Decision struct {
	Classification Classification
	Step           string
	Rule           *Rule
}
