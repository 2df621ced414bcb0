package placeholder

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Kind is the semantic group a placeholder belongs to
type Kind string

const (
	Email  Kind = "EMAIL"
	URL    Kind = "URL"
	GUID   Kind = "GUID"
	String Kind = "STRING"
)

// Kinds lists every kind in extraction order
var Kinds = []Kind{Email, URL, GUID, String}

// tokenPattern requires the closing braces and forbids leading zeros, so
// {{STRING_1}} never matches inside {{STRING_10}}.
var tokenPattern = regexp.MustCompile(`\{\{(EMAIL|URL|GUID|STRING)_([1-9][0-9]*)\}\}`)

// Format returns the token for the n-th value of a kind, e.g. {{EMAIL_3}}
func Format(kind Kind, n int) string {
	return "{{" + string(kind) + "_" + strconv.Itoa(n) + "}}"
}

// Parse splits a token into its kind and counter.
// The whole string must be exactly one token.
func Parse(s string) (Kind, int, bool) {
	m := tokenPattern.FindStringSubmatch(s)
	if m == nil || len(m[0]) != len(s) {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return Kind(m[1]), n, true
}

// IsToken reports whether s is exactly one placeholder token
func IsToken(s string) bool {
	_, _, ok := Parse(s)
	return ok
}

// Contains reports whether s has at least one placeholder token anywhere in it
func Contains(s string) bool {
	return tokenPattern.MatchString(s)
}

// FindAll returns every token in s, in order of appearance
func FindAll(s string) []string {
	return tokenPattern.FindAllString(s, -1)
}

// ReplaceAll calls fn for every token in s and splices in its result
func ReplaceAll(s string, fn func(token string) string) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	return tokenPattern.ReplaceAllStringFunc(s, fn)
}

// Mapping maps placeholder tokens to the original values they stand for.
// One Mapping belongs to exactly one document.
type Mapping map[string]string

// Tokens returns the mapping's tokens ordered by kind, then by counter
func (m Mapping) Tokens() []string {
	tokens := make([]string, 0, len(m))
	for token := range m {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		return Less(tokens[i], tokens[j])
	})
	return tokens
}

// CountByKind returns how many entries of each kind the mapping holds
func (m Mapping) CountByKind() map[Kind]int {
	counts := make(map[Kind]int, len(Kinds))
	for token := range m {
		if kind, _, ok := Parse(token); ok {
			counts[kind]++
		}
	}
	return counts
}

// Clone returns a copy that can be modified independently
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Less orders tokens by kind (extraction order) and then numerically.
// Malformed tokens sort last, lexically.
func Less(a, b string) bool {
	ka, na, okA := Parse(a)
	kb, nb, okB := Parse(b)
	switch {
	case !okA && !okB:
		return a < b
	case !okA:
		return false
	case !okB:
		return true
	}
	if ka != kb {
		return kindRank(ka) < kindRank(kb)
	}
	return na < nb
}

func kindRank(k Kind) int {
	for i, kind := range Kinds {
		if kind == k {
			return i
		}
	}
	return len(Kinds)
}
