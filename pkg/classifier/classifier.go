package classifier

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/santaclaude2025/flowsync/pkg/placeholder"
)

// minContentLength is the shortest value treated as content rather than an enumerant
const minContentLength = 3

// Unanchored patterns used to find typed values inside larger strings.
const (
	emailPattern = `[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}`
	urlPattern   = `https?://[^\s"'<>{}\\]+`
	guidPattern  = `\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`

	// schemaPattern is shared by the preserve table and the URL pass
	schemaPattern = `https?://(schema\.|json-schema\.org/)`
)

var (
	emailRegex = regexp.MustCompile(emailPattern)
	urlRegex   = regexp.MustCompile(urlPattern)
	guidRegex  = regexp.MustCompile(guidPattern)

	wholeEmail  = anchor(emailPattern)
	wholeURL    = anchor(urlPattern)
	wholeGUID   = anchor(guidPattern)
	schemaURL   = regexp.MustCompile(`^` + schemaPattern)
	expressions = []string{"@", "{{"}
)

// TypedPattern finds one kind of sensitive value inside arbitrary text
type TypedPattern struct {
	Kind  placeholder.Kind
	Regex *regexp.Regexp
	// Skip reports matches that must stay verbatim
	Skip func(match string) bool
}

// TypedPatterns returns the typed patterns in extraction order: email, URL, GUID
func TypedPatterns() []TypedPattern {
	return []TypedPattern{
		{Kind: placeholder.Email, Regex: emailRegex},
		{Kind: placeholder.URL, Regex: urlRegex, Skip: IsSchemaURL},
		{Kind: placeholder.GUID, Regex: guidRegex},
	}
}

// IsSchemaURL reports whether s points at a schema host (schema.* or json-schema.org)
func IsSchemaURL(s string) bool {
	return schemaURL.MatchString(s)
}

type compiledRule struct {
	rule  Rule
	regex *regexp.Regexp
}

// Classifier decides whether string values are structural or sensitive
type Classifier struct {
	preserve []compiledRule
}

var defaultClassifier = mustNew()

func mustNew() *Classifier {
	c, err := New()
	if err != nil {
		panic(err)
	}
	return c
}

// New builds a classifier from the builtin preserve table plus any extra rules.
// Extra rules are appended; they can widen the table but never narrow it.
func New(extra ...Rule) (*Classifier, error) {
	rules := append(GetBuiltinRules(), extra...)
	compiled := make([]compiledRule, 0, len(rules))

	for _, r := range rules {
		regex, err := compileWhole(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to compile preserve rule '%s': %w", r.Name, err)
		}
		compiled = append(compiled, compiledRule{rule: r, regex: regex})
	}

	return &Classifier{preserve: compiled}, nil
}

// Default returns the classifier built from the builtin rules only
func Default() *Classifier {
	return defaultClassifier
}

// Classify classifies value with the default classifier
func Classify(value string) Classification {
	return defaultClassifier.Classify(value)
}

// Classify applies the rules in order; the first match wins
func (c *Classifier) Classify(value string) Classification {
	return c.Explain(value).Classification
}

// Explain classifies value and reports which step decided it
func (c *Classifier) Explain(value string) Decision {
	for _, prefix := range expressions {
		if strings.HasPrefix(value, prefix) {
			return Decision{Classification: Preserve, Step: "expression"}
		}
	}

	if utf8.RuneCountInString(value) < minContentLength {
		return Decision{Classification: Preserve, Step: "short"}
	}

	for i := range c.preserve {
		if c.preserve[i].regex.MatchString(value) {
			rule := c.preserve[i].rule
			return Decision{Classification: Preserve, Step: "preserve-list", Rule: &rule}
		}
	}

	if wholeEmail.MatchString(value) {
		return Decision{Classification: ExtractAsEmail, Step: "email"}
	}

	if wholeURL.MatchString(value) {
		if IsSchemaURL(value) {
			return Decision{Classification: Preserve, Step: "schema-url"}
		}
		return Decision{Classification: ExtractAsURL, Step: "url"}
	}

	if wholeGUID.MatchString(value) {
		return Decision{Classification: ExtractAsGUID, Step: "guid"}
	}

	return Decision{Classification: ExtractAsString, Step: "fallback"}
}

// Rules returns the preserve table in evaluation order
func (c *Classifier) Rules() []Rule {
	rules := make([]Rule, len(c.preserve))
	for i, r := range c.preserve {
		rules[i] = r.rule
	}
	return rules
}

func compileWhole(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(`^(?:` + pattern + `)$`)
}

func anchor(pattern string) *regexp.Regexp {
	return regexp.MustCompile(`^(?:` + pattern + `)$`)
}
