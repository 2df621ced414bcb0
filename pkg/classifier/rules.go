package classifier

import "strings"

// Builtin preserve rules. Patterns are matched against the whole value.
// Order matters only for Explain output; any match preserves.

// knownActionTypes are workflow action and trigger type identifiers
var knownActionTypes = []string{
	"AppendToArrayVariable",
	"AppendToStringVariable",
	"ApiConnection",
	"ApiConnectionNotification",
	"ApiConnectionWebhook",
	"Button",
	"Compose",
	"DecrementVariable",
	"Expression",
	"Foreach",
	"Function",
	"Http",
	"HttpWebhook",
	"If",
	"IncrementVariable",
	"InitializeVariable",
	"Join",
	"ManualTrigger",
	"OpenApiConnection",
	"OpenApiConnectionNotification",
	"OpenApiConnectionWebhook",
	"ParseJson",
	"Query",
	"Recurrence",
	"Request",
	"Response",
	"Scope",
	"Select",
	"SetVariable",
	"Switch",
	"Table",
	"Terminate",
	"Until",
	"Wait",
	"Workflow",
}

// GetBuiltinRules returns the default preserve table
func GetBuiltinRules() []Rule {
	return []Rule{
		{
			Name:    "Schema URI",
			Pattern: schemaPattern + `.*`,
			Reason:  "document schema reference",
		},
		{
			Name:    "Content type",
			Pattern: `(application|text|multipart|image|audio|video)/[A-Za-z0-9.+\-]+(;\s*charset=[A-Za-z0-9\-]+)?`,
			Reason:  "MIME content type",
		},
		{
			Name:    "Action type",
			Pattern: alternation(knownActionTypes),
			Reason:  "workflow action or trigger type",
		},
		{
			Name:    "HTTP verb",
			Pattern: `(?i)(GET|POST|PUT|PATCH|DELETE|HEAD|OPTIONS)`,
			Reason:  "HTTP method",
		},
		{
			Name:    "Run state",
			Pattern: `(Succeeded|Failed|Skipped|TimedOut)`,
			Reason:  "run-after status enumerant",
		},
		{
			Name:    "Primitive type",
			Pattern: `(string|integer|boolean|array|object|number)`,
			Reason:  "schema type name",
		},
		{
			Name:    "Version",
			Pattern: `\d+\.\d+(\.\d+\.\d+)?`,
			Reason:  "content or schema version",
		},
		{
			Name:    "Blank",
			Pattern: `\s*`,
			Reason:  "whitespace only",
		},
	}
}

func alternation(words []string) string {
	return "(" + strings.Join(words, "|") + ")"
}
