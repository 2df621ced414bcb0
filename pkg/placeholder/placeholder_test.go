package placeholder

import (
	"reflect"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		kind     Kind
		n        int
		expected string
	}{
		{Email, 1, "{{EMAIL_1}}"},
		{URL, 12, "{{URL_12}}"},
		{GUID, 3, "{{GUID_3}}"},
		{String, 100, "{{STRING_100}}"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := Format(tt.kind, tt.n); got != tt.expected {
				t.Errorf("Format(%s, %d) = %q, want %q", tt.kind, tt.n, got, tt.expected)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  Kind
		n     int
		ok    bool
	}{
		{"email token", "{{EMAIL_1}}", Email, 1, true},
		{"multi digit", "{{STRING_42}}", String, 42, true},
		{"leading zero", "{{STRING_01}}", "", 0, false},
		{"zero counter", "{{GUID_0}}", "", 0, false},
		{"unknown kind", "{{PHONE_1}}", "", 0, false},
		{"missing close", "{{URL_1}", "", 0, false},
		{"surrounding text", "x{{URL_1}}", "", 0, false},
		{"two tokens", "{{URL_1}}{{URL_2}}", "", 0, false},
		{"lowercase", "{{email_1}}", "", 0, false},
		{"empty", "", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, n, ok := Parse(tt.input)
			if ok != tt.ok || kind != tt.kind || n != tt.n {
				t.Errorf("Parse(%q) = (%q, %d, %v), want (%q, %d, %v)",
					tt.input, kind, n, ok, tt.kind, tt.n, tt.ok)
			}
		})
	}
}

func TestFindAllDoesNotSplitLongerTokens(t *testing.T) {
	got := FindAll("a {{STRING_10}} b {{STRING_1}} c {{STRING_100}}")
	want := []string{"{{STRING_10}}", "{{STRING_1}}", "{{STRING_100}}"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FindAll = %v, want %v", got, want)
	}
}

func TestReplaceAllExactTokens(t *testing.T) {
	values := map[string]string{
		"{{STRING_1}}":  "one",
		"{{STRING_10}}": "ten",
	}
	got := ReplaceAll("{{STRING_10}}/{{STRING_1}}/{{STRING_11}}", func(token string) string {
		if v, ok := values[token]; ok {
			return v
		}
		return token
	})
	if got != "ten/one/{{STRING_11}}" {
		t.Errorf("ReplaceAll = %q", got)
	}
}

func TestMappingTokensOrder(t *testing.T) {
	m := Mapping{
		"{{STRING_10}}": "c",
		"{{STRING_2}}":  "b",
		"{{GUID_1}}":    "g",
		"{{EMAIL_1}}":   "e",
		"{{URL_1}}":     "u",
	}
	want := []string{"{{EMAIL_1}}", "{{URL_1}}", "{{GUID_1}}", "{{STRING_2}}", "{{STRING_10}}"}
	if got := m.Tokens(); !reflect.DeepEqual(got, want) {
		t.Errorf("Tokens() = %v, want %v", got, want)
	}
}

func TestMappingCountByKind(t *testing.T) {
	m := Mapping{
		"{{EMAIL_1}}":  "a@b.com",
		"{{EMAIL_2}}":  "c@d.com",
		"{{STRING_1}}": "hello",
	}
	counts := m.CountByKind()
	if counts[Email] != 2 || counts[String] != 1 || counts[URL] != 0 {
		t.Errorf("unexpected counts: %v", counts)
	}
}
