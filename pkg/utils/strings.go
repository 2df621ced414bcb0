package utils

import "unicode/utf8"

// TruncateSecret truncates a token for display, e.g. "fs_live_...3456".
// Strings too short to truncate safely are masked entirely.
func TruncateSecret(s string, prefixLen, suffixLen int) string {
	minLen := prefixLen + suffixLen
	if len(s) < minLen {
		if len(s) == 0 {
			return "(empty)"
		}
		return "***"
	}
	return s[:prefixLen] + "..." + s[len(s)-suffixLen:]
}

// TruncateWithEllipsis keeps the end of s (useful for long paths)
func TruncateWithEllipsis(s string, maxLen int) string {
	if maxLen < 4 {
		maxLen = 4
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	return "..." + string(r[len(r)-maxLen+3:])
}

// TruncateEnd keeps the beginning of s and adds an ellipsis when it exceeds maxLen
func TruncateEnd(s string, maxLen int) string {
	if maxLen < 4 {
		maxLen = 4
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxLen-3]) + "..."
}
