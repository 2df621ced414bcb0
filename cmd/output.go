package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/samber/lo"

	"github.com/santaclaude2025/flowsync/pkg/extractor"
)

var (
	success = color.New(color.FgGreen).SprintFunc()
	warning = color.New(color.FgYellow).SprintFunc()
	failure = color.New(color.FgRed).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
)

func printSuccess(format string, args ...interface{}) {
	fmt.Println(success("✓ ") + fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...interface{}) {
	fmt.Println(warning("! ") + fmt.Sprintf(format, args...))
}

type countLabel struct {
	n                int
	singular, plural string
}

// formatStats renders extraction counts, e.g. "5 placeholders (1 email, 2 urls, 2 strings)"
func formatStats(s extractor.Stats) string {
	counts := []countLabel{
		{s.Emails, "email", "emails"},
		{s.URLs, "url", "urls"},
		{s.GUIDs, "guid", "guids"},
		{s.Strings, "string", "strings"},
	}
	parts := lo.FilterMap(counts, func(c countLabel, _ int) (string, bool) {
		switch c.n {
		case 0:
			return "", false
		case 1:
			return "1 " + c.singular, true
		default:
			return fmt.Sprintf("%s %s", humanize.Comma(int64(c.n)), c.plural), true
		}
	})

	total := humanize.Comma(int64(s.Total()))
	if len(parts) == 0 {
		return total + " placeholders"
	}
	return fmt.Sprintf("%s placeholders (%s)", total, strings.Join(parts, ", "))
}

func formatAge(t time.Time) string {
	return humanize.Time(t)
}

func formatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
