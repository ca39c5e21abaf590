package validate

import (
	"strings"

	"golang.org/x/text/cases"
)

// fold returns the Unicode case-folded form of s. A new Caser is built per
// call because Casers are stateful.
func fold(s string) string {
	return cases.Fold().String(s)
}

func foldAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, fold(s))
		}
	}
	return out
}

// containsAny reports whether the folded text contains any folded keyword.
func containsAny(folded string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(folded, kw) {
			return true
		}
	}
	return false
}

// dedupKey is the folded, whitespace-collapsed title joined with the date.
func dedupKey(title, date string) string {
	return strings.Join(strings.Fields(fold(title)), " ") + "|" + date
}
