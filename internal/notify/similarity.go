package notify

import (
	"time"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	// RepeatWindow is how long after a notification a near-identical one is dropped.
	RepeatWindow = 5 * time.Minute
	// RepeatRatio is the text similarity above which a message counts as a repeat.
	RepeatRatio = 0.80
)

// TextRatio is the difflib ratio of two strings compared character by character.
func TextRatio(a, b string) float64 {
	m := difflib.NewMatcher(splitChars(a), splitChars(b))
	return m.Ratio()
}

func splitChars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// IsRepeat reports whether text sent at now duplicates the last notification of a match.
func IsRepeat(lastAt *time.Time, lastText *string, text string, now time.Time) bool {
	if lastAt == nil || lastText == nil {
		return false
	}
	if now.Sub(*lastAt) >= RepeatWindow {
		return false
	}
	return TextRatio(*lastText, text) > RepeatRatio
}
