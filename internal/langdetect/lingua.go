// Package langdetect guesses the language of post titles for the NER audit log.
package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// Languages seen in the football subreddits' titles.
var titleLanguages = []lingua.Language{
	lingua.English,
	lingua.Portuguese,
	lingua.Spanish,
	lingua.Italian,
	lingua.German,
	lingua.French,
	lingua.Dutch,
	lingua.Turkish,
}

// TitleLanguage returns the ISO 639-1 code of a title, or "" when the title has too few
// letters once scores, minutes and brackets are removed, or no language is confident.
func TitleLanguage(title string) string {
	sample := stripNonWords(title)
	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
		}
	}
	if letterCount < 12 {
		return ""
	}

	language, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return ""
	}
	code := strings.ToLower(language.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

// stripNonWords drops digits and punctuation so "2-1 [90'+3']" does not bias detection.
func stripNonWords(s string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space && b.Len() > 0 {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(titleLanguages...).
			WithMinimumRelativeDistance(0.1).
			Build()
	})
	return detector
}
