// Package names folds team names and applies the affiliate-term policy that keeps
// age-group and women's sides from matching the senior team.
package names

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s and strips combining marks, so "Atlético" and "atletico" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Slug builds a lowercase ASCII-ish slug from the folded words of parts.
func Slug(parts ...string) string {
	var b strings.Builder
	dash := false
	for _, part := range parts {
		for _, r := range Fold(part) {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				if dash && b.Len() > 0 {
					b.WriteByte('-')
				}
				dash = false
				b.WriteRune(r)
				continue
			}
			dash = true
		}
		dash = true
	}
	out := b.String()
	if len(out) > 190 {
		out = strings.TrimRight(out[:190], "-")
	}
	return out
}

// Term is a configured affiliate marker such as "U19" or "Women".
type Term struct {
	Text     string
	IsPrefix bool
}

// Split is the result of testing a name against the configured terms.
// Prefix and Suffix keep the separating space, e.g. "U19 " or " U19".
type Split struct {
	Core   string
	Prefix string
	Suffix string
}

// Constraint narrows catalog team names for one side of a lookup.
// StartsWith/EndsWith are case-insensitive literal checks; the Exclude fields are
// case-insensitive regular expressions a catalog name must NOT match.
type Constraint struct {
	StartsWith           string
	EndsWith             string
	ExcludePrefixPattern string
	ExcludeSuffixPattern string
}

// Splitter holds the compiled prefix and suffix alternations. The zero value has no terms.
type Splitter struct {
	prefixRe      *regexp.Regexp
	suffixRe      *regexp.Regexp
	prefixPattern string
	suffixPattern string
}

// NewSplitter compiles the terms. Longer terms are tried first so "U19" wins over "U1".
func NewSplitter(terms []Term) *Splitter {
	var prefixes, suffixes []string
	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		text := strings.TrimSpace(term.Text)
		if text == "" {
			continue
		}
		key := strings.ToLower(text)
		if term.IsPrefix {
			key = "p:" + key
		} else {
			key = "s:" + key
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if term.IsPrefix {
			prefixes = append(prefixes, regexp.QuoteMeta(text)+" ")
		} else {
			suffixes = append(suffixes, " "+regexp.QuoteMeta(text))
		}
	}
	byLength := func(items []string) {
		sort.SliceStable(items, func(i, j int) bool {
			if len(items[i]) != len(items[j]) {
				return len(items[i]) > len(items[j])
			}
			return items[i] < items[j]
		})
	}
	byLength(prefixes)
	byLength(suffixes)

	s := &Splitter{}
	if len(prefixes) > 0 {
		s.prefixPattern = "^(" + strings.Join(prefixes, "|") + ")"
		s.prefixRe = regexp.MustCompile(s.prefixPattern)
	}
	if len(suffixes) > 0 {
		s.suffixPattern = "(" + strings.Join(suffixes, "|") + ")$"
		s.suffixRe = regexp.MustCompile(s.suffixPattern)
	}
	return s
}

// Split detects a configured prefix and suffix in name. Detection is case-sensitive.
func (s *Splitter) Split(name string) Split {
	name = strings.TrimSpace(name)
	out := Split{Core: name}
	if s == nil {
		return out
	}
	if s.prefixRe != nil {
		if m := s.prefixRe.FindStringSubmatch(name); m != nil {
			out.Prefix = m[1]
			out.Core = strings.TrimSpace(out.Core[len(m[0]):])
		}
	}
	if s.suffixRe != nil {
		if m := s.suffixRe.FindStringSubmatch(out.Core); m != nil {
			out.Suffix = m[1]
			out.Core = strings.TrimSpace(out.Core[:len(out.Core)-len(m[0])])
		}
	}
	return out
}

// Constraint applies the affiliate policy to name: a detected term must also appear on the
// catalog name; without one, catalog names carrying any configured term are excluded.
func (s *Splitter) Constraint(name string) Constraint {
	split := s.Split(name)
	var c Constraint
	if split.Prefix != "" {
		c.StartsWith = split.Prefix
	} else if s != nil {
		c.ExcludePrefixPattern = s.prefixPattern
	}
	if split.Suffix != "" {
		c.EndsWith = split.Suffix
	} else if s != nil {
		c.ExcludeSuffixPattern = s.suffixPattern
	}
	return c
}

// Allows reports whether a catalog team name passes c. It mirrors the SQL predicate.
func (c Constraint) Allows(catalogName string) bool {
	lower := strings.ToLower(catalogName)
	if c.StartsWith != "" {
		if !strings.HasPrefix(lower, strings.ToLower(c.StartsWith)) {
			return false
		}
	} else if c.ExcludePrefixPattern != "" && matchFold(c.ExcludePrefixPattern, catalogName) {
		return false
	}
	if c.EndsWith != "" {
		if !strings.HasSuffix(lower, strings.ToLower(c.EndsWith)) {
			return false
		}
	} else if c.ExcludeSuffixPattern != "" && matchFold(c.ExcludeSuffixPattern, catalogName) {
		return false
	}
	return true
}

func matchFold(pattern, s string) bool {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}
