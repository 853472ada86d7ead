// Package extract pulls team names and the goal minute out of free-text post titles.
package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// Teams is one extraction result. Minute is empty when the title carries none.
type Teams struct {
	Home   string
	Away   string
	Minute string
}

// HasPair reports whether both team slots are filled.
func (t Teams) HasPair() bool {
	return t.Home != "" && t.Away != ""
}

// Swapped returns the pair in reverse orientation.
func (t Teams) Swapped() Teams {
	return Teams{Home: t.Away, Away: t.Home, Minute: t.Minute}
}

var (
	// name, then a score token like "1-0", "[1]-0", "1 x 0" or "1 - [0]".
	homePattern   = regexp.MustCompile(`\[?\]?[\s\p{Zs}]?((?:[\p{L}\p{N}_]|[\s\p{Zs}]|\.|-)+)((?:\p{Nd}|\[\p{Nd}\])(?:[-x]| [-x] | [-x]|[-x] ))(?:\p{Nd}|\[\p{Nd}\])`)
	minutePattern = regexp.MustCompile(`([^\s\p{Zs}]*\p{Nd}+[^\s\p{Zs}]*)'`)
)

// Regex extracts (home, away, minute) with the score-token heuristic. It is all or nothing:
// when either team is missing the zero Teams is returned and ok is false.
func Regex(title string) (Teams, bool) {
	home := homePattern.FindStringSubmatch(title)
	if home == nil {
		return Teams{}, false
	}
	away, ok := awayAfterScore(title)
	if !ok {
		return Teams{}, false
	}

	out := Teams{
		Home: strings.TrimSpace(home[1]),
		Away: strings.TrimSpace(away),
	}
	if minutes := minutePattern.FindAllStringSubmatch(title, -1); len(minutes) > 0 {
		out.Minute = strings.TrimSpace(minutes[len(minutes)-1][1])
	}
	if out.Home == "" || out.Away == "" {
		return Teams{}, false
	}
	return out, true
}

// awayAfterScore finds the leftmost score token and returns the name that follows it.
// Name characters are letters, digits, underscore, whitespace, '.' and '-'; the name stops
// before any character that is followed by "- ", which is how "Team - Player" separates.
// The search backtracks over the score alternatives the same way a regex engine would.
func awayAfterScore(title string) (string, bool) {
	rs := []rune(title)
	for start := range rs {
		for _, afterFirst := range scoreToken(rs, start) {
			for _, afterSep := range scoreSeparator(rs, afterFirst) {
				for _, afterSecond := range scoreToken(rs, afterSep) {
					starts := make([]int, 0, 2)
					if afterSecond < len(rs) && isSpace(rs[afterSecond]) {
						starts = append(starts, afterSecond+1)
					}
					starts = append(starts, afterSecond)
					for _, p := range starts {
						if name, ok := awayName(rs, p); ok {
							return name, true
						}
					}
				}
			}
		}
	}
	return "", false
}

func scoreToken(rs []rune, i int) []int {
	if i >= len(rs) {
		return nil
	}
	if unicode.IsDigit(rs[i]) {
		return []int{i + 1}
	}
	if rs[i] == '[' && i+2 < len(rs) && unicode.IsDigit(rs[i+1]) && rs[i+2] == ']' {
		return []int{i + 3}
	}
	return nil
}

// scoreSeparator returns the end of every separator alternative at i, in pattern order:
// "-", " - ", " -", "- " (and the same with 'x').
func scoreSeparator(rs []rune, i int) []int {
	at := func(j int, want func(rune) bool) bool {
		return j < len(rs) && want(rs[j])
	}
	dash := func(r rune) bool { return r == '-' || r == 'x' }
	space := func(r rune) bool { return r == ' ' }

	out := make([]int, 0, 4)
	if at(i, dash) {
		out = append(out, i+1)
	}
	if at(i, space) && at(i+1, dash) && at(i+2, space) {
		out = append(out, i+3)
	}
	if at(i, space) && at(i+1, dash) {
		out = append(out, i+2)
	}
	if at(i, dash) && at(i+1, space) {
		out = append(out, i+2)
	}
	return out
}

func awayName(rs []rune, p int) (string, bool) {
	end := p
	for end < len(rs) && isNameRune(rs[end]) && !followedByDashSpace(rs, end+1) {
		end++
	}
	if end == p {
		return "", false
	}
	return string(rs[p:end]), true
}

func followedByDashSpace(rs []rune, i int) bool {
	return i+1 < len(rs) && rs[i] == '-' && rs[i+1] == ' '
}

func isNameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' || isSpace(r) || r == '.' || r == '-'
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r)
}
