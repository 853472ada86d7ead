package videos

import (
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-shiori/dom"
	"golang.org/x/net/html"

	"github.com/meneses-pt/goals.zone/internal/db"
)

// Link is an anchor or bare URL found in a post or comment.
type Link struct {
	URL  string
	Text string
}

var mirrorCheckSteps = []struct {
	age   time.Duration
	delay time.Duration
}{
	{10 * time.Minute, time.Minute},
	{30 * time.Minute, 5 * time.Minute},
	{60 * time.Minute, 10 * time.Minute},
	{120 * time.Minute, 20 * time.Minute},
	{240 * time.Minute, 30 * time.Minute},
}

// NextMirrorsCheck schedules the next comment scan; young videos are scanned more often.
func NextMirrorsCheck(createdAt, now time.Time) time.Time {
	age := now.Sub(createdAt)
	for _, step := range mirrorCheckSteps {
		if age < step.age {
			return now.Add(step.delay)
		}
	}
	return now.Add(time.Hour)
}

var boilerplatePrefixes = []string{"^", "contact us", "redditvideodl", "source code"}

const maxMirrorTitle = 195

// mirrorRecord applies the mirror admission rules. ok is false for boilerplate links and
// for the video's own url.
func mirrorRecord(vg db.VideoGoalRow, text, link, author string) (db.MirrorRecord, bool) {
	lowered := strings.ToLower(text)
	for _, prefix := range boilerplatePrefixes {
		if strings.HasPrefix(lowered, prefix) {
			return db.MirrorRecord{}, false
		}
	}
	if vg.URL != nil && link == *vg.URL {
		return db.MirrorRecord{}, false
	}

	rec := db.MirrorRecord{VideoGoalID: vg.ID, URL: link}
	if strings.TrimFunc(text, unicode.IsSpace) != "" {
		title := truncateRunes(text, maxMirrorTitle, "..")
		rec.Title = &title
	}
	if author != "" {
		rec.Author = &author
	}
	return rec, true
}

func truncateRunes(s string, n int, suffix string) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + suffix
}

// ExtractLinks returns the anchors of a reddit HTML field. Reddit escapes the markup inside
// JSON, so the field is unescaped before parsing.
func ExtractLinks(escaped string) []Link {
	return extractAnchors(escaped, false)
}

// extractReplyLinks is ExtractLinks for mirror replies: an anchor whose text is itself a
// url takes its label from the text that follows it.
func extractReplyLinks(escaped string) []Link {
	return extractAnchors(escaped, true)
}

func extractAnchors(escaped string, labelFromTail bool) []Link {
	if strings.TrimSpace(escaped) == "" {
		return nil
	}
	doc, err := html.Parse(strings.NewReader(html.UnescapeString(escaped)))
	if err != nil {
		return nil
	}
	var out []Link
	for _, a := range dom.GetElementsByTagName(doc, "a") {
		href := strings.TrimSpace(dom.GetAttribute(a, "href"))
		if href == "" {
			continue
		}
		text := dom.TextContent(a)
		if labelFromTail && strings.Contains(text, "http") {
			if tail := tailText(a); tail != "" {
				text = tail
			}
		}
		out = append(out, Link{URL: href, Text: text})
	}
	return out
}

func tailText(n *html.Node) string {
	if n.NextSibling == nil || n.NextSibling.Type != html.TextNode {
		return ""
	}
	return n.NextSibling.Data
}

var bareURLPattern = regexp.MustCompile(`https?://(?:[a-zA-Z0-9%=.,-_]|[!*(),]|%[0-9a-fA-F][0-9a-fA-F])+`)

// ExtractURLs finds bare urls line by line. The text before the url, up to the first ':',
// becomes the label; "(url)" loses its parentheses.
func ExtractURLs(body string) []Link {
	var out []Link
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")
		for _, found := range bareURLPattern.FindAllString(line, -1) {
			if !validURL(found) {
				continue
			}
			link := found
			text := strings.ReplaceAll(line, link, "")
			if before, _, ok := strings.Cut(text, ":"); ok {
				text = before
			}
			if strings.HasSuffix(text, "(") && strings.HasSuffix(link, ")") {
				text = strings.TrimSuffix(text, "(")
				link = strings.TrimSuffix(link, ")")
			}
			out = append(out, Link{URL: link, Text: text})
		}
	}
	return out
}

func validURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || (strings.Contains(host, ".") && !strings.HasSuffix(host, "."))
}
