// Package reddit reads subreddit listings and comment trees through the OAuth API.
package reddit

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// Post is a submission from a listing.
type Post struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Permalink     string  `json:"permalink"`
	Title         string  `json:"title"`
	URL           *string `json:"url"`
	Author        string  `json:"author"`
	CreatedUTC    float64 `json:"created_utc"`
	LinkFlairText *string `json:"link_flair_text"`
	SelftextHTML  *string `json:"selftext_html"`
}

var processedFlairs = map[string]struct{}{
	"media":      {},
	"mirror":     {},
	"great goal": {},
}

// ShouldProcess reports whether a r/soccer post is a goal video: it links somewhere and
// carries a media flair.
func (p Post) ShouldProcess() bool {
	if p.URL == nil || p.LinkFlairText == nil {
		return false
	}
	_, ok := processedFlairs[strings.ToLower(*p.LinkFlairText)]
	return ok
}

// CleanTitle undoes the HTML escaping reddit applies to ampersands.
func (p Post) CleanTitle() string {
	return strings.ReplaceAll(p.Title, "&amp;", "&")
}

func (p Post) CreatedAt() time.Time {
	sec, frac := math.Modf(p.CreatedUTC)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

// Page is one listing page.
type Page struct {
	Posts []Post
	After string
	Dist  int
}

// Comment is a node of a comment tree. "more" placeholders are dropped.
type Comment struct {
	ID       string
	Author   string
	Body     string
	BodyHTML string
	Replies  []Comment
}

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type listing struct {
	After    *string `json:"after"`
	Dist     *int    `json:"dist"`
	Children []thing `json:"children"`
}

type commentData struct {
	ID       string          `json:"id"`
	Author   string          `json:"author"`
	Body     string          `json:"body"`
	BodyHTML string          `json:"body_html"`
	Replies  json.RawMessage `json:"replies"`
}

func decodeComments(children []thing) ([]Comment, error) {
	out := make([]Comment, 0, len(children))
	for _, child := range children {
		if child.Kind != "t1" {
			continue
		}
		var data commentData
		if err := json.Unmarshal(child.Data, &data); err != nil {
			return nil, err
		}
		c := Comment{ID: data.ID, Author: data.Author, Body: data.Body, BodyHTML: data.BodyHTML}
		replies, err := decodeReplies(data.Replies)
		if err != nil {
			return nil, err
		}
		c.Replies = replies
		out = append(out, c)
	}
	return out, nil
}

// decodeReplies accepts "" (no replies) or a nested listing.
func decodeReplies(raw json.RawMessage) ([]Comment, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == `""` || trimmed == "null" {
		return nil, nil
	}
	var wrapper thing
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, err
	}
	var l listing
	if err := json.Unmarshal(wrapper.Data, &l); err != nil {
		return nil, err
	}
	return decodeComments(l.Children)
}
