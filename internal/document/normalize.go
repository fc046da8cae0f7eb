package document

import (
	"strings"
	"unicode/utf8"
)

// Display is a search hit shaped for presentation: highlighted markup where
// the backend produced it, raw values otherwise.
type Display struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Author    string   `json:"author"`
	Year      Label    `json:"year"`
	Body      string   `json:"body"`
	Link      string   `json:"link"`
	Tags      []string `json:"tags"`
	Timestamp string   `json:"timestamp,omitempty"`
}

// Normalize merges the highlight fragments of h into its stored fields.
// It never fails; missing highlights fall back to the raw values.
func Normalize(h Hit) Display {
	src := h.Source
	id := src.ID
	if id == "" {
		id = h.ID
	}
	d := Display{
		ID:     id,
		Title:  firstFragment(h.Highlight, "title", src.Title),
		Author: firstFragment(h.Highlight, "author", src.Author),
		Year:   src.Year,
		Body:   firstFragment(h.Highlight, "body", Truncate(src.Body, SnippetSize)),
		Link:   src.Link,
		Tags:   make([]string, 0, len(src.Tags)),
	}
	if !src.Timestamp.IsZero() {
		d.Timestamp = src.Timestamp.Format("2006-01-02T15:04:05.000Z07:00")
	}
	var tagFragments []string
	if h.Highlight != nil {
		tagFragments = h.Highlight["tags"]
	}
	for _, tag := range src.Tags {
		d.Tags = append(d.Tags, MatchTagHighlight(tag, tagFragments))
	}
	return d
}

// NormalizeAll applies Normalize to every hit of r.
func NormalizeAll(r *SearchResult) []Display {
	if r == nil {
		return []Display{}
	}
	out := make([]Display, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		out = append(out, Normalize(h))
	}
	return out
}

func firstFragment(hl map[string][]string, field, fallback string) string {
	if frags := hl[field]; len(frags) > 0 && frags[0] != "" {
		return frags[0]
	}
	return fallback
}

// Truncate cuts s to max characters and appends "..." when it was longer.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + "..."
}

// MatchTagHighlight picks the highlighted fragment belonging to tag: the
// first fragment that contains the tag or is contained by it, compared
// case-insensitively and markup included. With several tags sharing a
// substring it can pick the wrong fragment.
func MatchTagHighlight(tag string, fragments []string) string {
	lt := strings.ToLower(tag)
	for _, f := range fragments {
		if f == "" {
			continue
		}
		lf := strings.ToLower(f)
		if strings.Contains(lf, lt) || strings.Contains(lt, lf) {
			return f
		}
	}
	return tag
}
