package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Document is a catalog record as stored in the full-text index.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Year      Label     `json:"year"`
	Body      string    `json:"body"`
	Link      string    `json:"link"`
	Tags      []string  `json:"tags"`
	Timestamp time.Time `json:"timestamp"`
}

// Payload is the client-editable part of a Document. Create and Update both
// take a full Payload; partial updates are not supported.
type Payload struct {
	Title  string   `json:"title" form:"title"`
	Author string   `json:"author" form:"author"`
	Year   Label    `json:"year" form:"year"`
	Body   string   `json:"body" form:"body"`
	Link   string   `json:"link" form:"link"`
	Tags   []string `json:"tags" form:"tags"`
}

// Apply overwrites every editable field of d with the payload. ID and
// Timestamp are left alone.
func (p Payload) Apply(d *Document) {
	d.Title = p.Title
	d.Author = p.Author
	d.Year = p.Year
	d.Body = p.Body
	d.Link = p.Link
	d.Tags = append([]string(nil), p.Tags...)
}

// Payload returns the editable fields of d.
func (d Document) Payload() Payload {
	return Payload{
		Title:  d.Title,
		Author: d.Author,
		Year:   d.Year,
		Body:   d.Body,
		Link:   d.Link,
		Tags:   append([]string(nil), d.Tags...),
	}
}

// Label is a free-form value that clients may send either as a JSON string
// or a JSON number (e.g. a year). It is always stored and returned as a string.
type Label string

func (l *Label) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*l = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = Label(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("label must be a string or number: %w", err)
	}
	*l = Label(n.String())
	return nil
}

// UnmarshalText lets form bindings fill a Label.
func (l *Label) UnmarshalText(b []byte) error {
	*l = Label(b)
	return nil
}

func (l Label) String() string { return string(l) }

// Hit is one search hit in the engine-native envelope the front-end consumes.
type Hit struct {
	Index     string              `json:"_index,omitempty"`
	ID        string              `json:"_id"`
	Score     *float64            `json:"_score"`
	Source    Document            `json:"_source"`
	Highlight map[string][]string `json:"highlight,omitempty"`
	Sort      []interface{}       `json:"sort,omitempty"`
}

// SearchResult mirrors the engine response shape: {took, hits: {total, hits}}.
type SearchResult struct {
	Took int64 `json:"took"`
	Hits Hits  `json:"hits"`
}

type Hits struct {
	Total Total `json:"total"`
	Hits  []Hit `json:"hits"`
}

type Total struct {
	Value    int    `json:"value"`
	Relation string `json:"relation"`
}

// NewSearchResult wraps hits with an exact total.
func NewSearchResult(hits []Hit, took time.Duration) *SearchResult {
	if hits == nil {
		hits = []Hit{}
	}
	return &SearchResult{
		Took: took.Milliseconds(),
		Hits: Hits{
			Total: Total{Value: len(hits), Relation: "eq"},
			Hits:  hits,
		},
	}
}

// Documents returns the stored documents of every hit, in order.
func (r *SearchResult) Documents() []Document {
	if r == nil {
		return nil
	}
	out := make([]Document, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		out = append(out, h.Source)
	}
	return out
}
