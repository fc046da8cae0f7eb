package document

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// SearchType is the closed set of fields a search can be scoped to.
type SearchType int

const (
	SearchTitle SearchType = iota + 1
	SearchAuthor
	SearchBody
	SearchTags
)

const (
	HighlightPreTag  = `<span class="highlight">`
	HighlightPostTag = `</span>`

	// SnippetSize is the fragment length used for body highlights and for
	// the display fallback when no highlight came back.
	SnippetSize = 200

	DefaultSearchSize = 10

	FieldTimestamp = "timestamp"
)

func (t SearchType) String() string {
	switch t {
	case SearchTitle:
		return "title"
	case SearchAuthor:
		return "author"
	case SearchBody:
		return "body"
	case SearchTags:
		return "tags"
	}
	return fmt.Sprintf("SearchType(%d)", int(t))
}

// ParseSearchType maps a path segment to a SearchType.
func ParseSearchType(s string) (SearchType, error) {
	switch s {
	case "title":
		return SearchTitle, nil
	case "author":
		return SearchAuthor, nil
	case "body":
		return SearchBody, nil
	case "tags":
		return SearchTags, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidSearchType, s)
}

// HighlightField asks the backend for highlights on one field. WholeField
// returns the entire field value with markers; otherwise Fragments snippets
// of FragmentSize characters come back.
type HighlightField struct {
	Field        string
	WholeField   bool
	FragmentSize int
	Fragments    int
}

// Query is the backend-neutral description of a field-scoped search.
// Each index backend renders it to its own query language.
type Query struct {
	Type      SearchType
	Field     string
	Text      string
	Fuzzy     bool
	Operator  string
	Highlight []HighlightField
	PreTag    string
	PostTag   string
	SortField string
	SortDesc  bool
	Size      int
}

func whole(field string) HighlightField {
	return HighlightField{Field: field, WholeField: true}
}

func snippet(field string) HighlightField {
	return HighlightField{Field: field, FragmentSize: SnippetSize, Fragments: 1}
}

// BuildQuery returns the query for a search of type t. Every query combines
// terms with "or" and sorts newest first.
func BuildQuery(t SearchType, text string) (Query, error) {
	q := Query{
		Type:      t,
		Field:     t.String(),
		Text:      text,
		Operator:  "or",
		PreTag:    HighlightPreTag,
		PostTag:   HighlightPostTag,
		SortField: FieldTimestamp,
		SortDesc:  true,
		Size:      DefaultSearchSize,
	}
	switch t {
	case SearchTitle:
		q.Fuzzy = true
		q.Highlight = []HighlightField{whole("title"), snippet("body")}
	case SearchAuthor:
		q.Highlight = []HighlightField{whole("author"), snippet("body")}
	case SearchBody:
		q.Fuzzy = true
		q.Highlight = []HighlightField{snippet("body"), whole("title")}
	case SearchTags:
		q.Highlight = []HighlightField{whole("tags"), whole("title"), snippet("body")}
	default:
		return Query{}, fmt.Errorf("%w: %s", ErrInvalidSearchType, t)
	}
	return q, nil
}

// Terms splits the query text into whitespace separated terms.
func (q Query) Terms() []string {
	return strings.Fields(q.Text)
}

// AutoFuzziness is the edit distance allowed for a term under automatic
// fuzziness: exact for 1-2 characters, one edit up to 5, two beyond.
func AutoFuzziness(term string) int {
	n := utf8.RuneCountInString(term)
	switch {
	case n <= 2:
		return 0
	case n <= 5:
		return 1
	}
	return 2
}
