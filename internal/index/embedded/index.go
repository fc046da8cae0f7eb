// Package embedded runs the catalog against an in-process bleve index,
// either on disk or entirely in memory.
package embedded

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/debatearchive/catalog/internal/document"
	"github.com/debatearchive/catalog/pkg/logger"
)

// Index stores catalog documents in bleve, keyed by document id.
type Index struct {
	name string
	idx  bleve.Index
	log  *slog.Logger

	// serializes read-modify-write mutations
	mu sync.Mutex
}

// Open opens the index at path, creating it when missing. An empty path
// gives a memory-only index.
func Open(name, path string) (*Index, error) {
	log := logger.Component("index.embedded")
	im := buildIndexMapping()

	var (
		idx bleve.Index
		err error
	)
	switch {
	case path == "":
		idx, err = bleve.NewMemOnly(im)
	default:
		idx, err = bleve.Open(path)
		if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
			if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
				return nil, fmt.Errorf("create index directory: %w", mkErr)
			}
			log.Info("creating index", "name", name, "path", path)
			idx, err = bleve.New(path, im)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open bleve index %q: %w", name, err)
	}
	return &Index{name: name, idx: idx, log: log}, nil
}

// NewMemOnly returns an empty in-memory index.
func NewMemOnly(name string) (*Index, error) {
	return Open(name, "")
}

func (x *Index) Close() error { return x.idx.Close() }

func (x *Index) Ping(ctx context.Context) error {
	_, err := x.idx.DocCount()
	return err
}

// EnsureIndex logs the document count; the mapping is applied when the
// index is created.
func (x *Index) EnsureIndex(ctx context.Context) error {
	n, err := x.idx.DocCount()
	if err != nil {
		return err
	}
	x.log.Info("index ready", "name", x.name, "documents", n)
	return nil
}

func (x *Index) Put(ctx context.Context, d document.Document) error {
	return x.idx.Index(d.ID, toFields(d))
}

func (x *Index) FindByID(ctx context.Context, id string) (*document.Hit, error) {
	req := bleve.NewSearchRequestOptions(bleve.NewDocIDQuery([]string{id}), 1, 0, false)
	req.Fields = []string{"*"}
	res, err := x.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(res.Hits) == 0 {
		return nil, nil
	}
	h := x.toHit(res.Hits[0])
	return &h, nil
}

func (x *Index) Latest(ctx context.Context) (*document.Document, error) {
	res, err := x.Recent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(res.Hits.Hits) == 0 {
		return nil, nil
	}
	d := res.Hits.Hits[0].Source
	return &d, nil
}

// Recent returns the limit most recent documents, newest first.
func (x *Index) Recent(ctx context.Context, limit int) (*document.SearchResult, error) {
	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), limit, 0, false)
	req.Fields = []string{"*"}
	req.SortBy([]string{"-" + document.FieldTimestamp, "-_id"})
	res, err := x.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}
	return x.toResult(res, nil), nil
}

func (x *Index) UpdateByID(ctx context.Context, id string, p document.Payload) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	h, err := x.FindByID(ctx, id)
	if err != nil || h == nil {
		return 0, err
	}
	d := h.Source
	p.Apply(&d)
	d.ID = id
	if err := x.idx.Index(id, toFields(d)); err != nil {
		return 0, err
	}
	return 1, nil
}

func (x *Index) DeleteByID(ctx context.Context, id string) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	h, err := x.FindByID(ctx, id)
	if err != nil || h == nil {
		return 0, err
	}
	if err := x.idx.Delete(id); err != nil {
		return 0, err
	}
	return 1, nil
}

// Search runs q and attaches highlights. bleve applies one highlighter per
// request, so whole-field and snippet highlights come from two passes over
// the same hits.
func (x *Index) Search(ctx context.Context, q document.Query) (*document.SearchResult, error) {
	start := time.Now()
	bq := buildQuery(q)

	var wholeFields, snippetFields []string
	for _, hf := range q.Highlight {
		if hf.WholeField {
			wholeFields = append(wholeFields, hf.Field)
		} else {
			snippetFields = append(snippetFields, hf.Field)
		}
	}

	req := bleve.NewSearchRequestOptions(bq, q.Size, 0, false)
	req.Fields = []string{"*"}
	sortBy := q.SortField
	if q.SortDesc {
		sortBy = "-" + sortBy
	}
	req.SortBy([]string{sortBy, "-_id"})
	if len(wholeFields) > 0 {
		req.Highlight = bleve.NewHighlightWithStyle(wholeFieldHighlighter)
		for _, f := range wholeFields {
			req.Highlight.AddField(f)
		}
	}
	res, err := x.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}

	fragments := make(map[string]map[string][]string, len(res.Hits))
	for _, h := range res.Hits {
		fragments[h.ID] = keepMarked(h.Fragments, q.PreTag)
	}

	if len(snippetFields) > 0 && len(res.Hits) > 0 {
		ids := make([]string, 0, len(res.Hits))
		for _, h := range res.Hits {
			ids = append(ids, h.ID)
		}
		sreq := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(bq, bleve.NewDocIDQuery(ids)), len(ids), 0, false)
		sreq.Highlight = bleve.NewHighlightWithStyle(snippetHighlighter)
		for _, f := range snippetFields {
			sreq.Highlight.AddField(f)
		}
		sres, err := x.idx.SearchInContext(ctx, sreq)
		if err != nil {
			return nil, err
		}
		for _, h := range sres.Hits {
			for field, frags := range keepMarked(h.Fragments, q.PreTag) {
				if fragments[h.ID] == nil {
					fragments[h.ID] = map[string][]string{}
				}
				fragments[h.ID][field] = frags
			}
		}
	}

	out := x.toResult(res, fragments)
	out.Took = time.Since(start).Milliseconds()
	return out, nil
}

// buildQuery renders q for bleve. Fuzzy searches get one match clause per
// term so each term carries its own edit distance.
func buildQuery(q document.Query) query.Query {
	terms := q.Terms()
	if !q.Fuzzy || len(terms) <= 1 {
		mq := bleve.NewMatchQuery(q.Text)
		mq.SetField(q.Field)
		mq.SetOperator(query.MatchQueryOperatorOr)
		if q.Fuzzy && len(terms) == 1 {
			mq.SetFuzziness(document.AutoFuzziness(terms[0]))
		}
		return mq
	}
	clauses := make([]query.Query, 0, len(terms))
	for _, t := range terms {
		mq := bleve.NewMatchQuery(t)
		mq.SetField(q.Field)
		mq.SetFuzziness(document.AutoFuzziness(t))
		clauses = append(clauses, mq)
	}
	return bleve.NewDisjunctionQuery(clauses...)
}

// keepMarked drops fragments without any highlighted span; bleve returns a
// leading slice of unmatched fields.
func keepMarked(in map[string][]string, pre string) map[string][]string {
	out := map[string][]string{}
	for field, frags := range in {
		for _, f := range frags {
			if strings.Contains(f, pre) {
				out[field] = append(out[field], f)
			}
		}
	}
	return out
}

func (x *Index) toResult(res *bleve.SearchResult, fragments map[string]map[string][]string) *document.SearchResult {
	hits := make([]document.Hit, 0, len(res.Hits))
	for _, m := range res.Hits {
		h := x.toHit(m)
		if hl := fragments[m.ID]; len(hl) > 0 {
			h.Highlight = hl
		}
		hits = append(hits, h)
	}
	out := document.NewSearchResult(hits, res.Took)
	// total counts every match, not just the returned page
	out.Hits.Total.Value = int(res.Total)
	return out
}

func (x *Index) toHit(m *search.DocumentMatch) document.Hit {
	d := fromFields(m.Fields)
	if d.ID == "" {
		d.ID = m.ID
	}
	return document.Hit{Index: x.name, ID: m.ID, Source: d}
}

func toFields(d document.Document) map[string]interface{} {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]interface{}{
		"id":                    d.ID,
		"title":                 d.Title,
		"author":                d.Author,
		"year":                  d.Year.String(),
		"body":                  d.Body,
		"link":                  d.Link,
		"tags":                  tags,
		document.FieldTimestamp: d.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

func fromFields(f map[string]interface{}) document.Document {
	return document.Document{
		ID:        stringField(f, "id"),
		Title:     stringField(f, "title"),
		Author:    stringField(f, "author"),
		Year:      document.Label(stringField(f, "year")),
		Body:      stringField(f, "body"),
		Link:      stringField(f, "link"),
		Tags:      stringSliceField(f, "tags"),
		Timestamp: timeField(f, document.FieldTimestamp),
	}
}

func stringField(f map[string]interface{}, key string) string {
	if v, ok := f[key].(string); ok {
		return v
	}
	return ""
}

// stringSliceField handles bleve returning a lone string for single-value arrays.
func stringSliceField(f map[string]interface{}, key string) []string {
	switch v := f[key].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}

func timeField(f map[string]interface{}, key string) time.Time {
	switch v := f[key].(type) {
	case time.Time:
		return v
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05Z0700"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
