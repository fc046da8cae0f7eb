// Package elastic talks to an external Elasticsearch cluster over its
// native REST protocol.
package elastic

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/debatearchive/catalog/internal/document"
	"github.com/debatearchive/catalog/pkg/logger"
)

type Config struct {
	Addresses          []string
	Username           string
	Password           string
	InsecureSkipVerify bool
	Index              string
}

// Index is a catalog index stored in one Elasticsearch index.
type Index struct {
	es   *elasticsearch.Client
	name string
	log  *slog.Logger
}

func New(cfg Config) (*Index, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	return &Index{es: es, name: cfg.Index, log: logger.Component("index.elastic")}, nil
}

// mapping is applied when the index is created.
var mapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"title":                 map[string]string{"type": "text"},
			"author":                map[string]string{"type": "keyword"},
			"year":                  map[string]string{"type": "keyword"},
			"body":                  map[string]string{"type": "text"},
			"link":                  map[string]string{"type": "keyword"},
			"tags":                  map[string]string{"type": "text"},
			document.FieldTimestamp: map[string]string{"type": "date"},
			"id":                    map[string]string{"type": "keyword"},
		},
	},
}

func (x *Index) Ping(ctx context.Context) error {
	res, err := x.es.Ping(x.es.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("ping", res)
	}
	return nil
}

// EnsureIndex logs the cluster identity and creates the index with the
// catalog mapping when it does not exist yet.
func (x *Index) EnsureIndex(ctx context.Context) error {
	res, err := x.es.Info(x.es.Info.WithContext(ctx))
	if err != nil {
		return err
	}
	var info struct {
		ClusterName string `json:"cluster_name"`
		Version     struct {
			Number string `json:"number"`
		} `json:"version"`
	}
	if res.IsError() {
		defer res.Body.Close()
		return responseError("info", res)
	}
	if err := decode(res, &info); err != nil {
		return err
	}
	x.log.Info("connected to elasticsearch", "cluster", info.ClusterName, "version", info.Version.Number)

	res, err = x.es.Indices.Exists([]string{x.name}, x.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return err
	}
	res.Body.Close()
	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("index exists %s: unexpected status %d", x.name, res.StatusCode)
	}

	body, err := jsonBody(mapping)
	if err != nil {
		return err
	}
	res, err = x.es.Indices.Create(x.name, x.es.Indices.Create.WithBody(body), x.es.Indices.Create.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index", res)
	}
	x.log.Info("created index", "name", x.name)
	return nil
}

// Put indexes d and waits until it is visible to search.
func (x *Index) Put(ctx context.Context, d document.Document) error {
	body, err := jsonBody(d)
	if err != nil {
		return err
	}
	res, err := x.es.Index(x.name, body,
		x.es.Index.WithDocumentID(d.ID),
		x.es.Index.WithRefresh("wait_for"),
		x.es.Index.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index", res)
	}
	return nil
}

func (x *Index) FindByID(ctx context.Context, id string) (*document.Hit, error) {
	out, err := x.search(ctx, map[string]interface{}{
		"query": termID(id),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Hits.Hits) == 0 {
		return nil, nil
	}
	h := out.Hits.Hits[0]
	return &h, nil
}

func (x *Index) Latest(ctx context.Context) (*document.Document, error) {
	out, err := x.Recent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(out.Hits.Hits) == 0 {
		return nil, nil
	}
	d := out.Hits.Hits[0].Source
	return &d, nil
}

func (x *Index) Recent(ctx context.Context, limit int) (*document.SearchResult, error) {
	return x.search(ctx, map[string]interface{}{
		"size":  limit,
		"sort":  []interface{}{sortClause(document.FieldTimestamp, true)},
		"query": map[string]interface{}{"match_all": map[string]interface{}{}},
	})
}

// UpdateByID overwrites every editable field of the documents whose id
// matches and returns how many were updated.
func (x *Index) UpdateByID(ctx context.Context, id string, p document.Payload) (int, error) {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	body, err := jsonBody(map[string]interface{}{
		"query": termID(id),
		"script": map[string]interface{}{
			"lang": "painless",
			"source": "ctx._source.title = params.title; ctx._source.author = params.author; " +
				"ctx._source.year = params.year; ctx._source.body = params.body; " +
				"ctx._source.link = params.link; ctx._source.tags = params.tags;",
			"params": map[string]interface{}{
				"title":  p.Title,
				"author": p.Author,
				"year":   p.Year.String(),
				"body":   p.Body,
				"link":   p.Link,
				"tags":   tags,
			},
		},
	})
	if err != nil {
		return 0, err
	}
	res, err := x.es.UpdateByQuery([]string{x.name},
		x.es.UpdateByQuery.WithBody(body),
		x.es.UpdateByQuery.WithRefresh(true),
		x.es.UpdateByQuery.WithContext(ctx),
	)
	if err != nil {
		return 0, err
	}
	if res.IsError() {
		defer res.Body.Close()
		return 0, responseError("update_by_query", res)
	}
	var out struct {
		Updated int `json:"updated"`
	}
	if err := decode(res, &out); err != nil {
		return 0, err
	}
	return out.Updated, nil
}

func (x *Index) DeleteByID(ctx context.Context, id string) (int, error) {
	body, err := jsonBody(map[string]interface{}{"query": termID(id)})
	if err != nil {
		return 0, err
	}
	res, err := x.es.DeleteByQuery([]string{x.name}, body,
		x.es.DeleteByQuery.WithRefresh(true),
		x.es.DeleteByQuery.WithContext(ctx),
	)
	if err != nil {
		return 0, err
	}
	if res.IsError() {
		defer res.Body.Close()
		return 0, responseError("delete_by_query", res)
	}
	var out struct {
		Deleted int `json:"deleted"`
	}
	if err := decode(res, &out); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}

func (x *Index) Search(ctx context.Context, q document.Query) (*document.SearchResult, error) {
	return x.search(ctx, renderQuery(q))
}

// renderQuery turns q into the search DSL.
func renderQuery(q document.Query) map[string]interface{} {
	match := map[string]interface{}{
		"query":    q.Text,
		"operator": q.Operator,
	}
	if q.Fuzzy {
		match["fuzziness"] = "AUTO"
	}
	fields := make(map[string]interface{}, len(q.Highlight))
	for _, hf := range q.Highlight {
		if hf.WholeField {
			fields[hf.Field] = map[string]interface{}{"number_of_fragments": 0}
			continue
		}
		fields[hf.Field] = map[string]interface{}{
			"fragment_size":       hf.FragmentSize,
			"number_of_fragments": hf.Fragments,
		}
	}
	return map[string]interface{}{
		"size": q.Size,
		"query": map[string]interface{}{
			"match": map[string]interface{}{q.Field: match},
		},
		"highlight": map[string]interface{}{
			"pre_tags":  []string{q.PreTag},
			"post_tags": []string{q.PostTag},
			"fields":    fields,
		},
		"sort": []interface{}{sortClause(q.SortField, q.SortDesc)},
	}
}

func (x *Index) search(ctx context.Context, dsl map[string]interface{}) (*document.SearchResult, error) {
	body, err := jsonBody(dsl)
	if err != nil {
		return nil, err
	}
	res, err := x.es.Search(
		x.es.Search.WithIndex(x.name),
		x.es.Search.WithBody(body),
		x.es.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		defer res.Body.Close()
		// a fresh cluster has no index until the first write
		if res.StatusCode == http.StatusNotFound {
			return document.NewSearchResult(nil, 0), nil
		}
		return nil, responseError("search", res)
	}
	var out document.SearchResult
	if err := decode(res, &out); err != nil {
		return nil, err
	}
	if out.Hits.Hits == nil {
		out.Hits.Hits = []document.Hit{}
	}
	for i := range out.Hits.Hits {
		h := &out.Hits.Hits[i]
		if h.Source.ID == "" {
			h.Source.ID = h.ID
		}
	}
	return &out, nil
}

func termID(id string) map[string]interface{} {
	return map[string]interface{}{"term": map[string]interface{}{"id": id}}
}

func sortClause(field string, desc bool) map[string]interface{} {
	order := "asc"
	if desc {
		order = "desc"
	}
	return map[string]interface{}{field: map[string]string{"order": order}}
}

func jsonBody(v interface{}) (io.Reader, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return &buf, nil
}

func decode(res *esapi.Response, v interface{}) error {
	defer res.Body.Close()
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func responseError(op string, res *esapi.Response) error {
	b, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("elasticsearch %s: %s: %s", op, res.Status(), strings.TrimSpace(string(b)))
}
