package elastic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/debatearchive/catalog/internal/document"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Body   map[string]interface{}
}

// fakeES answers the handful of endpoints the catalog uses.
type fakeES struct {
	mu          sync.Mutex
	reqs        []recorded
	indexExists bool
	searchBody  string
	updated     int
	deleted     int
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	raw, _ := io.ReadAll(r.Body)
	rec := recorded{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &rec.Body)
	}
	f.mu.Lock()
	f.reqs = append(f.reqs, rec)
	f.mu.Unlock()

	switch {
	case r.URL.Path == "/" && r.Method == http.MethodHead:
		w.WriteHeader(http.StatusOK)
	case r.URL.Path == "/":
		_, _ = w.Write([]byte(`{"cluster_name":"test","version":{"number":"8.15.0"}}`))
	case r.URL.Path == "/debate2025" && r.Method == http.MethodHead:
		if f.indexExists {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.URL.Path == "/debate2025" && r.Method == http.MethodPut:
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	case strings.HasPrefix(r.URL.Path, "/debate2025/_doc/"):
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	case r.URL.Path == "/debate2025/_search":
		_, _ = w.Write([]byte(f.searchBody))
	case r.URL.Path == "/debate2025/_update_by_query":
		_, _ = w.Write([]byte(`{"updated":` + itoa(f.updated) + `}`))
	case r.URL.Path == "/debate2025/_delete_by_query":
		_, _ = w.Write([]byte(`{"deleted":` + itoa(f.deleted) + `}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	}
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func (f *fakeES) last(path string) recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.reqs) - 1; i >= 0; i-- {
		if f.reqs[i].Path == path {
			return f.reqs[i]
		}
	}
	return recorded{}
}

func newTestIndex(t *testing.T, f *fakeES) *Index {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	x, err := New(Config{Addresses: []string{srv.URL}, Index: "debate2025"})
	require.NoError(t, err)
	return x
}

func TestEnsureIndexCreatesMapping(t *testing.T) {
	f := &fakeES{}
	x := newTestIndex(t, f)
	require.NoError(t, x.Ping(context.Background()))
	require.NoError(t, x.EnsureIndex(context.Background()))

	create := f.last("/debate2025")
	require.Equal(t, http.MethodPut, create.Method)
	props := create.Body["mappings"].(map[string]interface{})["properties"].(map[string]interface{})
	require.Equal(t, "keyword", props["author"].(map[string]interface{})["type"])
	require.Equal(t, "date", props["timestamp"].(map[string]interface{})["type"])
	require.Equal(t, "text", props["tags"].(map[string]interface{})["type"])
}

func TestEnsureIndexSkipsExisting(t *testing.T) {
	f := &fakeES{indexExists: true}
	x := newTestIndex(t, f)
	require.NoError(t, x.EnsureIndex(context.Background()))
	require.Equal(t, http.MethodHead, f.last("/debate2025").Method)
}

func TestPutWaitsForRefresh(t *testing.T) {
	f := &fakeES{}
	x := newTestIndex(t, f)
	d := document.Document{ID: "4", Title: "t", Year: "2025", Tags: []string{"a"}, Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	require.NoError(t, x.Put(context.Background(), d))

	rec := f.last("/debate2025/_doc/4")
	require.Equal(t, http.MethodPut, rec.Method)
	require.Contains(t, rec.Query, "refresh=wait_for")
	require.Equal(t, "4", rec.Body["id"])
	require.Equal(t, "2025", rec.Body["year"])
	require.Equal(t, "2025-01-02T03:04:05Z", rec.Body["timestamp"])
}

func TestSearchRendersQueryAndDecodesHits(t *testing.T) {
	f := &fakeES{searchBody: `{"took":3,"hits":{"total":{"value":1,"relation":"eq"},"hits":[
		{"_index":"debate2025","_id":"abc","_score":null,
		 "_source":{"id":"7","title":"On Democracy","author":"Ada","year":2024,"body":"b","link":"l","tags":["x"],"timestamp":"2025-01-01T00:00:00.000Z"},
		 "highlight":{"body":["<span class=\"highlight\">democracy</span>"]},"sort":[1735689600000]}]}}`}
	x := newTestIndex(t, f)

	q, err := document.BuildQuery(document.SearchBody, "democracy")
	require.NoError(t, err)
	res, err := x.Search(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, int64(3), res.Took)
	require.Len(t, res.Hits.Hits, 1)
	h := res.Hits.Hits[0]
	require.Nil(t, h.Score)
	require.Equal(t, "7", h.Source.ID)
	require.Equal(t, document.Label("2024"), h.Source.Year)
	require.Equal(t, []string{`<span class="highlight">democracy</span>`}, h.Highlight["body"])

	body := f.last("/debate2025/_search").Body
	match := body["query"].(map[string]interface{})["match"].(map[string]interface{})["body"].(map[string]interface{})
	require.Equal(t, "democracy", match["query"])
	require.Equal(t, "or", match["operator"])
	require.Equal(t, "AUTO", match["fuzziness"])
	hl := body["highlight"].(map[string]interface{})
	require.Equal(t, []interface{}{`<span class="highlight">`}, hl["pre_tags"])
	fields := hl["fields"].(map[string]interface{})
	require.Equal(t, float64(0), fields["title"].(map[string]interface{})["number_of_fragments"])
	require.Equal(t, float64(200), fields["body"].(map[string]interface{})["fragment_size"])
	require.Equal(t, float64(1), fields["body"].(map[string]interface{})["number_of_fragments"])
	sort := body["sort"].([]interface{})[0].(map[string]interface{})
	require.Equal(t, "desc", sort["timestamp"].(map[string]interface{})["order"])
	require.Equal(t, float64(10), body["size"])
}

func TestAuthorQueryIsNotFuzzy(t *testing.T) {
	q, err := document.BuildQuery(document.SearchAuthor, "Ada")
	require.NoError(t, err)
	dsl := renderQuery(q)
	match := dsl["query"].(map[string]interface{})["match"].(map[string]interface{})["author"].(map[string]interface{})
	_, fuzzy := match["fuzziness"]
	require.False(t, fuzzy)
}

func TestFindByIDAndLatest(t *testing.T) {
	f := &fakeES{searchBody: `{"took":1,"hits":{"total":{"value":0,"relation":"eq"},"hits":[]}}`}
	x := newTestIndex(t, f)
	h, err := x.FindByID(context.Background(), "9")
	require.NoError(t, err)
	require.Nil(t, h)
	term := f.last("/debate2025/_search").Body["query"].(map[string]interface{})["term"].(map[string]interface{})
	require.Equal(t, "9", term["id"])

	d, err := x.Latest(context.Background())
	require.NoError(t, err)
	require.Nil(t, d)
	require.Equal(t, float64(1), f.last("/debate2025/_search").Body["size"])
}

func TestUpdateAndDeleteByQuery(t *testing.T) {
	f := &fakeES{updated: 1, deleted: 0}
	x := newTestIndex(t, f)

	n, err := x.UpdateByID(context.Background(), "3", document.Payload{Title: "new", Year: "2020", Tags: []string{"a"}})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	rec := f.last("/debate2025/_update_by_query")
	require.Contains(t, rec.Query, "refresh=true")
	params := rec.Body["script"].(map[string]interface{})["params"].(map[string]interface{})
	require.Equal(t, "new", params["title"])
	require.Equal(t, "2020", params["year"])

	n, err = x.DeleteByID(context.Background(), "3")
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Contains(t, f.last("/debate2025/_delete_by_query").Query, "refresh=true")
}

func TestBackendErrorsSurface(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	}))
	defer srv.Close()
	x, err := New(Config{Addresses: []string{srv.URL}, Index: "debate2025"})
	require.NoError(t, err)

	_, err = x.DeleteByID(context.Background(), "1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "delete_by_query")
}
