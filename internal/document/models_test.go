package document

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPayloadYearAcceptsStringOrNumber(t *testing.T) {
	var p Payload
	require.NoError(t, json.Unmarshal([]byte(`{"title":"t","year":2025}`), &p))
	require.Equal(t, Label("2025"), p.Year)

	require.NoError(t, json.Unmarshal([]byte(`{"title":"t","year":"2024-25"}`), &p))
	require.Equal(t, Label("2024-25"), p.Year)

	require.NoError(t, json.Unmarshal([]byte(`{"title":"t","year":null}`), &p))
	require.Equal(t, Label(""), p.Year)

	require.Error(t, json.Unmarshal([]byte(`{"year":{"a":1}}`), &p))

	out, err := json.Marshal(Document{ID: "1", Year: "2025"})
	require.NoError(t, err)
	require.Contains(t, string(out), `"year":"2025"`)
}

func TestApplyKeepsIdentity(t *testing.T) {
	d := Document{ID: "7", Title: "old"}
	p := Payload{Title: "new", Author: "a", Tags: []string{"x"}}
	p.Apply(&d)
	require.Equal(t, "7", d.ID)
	require.Equal(t, "new", d.Title)
	require.Equal(t, p, d.Payload())

	p.Tags[0] = "mutated"
	require.Equal(t, "x", d.Tags[0])
}

func TestSearchResultEnvelope(t *testing.T) {
	r := NewSearchResult(nil, 0)
	out, err := json.Marshal(r)
	require.NoError(t, err)
	require.JSONEq(t, `{"took":0,"hits":{"total":{"value":0,"relation":"eq"},"hits":[]}}`, string(out))

	r = NewSearchResult([]Hit{{ID: "1", Source: Document{ID: "1", Title: "a"}}}, 0)
	require.Len(t, r.Documents(), 1)
	require.Equal(t, "a", r.Documents()[0].Title)
}
