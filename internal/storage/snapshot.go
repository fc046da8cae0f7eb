package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/debatearchive/catalog/internal/document"
)

type objectStore interface {
	UploadFile(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	GetPresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// Snapshot is the exported file body.
type Snapshot struct {
	Index      string              `json:"index"`
	ExportedAt time.Time           `json:"exportedAt"`
	Count      int                 `json:"count"`
	Documents  []document.Document `json:"documents"`
}

// Export points at an uploaded snapshot.
type Export struct {
	Key   string `json:"key"`
	URL   string `json:"url"`
	Count int    `json:"count"`
}

// SnapshotExporter uploads catalog snapshots as JSON objects.
type SnapshotExporter struct {
	store   objectStore
	index   string
	expires time.Duration
	now     func() time.Time
}

func NewSnapshotExporter(store objectStore, index string) *SnapshotExporter {
	return &SnapshotExporter{store: store, index: index, expires: time.Hour, now: time.Now}
}

func (e *SnapshotExporter) Export(ctx context.Context, docs []document.Document) (*Export, error) {
	at := e.now().UTC()
	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, e.index, at, docs); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("snapshots/%s-%s.json", e.index, at.Format("20060102T150405Z"))
	if err := e.store.UploadFile(ctx, key, &buf, int64(buf.Len()), "application/json"); err != nil {
		return nil, fmt.Errorf("upload snapshot: %w", err)
	}
	u, err := e.store.GetPresignedURL(ctx, key, e.expires)
	if err != nil {
		return nil, fmt.Errorf("presign snapshot: %w", err)
	}
	return &Export{Key: key, URL: u, Count: len(docs)}, nil
}

// WriteSnapshot encodes docs as one Snapshot document.
func WriteSnapshot(w io.Writer, index string, at time.Time, docs []document.Document) error {
	if docs == nil {
		docs = []document.Document{}
	}
	snap := Snapshot{Index: index, ExportedAt: at.UTC(), Count: len(docs), Documents: docs}
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot decodes a snapshot written by WriteSnapshot or Export.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Count != len(snap.Documents) {
		return nil, fmt.Errorf("snapshot count %d does not match %d documents", snap.Count, len(snap.Documents))
	}
	return &snap, nil
}
