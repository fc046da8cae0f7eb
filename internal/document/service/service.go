package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/debatearchive/catalog/internal/document"
	"github.com/debatearchive/catalog/internal/events"
	"github.com/debatearchive/catalog/internal/sequence"
	"github.com/debatearchive/catalog/pkg/logger"
	"github.com/debatearchive/catalog/pkg/metrics"
)

const (
	DefaultListLimit = 10
	MaxListLimit     = 1000
	// MaxSnapshot bounds how many documents one export carries.
	MaxSnapshot = 10000
)

// Index is the full-text store the service writes to and searches.
// FindByID and Latest return nil without error when nothing matches.
type Index interface {
	Ping(ctx context.Context) error
	EnsureIndex(ctx context.Context) error
	Put(ctx context.Context, d document.Document) error
	FindByID(ctx context.Context, id string) (*document.Hit, error)
	Latest(ctx context.Context) (*document.Document, error)
	Recent(ctx context.Context, limit int) (*document.SearchResult, error)
	UpdateByID(ctx context.Context, id string, p document.Payload) (int, error)
	DeleteByID(ctx context.Context, id string) (int, error)
	Search(ctx context.Context, q document.Query) (*document.SearchResult, error)
}

type SearchCache interface {
	Fetch(ctx context.Context, q document.Query, load func(context.Context) (*document.SearchResult, error)) (*document.SearchResult, error)
	Invalidate(ctx context.Context) error
}

type Publisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

// Service implements the catalog operations on top of an Index.
type Service struct {
	index  Index
	ids    sequence.Allocator
	cache  SearchCache
	events Publisher
	now    func() time.Time
	log    *slog.Logger

	snapshotLimit int
}

type Option func(*Service)

func WithSearchCache(c SearchCache) Option { return func(s *Service) { s.cache = c } }

func WithPublisher(p Publisher) Option { return func(s *Service) { s.events = p } }

// WithClock replaces time.Now for creation timestamps.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithSnapshotLimit bounds how many documents Snapshot returns.
func WithSnapshotLimit(n int) Option { return func(s *Service) { s.snapshotLimit = n } }

func New(index Index, ids sequence.Allocator, opts ...Option) *Service {
	s := &Service{
		index: index,
		ids:   ids,
		now:   time.Now,
		log:   logger.Component("documents"),

		snapshotLimit: MaxSnapshot,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Bootstrap checks the index is reachable and creates it if missing.
func (s *Service) Bootstrap(ctx context.Context) error {
	if err := s.index.Ping(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", document.ErrIndexUnavailable, err)
	}
	if err := s.index.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("%w: ensure index: %w", document.ErrIndexUnavailable, err)
	}
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	if err := s.index.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", document.ErrIndexUnavailable, err)
	}
	return nil
}

// Create validates p, assigns the next id and indexes the document. The
// document is searchable when Create returns.
func (s *Service) Create(ctx context.Context, p document.Payload) (string, error) {
	p.Tags = document.CleanTags(p.Tags)
	if err := document.Validate(p); err != nil {
		return "", s.observe("create", err)
	}
	id, err := s.ids.Next(ctx)
	if err != nil {
		return "", s.observe("create", s.unavailable("allocate id", err))
	}
	d := document.Document{ID: id, Timestamp: s.now().UTC()}
	p.Apply(&d)
	if err := s.index.Put(ctx, d); err != nil {
		return "", s.observe("create", s.unavailable("index document", err))
	}
	s.changed(ctx, events.Created, id, &d)
	return id, s.observe("create", nil)
}

// Get returns the stored hit for id without any highlighting.
func (s *Service) Get(ctx context.Context, id string) (*document.Hit, error) {
	h, err := s.index.FindByID(ctx, id)
	if err != nil {
		return nil, s.observe("get", s.unavailable("find document", err))
	}
	if h == nil {
		return nil, s.observe("get", fmt.Errorf("%w: %s", document.ErrNotFound, id))
	}
	return h, s.observe("get", nil)
}

// Update replaces every editable field of document id.
func (s *Service) Update(ctx context.Context, id string, p document.Payload) error {
	p.Tags = document.CleanTags(p.Tags)
	if err := document.Validate(p); err != nil {
		return s.observe("update", err)
	}
	n, err := s.index.UpdateByID(ctx, id, p)
	if err != nil {
		return s.observe("update", s.unavailable("update document", err))
	}
	if n == 0 {
		return s.observe("update", fmt.Errorf("%w: %s", document.ErrNotFound, id))
	}
	d := document.Document{ID: id}
	p.Apply(&d)
	s.changed(ctx, events.Updated, id, &d)
	return s.observe("update", nil)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	n, err := s.index.DeleteByID(ctx, id)
	if err != nil {
		return s.observe("delete", s.unavailable("delete document", err))
	}
	if n == 0 {
		return s.observe("delete", fmt.Errorf("%w: %s", document.ErrNotFound, id))
	}
	s.changed(ctx, events.Deleted, id, nil)
	return s.observe("delete", nil)
}

// Search runs a field-scoped search and returns the raw hits with their
// highlight fragments. Blank text matches nothing.
func (s *Service) Search(ctx context.Context, searchType, text string) (*document.SearchResult, error) {
	st, err := document.ParseSearchType(searchType)
	if err != nil {
		return nil, s.observe("search", err)
	}
	if strings.TrimSpace(text) == "" {
		return document.NewSearchResult(nil, 0), s.observe("search", nil)
	}
	q, err := document.BuildQuery(st, text)
	if err != nil {
		return nil, s.observe("search", err)
	}
	load := func(ctx context.Context) (*document.SearchResult, error) {
		return s.index.Search(ctx, q)
	}
	var res *document.SearchResult
	if s.cache != nil {
		res, err = s.cache.Fetch(ctx, q, load)
	} else {
		res, err = load(ctx)
	}
	if err != nil {
		return nil, s.observe("search", s.unavailable("search", err))
	}
	return res, s.observe("search", nil)
}

// List returns the limit most recent documents. Non-positive limits use
// DefaultListLimit; larger ones are capped at MaxListLimit.
func (s *Service) List(ctx context.Context, limit int) (*document.SearchResult, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	res, err := s.index.Recent(ctx, limit)
	if err != nil {
		return nil, s.observe("list", s.unavailable("list documents", err))
	}
	return res, s.observe("list", nil)
}

// Snapshot returns up to MaxSnapshot documents, newest first. A catalog
// larger than that is cut off and the cut is logged with the total.
func (s *Service) Snapshot(ctx context.Context) ([]document.Document, error) {
	res, err := s.index.Recent(ctx, s.snapshotLimit)
	if err != nil {
		return nil, s.observe("snapshot", s.unavailable("snapshot", err))
	}
	docs := res.Documents()
	total := res.Hits.Total
	if total.Value > len(docs) || (total.Relation == "gte" && len(docs) >= s.snapshotLimit) {
		s.log.Warn("snapshot truncated", "included", len(docs), "total", total.Value, "relation", total.Relation)
	}
	return docs, s.observe("snapshot", nil)
}

// Restore indexes documents from a snapshot as they are, keeping ids and
// timestamps. Documents without an id or that fail validation are skipped.
// The id sequence is advanced past the highest restored id so later creates
// never overwrite a restored document. It returns how many documents were
// written.
func (s *Service) Restore(ctx context.Context, docs []document.Document) (int, error) {
	n := 0
	var highest int64
	var putErr error
	for _, d := range docs {
		d.Tags = document.CleanTags(d.Tags)
		if d.ID == "" {
			s.log.Warn("restore: skipping document without id", "title", d.Title)
			continue
		}
		if err := document.Validate(d.Payload()); err != nil {
			s.log.Warn("restore: skipping invalid document", "id", d.ID, "error", err)
			continue
		}
		if d.Timestamp.IsZero() {
			d.Timestamp = s.now().UTC()
		}
		if err := s.index.Put(ctx, d); err != nil {
			putErr = s.unavailable("restore document", err)
			break
		}
		n++
		if id, ok := sequence.NumericID(d.ID); ok && id > highest {
			highest = id
		}
	}
	if highest > 0 {
		if err := s.ids.Advance(ctx, highest); err != nil && putErr == nil {
			putErr = s.unavailable("advance id sequence", err)
		}
	}
	if n > 0 && s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.log.Warn("search cache invalidation failed", "error", err)
		}
	}
	return n, s.observe("restore", putErr)
}

func (s *Service) unavailable(op string, err error) error {
	s.log.Error("index operation failed", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %w", document.ErrIndexUnavailable, op, err)
}

// changed runs the post-write hooks. Both are best effort: the write
// already succeeded.
func (s *Service) changed(ctx context.Context, typ events.Type, id string, d *document.Document) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.log.Warn("search cache invalidation failed", "id", id, "error", err)
		}
	}
	if s.events != nil {
		ev := events.Event{Type: typ, ID: id, Document: d, OccurredAt: s.now().UTC()}
		if err := s.events.Publish(ctx, ev); err != nil {
			s.log.Warn("publish change event failed", "type", typ, "id", id, "error", err)
		}
	}
}

func (s *Service) observe(op string, err error) error {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, document.ErrInvalidDocument), errors.Is(err, document.ErrInvalidSearchType):
		outcome = "invalid"
	case errors.Is(err, document.ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	metrics.DocumentOperations.WithLabelValues(op, outcome).Inc()
	return err
}
