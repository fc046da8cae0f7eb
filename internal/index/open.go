// Package index selects the full-text backend named in the configuration.
package index

import (
	"fmt"

	"github.com/debatearchive/catalog/internal/config"
	"github.com/debatearchive/catalog/internal/document/service"
	"github.com/debatearchive/catalog/internal/index/elastic"
	"github.com/debatearchive/catalog/internal/index/embedded"
	"github.com/debatearchive/catalog/internal/sequence"
)

// Backend is implemented by both the embedded and the Elasticsearch index.
type Backend interface {
	service.Index
	sequence.LatestFinder
}

// Open returns the configured backend and a func that releases it.
func Open(cfg config.IndexConfig) (Backend, func(), error) {
	switch cfg.Backend {
	case config.IndexBackendElasticsearch:
		x, err := elastic.New(elastic.Config{
			Addresses:          []string{cfg.URL},
			Username:           cfg.Username,
			Password:           cfg.Password,
			InsecureSkipVerify: cfg.InsecureSkipTLS,
			Index:              cfg.Name,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("elasticsearch client: %w", err)
		}
		return x, func() {}, nil
	case config.IndexBackendBleve, "":
		x, err := embedded.Open(cfg.Name, cfg.BlevePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open bleve index: %w", err)
		}
		return x, func() { _ = x.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported index backend %q", cfg.Backend)
	}
}
