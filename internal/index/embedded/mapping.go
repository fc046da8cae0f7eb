package embedded

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search/highlight"
	"github.com/blevesearch/bleve/v2/search/highlight/format/html"
	simplefrag "github.com/blevesearch/bleve/v2/search/highlight/fragmenter/simple"
	simplehl "github.com/blevesearch/bleve/v2/search/highlight/highlighter/simple"

	"github.com/debatearchive/catalog/internal/document"
)

const (
	// wholeFieldHighlighter returns the complete field value with markers.
	wholeFieldHighlighter = "catalog_whole"
	// snippetHighlighter returns one fragment of document.SnippetSize characters.
	snippetHighlighter = "catalog_snippet"

	// larger than any stored field, so a fragment spans the whole value
	wholeFieldSize = 1 << 20
)

func init() {
	registry.RegisterHighlighter(wholeFieldHighlighter, highlighterConstructor(wholeFieldSize))
	registry.RegisterHighlighter(snippetHighlighter, highlighterConstructor(document.SnippetSize))
}

func highlighterConstructor(size int) registry.HighlighterConstructor {
	return func(config map[string]interface{}, cache *registry.Cache) (highlight.Highlighter, error) {
		fragmenter := simplefrag.NewFragmenter(size)
		formatter := html.NewFragmentFormatter(document.HighlightPreTag, document.HighlightPostTag)
		return simplehl.NewHighlighter(fragmenter, formatter, ""), nil
	}
}

// buildIndexMapping mirrors the field types of the external index: free text
// for title, body and tags; exact keywords for id, author, year and link.
func buildIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()
	docMapping.Dynamic = false

	docMapping.AddFieldMappingsAt("id", keywordField())
	docMapping.AddFieldMappingsAt("title", textField())
	docMapping.AddFieldMappingsAt("author", keywordField())
	docMapping.AddFieldMappingsAt("year", keywordField())
	docMapping.AddFieldMappingsAt("body", textField())
	docMapping.AddFieldMappingsAt("link", keywordField())
	docMapping.AddFieldMappingsAt("tags", textField())

	ts := bleve.NewDateTimeFieldMapping()
	ts.Store = true
	docMapping.AddFieldMappingsAt(document.FieldTimestamp, ts)

	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name
	im.DefaultMapping = docMapping
	return im
}

func textField() *mapping.FieldMapping {
	fm := bleve.NewTextFieldMapping()
	fm.Analyzer = standard.Name
	fm.Store = true
	fm.IncludeTermVectors = true
	return fm
}

func keywordField() *mapping.FieldMapping {
	fm := bleve.NewKeywordFieldMapping()
	fm.Analyzer = keyword.Name
	fm.Store = true
	fm.IncludeTermVectors = true
	fm.IncludeInAll = false
	return fm
}
