package tools

import (
	"fmt"

	"github.com/jonwraymond/tooldiscovery/index"
	"github.com/jonwraymond/tooldiscovery/search"
	"github.com/jonwraymond/tooldiscovery/tooldoc"
	"github.com/jonwraymond/toolfoundation/model"
)

// Catalog is a searchable, documented view of the served tools.
//
// Contract:
// - Concurrency: safe for concurrent use after NewCatalog returns.
// - Errors: unknown ids surface the index's not-found error.
type Catalog struct {
	index index.Index
	docs  *tooldoc.InMemoryStore
	ids   []string
}

// NewCatalog indexes defs with BM25 search. A nil defs uses Definitions().
func NewCatalog(defs []Definition) (*Catalog, error) {
	if defs == nil {
		defs = Definitions()
	}
	idx := index.NewInMemoryIndex(index.IndexOptions{
		Searcher: search.NewBM25Searcher(search.BM25Config{}),
	})
	docs := tooldoc.NewInMemoryStore(tooldoc.StoreOptions{Index: idx})
	ids := make([]string, 0, len(defs))

	for _, d := range defs {
		if err := idx.RegisterTool(d.Tool, model.NewLocalBackend(d.Tool.Name)); err != nil {
			return nil, fmt.Errorf("register %s: %w", d.ID(), err)
		}
		if err := docs.RegisterDoc(d.ID(), d.Doc); err != nil {
			return nil, fmt.Errorf("register doc %s: %w", d.ID(), err)
		}
		ids = append(ids, d.ID())
	}
	return &Catalog{index: idx, docs: docs, ids: ids}, nil
}

// IDs lists the catalogued tool ids in registration order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.ids...)
}

// Search returns up to limit tools matching query.
func (c *Catalog) Search(query string, limit int) ([]index.Summary, error) {
	return c.index.Search(query, limit)
}

// Describe returns documentation for id at the given detail level.
func (c *Catalog) Describe(id string, level tooldoc.DetailLevel) (tooldoc.ToolDoc, error) {
	return c.docs.DescribeTool(id, level)
}

// Examples returns up to max usage examples for id.
func (c *Catalog) Examples(id string, max int) ([]tooldoc.ToolExample, error) {
	return c.docs.ListExamples(id, max)
}

// Namespaces lists the indexed namespaces.
func (c *Catalog) Namespaces() ([]string, error) {
	return c.index.ListNamespaces()
}
