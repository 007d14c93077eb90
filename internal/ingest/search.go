// Package ingest harvests question text from external sources and banks it.
package ingest

import (
	"context"
	"fmt"

	"github.com/abhisek/cognify/internal/conceptgraph"
)

// Result is one raw search hit.
type Result struct {
	Title   string
	URL     string
	Content string
}

// Searcher is a content ingestion source.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// BuildQueries returns the search query variants for a concept.
func BuildQueries(c conceptgraph.Concept) []string {
	name := conceptgraph.ReadableID(c.ID)
	if name == "" {
		name = c.Name()
	}
	return []string{
		fmt.Sprintf("%s JEE Mains problems with solutions", name),
		fmt.Sprintf("%s JEE Advanced practice questions", name),
		fmt.Sprintf("solved %s problems for JEE Mathematics", name),
	}
}
