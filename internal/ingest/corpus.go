package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Document is one entry of a local corpus.
type Document struct {
	ID      string
	Title   string
	URL     string
	Content string
}

// CorpusSource is an offline Searcher over an in-memory bleve index of
// local documents.
type CorpusSource struct {
	mu    sync.RWMutex
	index bleve.Index
}

func NewCorpusSource() (*CorpusSource, error) {
	index, err := bleve.NewMemOnly(buildCorpusMapping())
	if err != nil {
		return nil, fmt.Errorf("create corpus index: %w", err)
	}
	return &CorpusSource{index: index}, nil
}

func buildCorpusMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("title", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("content", bleve.NewTextFieldMapping())

	urlMapping := bleve.NewTextFieldMapping()
	urlMapping.Index = false
	urlMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("url", urlMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}

// Add indexes docs, replacing any with the same id.
func (c *CorpusSource) Add(docs ...Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	batch := c.index.NewBatch()
	for _, d := range docs {
		id := d.ID
		if id == "" {
			id = d.URL
		}
		if id == "" {
			return fmt.Errorf("corpus document needs an id or url")
		}
		doc := map[string]any{
			"title":   d.Title,
			"content": StripHTML(d.Content),
			"url":     d.URL,
		}
		if err := batch.Index(id, doc); err != nil {
			return fmt.Errorf("index %s: %w", id, err)
		}
	}
	if err := c.index.Batch(batch); err != nil {
		return fmt.Errorf("batch index corpus: %w", err)
	}
	return nil
}

// LoadDir indexes every .txt, .md and .html file under dir. It returns the
// number of documents added.
func (c *CorpusSource) LoadDir(dir string) (int, error) {
	var docs []Document
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt", ".md", ".html", ".htm":
		default:
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		docs = append(docs, Document{
			ID:      rel,
			Title:   strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			URL:     "file://" + filepath.ToSlash(path),
			Content: string(data),
		})
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("load corpus %s: %w", dir, err)
	}
	if len(docs) == 0 {
		return 0, nil
	}
	return len(docs), c.Add(docs...)
}

func (c *CorpusSource) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(query), maxResults, 0, false)
	req.Fields = []string{"title", "content", "url"}
	res, err := c.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("corpus search failed: %w", err)
	}

	out := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		title, _ := hit.Fields["title"].(string)
		content, _ := hit.Fields["content"].(string)
		url, _ := hit.Fields["url"].(string)
		out = append(out, Result{Title: title, URL: url, Content: content})
	}
	return out, nil
}

// Count returns the number of indexed documents.
func (c *CorpusSource) Count() (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.DocCount()
}

func (c *CorpusSource) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index.Close()
}
