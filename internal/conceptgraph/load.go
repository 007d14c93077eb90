package conceptgraph

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed concept_graph.json
var embeddedGraph []byte

var (
	defaultOnce  sync.Once
	defaultGraph *Graph
)

// Default returns the process-wide graph built from the embedded concept
// file. It is loaded on first use and never mutated afterwards.
func Default() *Graph {
	defaultOnce.Do(func() {
		g, err := Parse(embeddedGraph, FormatJSON)
		if err != nil {
			panic(fmt.Sprintf("embedded concept graph: %v", err))
		}
		defaultGraph = g
	})
	return defaultGraph
}

// Format selects the encoding of a concept graph file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// LoadFile reads a concept graph from a .json, .yaml or .yml file.
func LoadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read concept graph: %w", err)
	}
	format := FormatJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	}
	return Parse(data, format)
}

// Parse decodes a concept map keyed by concept ID and builds a Graph.
func Parse(data []byte, format Format) (*Graph, error) {
	raw := make(map[string]Concept)
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode concept graph yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode concept graph json: %w", err)
		}
	}

	concepts := make([]Concept, 0, len(raw))
	for id, c := range raw {
		c.ID = id
		concepts = append(concepts, c)
	}
	return New(concepts)
}
