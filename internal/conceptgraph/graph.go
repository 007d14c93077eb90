package conceptgraph

import (
	"fmt"
	"slices"
	"sort"
)

// Graph is an immutable concept DAG with precomputed indices. It is safe
// for concurrent reads.
type Graph struct {
	concepts   []Concept
	byID       map[string]*Concept
	byTopic    map[string][]Concept
	topics     []string
	roots      []Concept
	dependents map[string][]string
	topoOrder  []Concept
	topoIndex  map[string]int
}

// New validates the concepts and builds a Graph from them.
func New(concepts []Concept) (*Graph, error) {
	if err := validateConcepts(concepts); err != nil {
		return nil, err
	}
	return buildGraph(concepts), nil
}

// buildGraph constructs the graph indices including topological order
// (Kahn's algorithm). The input must already be valid.
func buildGraph(concepts []Concept) *Graph {
	sorted := slices.Clone(concepts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	gr := &Graph{
		concepts:   sorted,
		byID:       make(map[string]*Concept, len(sorted)),
		byTopic:    make(map[string][]Concept),
		dependents: make(map[string][]string),
		topoIndex:  make(map[string]int, len(sorted)),
	}

	for i := range gr.concepts {
		gr.byID[gr.concepts[i].ID] = &gr.concepts[i]
	}

	for i := range gr.concepts {
		for _, prereqID := range gr.concepts[i].Prerequisites {
			gr.dependents[prereqID] = append(gr.dependents[prereqID], gr.concepts[i].ID)
		}
	}

	inDegree := make(map[string]int, len(sorted))
	var queue []string
	for i := range gr.concepts {
		c := gr.concepts[i]
		inDegree[c.ID] = len(c.Prerequisites)
		if len(c.Prerequisites) == 0 {
			queue = append(queue, c.ID)
			gr.roots = append(gr.roots, c)
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		gr.topoOrder = append(gr.topoOrder, *gr.byID[id])

		deps := slices.Clone(gr.dependents[id])
		sort.Strings(deps)
		for _, depID := range deps {
			inDegree[depID]--
			if inDegree[depID] == 0 {
				queue = append(queue, depID)
			}
		}
	}
	for i, c := range gr.topoOrder {
		gr.topoIndex[c.ID] = i
	}

	for _, c := range gr.topoOrder {
		if _, ok := gr.byTopic[c.Topic]; !ok {
			gr.topics = append(gr.topics, c.Topic)
		}
		gr.byTopic[c.Topic] = append(gr.byTopic[c.Topic], c)
	}
	sort.Strings(gr.topics)

	return gr
}

// Get returns a concept by ID.
func (g *Graph) Get(id string) (Concept, error) {
	c, ok := g.byID[id]
	if !ok {
		return Concept{}, fmt.Errorf("concept not found: %q", id)
	}
	return *c, nil
}

// Has reports whether id names a concept in the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.byID[id]
	return ok
}

// Len returns the number of concepts.
func (g *Graph) Len() int {
	return len(g.concepts)
}

// All returns every concept sorted by ID.
func (g *Graph) All() []Concept {
	return slices.Clone(g.concepts)
}

// Topics returns the distinct topics in alphabetical order.
func (g *Graph) Topics() []string {
	return slices.Clone(g.topics)
}

// ByTopic returns the concepts of a topic in topological order.
func (g *Graph) ByTopic(topic string) []Concept {
	return slices.Clone(g.byTopic[topic])
}

// Roots returns the concepts with no prerequisites.
func (g *Graph) Roots() []Concept {
	return slices.Clone(g.roots)
}

// Prerequisites returns the direct prerequisites of a concept in declared
// order. Unknown IDs yield nil.
func (g *Graph) Prerequisites(id string) []Concept {
	c, ok := g.byID[id]
	if !ok {
		return nil
	}
	result := make([]Concept, 0, len(c.Prerequisites))
	for _, prereqID := range c.Prerequisites {
		if p, ok := g.byID[prereqID]; ok {
			result = append(result, *p)
		}
	}
	return result
}

// Dependents returns the concepts that directly require the given one.
func (g *Graph) Dependents(id string) []Concept {
	depIDs := g.dependents[id]
	result := make([]Concept, 0, len(depIDs))
	for _, depID := range depIDs {
		if c, ok := g.byID[depID]; ok {
			result = append(result, *c)
		}
	}
	return result
}

// TopologicalOrder returns all concepts with every prerequisite ahead of
// the concepts that depend on it.
func (g *Graph) TopologicalOrder() []Concept {
	return slices.Clone(g.topoOrder)
}

// WeakestPrerequisite returns the direct prerequisite with the lowest
// rating in skills, treating absent entries as baseline. ok is false when
// the concept has no prerequisites.
func (g *Graph) WeakestPrerequisite(id string, skills map[string]float64, baseline float64) (Concept, float64, bool) {
	var (
		weakest Concept
		lowest  float64
		found   bool
	)
	for _, p := range g.Prerequisites(id) {
		r, ok := skills[p.ID]
		if !ok {
			r = baseline
		}
		if !found || r < lowest {
			weakest, lowest, found = p, r, true
		}
	}
	return weakest, lowest, found
}
