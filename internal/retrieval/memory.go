package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is an in-process cosine-similarity index. It is safe for
// concurrent use.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	dims    int
}

type memoryEntry struct {
	vector []float32
	norm   float64
	rec    Record
}

// NewMemoryIndex returns an empty index. A positive dims rejects vectors
// of any other length.
func NewMemoryIndex(dims int) *MemoryIndex {
	return &MemoryIndex{entries: make(map[string]memoryEntry), dims: dims}
}

func (m *MemoryIndex) Upsert(ctx context.Context, id string, vector []float32, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("vector id required")
	}
	if m.dims > 0 && len(vector) != m.dims {
		return fmt.Errorf("vector has %d dimensions, index expects %d", len(vector), m.dims)
	}
	v := append([]float32(nil), vector...)
	m.mu.Lock()
	m.entries[id] = memoryEntry{vector: v, norm: norm(v), rec: rec}
	m.mu.Unlock()
	return nil
}

func (m *MemoryIndex) Query(ctx context.Context, vector []float32, f Filter, topK int) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector required")
	}
	if topK <= 0 {
		topK = 10
	}
	qn := norm(vector)

	m.mu.RLock()
	matches := make([]Match, 0, len(m.entries))
	for id, e := range m.entries {
		if !f.matches(e.rec) || len(e.vector) != len(vector) {
			continue
		}
		matches = append(matches, Match{ID: id, Score: cosine(vector, qn, e.vector, e.norm), Record: e.rec})
	}
	m.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Len returns the number of stored vectors.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func cosine(a []float32, an float64, b []float32, bn float64) float64 {
	if an == 0 || bn == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (an * bn)
}
