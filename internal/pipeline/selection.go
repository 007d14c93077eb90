package pipeline

import "github.com/abhisek/cognify/internal/question"

// selection accumulates unique questions. A question is rejected when its
// id is excluded or already selected, or its content hash was selected.
type selection struct {
	want    int
	exclude map[int64]bool
	hashes  map[string]bool
	out     []*question.Question
	byTier  map[Tier]int
}

func newSelection(want int, exclude []int64) *selection {
	s := &selection{
		want:    want,
		exclude: make(map[int64]bool, len(exclude)+want),
		hashes:  make(map[string]bool, want),
		byTier:  make(map[Tier]int),
	}
	for _, id := range exclude {
		s.exclude[id] = true
	}
	return s
}

func (s *selection) need() int {
	if n := s.want - len(s.out); n > 0 {
		return n
	}
	return 0
}

func (s *selection) add(t Tier, q *question.Question) bool {
	if q == nil || s.need() == 0 {
		return false
	}
	if q.ID != 0 && s.exclude[q.ID] {
		return false
	}
	hash := q.ContentHash
	if hash == "" {
		hash = question.ContentHash(q.Text)
	}
	if s.hashes[hash] {
		return false
	}
	if q.ID != 0 {
		s.exclude[q.ID] = true
	}
	s.hashes[hash] = true
	s.out = append(s.out, q)
	s.byTier[t]++
	return true
}

func (s *selection) hasHash(h string) bool {
	return s.hashes[h]
}

func (s *selection) excluded() []int64 {
	ids := make([]int64, 0, len(s.exclude))
	for id := range s.exclude {
		ids = append(ids, id)
	}
	return ids
}

func (s *selection) texts() []string {
	out := make([]string, len(s.out))
	for i, q := range s.out {
		out[i] = q.Text
	}
	return out
}
