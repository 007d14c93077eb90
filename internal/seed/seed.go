// Package seed banks a baseline set of practice questions shipped with
// the binary.
package seed

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/cognify/internal/conceptgraph"
	"github.com/abhisek/cognify/internal/question"
	"github.com/abhisek/cognify/internal/store"
)

// SourceURL marks seeded rows.
const SourceURL = "seed"

//go:embed questions.yaml
var embedded []byte

type entry struct {
	Text       string   `yaml:"text"`
	Subtopics  []string `yaml:"subtopics"`
	Difficulty int      `yaml:"difficulty"`
	Answer     string   `yaml:"answer"`
}

// Questions decodes the embedded bank.
func Questions() ([]*question.Question, error) {
	return Parse(embedded)
}

// Parse decodes a YAML list of questions. Every entry needs text and at
// least one subtopic.
func Parse(data []byte) ([]*question.Question, error) {
	var entries []entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode seed questions: %w", err)
	}
	out := make([]*question.Question, 0, len(entries))
	for i, e := range entries {
		if e.Text == "" || len(e.Subtopics) == 0 {
			return nil, fmt.Errorf("seed question %d: text and subtopics are required", i)
		}
		q := &question.Question{
			Text:       e.Text,
			Answer:     question.Numerical{CorrectAnswer: e.Answer},
			Subtopics:  e.Subtopics,
			Difficulty: e.Difficulty,
			Provenance: question.ProvenanceCache,
			SourceURL:  SourceURL,
		}
		q.Normalize(e.Subtopics[0])
		out = append(out, q)
	}
	return out, nil
}

// Report counts the outcome of a seed run.
type Report struct {
	Inserted int
	Skipped  int
}

// Bank inserts questions, skipping duplicates. When graph is non-nil,
// questions whose primary concept is unknown are rejected up front.
func Bank(ctx context.Context, questions store.QuestionRepo, graph *conceptgraph.Graph, qs []*question.Question) (Report, error) {
	var r Report
	if graph != nil {
		for _, q := range qs {
			if _, err := graph.Get(q.Concept()); err != nil {
				return r, fmt.Errorf("seed question %q: %w", q.Text, err)
			}
		}
	}
	for _, q := range qs {
		_, created, err := questions.Insert(ctx, q)
		if err != nil {
			return r, fmt.Errorf("insert seed question: %w", err)
		}
		if created {
			r.Inserted++
		} else {
			r.Skipped++
		}
	}
	return r, nil
}
