// Package retrieval stores question embeddings and answers nearest-neighbour
// queries filtered by concept.
package retrieval

import (
	"context"
	"unicode/utf8"

	"github.com/abhisek/cognify/internal/question"
)

// MaxMetadataText caps the question text stored alongside a vector.
const MaxMetadataText = 500

// Record is the metadata stored with a question vector.
type Record struct {
	Text          string
	Kind          question.Kind
	Options       map[string]string
	CorrectOption string
	CorrectAnswer string
	Subtopics     []string
	Difficulty    int
	SourceURL     string
	ContentHash   string
	Provenance    question.Provenance
}

// Filter narrows a query. Difficulty zero matches any difficulty.
type Filter struct {
	Concept    string
	Difficulty int
}

// Match is one query hit, best first.
type Match struct {
	ID    string
	Score float64
	Record
}

// Index is a semantic retrieval service.
type Index interface {
	Upsert(ctx context.Context, id string, vector []float32, rec Record) error
	Query(ctx context.Context, vector []float32, f Filter, topK int) ([]Match, error)
}

// RecordFromQuestion builds index metadata for q.
func RecordFromQuestion(q *question.Question) Record {
	r := Record{
		Text:        truncateRunes(q.Text, MaxMetadataText),
		Kind:        q.Kind(),
		Subtopics:   append([]string(nil), q.Subtopics...),
		Difficulty:  q.Difficulty,
		SourceURL:   q.SourceURL,
		ContentHash: q.ContentHash,
		Provenance:  q.Provenance,
	}
	switch a := q.Answer.(type) {
	case question.MCQ:
		r.Options = a.Options
		r.CorrectOption = a.CorrectOption
	case question.Numerical:
		r.CorrectAnswer = a.CorrectAnswer
	}
	return r
}

// Question rebuilds an unbanked question from a record. The returned
// question is normalized with concept first. prov applies when the record
// carries no provenance.
func (r Record) Question(concept string, prov question.Provenance) *question.Question {
	if r.Provenance != "" {
		prov = r.Provenance
	}
	q := &question.Question{
		Text:       r.Text,
		Subtopics:  append([]string(nil), r.Subtopics...),
		Difficulty: r.Difficulty,
		Provenance: prov,
		SourceURL:  r.SourceURL,
	}
	if r.Kind == question.KindMCQ && len(r.Options) > 0 {
		q.Answer = question.MCQ{Options: r.Options, CorrectOption: r.CorrectOption}
	} else {
		q.Answer = question.Numerical{CorrectAnswer: r.CorrectAnswer}
	}
	q.Normalize(concept)
	return q
}

func (f Filter) matches(r Record) bool {
	if f.Difficulty != 0 && r.Difficulty != f.Difficulty {
		return false
	}
	if f.Concept == "" {
		return true
	}
	for _, s := range r.Subtopics {
		if s == f.Concept {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
