// Package question defines the banked question model and the text
// heuristics used to accept or reject candidate question text.
package question

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind is the answer format of a question.
type Kind string

const (
	KindMCQ       Kind = "mcq"
	KindNumerical Kind = "numerical"
)

// Provenance records where a banked question came from.
type Provenance string

const (
	ProvenanceCache     Provenance = "cache"
	ProvenanceIngested  Provenance = "ingested"
	ProvenanceSynthetic Provenance = "synthetic"
)

// Answer is the tagged answer payload: either MCQ or Numerical.
type Answer interface {
	Kind() Kind
	// Text is the canonical correct answer shown to the learner.
	Text() string
}

// MCQ is a multiple-choice answer keyed by option letter.
type MCQ struct {
	Options       map[string]string
	CorrectOption string
}

func (MCQ) Kind() Kind { return KindMCQ }

func (m MCQ) Text() string {
	if m.CorrectOption == "" {
		return ""
	}
	if opt, ok := m.Options[m.CorrectOption]; ok {
		return fmt.Sprintf("%s) %s", m.CorrectOption, opt)
	}
	return m.CorrectOption
}

// Letters returns the option letters in order.
func (m MCQ) Letters() []string {
	letters := make([]string, 0, len(m.Options))
	for l := range m.Options {
		letters = append(letters, l)
	}
	sort.Strings(letters)
	return letters
}

// Numerical is a free-response answer. CorrectAnswer may be empty when the
// source carried no key, in which case grading relies on the model.
type Numerical struct {
	CorrectAnswer string
}

func (Numerical) Kind() Kind { return KindNumerical }

func (n Numerical) Text() string { return n.CorrectAnswer }

// Question is a banked practice item. Text is immutable once banked and
// ContentHash identifies it.
type Question struct {
	ID           int64
	Text         string
	Answer       Answer
	Subtopics    []string
	Difficulty   int
	ContentHash  string
	Provenance   Provenance
	SourceURL    string
	EmbeddingRef string
	CreatedAt    time.Time
}

// Kind returns the answer kind, defaulting to numerical.
func (q *Question) Kind() Kind {
	if q.Answer == nil {
		return KindNumerical
	}
	return q.Answer.Kind()
}

// Concept returns the primary concept, the first subtopic.
func (q *Question) Concept() string {
	if len(q.Subtopics) == 0 {
		return ""
	}
	return q.Subtopics[0]
}

// HasConcept reports whether id is one of the question's subtopics.
func (q *Question) HasConcept(id string) bool {
	for _, s := range q.Subtopics {
		if s == id {
			return true
		}
	}
	return false
}

// CorrectAnswer returns the answer key text, or "" if unknown.
func (q *Question) CorrectAnswer() string {
	if q.Answer == nil {
		return ""
	}
	return q.Answer.Text()
}

// Normalize fills derived fields: trims text, clamps difficulty into
// [1, 5], computes ContentHash and puts concept first in Subtopics.
func (q *Question) Normalize(concept string) {
	q.Text = strings.TrimSpace(q.Text)
	q.Difficulty = ClampDifficulty(q.Difficulty)
	q.ContentHash = ContentHash(q.Text)
	if q.Answer == nil {
		q.Answer = Numerical{}
	}
	if concept == "" {
		return
	}
	subs := make([]string, 0, len(q.Subtopics)+1)
	subs = append(subs, concept)
	for _, s := range q.Subtopics {
		if s != concept && s != "" {
			subs = append(subs, s)
		}
	}
	q.Subtopics = subs
}

// ClampDifficulty maps d into [1, 5]; zero maps to 3.
func ClampDifficulty(d int) int {
	switch {
	case d == 0:
		return 3
	case d < 1:
		return 1
	case d > 5:
		return 5
	default:
		return d
	}
}

// View is the learner-facing rendering of a question. It omits the key.
type View struct {
	ID         int64             `json:"id"`
	Text       string            `json:"text"`
	Type       Kind              `json:"type"`
	Options    map[string]string `json:"options,omitempty"`
	Subtopics  []string          `json:"subtopics"`
	Difficulty int               `json:"difficulty"`
	Provenance Provenance        `json:"provenance"`
}

func (q *Question) View() View {
	v := View{
		ID:         q.ID,
		Text:       q.Text,
		Type:       q.Kind(),
		Subtopics:  q.Subtopics,
		Difficulty: q.Difficulty,
		Provenance: q.Provenance,
	}
	if m, ok := q.Answer.(MCQ); ok {
		v.Options = m.Options
	}
	return v
}
