package lessons

import (
	"strings"

	"github.com/abhisek/cognify/internal/conceptgraph"
)

// Lesson is a generated micro-lesson for one concept.
type Lesson struct {
	ConceptID     string `json:"concept_id"`
	Title         string `json:"title"`
	CoreIdea      string `json:"core_idea"`
	KeyFormula    string `json:"key_formula"`
	WorkedExample string `json:"worked_example"`
}

// Text renders the lesson as plain text.
func (l *Lesson) Text() string {
	var b strings.Builder
	if l.Title != "" {
		b.WriteString(l.Title)
		b.WriteString("\n\n")
	}
	b.WriteString(l.CoreIdea)
	if l.KeyFormula != "" {
		b.WriteString("\n\nKey formula: ")
		b.WriteString(l.KeyFormula)
	}
	if l.WorkedExample != "" {
		b.WriteString("\n\nWorked example:\n")
		b.WriteString(l.WorkedExample)
	}
	return strings.TrimSpace(b.String())
}

// LessonInput holds all context needed to generate a micro-lesson.
type LessonInput struct {
	Concept conceptgraph.Concept

	// StruggledWith is the concept the learner was practising when the
	// lesson was triggered. Empty when it equals Concept.
	StruggledWith string

	// LearnerContext is an optional summary of the learner's weak areas.
	LearnerContext string
}
