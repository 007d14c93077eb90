package problemgen

import (
	"strings"

	"github.com/abhisek/cognify/internal/conceptgraph"
	"github.com/abhisek/cognify/internal/question"
)

// Candidate is a question proposed by the model, before it is banked.
type Candidate struct {
	Text          string
	Kind          question.Kind
	Options       map[string]string
	CorrectOption string
	CorrectAnswer string
	Difficulty    int
	Subtopics     []string
	Explanation   string
}

// Question converts the candidate into a normalized, unbanked Question
// whose first subtopic is concept.
func (c Candidate) Question(concept string, prov question.Provenance) *question.Question {
	q := &question.Question{
		Text:       c.Text,
		Subtopics:  append([]string(nil), c.Subtopics...),
		Difficulty: c.Difficulty,
		Provenance: prov,
	}
	if c.Kind == question.KindMCQ {
		q.Answer = question.MCQ{Options: c.Options, CorrectOption: strings.ToUpper(c.CorrectOption)}
	} else {
		q.Answer = question.Numerical{CorrectAnswer: c.CorrectAnswer}
	}
	q.Normalize(concept)
	return q
}

// GenerateInput holds all context needed to generate questions.
type GenerateInput struct {
	Concept conceptgraph.Concept

	// N is the number of questions requested.
	N int

	// MinDifficulty and MaxDifficulty bound the requested difficulty.
	// Zero values mean the full 1-5 range.
	MinDifficulty int
	MaxDifficulty int

	// PriorQuestions holds texts the learner already has, newest last.
	PriorQuestions []string

	// LearnerContext is an optional summary of the learner's weak areas.
	LearnerContext string
}

func (in GenerateInput) difficultyRange() (int, int) {
	lo, hi := in.MinDifficulty, in.MaxDifficulty
	if lo < 1 {
		lo = 1
	}
	if hi < lo || hi > 5 {
		hi = 5
	}
	return lo, hi
}

// Classification is the model's label for a harvested question.
type Classification struct {
	Kind       question.Kind
	Difficulty int
	Subtopics  []string
}

// FallbackClassification is used when the classifier fails: numerical,
// difficulty 3, tagged only with concept.
func FallbackClassification(concept string) Classification {
	return Classification{
		Kind:       question.KindNumerical,
		Difficulty: 3,
		Subtopics:  []string{concept},
	}
}
