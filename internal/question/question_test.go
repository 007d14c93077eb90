package question

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalize(t *testing.T) {
	q := &Question{
		Text:       "  Find ∫ ln(x) dx.  ",
		Subtopics:  []string{"basic_integration", "integration_by_parts"},
		Difficulty: 9,
	}
	q.Normalize("integration_by_parts")

	if q.Text != "Find ∫ ln(x) dx." {
		t.Errorf("Text = %q", q.Text)
	}
	if q.Difficulty != 5 {
		t.Errorf("Difficulty = %d, want 5", q.Difficulty)
	}
	if diff := cmp.Diff([]string{"integration_by_parts", "basic_integration"}, q.Subtopics); diff != "" {
		t.Errorf("Subtopics mismatch (-want +got):\n%s", diff)
	}
	if q.ContentHash != ContentHash("Find ∫ ln(x) dx.") {
		t.Error("ContentHash not set")
	}
	if q.Kind() != KindNumerical {
		t.Errorf("Kind = %s, want numerical", q.Kind())
	}
}

func TestClampDifficulty(t *testing.T) {
	tests := map[int]int{-3: 1, 0: 3, 1: 1, 4: 4, 5: 5, 8: 5}
	for in, want := range tests {
		if got := ClampDifficulty(in); got != want {
			t.Errorf("ClampDifficulty(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestViewHidesAnswer(t *testing.T) {
	q := &Question{
		ID:   7,
		Text: "Which of these is prime?",
		Answer: MCQ{
			Options:       map[string]string{"A": "4", "B": "7", "C": "9", "D": "12"},
			CorrectOption: "B",
		},
		Subtopics:  []string{"number_theory"},
		Difficulty: 1,
		Provenance: ProvenanceSynthetic,
	}
	v := q.View()
	if v.Type != KindMCQ || len(v.Options) != 4 {
		t.Errorf("View = %+v", v)
	}
	if q.CorrectAnswer() != "B) 7" {
		t.Errorf("CorrectAnswer = %q, want %q", q.CorrectAnswer(), "B) 7")
	}
	if diff := cmp.Diff([]string{"A", "B", "C", "D"}, q.Answer.(MCQ).Letters()); diff != "" {
		t.Errorf("Letters mismatch (-want +got):\n%s", diff)
	}
}

func TestConcept(t *testing.T) {
	q := &Question{Subtopics: []string{"limits", "continuity"}}
	if q.Concept() != "limits" || !q.HasConcept("continuity") || q.HasConcept("chain_rule") {
		t.Error("concept helpers mismatch")
	}
	if (&Question{}).Concept() != "" {
		t.Error("empty subtopics should give empty concept")
	}
}
