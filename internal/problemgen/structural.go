package problemgen

import (
	"fmt"
	"strings"

	"github.com/abhisek/cognify/internal/question"
)

// StructuralValidator checks the answer payload matches the declared kind.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(c *Candidate, _ GenerateInput) *ValidationError {
	fail := func(format string, args ...any) *ValidationError {
		return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf(format, args...)}
	}

	if strings.TrimSpace(c.Text) == "" {
		return fail("text is empty")
	}
	if c.Difficulty < 1 || c.Difficulty > 5 {
		return fail("difficulty %d outside 1-5", c.Difficulty)
	}

	switch c.Kind {
	case question.KindMCQ:
		if len(c.Options) != 4 {
			return fail("mcq must have exactly 4 options, got %d", len(c.Options))
		}
		seen := make(map[string]bool, len(c.Options))
		for letter, text := range c.Options {
			t := strings.ToLower(strings.TrimSpace(text))
			if t == "" {
				return fail("option %s is empty", letter)
			}
			if seen[t] {
				return fail("duplicate option %q", text)
			}
			seen[t] = true
		}
		if _, ok := c.Options[strings.ToUpper(c.CorrectOption)]; !ok {
			return fail("correct option %q is not one of the options", c.CorrectOption)
		}
	case question.KindNumerical:
		if strings.TrimSpace(c.CorrectAnswer) == "" {
			return fail("numerical question has no answer")
		}
	default:
		return fail("type must be %q or %q", question.KindMCQ, question.KindNumerical)
	}
	return nil
}

// HeuristicValidator applies the same text screen used for harvested
// content, so every banked question passes one rule set.
type HeuristicValidator struct{}

func (v *HeuristicValidator) Name() string { return "heuristic" }

func (v *HeuristicValidator) Validate(c *Candidate, _ GenerateInput) *ValidationError {
	if !question.IsValid(c.Text) {
		return &ValidationError{Validator: v.Name(), Message: "text does not read as a question"}
	}
	return nil
}
