// Package memory reads and writes the learner's behavioral memory: a
// running profile of weak concepts and habits built from answer summaries.
package memory

import (
	"context"
	"fmt"
	"strings"
)

// State is the learner profile returned by a memory store.
type State struct {
	WeakConcepts   []string `json:"weak_concepts"`
	SlowSolver     bool     `json:"slow_solver"`
	HintDependency string   `json:"hint_dependency"`
}

// DefaultState is the profile of a learner with no memory.
func DefaultState() State {
	return State{WeakConcepts: []string{}, HintDependency: "low"}
}

// Context renders the state as a short prompt line, or "" for a default
// profile.
func (s State) Context() string {
	var parts []string
	if len(s.WeakConcepts) > 0 {
		parts = append(parts, "weak concepts: "+strings.Join(s.WeakConcepts, ", "))
	}
	if s.SlowSolver {
		parts = append(parts, "tends to solve slowly")
	}
	if s.HintDependency != "" && s.HintDependency != "low" {
		parts = append(parts, "hint dependency: "+s.HintDependency)
	}
	if len(parts) == 0 {
		return ""
	}
	return "Learner profile: " + strings.Join(parts, "; ") + "."
}

// Store is a behavioral memory backend.
type Store interface {
	GetState(ctx context.Context, userID int64) (State, error)
	WriteSummary(ctx context.Context, userID int64, text string, metadata map[string]string) error
}

// Noop is a Store that remembers nothing.
type Noop struct{}

func (Noop) GetState(ctx context.Context, userID int64) (State, error) {
	return DefaultState(), nil
}

func (Noop) WriteSummary(ctx context.Context, userID int64, text string, metadata map[string]string) error {
	return nil
}

// Summary describes one graded attempt for the memory store.
type Summary struct {
	UserID     int64
	Concept    string
	Difficulty int
	IsCorrect  bool
	CMS        float64
	OldRating  float64
	NewRating  float64
}

// Text renders the summary sentence written to memory.
func (s Summary) Text() string {
	result := "incorrect"
	if s.IsCorrect {
		result = "correct"
	}
	return fmt.Sprintf("User %d attempted '%s' (difficulty %d). Result: %s. CMS: %.3f. Skill updated: %.0f → %.0f.",
		s.UserID, s.Concept, s.Difficulty, result, s.CMS, s.OldRating, s.NewRating)
}

// Metadata returns the structured fields stored with the summary.
func (s Summary) Metadata() map[string]string {
	return map[string]string{
		"concept":    s.Concept,
		"cms":        fmt.Sprintf("%g", s.CMS),
		"is_correct": fmt.Sprintf("%t", s.IsCorrect),
	}
}

func normalize(s State) State {
	if s.WeakConcepts == nil {
		s.WeakConcepts = []string{}
	}
	if s.HintDependency == "" {
		s.HintDependency = "low"
	}
	return s
}
