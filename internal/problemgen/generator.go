// Package problemgen produces synthetic practice questions and classifies
// harvested question text through an LLM provider.
package problemgen

import "context"

// Generator produces practice questions for a concept.
type Generator interface {
	// Generate asks for input.N questions and returns the candidates that
	// passed every configured validator. Fewer than N, including none, is
	// not an error.
	Generate(ctx context.Context, input GenerateInput) ([]Candidate, error)
}

// Classifier labels free question text with kind, difficulty and concepts.
type Classifier interface {
	Classify(ctx context.Context, text, concept string) (Classification, error)
}
