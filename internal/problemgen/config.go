package problemgen

// Config controls the behavior of the LLMGenerator.
type Config struct {
	// Validators run in order on every generated candidate. A candidate
	// failing any of them is dropped.
	Validators []Validator

	// MaxTokens is the token budget for a generation response.
	MaxTokens int

	// ClassifyMaxTokens is the token budget for a classification response.
	ClassifyMaxTokens int

	Temperature float64

	// MaxPriorQuestions caps the already-seen list sent for deduplication.
	MaxPriorQuestions int

	// MaxBatch caps N per generation request.
	MaxBatch int
}

// DefaultConfig returns a Config with the standard validator chain.
func DefaultConfig() Config {
	return Config{
		Validators: []Validator{
			&StructuralValidator{},
			&HeuristicValidator{},
		},
		MaxTokens:         4096,
		ClassifyMaxTokens: 256,
		Temperature:       0.7,
		MaxPriorQuestions: 8,
		MaxBatch:          10,
	}
}
