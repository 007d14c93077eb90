package problemgen

import "fmt"

// Validator checks a generated candidate. Implementations are stateless
// and safe for concurrent use.
type Validator interface {
	// Name is a short identifier used in errors and logs.
	Name() string

	Validate(c *Candidate, input GenerateInput) *ValidationError
}

// ValidationError describes why a candidate was rejected.
type ValidationError struct {
	Validator string
	Message   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}
