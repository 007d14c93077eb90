package session

import (
	"fmt"

	"github.com/abhisek/cognify/internal/pipeline"
)

// ValidationError reports caller input that can never succeed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// UpstreamTimeoutError reports a critical-path external call that did not
// answer in time.
type UpstreamTimeoutError struct {
	Op  string
	Err error
}

func (e *UpstreamTimeoutError) Error() string {
	return fmt.Sprintf("%s timed out: %v", e.Op, e.Err)
}

func (e *UpstreamTimeoutError) Unwrap() error { return e.Err }

// PersistenceError reports a failed durable write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ExhaustionError reports that no sourcing tier produced a question.
type ExhaustionError struct {
	Concept string
}

func (e *ExhaustionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Concept, pipeline.ErrExhausted)
}

func (e *ExhaustionError) Unwrap() error { return pipeline.ErrExhausted }
