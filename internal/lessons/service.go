// Package lessons generates remediation micro-lessons.
package lessons

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/cognify/internal/llm"
)

// Service generates micro-lessons.
type Service struct {
	provider llm.Provider
	cfg      Config
}

// NewService creates a lesson generation service.
func NewService(provider llm.Provider, cfg Config) *Service {
	return &Service{provider: provider, cfg: cfg}
}

// Lesson generates a micro-lesson for input.Concept.
func (s *Service) Lesson(ctx context.Context, input LessonInput) (*Lesson, error) {
	resp, err := s.provider.Generate(llm.WithPurpose(ctx, llm.PurposeLesson), llm.Request{
		System:      lessonSystemPrompt,
		Messages:    llm.UserMessage(buildLessonUserMessage(input)),
		Schema:      LessonSchema,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("lesson generation for %s: %w", input.Concept.ID, err)
	}

	out, err := llm.Decode[lessonOutput](resp)
	if err != nil {
		return nil, fmt.Errorf("parse lesson response: %w", err)
	}
	if strings.TrimSpace(out.CoreIdea) == "" {
		return nil, &llm.ErrInvalidResponse{Content: resp.Content, Err: fmt.Errorf("lesson has no core idea")}
	}

	return &Lesson{
		ConceptID:     input.Concept.ID,
		Title:         strings.TrimSpace(out.Title),
		CoreIdea:      strings.TrimSpace(out.CoreIdea),
		KeyFormula:    strings.TrimSpace(out.KeyFormula),
		WorkedExample: strings.TrimSpace(out.WorkedExample),
	}, nil
}
