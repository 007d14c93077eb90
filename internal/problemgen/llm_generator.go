package problemgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/cognify/internal/llm"
	"github.com/abhisek/cognify/internal/logger"
	"github.com/abhisek/cognify/internal/question"
)

// LLMGenerator implements Generator and Classifier on an LLM provider.
type LLMGenerator struct {
	provider llm.Provider
	config   Config
	log      *logger.Logger
}

// New creates a new LLMGenerator with the given provider and config.
func New(provider llm.Provider, cfg Config, log *logger.Logger) *LLMGenerator {
	return &LLMGenerator{provider: provider, config: cfg, log: logger.OrNop(log)}
}

// Generate requests up to input.N questions in one call and returns the
// candidates that pass validation.
func (g *LLMGenerator) Generate(ctx context.Context, input GenerateInput) ([]Candidate, error) {
	if input.N <= 0 {
		return nil, nil
	}
	n := input.N
	if g.config.MaxBatch > 0 && n > g.config.MaxBatch {
		n = g.config.MaxBatch
	}

	resp, err := g.provider.Generate(llm.WithPurpose(ctx, llm.PurposeGenerate), llm.Request{
		System:      systemPrompt,
		Messages:    llm.UserMessage(buildUserMessage(input, n, g.config)),
		Schema:      QuestionBatchSchema,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generate questions for %s: %w", input.Concept.ID, err)
	}

	batch, err := llm.Decode[batchOutput](resp)
	if err != nil {
		return nil, fmt.Errorf("parse generated questions: %w", err)
	}

	out := make([]Candidate, 0, len(batch.Questions))
	for _, raw := range batch.Questions {
		c := raw.candidate(input.Concept.ID)
		if verr := g.validate(&c, input); verr != nil {
			g.log.Debug("dropped generated question", "concept", input.Concept.ID, "reason", verr.Error())
			continue
		}
		out = append(out, c)
		if len(out) == n {
			break
		}
	}
	return out, nil
}

func (g *LLMGenerator) validate(c *Candidate, input GenerateInput) *ValidationError {
	for _, v := range g.config.Validators {
		if verr := v.Validate(c, input); verr != nil {
			return verr
		}
	}
	return nil
}

// Classify labels text. The returned subtopics always start with concept
// when concept is non-empty.
func (g *LLMGenerator) Classify(ctx context.Context, text, concept string) (Classification, error) {
	resp, err := g.provider.Generate(llm.WithPurpose(ctx, llm.PurposeClassify), llm.Request{
		System:    classifySystemPrompt,
		Messages:  llm.UserMessage(buildClassifyMessage(text, concept)),
		Schema:    ClassificationSchema,
		MaxTokens: g.config.ClassifyMaxTokens,
	})
	if err != nil {
		return Classification{}, fmt.Errorf("classify question: %w", err)
	}
	raw, err := llm.Decode[classificationOutput](resp)
	if err != nil {
		return Classification{}, fmt.Errorf("parse classification: %w", err)
	}

	c := Classification{
		Kind:       question.KindNumerical,
		Difficulty: question.ClampDifficulty(raw.Difficulty),
		Subtopics:  withConceptFirst(concept, raw.Subtopics),
	}
	if raw.Type == string(question.KindMCQ) {
		c.Kind = question.KindMCQ
	}
	return c, nil
}

func (o questionOutput) candidate(concept string) Candidate {
	c := Candidate{
		Text:          strings.TrimSpace(o.Text),
		Kind:          question.Kind(o.Type),
		CorrectOption: strings.ToUpper(strings.TrimSpace(o.CorrectOption)),
		CorrectAnswer: strings.TrimSpace(o.CorrectAnswer),
		Difficulty:    o.Difficulty,
		Subtopics:     []string{concept},
		Explanation:   o.Explanation,
	}
	if len(o.Options) > 0 {
		c.Options = make(map[string]string, len(o.Options))
		for _, opt := range o.Options {
			c.Options[strings.ToUpper(strings.TrimSpace(opt.Letter))] = strings.TrimSpace(opt.Text)
		}
	}
	return c
}

func withConceptFirst(concept string, subtopics []string) []string {
	out := make([]string, 0, len(subtopics)+1)
	if concept != "" {
		out = append(out, concept)
	}
	for _, s := range subtopics {
		s = strings.TrimSpace(s)
		if s == "" || s == concept {
			continue
		}
		out = append(out, s)
	}
	return out
}
