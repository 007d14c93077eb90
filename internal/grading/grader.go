// Package grading decides whether a learner's answer is correct.
package grading

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/abhisek/cognify/internal/llm"
	"github.com/abhisek/cognify/internal/question"
)

// Result is the verdict on one answer.
type Result struct {
	IsCorrect     bool   `json:"is_correct"`
	Explanation   string `json:"explanation"`
	CorrectAnswer string `json:"correct_answer"`

	// Local is true when the verdict was reached without a model call.
	Local bool `json:"-"`
}

// Grader grades an answer to a banked question.
type Grader interface {
	Grade(ctx context.Context, q *question.Question, answer string) (Result, error)
}

// Config holds configuration for the LLM grader.
type Config struct {
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   1024,
		Temperature: 0.1,
	}
}

// LLMGrader grades locally when the answer key settles the question and
// asks the model otherwise.
type LLMGrader struct {
	provider llm.Provider
	cfg      Config
}

// New creates an LLM-backed grader.
func New(provider llm.Provider, cfg Config) *LLMGrader {
	return &LLMGrader{provider: provider, cfg: cfg}
}

type gradeOutput struct {
	IsCorrect     bool   `json:"is_correct"`
	Explanation   string `json:"explanation"`
	CorrectAnswer string `json:"correct_answer"`
}

func (g *LLMGrader) Grade(ctx context.Context, q *question.Question, answer string) (Result, error) {
	if r, ok := Local(q, answer); ok {
		return r, nil
	}

	msg, err := buildGradeMessage(q, answer)
	if err != nil {
		return Result{}, fmt.Errorf("build grading prompt: %w", err)
	}

	resp, err := g.provider.Generate(llm.WithPurpose(ctx, llm.PurposeGrade), llm.Request{
		System:      gradeSystemPrompt,
		Messages:    llm.UserMessage(msg),
		Schema:      GradeSchema,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		return Result{}, fmt.Errorf("grade answer to question %d: %w", q.ID, err)
	}

	raw, err := llm.Decode[gradeOutput](resp)
	if err != nil {
		return Result{}, fmt.Errorf("parse grading response: %w", err)
	}

	r := Result{
		IsCorrect:     raw.IsCorrect,
		Explanation:   strings.TrimSpace(raw.Explanation),
		CorrectAnswer: strings.TrimSpace(raw.CorrectAnswer),
	}
	// A banked key outranks the model's restatement of it.
	if key := q.CorrectAnswer(); key != "" {
		r.CorrectAnswer = key
	}
	return r, nil
}

const gradeSystemPrompt = `You are a JEE Mathematics examiner grading a student's answer.

Instructions:
- Solve the problem yourself before judging.
- Accept answers that are mathematically equivalent to the correct one (different but equal forms, an equivalent option letter, or a correct value with units).
- If a reference answer is given, trust it unless it is clearly wrong.
- Keep the explanation to a short worked solution.`

var gradeUserTemplate = template.Must(template.New("grade").Parse(`Question: {{.Text}}
{{- if .Options}}
Options:
{{range .Options}}{{.}}
{{end}}{{end}}
{{- if .Reference}}
Reference answer: {{.Reference}}{{end}}
Student's answer: {{.Answer}}`))

type gradePromptData struct {
	Text      string
	Options   []string
	Reference string
	Answer    string
}

func buildGradeMessage(q *question.Question, answer string) (string, error) {
	data := gradePromptData{
		Text:      q.Text,
		Reference: q.CorrectAnswer(),
		Answer:    strings.TrimSpace(answer),
	}
	if m, ok := q.Answer.(question.MCQ); ok {
		for _, l := range m.Letters() {
			data.Options = append(data.Options, fmt.Sprintf("%s) %s", l, m.Options[l]))
		}
	}

	var buf bytes.Buffer
	if err := gradeUserTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// GradeSchema defines the JSON schema for grading responses.
var GradeSchema = &llm.Schema{
	Name:        "answer-grade",
	Description: "Verdict on a student's answer with a short worked solution",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"is_correct": map[string]any{
				"type": "boolean",
			},
			"explanation": map[string]any{
				"type":        "string",
				"description": "Short step-by-step solution",
			},
			"correct_answer": map[string]any{
				"type":        "string",
				"description": "The correct final answer",
			},
		},
		"required":             []any{"is_correct", "explanation", "correct_answer"},
		"additionalProperties": false,
	},
}
