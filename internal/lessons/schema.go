package lessons

import "github.com/abhisek/cognify/internal/llm"

// LessonSchema defines the JSON schema for micro-lesson responses.
var LessonSchema = &llm.Schema{
	Name:        "micro-lesson",
	Description: "A sixty-second lesson with a key formula and one worked example",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type": "string",
			},
			"core_idea": map[string]any{
				"type":        "string",
				"description": "The core idea in two or three sentences",
			},
			"key_formula": map[string]any{
				"type":        "string",
				"description": "The key formula or rule in plain text math",
			},
			"worked_example": map[string]any{
				"type":        "string",
				"description": "One fully worked example with numbered steps",
			},
		},
		"required":             []any{"title", "core_idea", "key_formula", "worked_example"},
		"additionalProperties": false,
	},
}

type lessonOutput struct {
	Title         string `json:"title"`
	CoreIdea      string `json:"core_idea"`
	KeyFormula    string `json:"key_formula"`
	WorkedExample string `json:"worked_example"`
}
