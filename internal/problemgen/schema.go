package problemgen

import "github.com/abhisek/cognify/internal/llm"

// QuestionBatchSchema defines the response for question generation.
var QuestionBatchSchema = &llm.Schema{
	Name:        "practice-questions",
	Description: "A batch of exam-style practice questions for one concept",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type":  "array",
				"items": questionItemSchema,
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}

var questionItemSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"text": map[string]any{
			"type":        "string",
			"description": "The full question statement, self-contained",
		},
		"type": map[string]any{
			"type":        "string",
			"enum":        []any{"mcq", "numerical"},
			"description": "mcq when four lettered options are given, numerical otherwise",
		},
		"options": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"letter": map[string]any{"type": "string", "enum": []any{"A", "B", "C", "D"}},
					"text":   map[string]any{"type": "string"},
				},
				"required":             []any{"letter", "text"},
				"additionalProperties": false,
			},
			"description": "Exactly 4 options for mcq. Empty array for numerical.",
		},
		"correct_option": map[string]any{
			"type":        "string",
			"description": "Letter of the correct option for mcq. Empty for numerical.",
		},
		"correct_answer": map[string]any{
			"type":        "string",
			"description": "Final answer for numerical questions. Empty for mcq.",
		},
		"difficulty": map[string]any{
			"type":    "integer",
			"minimum": 1,
			"maximum": 5,
		},
		"explanation": map[string]any{
			"type":        "string",
			"description": "A short worked solution",
		},
	},
	"required":             []any{"text", "type", "options", "correct_option", "correct_answer", "difficulty", "explanation"},
	"additionalProperties": false,
}

// ClassificationSchema defines the response for question classification.
var ClassificationSchema = &llm.Schema{
	Name:        "question-classification",
	Description: "Answer format, difficulty and concept keys of one question",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"type": map[string]any{
				"type": "string",
				"enum": []any{"mcq", "numerical"},
			},
			"difficulty": map[string]any{
				"type":    "integer",
				"minimum": 1,
				"maximum": 5,
			},
			"subtopics": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "snake_case concept keys, most specific first",
			},
		},
		"required":             []any{"type", "difficulty", "subtopics"},
		"additionalProperties": false,
	},
}

type optionOutput struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

type questionOutput struct {
	Text          string         `json:"text"`
	Type          string         `json:"type"`
	Options       []optionOutput `json:"options"`
	CorrectOption string         `json:"correct_option"`
	CorrectAnswer string         `json:"correct_answer"`
	Difficulty    int            `json:"difficulty"`
	Explanation   string         `json:"explanation"`
}

type batchOutput struct {
	Questions []questionOutput `json:"questions"`
}

type classificationOutput struct {
	Type       string   `json:"type"`
	Difficulty int      `json:"difficulty"`
	Subtopics  []string `json:"subtopics"`
}
