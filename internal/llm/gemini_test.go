package llm

import (
	"testing"

	"google.golang.org/genai"
)

func TestGeminiModelAliases(t *testing.T) {
	for alias, want := range map[string]string{
		"gemini-flash":     "gemini-2.5-flash",
		"gemini-lite":      "gemini-2.5-flash-lite",
		"gemini-pro":       "gemini-2.5-pro",
		"gemini-2.0-flash": "gemini-2.0-flash",
	} {
		if got := resolveModel(alias, geminiModels); got != want {
			t.Errorf("resolveModel(%q) = %q, want %q", alias, got, want)
		}
	}
}

// questionBatchDef mirrors the shape requested when generating practice
// questions: an array of objects with a nested options array.
func questionBatchDef() map[string]any {
	option := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"letter": map[string]any{"type": "string"},
			"text":   map[string]any{"type": "string"},
		},
		"required": []any{"letter", "text"},
	}
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text":       map[string]any{"type": "string", "description": "Problem statement"},
			"type":       map[string]any{"type": "string", "enum": []any{"mcq", "numerical"}},
			"difficulty": map[string]any{"type": "integer", "minimum": 1, "maximum": 5},
			"options":    map[string]any{"type": "array", "items": option},
			"weight":     map[string]any{"type": "number"},
			"verified":   map[string]any{"type": "boolean"},
		},
		"required": []any{"text", "type", "difficulty"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{"type": "array", "items": item},
		},
		"required": []any{"questions"},
	}
}

func TestBuildGeminiSchema_QuestionBatch(t *testing.T) {
	schema := buildGeminiSchema(questionBatchDef())

	if schema.Type != genai.TypeObject || len(schema.Required) != 1 {
		t.Fatalf("root = %s required %v", schema.Type, schema.Required)
	}
	questions := schema.Properties["questions"]
	if questions == nil || questions.Type != genai.TypeArray {
		t.Fatalf("questions = %+v", questions)
	}
	item := questions.Items
	if item.Type != genai.TypeObject || len(item.Properties) != 6 {
		t.Fatalf("item = %s with %d properties", item.Type, len(item.Properties))
	}
	want := map[string]genai.Type{
		"text":       genai.TypeString,
		"type":       genai.TypeString,
		"difficulty": genai.TypeInteger,
		"options":    genai.TypeArray,
		"weight":     genai.TypeNumber,
		"verified":   genai.TypeBoolean,
	}
	for name, typ := range want {
		if got := item.Properties[name].Type; got != typ {
			t.Errorf("%s: type %s, want %s", name, got, typ)
		}
	}
	if item.Properties["text"].Description != "Problem statement" {
		t.Errorf("description lost: %q", item.Properties["text"].Description)
	}
	if enum := item.Properties["type"].Enum; len(enum) != 2 || enum[0] != "mcq" {
		t.Errorf("enum = %v", enum)
	}
	option := item.Properties["options"].Items
	if option.Type != genai.TypeObject || len(option.Required) != 2 {
		t.Errorf("option = %s required %v", option.Type, option.Required)
	}
}

func TestBuildGeminiSchema_UnknownTypeFallsBackToString(t *testing.T) {
	schema := buildGeminiSchema(map[string]any{"type": "null"})
	if schema.Type != genai.TypeString {
		t.Fatalf("type = %s", schema.Type)
	}
}

func TestBuildGeminiContents_AssistantBecomesModel(t *testing.T) {
	contents := buildGeminiContents([]Message{
		{Role: RoleUser, Content: "Grade: 2+2 = 5"},
		{Role: RoleAssistant, Content: `{"is_correct":false}`},
	})
	if len(contents) != 2 || contents[0].Role != "user" || contents[1].Role != "model" {
		t.Fatalf("roles = %q, %q", contents[0].Role, contents[1].Role)
	}
	if contents[1].Parts[0].Text != `{"is_correct":false}` {
		t.Fatalf("text = %q", contents[1].Parts[0].Text)
	}
}

func TestMapGeminiStopReason(t *testing.T) {
	tests := []struct {
		reason genai.FinishReason
		want   string
	}{
		{genai.FinishReasonStop, "end"},
		{genai.FinishReasonMaxTokens, "max_tokens"},
		{genai.FinishReasonSafety, "end"},
	}
	for _, tt := range tests {
		resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: tt.reason}}}
		if got := mapGeminiStopReason(resp); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.reason, got, tt.want)
		}
	}
	if got := mapGeminiStopReason(&genai.GenerateContentResponse{}); got != "end" {
		t.Errorf("no candidates: got %q", got)
	}
}
