package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	tableQuestions        = "questions"
	tableQuestionConcepts = "question_concepts"
	tableSkills           = "skills"
	tableAttempts         = "attempts"
	tableLLMEvents        = "llm_events"

	textSize = 2147483647
)

var (
	// QuestionsColumns holds the columns for the "questions" table.
	QuestionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "text", Type: field.TypeString, Size: textSize},
		{Name: "kind", Type: field.TypeString, Size: 16},
		{Name: "options", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "correct_option", Type: field.TypeString, Size: 8, Default: ""},
		{Name: "correct_answer", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "subtopics", Type: field.TypeString, Size: textSize},
		{Name: "difficulty", Type: field.TypeInt},
		{Name: "content_hash", Type: field.TypeString, Size: 64, Unique: true},
		{Name: "provenance", Type: field.TypeString, Size: 16},
		{Name: "source_url", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "embedding_ref", Type: field.TypeString, Size: 64, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
	}
	// QuestionsTable holds the schema information for the "questions" table.
	QuestionsTable = &schema.Table{
		Name:       tableQuestions,
		Columns:    QuestionsColumns,
		PrimaryKey: []*schema.Column{QuestionsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "question_difficulty", Unique: false, Columns: []*schema.Column{QuestionsColumns[7]}},
		},
	}

	// QuestionConceptsColumns links questions to every subtopic they cover.
	QuestionConceptsColumns = []*schema.Column{
		{Name: "question_id", Type: field.TypeInt64},
		{Name: "concept_id", Type: field.TypeString, Size: 128},
	}
	QuestionConceptsTable = &schema.Table{
		Name:       tableQuestionConcepts,
		Columns:    QuestionConceptsColumns,
		PrimaryKey: []*schema.Column{QuestionConceptsColumns[0], QuestionConceptsColumns[1]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "question_concepts_question_id",
				Columns:    []*schema.Column{QuestionConceptsColumns[0]},
				RefColumns: []*schema.Column{QuestionsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "questionconcept_concept_id", Unique: false, Columns: []*schema.Column{QuestionConceptsColumns[1]}},
		},
	}

	// SkillsColumns holds the columns for the "skills" table.
	SkillsColumns = []*schema.Column{
		{Name: "user_id", Type: field.TypeInt64},
		{Name: "concept_id", Type: field.TypeString, Size: 128},
		{Name: "rating", Type: field.TypeFloat64},
		{Name: "updated_at", Type: field.TypeTime},
	}
	SkillsTable = &schema.Table{
		Name:       tableSkills,
		Columns:    SkillsColumns,
		PrimaryKey: []*schema.Column{SkillsColumns[0], SkillsColumns[1]},
	}

	// AttemptsColumns holds the columns for the "attempts" table.
	AttemptsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 36},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "user_id", Type: field.TypeInt64},
		{Name: "question_id", Type: field.TypeInt64},
		{Name: "answer", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "is_correct", Type: field.TypeBool},
		{Name: "time_taken", Type: field.TypeFloat64},
		{Name: "retries", Type: field.TypeInt},
		{Name: "hint_used", Type: field.TypeBool},
		{Name: "mastery_score", Type: field.TypeFloat64},
		{Name: "created_at", Type: field.TypeTime},
	}
	AttemptsTable = &schema.Table{
		Name:       tableAttempts,
		Columns:    AttemptsColumns,
		PrimaryKey: []*schema.Column{AttemptsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "attempts_question_id",
				Columns:    []*schema.Column{AttemptsColumns[3]},
				RefColumns: []*schema.Column{QuestionsColumns[0]},
				OnDelete:   schema.NoAction,
			},
		},
		Indexes: []*schema.Index{
			{Name: "attempt_user_id_question_id", Unique: false, Columns: []*schema.Column{AttemptsColumns[2], AttemptsColumns[3]}},
		},
	}

	// LLMEventsColumns holds the columns for the "llm_events" table.
	LLMEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "provider", Type: field.TypeString, Size: 64},
		{Name: "model", Type: field.TypeString, Size: 128},
		{Name: "purpose", Type: field.TypeString, Size: 64},
		{Name: "input_tokens", Type: field.TypeInt},
		{Name: "output_tokens", Type: field.TypeInt},
		{Name: "latency_ms", Type: field.TypeInt64},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "request_body", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "response_body", Type: field.TypeString, Size: textSize, Default: ""},
	}
	LLMEventsTable = &schema.Table{
		Name:       tableLLMEvents,
		Columns:    LLMEventsColumns,
		PrimaryKey: []*schema.Column{LLMEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "llmevent_purpose", Unique: false, Columns: []*schema.Column{LLMEventsColumns[5]}},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		QuestionsTable,
		QuestionConceptsTable,
		SkillsTable,
		AttemptsTable,
		LLMEventsTable,
	}
)

func init() {
	QuestionConceptsTable.ForeignKeys[0].RefTable = QuestionsTable
	AttemptsTable.ForeignKeys[0].RefTable = QuestionsTable
}
