package store

import (
	"context"
	"time"

	"github.com/abhisek/cognify/internal/question"
)

// CacheQuery selects banked questions for one concept and difficulty range.
type CacheQuery struct {
	Concept       string
	MinDifficulty int
	MaxDifficulty int
	Exclude       []int64
	Limit         int
}

// QuestionRepo is the content-hash-indexed question bank.
type QuestionRepo interface {
	// Insert banks q keyed by its content hash. A second insert of the same
	// hash returns the existing id with created=false and no error, and
	// overwrites *q with the stored row. q.ID is set on return.
	Insert(ctx context.Context, q *question.Question) (id int64, created bool, err error)

	// Get returns a question by id, or ErrNotFound.
	Get(ctx context.Context, id int64) (*question.Question, error)

	// Cached returns up to Limit questions matching the query in random order.
	Cached(ctx context.Context, q CacheQuery) ([]*question.Question, error)

	// List pages through the bank in id order, returning up to limit
	// questions with id greater than afterID.
	List(ctx context.Context, afterID int64, limit int) ([]*question.Question, error)

	// CountByConcept returns the number of banked questions covering concept.
	CountByConcept(ctx context.Context, concept string) (int, error)

	// CountsByConcept returns banked question counts keyed by concept.
	CountsByConcept(ctx context.Context) (map[string]int, error)
}

// SkillRepo stores one rating per (user, concept).
type SkillRepo interface {
	// Get returns the stored rating, or rating.Default-equivalent baseline
	// with found=false when the pair was never observed.
	Get(ctx context.Context, userID int64, concept string) (rating float64, found bool, err error)

	// Upsert replaces the rating for the pair.
	Upsert(ctx context.Context, userID int64, concept string, rating float64) error

	// ForUser returns every stored rating of a user keyed by concept.
	ForUser(ctx context.Context, userID int64) (map[string]float64, error)
}

// Attempt is one answer submission.
type Attempt struct {
	ID           string
	Sequence     int64
	UserID       int64
	QuestionID   int64
	Answer       string
	IsCorrect    bool
	TimeTaken    float64
	Retries      int
	HintUsed     bool
	MasteryScore float64
	CreatedAt    time.Time
}

// AttemptRepo is the append-only attempt ledger.
type AttemptRepo interface {
	// Append records an attempt, assigning ID, Sequence and CreatedAt when
	// unset, and returns the id.
	Append(ctx context.Context, a *Attempt) (string, error)

	// IncorrectStreak counts consecutive incorrect attempts, most recent
	// first, by the user on the question within the last window attempts.
	IncorrectStreak(ctx context.Context, userID, questionID int64, window int) (int, error)

	// SeenQuestionIDs returns the distinct ids of questions covering concept
	// that the user has attempted.
	SeenQuestionIDs(ctx context.Context, userID int64, concept string) ([]int64, error)

	// Recent returns the user's latest attempts, newest first.
	Recent(ctx context.Context, userID int64, limit int) ([]Attempt, error)
}

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	Purpose string    // exact purpose match when set
	From    time.Time // timestamp >= From
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEvent is a stored LLM request event.
type LLMEvent struct {
	ID        int64
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsageStats aggregates LLM events for one purpose.
type LLMUsageStats struct {
	Purpose      string
	Calls        int
	Failures     int
	InputTokens  int64
	OutputTokens int64
	AvgLatencyMs float64
}

// LLMModelUsage aggregates LLM events for one model.
type LLMModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int64
	OutputTokens int64
}

// EventRepo records and reads LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error)

	// GetLLMEvent returns one event, or ErrNotFound.
	GetLLMEvent(ctx context.Context, id int64) (*LLMEvent, error)

	// UsageByPurpose aggregates events per purpose.
	UsageByPurpose(ctx context.Context) ([]LLMUsageStats, error)

	// UsageByModel aggregates events per model, most calls first.
	UsageByModel(ctx context.Context) ([]LLMModelUsage, error)
}
