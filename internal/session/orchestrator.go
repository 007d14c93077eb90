// Package session drives the two learner requests: starting a practice
// session and submitting an answer. It composes the rating, mastery,
// pipeline, grading, memory and remediation packages.
package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/cognify/internal/conceptgraph"
	"github.com/abhisek/cognify/internal/grading"
	"github.com/abhisek/cognify/internal/logger"
	"github.com/abhisek/cognify/internal/mastery"
	"github.com/abhisek/cognify/internal/memory"
	"github.com/abhisek/cognify/internal/metrics"
	"github.com/abhisek/cognify/internal/pipeline"
	"github.com/abhisek/cognify/internal/question"
	"github.com/abhisek/cognify/internal/rating"
	"github.com/abhisek/cognify/internal/remediation"
	"github.com/abhisek/cognify/internal/store"
	"github.com/abhisek/cognify/internal/workpool"
)

// Adaptive asks the orchestrator to choose the concept.
const Adaptive = "adaptive"

// MaxQuestions is the largest session size.
const MaxQuestions = 20

// Sourcer selects practice questions.
type Sourcer interface {
	Source(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Remediator builds remediation bundles.
type Remediator interface {
	Trigger(ctx context.Context, concept string, skills map[string]float64, learnerContext string) (*remediation.Result, error)
}

// Refiller queues a detached top-up of a concept's question bank.
type Refiller interface {
	TriggerLowStock(concept conceptgraph.Concept) bool
}

// Config holds orchestrator timeouts and thresholds.
type Config struct {
	GradeTimeout       time.Duration
	ContextTimeout     time.Duration
	RemediationTimeout time.Duration
	MemoryWriteTimeout time.Duration

	// LowStockThreshold is the unseen-question count below which a refill
	// is queued after a session start.
	LowStockThreshold int

	// AvgTime is the baseline solve time in seconds for mastery scoring.
	AvgTime float64

	// StreakWindow bounds the incorrect-streak lookback.
	StreakWindow int
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		GradeTimeout:       20 * time.Second,
		ContextTimeout:     3 * time.Second,
		RemediationTimeout: 8 * time.Second,
		MemoryWriteTimeout: 10 * time.Second,
		LowStockThreshold:  10,
		AvgTime:            mastery.DefaultAvgTime,
		StreakWindow:       5,
	}
}

// Deps are the orchestrator's collaborators. Memory, Remediation, Refill
// and Executor may be nil.
type Deps struct {
	Graph       *conceptgraph.Graph
	Questions   store.QuestionRepo
	Skills      store.SkillRepo
	Attempts    store.AttemptRepo
	Pipeline    Sourcer
	Grader      grading.Grader
	Memory      memory.Store
	Remediation Remediator
	Refill      Refiller
	Pool        *workpool.Pool
	Executor    *workpool.Executor
}

// Orchestrator serves start-session and submit-answer requests.
type Orchestrator struct {
	deps Deps
	cfg  Config
	log  *logger.Logger
}

// New creates an orchestrator. Zero config fields take their defaults.
func New(deps Deps, cfg Config, log *logger.Logger) *Orchestrator {
	def := DefaultConfig()
	if cfg.GradeTimeout <= 0 {
		cfg.GradeTimeout = def.GradeTimeout
	}
	if cfg.ContextTimeout <= 0 {
		cfg.ContextTimeout = def.ContextTimeout
	}
	if cfg.RemediationTimeout <= 0 {
		cfg.RemediationTimeout = def.RemediationTimeout
	}
	if cfg.MemoryWriteTimeout <= 0 {
		cfg.MemoryWriteTimeout = def.MemoryWriteTimeout
	}
	if cfg.LowStockThreshold <= 0 {
		cfg.LowStockThreshold = def.LowStockThreshold
	}
	if cfg.AvgTime <= 0 {
		cfg.AvgTime = def.AvgTime
	}
	if cfg.StreakWindow <= 0 {
		cfg.StreakWindow = def.StreakWindow
	}
	if deps.Memory == nil {
		deps.Memory = memory.Noop{}
	}
	return &Orchestrator{deps: deps, cfg: cfg, log: logger.OrNop(log).With("component", "session")}
}

// StartRequest opens a practice session.
type StartRequest struct {
	UserID  int64  `json:"user_id"`
	Concept string `json:"concept"`
	N       int    `json:"n"`
}

// StartResponse is the served question set.
type StartResponse struct {
	SessionID      string          `json:"session_id"`
	UserID         int64           `json:"user_id"`
	Concept        string          `json:"concept"`
	Skill          float64         `json:"skill"`
	DifficultyBand [2]int          `json:"difficulty_band"`
	LearnerState   memory.State    `json:"learner_state"`
	Questions      []question.View `json:"questions"`
	Count          int             `json:"count"`
}

func (r StartRequest) validate() error {
	if r.UserID <= 0 {
		return &ValidationError{Field: "user_id", Message: "must be positive"}
	}
	if r.N < 1 || r.N > MaxQuestions {
		return &ValidationError{Field: "n", Message: fmt.Sprintf("must be between 1 and %d", MaxQuestions)}
	}
	if strings.TrimSpace(r.Concept) == "" {
		return &ValidationError{Field: "concept", Message: "is required"}
	}
	return nil
}

// StartSession resolves the concept, fetches learner context and skill
// concurrently, then sources up to N unseen questions in the learner's
// difficulty band.
func (o *Orchestrator) StartSession(ctx context.Context, req StartRequest) (*StartResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	concept, err := o.resolveConcept(ctx, req.UserID, strings.TrimSpace(req.Concept))
	if err != nil {
		return nil, err
	}
	log := o.log.With("user_id", req.UserID, "concept", concept.ID)

	var (
		state memory.State
		skill float64
		seen  []int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		state = o.learnerState(gctx, req.UserID)
		return nil
	})
	g.Go(func() error {
		r, _, err := o.deps.Skills.Get(gctx, req.UserID, concept.ID)
		if err != nil {
			return fmt.Errorf("get skill: %w", err)
		}
		skill = r
		seen, err = o.deps.Attempts.SeenQuestionIDs(gctx, req.UserID, concept.ID)
		if err != nil {
			return fmt.Errorf("seen questions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	band := rating.SelectBand(skill)
	res, err := o.deps.Pipeline.Source(ctx, pipeline.Request{
		Concept:        concept,
		N:              req.N,
		Band:           band,
		Exclude:        seen,
		LearnerContext: state.Context(),
	})
	if errors.Is(err, pipeline.ErrExhausted) {
		log.Warn("no content available")
		o.checkStock(ctx, concept, len(seen))
		return nil, &ExhaustionError{Concept: concept.ID}
	}
	if err != nil {
		return nil, fmt.Errorf("source questions: %w", err)
	}
	o.checkStock(ctx, concept, len(seen))

	views := make([]question.View, len(res.Questions))
	for i, q := range res.Questions {
		views[i] = q.View()
	}
	log.Info("session started", "skill", skill, "band_min", band.Min, "band_max", band.Max, "count", len(views))
	return &StartResponse{
		SessionID:      uuid.NewString(),
		UserID:         req.UserID,
		Concept:        concept.ID,
		Skill:          skill,
		DifficultyBand: [2]int{band.Min, band.Max},
		LearnerState:   state,
		Questions:      views,
		Count:          len(views),
	}, nil
}

// resolveConcept maps the requested id, or Adaptive, to a graph concept.
func (o *Orchestrator) resolveConcept(ctx context.Context, userID int64, id string) (conceptgraph.Concept, error) {
	if id != Adaptive {
		c, err := o.deps.Graph.Get(id)
		if err != nil {
			return conceptgraph.Concept{}, &ValidationError{Field: "concept", Message: fmt.Sprintf("unknown concept %q", id)}
		}
		return c, nil
	}
	skills, err := o.deps.Skills.ForUser(ctx, userID)
	if err != nil {
		return conceptgraph.Concept{}, fmt.Errorf("load skills: %w", err)
	}
	return chooseAdaptive(o.deps.Graph, skills), nil
}

// chooseAdaptive picks the lowest-rated practiced concept below baseline,
// else the first unpracticed concept in prerequisite order, else the
// lowest-rated concept overall.
func chooseAdaptive(g *conceptgraph.Graph, skills map[string]float64) conceptgraph.Concept {
	order := g.TopologicalOrder()
	if len(order) == 0 {
		return conceptgraph.Concept{}
	}
	var (
		weakest     conceptgraph.Concept
		weakestR    = math.Inf(1)
		unpracticed *conceptgraph.Concept
	)
	for i, c := range order {
		r, ok := skills[c.ID]
		if !ok {
			if unpracticed == nil {
				unpracticed = &order[i]
			}
			continue
		}
		if r < weakestR {
			weakest, weakestR = c, r
		}
	}
	switch {
	case weakestR < rating.Default:
		return weakest
	case unpracticed != nil:
		return *unpracticed
	case !math.IsInf(weakestR, 1):
		return weakest
	default:
		return order[0]
	}
}

// learnerState fetches behavioral context, degrading to defaults.
func (o *Orchestrator) learnerState(ctx context.Context, userID int64) memory.State {
	start := time.Now()
	st, err := workpool.Do(ctx, o.deps.Pool, o.cfg.ContextTimeout, func(ctx context.Context) (memory.State, error) {
		return o.deps.Memory.GetState(ctx, userID)
	})
	metrics.ObserveSince("memory_state", start)
	if err != nil {
		o.log.Warn("learner state unavailable", "user_id", userID, "error", err)
		return memory.DefaultState()
	}
	return st
}

// checkStock queues a detached refill when the learner has fewer than
// LowStockThreshold unseen questions left for concept.
func (o *Orchestrator) checkStock(ctx context.Context, concept conceptgraph.Concept, seen int) {
	if o.deps.Refill == nil {
		return
	}
	total, err := o.deps.Questions.CountByConcept(ctx, concept.ID)
	if err != nil {
		o.log.Warn("stock check failed", "concept", concept.ID, "error", err)
		return
	}
	if unseen := total - seen; unseen < o.cfg.LowStockThreshold {
		o.deps.Refill.TriggerLowStock(concept)
	}
}

// AnswerRequest submits one answer.
type AnswerRequest struct {
	UserID     int64   `json:"user_id"`
	QuestionID int64   `json:"question_id"`
	Answer     string  `json:"answer"`
	TimeTaken  float64 `json:"time_taken"`
	Retries    int     `json:"retries"`
	HintUsed   bool    `json:"hint_used"`
}

// RemediationView is the learner-facing remediation bundle.
type RemediationView struct {
	WeakPrerequisite string          `json:"weak_prerequisite,omitempty"`
	TargetConcept    string          `json:"target_concept"`
	LessonTitle      string          `json:"lesson_title"`
	Lesson           string          `json:"lesson"`
	GuidedQuestions  []question.View `json:"guided_questions"`
}

// AnswerResponse is the graded outcome of an answer.
type AnswerResponse struct {
	UserID        int64            `json:"user_id"`
	QuestionID    int64            `json:"question_id"`
	Concept       string           `json:"concept"`
	IsCorrect     bool             `json:"is_correct"`
	CorrectAnswer string           `json:"correct_answer"`
	Explanation   string           `json:"explanation"`
	CMS           float64          `json:"cms"`
	OldSkill      float64          `json:"old_skill"`
	NewSkill      float64          `json:"new_skill"`
	SkillDelta    float64          `json:"skill_delta"`
	Remediation   *RemediationView `json:"remediation"`
	Message       string           `json:"message"`
}

func (r AnswerRequest) validate() error {
	switch {
	case r.UserID <= 0:
		return &ValidationError{Field: "user_id", Message: "must be positive"}
	case r.QuestionID <= 0:
		return &ValidationError{Field: "question_id", Message: "must be positive"}
	case strings.TrimSpace(r.Answer) == "":
		return &ValidationError{Field: "answer", Message: "is required"}
	case r.TimeTaken < 0 || math.IsNaN(r.TimeTaken) || math.IsInf(r.TimeTaken, 0):
		return &ValidationError{Field: "time_taken", Message: "must be a non-negative number of seconds"}
	case r.Retries < 0:
		return &ValidationError{Field: "retries", Message: "must not be negative"}
	}
	return nil
}

// SubmitAnswer grades the answer, scores mastery, records the attempt,
// updates the skill rating and, when the attempt crosses a failure
// threshold, attaches a remediation bundle.
//
// The attempt is written before the skill. A failed attempt write fails
// the request; a failed skill write is logged only. The rating
// read-then-write is not serialized across concurrent requests for the
// same (user, concept).
func (o *Orchestrator) SubmitAnswer(ctx context.Context, req AnswerRequest) (*AnswerResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	q, err := o.deps.Questions.Get(ctx, req.QuestionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &NotFoundError{Kind: "question", ID: strconv.FormatInt(req.QuestionID, 10)}
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	concept := q.Concept()
	log := o.log.With("user_id", req.UserID, "question_id", q.ID, "concept", concept)

	var (
		grade grading.Result
		state memory.State
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		grade, err = o.grade(gctx, q, req.Answer)
		return err
	})
	g.Go(func() error {
		state = o.learnerState(gctx, req.UserID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cms := mastery.Score(mastery.Attempt{
		Correct:   grade.IsCorrect,
		TimeTaken: req.TimeTaken,
		Retries:   req.Retries,
		HintUsed:  req.HintUsed,
	}, o.cfg.AvgTime)

	oldSkill, _, err := o.deps.Skills.Get(ctx, req.UserID, concept)
	if err != nil {
		return nil, fmt.Errorf("get skill: %w", err)
	}
	newSkill := rating.Update(oldSkill, q.Difficulty, cms)

	if _, err := o.deps.Attempts.Append(ctx, &store.Attempt{
		UserID:       req.UserID,
		QuestionID:   q.ID,
		Answer:       req.Answer,
		IsCorrect:    grade.IsCorrect,
		TimeTaken:    req.TimeTaken,
		Retries:      req.Retries,
		HintUsed:     req.HintUsed,
		MasteryScore: cms,
	}); err != nil {
		return nil, &PersistenceError{Op: "record attempt", Err: err}
	}
	if err := o.deps.Skills.Upsert(ctx, req.UserID, concept, newSkill); err != nil {
		log.Warn("skill upsert failed after attempt was recorded", "error", err)
	}

	o.writeSummary(memory.Summary{
		UserID:     req.UserID,
		Concept:    concept,
		Difficulty: q.Difficulty,
		IsCorrect:  grade.IsCorrect,
		CMS:        cms,
		OldRating:  oldSkill,
		NewRating:  newSkill,
	})

	streak, err := o.deps.Attempts.IncorrectStreak(ctx, req.UserID, q.ID, o.cfg.StreakWindow)
	if err != nil {
		log.Warn("incorrect streak unavailable", "error", err)
		streak = 0
	}

	var remc <-chan *RemediationView
	if remediation.ShouldRemediate(cms, streak) && o.deps.Remediation != nil {
		remc = o.remediate(ctx, req.UserID, concept, newSkill, state)
	}

	resp := &AnswerResponse{
		UserID:        req.UserID,
		QuestionID:    q.ID,
		Concept:       concept,
		IsCorrect:     grade.IsCorrect,
		CorrectAnswer: grade.CorrectAnswer,
		Explanation:   grade.Explanation,
		CMS:           cms,
		OldSkill:      oldSkill,
		NewSkill:      newSkill,
		SkillDelta:    math.Round((newSkill-oldSkill)*100) / 100,
	}
	if resp.CorrectAnswer == "" {
		resp.CorrectAnswer = q.CorrectAnswer()
	}
	if remc != nil {
		resp.Remediation = <-remc
	}
	resp.Message = message(resp)

	log.Info("answer recorded", "correct", grade.IsCorrect, "cms", cms, "old_skill", oldSkill, "new_skill", newSkill, "streak", streak, "remediation", resp.Remediation != nil)
	return resp, nil
}

func (o *Orchestrator) grade(ctx context.Context, q *question.Question, answer string) (grading.Result, error) {
	start := time.Now()
	res, err := workpool.Do(ctx, o.deps.Pool, o.cfg.GradeTimeout, func(ctx context.Context) (grading.Result, error) {
		return o.deps.Grader.Grade(ctx, q, answer)
	})
	metrics.ObserveSince("grade", start)
	if errors.Is(err, context.DeadlineExceeded) {
		return grading.Result{}, &UpstreamTimeoutError{Op: "grade", Err: err}
	}
	if err != nil {
		return grading.Result{}, fmt.Errorf("grade: %w", err)
	}
	return res, nil
}

// writeSummary dispatches the memory write without waiting for it.
func (o *Orchestrator) writeSummary(s memory.Summary) {
	if o.deps.Executor == nil {
		return
	}
	ok := o.deps.Executor.Go("memory-write", o.cfg.MemoryWriteTimeout, func(ctx context.Context) error {
		return o.deps.Memory.WriteSummary(ctx, s.UserID, s.Text(), s.Metadata())
	})
	if !ok {
		o.log.Warn("memory write dropped", "user_id", s.UserID, "concept", s.Concept)
	}
}

// remediate starts remediation in the background. The returned channel
// yields the bundle, or nil once RemediationTimeout passes or the
// trigger fails.
func (o *Orchestrator) remediate(ctx context.Context, userID int64, concept string, newSkill float64, state memory.State) <-chan *RemediationView {
	out := make(chan *RemediationView, 1)
	go func() {
		rctx, cancel := context.WithTimeout(ctx, o.cfg.RemediationTimeout)
		defer cancel()

		skills, err := o.deps.Skills.ForUser(rctx, userID)
		if err != nil {
			o.log.Warn("skill map unavailable for remediation", "user_id", userID, "error", err)
			skills = make(map[string]float64)
		}
		skills[concept] = newSkill

		done := make(chan struct{})
		var (
			res  *remediation.Result
			rerr error
		)
		go func() {
			defer close(done)
			res, rerr = o.deps.Remediation.Trigger(rctx, concept, skills, state.Context())
		}()

		select {
		case <-done:
		case <-rctx.Done():
			metrics.Remediation.WithLabelValues("timeout").Inc()
			o.log.Warn("remediation timed out", "user_id", userID, "concept", concept)
			out <- nil
			return
		}
		if rerr != nil {
			outcome := "failed"
			if errors.Is(rerr, context.DeadlineExceeded) {
				outcome = "timeout"
			}
			metrics.Remediation.WithLabelValues(outcome).Inc()
			o.log.Warn("remediation dropped", "user_id", userID, "concept", concept, "error", rerr)
			out <- nil
			return
		}
		metrics.Remediation.WithLabelValues("triggered").Inc()
		out <- remediationView(res)
	}()
	return out
}

func remediationView(r *remediation.Result) *RemediationView {
	v := &RemediationView{
		WeakPrerequisite: r.WeakPrerequisite,
		TargetConcept:    r.TargetConcept,
		Lesson:           r.LessonText(),
		GuidedQuestions:  make([]question.View, 0, len(r.GuidedQuestions)),
	}
	if r.Lesson != nil {
		v.LessonTitle = r.Lesson.Title
	}
	for _, q := range r.GuidedQuestions {
		v.GuidedQuestions = append(v.GuidedQuestions, q.View())
	}
	return v
}

func message(r *AnswerResponse) string {
	switch {
	case r.IsCorrect:
		return "Correct! Well done!"
	case r.Remediation != nil:
		return "Remediation triggered. Check the lesson below!"
	default:
		return "Not quite. Review the explanation below."
	}
}
