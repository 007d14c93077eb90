package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/cognify/internal/conceptgraph"
	"github.com/abhisek/cognify/internal/grading"
	"github.com/abhisek/cognify/internal/lessons"
	"github.com/abhisek/cognify/internal/mastery"
	"github.com/abhisek/cognify/internal/memory"
	"github.com/abhisek/cognify/internal/pipeline"
	"github.com/abhisek/cognify/internal/question"
	"github.com/abhisek/cognify/internal/rating"
	"github.com/abhisek/cognify/internal/remediation"
	"github.com/abhisek/cognify/internal/store"
	"github.com/abhisek/cognify/internal/workpool"
)

// --- Fakes ---

type fakeGrader struct {
	res   grading.Result
	err   error
	delay time.Duration
}

func (f *fakeGrader) Grade(ctx context.Context, q *question.Question, answer string) (grading.Result, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return grading.Result{}, ctx.Err()
		}
	}
	return f.res, f.err
}

type fakeMemory struct {
	state  memory.State
	delay  time.Duration
	writes chan string
}

func (f *fakeMemory) GetState(ctx context.Context, userID int64) (memory.State, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return memory.State{}, ctx.Err()
		}
	}
	return f.state, nil
}

func (f *fakeMemory) WriteSummary(ctx context.Context, userID int64, text string, metadata map[string]string) error {
	if f.writes != nil {
		f.writes <- text
	}
	return nil
}

type fakeRemediator struct {
	block   bool
	err     error
	concept string
	skills  map[string]float64
}

func (f *fakeRemediator) Trigger(ctx context.Context, concept string, skills map[string]float64, learnerContext string) (*remediation.Result, error) {
	f.concept, f.skills = concept, skills
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &remediation.Result{
		WeakPrerequisite: "functions",
		TargetConcept:    "functions",
		Lesson:           &lessons.Lesson{ConceptID: "functions", Title: "Functions", CoreIdea: "A function maps each input to one output."},
		GuidedQuestions: []*question.Question{
			{ID: 99, Text: "Find the domain of f(x) = 1/x.", Subtopics: []string{"functions"}, Difficulty: 1},
		},
	}, nil
}

type fakeRefill struct {
	mu       sync.Mutex
	concepts []string
}

func (f *fakeRefill) TriggerLowStock(c conceptgraph.Concept) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.concepts = append(f.concepts, c.ID)
	return true
}

type failingSkills struct {
	store.SkillRepo
}

func (failingSkills) Upsert(ctx context.Context, userID int64, concept string, r float64) error {
	return errors.New("disk full")
}

type failingAttempts struct {
	store.AttemptRepo
}

func (failingAttempts) Append(ctx context.Context, a *store.Attempt) (string, error) {
	return "", errors.New("disk full")
}

// --- Helpers ---

type fixture struct {
	store  *store.Store
	deps   Deps
	cfg    Config
	mem    *fakeMemory
	grader *fakeGrader
	refill *fakeRefill
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := store.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	g, err := conceptgraph.New([]conceptgraph.Concept{
		{ID: "functions", Topic: "Algebra"},
		{ID: "limits", Topic: "Calculus", Prerequisites: []string{"functions"}},
	})
	require.NoError(t, err)

	pool := workpool.New(4)
	t.Cleanup(pool.Close)
	exec := workpool.NewExecutor(1, 8, nil)
	t.Cleanup(func() { exec.Shutdown(context.Background()) })

	f := &fixture{
		store:  s,
		mem:    &fakeMemory{state: memory.DefaultState(), writes: make(chan string, 8)},
		grader: &fakeGrader{res: grading.Result{IsCorrect: true, Explanation: "ok", CorrectAnswer: "2"}},
		refill: &fakeRefill{},
		cfg:    DefaultConfig(),
	}
	f.deps = Deps{
		Graph:     g,
		Questions: s.Questions(),
		Skills:    s.Skills(),
		Attempts:  s.Attempts(),
		Pipeline:  pipeline.New(pipeline.Deps{Questions: s.Questions(), Pool: pool}, pipeline.DefaultConfig(), nil),
		Grader:    f.grader,
		Memory:    f.mem,
		Refill:    f.refill,
		Pool:      pool,
		Executor:  exec,
	}
	return f
}

func (f *fixture) orchestrator() *Orchestrator {
	return New(f.deps, f.cfg, nil)
}

func (f *fixture) bank(t *testing.T, concept, text string, difficulty int) int64 {
	t.Helper()
	q := &question.Question{
		Text:       text,
		Difficulty: difficulty,
		Answer:     question.Numerical{CorrectAnswer: "2"},
		Provenance: question.ProvenanceCache,
	}
	q.Normalize(concept)
	id, _, err := f.store.Questions().Insert(context.Background(), q)
	require.NoError(t, err)
	return id
}

// --- StartSession ---

func TestStartSession_Validation(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator()

	tests := []struct {
		name  string
		req   StartRequest
		field string
	}{
		{"zero user", StartRequest{UserID: 0, Concept: "limits", N: 5}, "user_id"},
		{"zero n", StartRequest{UserID: 1, Concept: "limits", N: 0}, "n"},
		{"n too large", StartRequest{UserID: 1, Concept: "limits", N: MaxQuestions + 1}, "n"},
		{"blank concept", StartRequest{UserID: 1, Concept: " ", N: 5}, "concept"},
		{"unknown concept", StartRequest{UserID: 1, Concept: "astrology", N: 5}, "concept"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.StartSession(context.Background(), tt.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestStartSession_ServesBandedQuestions(t *testing.T) {
	f := newFixture(t)
	f.bank(t, "limits", "Find the limit of (x^2-1)/(x-1) as x tends to 1.", 3)
	f.bank(t, "limits", "Evaluate the limit of sin(3x)/x as x tends to 0.", 4)
	f.bank(t, "limits", "Find the limit of 1/x as x tends to infinity.", 1)
	o := f.orchestrator()

	resp, err := o.StartSession(context.Background(), StartRequest{UserID: 1, Concept: "limits", N: 5})
	require.NoError(t, err)

	assert.Equal(t, "limits", resp.Concept)
	assert.Equal(t, rating.Default, resp.Skill)
	assert.Equal(t, [2]int{3, 4}, resp.DifficultyBand)
	assert.Equal(t, 2, resp.Count)
	assert.NotEmpty(t, resp.SessionID)
	seen := map[int64]bool{}
	for _, v := range resp.Questions {
		assert.False(t, seen[v.ID], "duplicate question %d", v.ID)
		seen[v.ID] = true
		assert.GreaterOrEqual(t, v.Difficulty, 3)
	}
	assert.Equal(t, []string{"limits"}, f.refill.concepts, "3 banked < threshold 10 triggers refill")
}

func TestStartSession_Exhausted(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator()

	_, err := o.StartSession(context.Background(), StartRequest{UserID: 1, Concept: "limits", N: 3})
	var exh *ExhaustionError
	require.ErrorAs(t, err, &exh)
	assert.True(t, errors.Is(err, pipeline.ErrExhausted))
	assert.Equal(t, []string{"limits"}, f.refill.concepts)
}

func TestStartSession_SlowMemoryDegrades(t *testing.T) {
	f := newFixture(t)
	f.bank(t, "limits", "Find the limit of (x^2-1)/(x-1) as x tends to 1.", 3)
	f.mem.delay = time.Second
	f.mem.state = memory.State{WeakConcepts: []string{"limits"}, HintDependency: "high"}
	f.cfg.ContextTimeout = 10 * time.Millisecond
	o := f.orchestrator()

	start := time.Now()
	resp, err := o.StartSession(context.Background(), StartRequest{UserID: 1, Concept: "limits", N: 1})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, memory.DefaultState(), resp.LearnerState)
}

func TestStartSession_Adaptive(t *testing.T) {
	f := newFixture(t)
	f.bank(t, "functions", "Find the domain of f(x) = sqrt(x - 1).", 3)
	o := f.orchestrator()

	resp, err := o.StartSession(context.Background(), StartRequest{UserID: 1, Concept: Adaptive, N: 1})
	require.NoError(t, err)
	assert.Equal(t, "functions", resp.Concept, "first unpracticed concept in prerequisite order")
}

func TestChooseAdaptive(t *testing.T) {
	g, err := conceptgraph.New([]conceptgraph.Concept{
		{ID: "functions"},
		{ID: "limits", Prerequisites: []string{"functions"}},
		{ID: "derivatives", Prerequisites: []string{"limits"}},
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		skills map[string]float64
		want   string
	}{
		{"no history", nil, "functions"},
		{"weak practiced wins", map[string]float64{"functions": 1100, "limits": 940}, "limits"},
		{"lowest of several weak", map[string]float64{"functions": 990, "limits": 940, "derivatives": 960}, "limits"},
		{"next unpracticed", map[string]float64{"functions": 1050}, "limits"},
		{"all strong picks lowest", map[string]float64{"functions": 1200, "limits": 1010, "derivatives": 1100}, "limits"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chooseAdaptive(g, tt.skills)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}

// --- SubmitAnswer ---

func TestSubmitAnswer_Correct(t *testing.T) {
	f := newFixture(t)
	id := f.bank(t, "limits", "Find the limit of (x^2-1)/(x-1) as x tends to 1.", 3)
	o := f.orchestrator()
	ctx := context.Background()

	resp, err := o.SubmitAnswer(ctx, AnswerRequest{UserID: 7, QuestionID: id, Answer: "2", TimeTaken: 45})
	require.NoError(t, err)

	wantCMS := mastery.Score(mastery.Attempt{Correct: true, TimeTaken: 45}, mastery.DefaultAvgTime)
	wantSkill := rating.Update(rating.Default, 3, wantCMS)
	assert.True(t, resp.IsCorrect)
	assert.Equal(t, "limits", resp.Concept)
	assert.InDelta(t, 0.9219, resp.CMS, 1e-9)
	assert.Equal(t, rating.Default, resp.OldSkill)
	assert.Equal(t, wantSkill, resp.NewSkill)
	assert.InDelta(t, wantSkill-rating.Default, resp.SkillDelta, 0.005)
	assert.Nil(t, resp.Remediation)
	assert.Equal(t, "Correct! Well done!", resp.Message)

	stored, found, err := f.store.Skills().Get(ctx, 7, "limits")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, wantSkill, stored)

	recent, err := f.store.Attempts().Recent(ctx, 7, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, id, recent[0].QuestionID)
	assert.Equal(t, wantCMS, recent[0].MasteryScore)

	select {
	case text := <-f.mem.writes:
		assert.Contains(t, text, "User 7 attempted 'limits' (difficulty 3). Result: correct.")
	case <-time.After(time.Second):
		t.Fatal("memory summary was not written")
	}
}

func TestSubmitAnswer_IncorrectRemediates(t *testing.T) {
	f := newFixture(t)
	id := f.bank(t, "limits", "Find the limit of (x^2-1)/(x-1) as x tends to 1.", 3)
	f.grader.res = grading.Result{IsCorrect: false, Explanation: "Factor the numerator.", CorrectAnswer: "2"}
	rem := &fakeRemediator{}
	f.deps.Remediation = rem
	o := f.orchestrator()

	resp, err := o.SubmitAnswer(context.Background(), AnswerRequest{UserID: 7, QuestionID: id, Answer: "0", TimeTaken: 45})
	require.NoError(t, err)

	assert.False(t, resp.IsCorrect)
	assert.Less(t, resp.CMS, remediation.CMSThreshold)
	assert.Less(t, resp.NewSkill, resp.OldSkill)
	require.NotNil(t, resp.Remediation)
	assert.Equal(t, "functions", resp.Remediation.WeakPrerequisite)
	assert.Equal(t, "Functions", resp.Remediation.LessonTitle)
	assert.Contains(t, resp.Remediation.Lesson, "one output")
	require.Len(t, resp.Remediation.GuidedQuestions, 1)
	assert.Equal(t, int64(99), resp.Remediation.GuidedQuestions[0].ID)
	assert.Equal(t, "limits", rem.concept)
	assert.Equal(t, resp.NewSkill, rem.skills["limits"])
}

func TestSubmitAnswer_RemediationTimeoutIsNull(t *testing.T) {
	f := newFixture(t)
	id := f.bank(t, "limits", "Find the limit of (x^2-1)/(x-1) as x tends to 1.", 3)
	f.grader.res = grading.Result{IsCorrect: false}
	f.deps.Remediation = &fakeRemediator{block: true}
	f.cfg.RemediationTimeout = 20 * time.Millisecond
	o := f.orchestrator()

	resp, err := o.SubmitAnswer(context.Background(), AnswerRequest{UserID: 7, QuestionID: id, Answer: "0", TimeTaken: 200})
	require.NoError(t, err)
	assert.Nil(t, resp.Remediation)
	assert.Equal(t, "Not quite. Review the explanation below.", resp.Message)
}

func TestSubmitAnswer_RemediationFailureIsNull(t *testing.T) {
	f := newFixture(t)
	id := f.bank(t, "limits", "Find the limit of (x^2-1)/(x-1) as x tends to 1.", 3)
	f.grader.res = grading.Result{IsCorrect: false}
	f.deps.Remediation = &fakeRemediator{err: errors.New("model down")}
	o := f.orchestrator()

	resp, err := o.SubmitAnswer(context.Background(), AnswerRequest{UserID: 7, QuestionID: id, Answer: "0", TimeTaken: 10})
	require.NoError(t, err)
	assert.Nil(t, resp.Remediation)
}

func TestSubmitAnswer_GradeTimeout(t *testing.T) {
	f := newFixture(t)
	id := f.bank(t, "limits", "Find the limit of (x^2-1)/(x-1) as x tends to 1.", 3)
	f.grader.delay = time.Second
	f.cfg.GradeTimeout = 10 * time.Millisecond
	o := f.orchestrator()

	_, err := o.SubmitAnswer(context.Background(), AnswerRequest{UserID: 7, QuestionID: id, Answer: "2", TimeTaken: 10})
	var terr *UpstreamTimeoutError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "grade", terr.Op)

	recent, err := f.store.Attempts().Recent(context.Background(), 7, 10)
	require.NoError(t, err)
	assert.Empty(t, recent, "no attempt is recorded when grading fails")
}

func TestSubmitAnswer_Validation(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator()

	tests := []struct {
		name  string
		req   AnswerRequest
		field string
	}{
		{"zero user", AnswerRequest{QuestionID: 1, Answer: "2"}, "user_id"},
		{"zero question", AnswerRequest{UserID: 1, Answer: "2"}, "question_id"},
		{"blank answer", AnswerRequest{UserID: 1, QuestionID: 1, Answer: "  "}, "answer"},
		{"negative time", AnswerRequest{UserID: 1, QuestionID: 1, Answer: "2", TimeTaken: -1}, "time_taken"},
		{"negative retries", AnswerRequest{UserID: 1, QuestionID: 1, Answer: "2", Retries: -1}, "retries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.SubmitAnswer(context.Background(), tt.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestSubmitAnswer_UnknownQuestion(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator()

	_, err := o.SubmitAnswer(context.Background(), AnswerRequest{UserID: 1, QuestionID: 404, Answer: "2"})
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "question", nf.Kind)
	assert.Equal(t, "404", nf.ID)
}

func TestSubmitAnswer_SkillUpsertFailureIsSoft(t *testing.T) {
	f := newFixture(t)
	id := f.bank(t, "limits", "Find the limit of (x^2-1)/(x-1) as x tends to 1.", 3)
	f.deps.Skills = failingSkills{SkillRepo: f.store.Skills()}
	o := f.orchestrator()

	resp, err := o.SubmitAnswer(context.Background(), AnswerRequest{UserID: 7, QuestionID: id, Answer: "2", TimeTaken: 45})
	require.NoError(t, err)
	assert.Greater(t, resp.NewSkill, resp.OldSkill)

	recent, err := f.store.Attempts().Recent(context.Background(), 7, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1, "attempt is durable even though the skill write failed")
}

func TestSubmitAnswer_AttemptFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	id := f.bank(t, "limits", "Find the limit of (x^2-1)/(x-1) as x tends to 1.", 3)
	f.deps.Attempts = failingAttempts{AttemptRepo: f.store.Attempts()}
	o := f.orchestrator()

	_, err := o.SubmitAnswer(context.Background(), AnswerRequest{UserID: 7, QuestionID: id, Answer: "2", TimeTaken: 45})
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)

	_, found, err := f.store.Skills().Get(context.Background(), 7, "limits")
	require.NoError(t, err)
	assert.False(t, found, "skill must not be written when the attempt write fails")
}

func TestSubmitAnswer_StreakTriggersRemediation(t *testing.T) {
	f := newFixture(t)
	id := f.bank(t, "limits", "Find the limit of (x^2-1)/(x-1) as x tends to 1.", 3)
	f.grader.res = grading.Result{IsCorrect: false}
	rem := &fakeRemediator{}
	f.deps.Remediation = rem
	o := f.orchestrator()

	// Fast, hint-free misses keep CMS at 0.4, below threshold either way;
	// the second miss also has a streak of 2.
	for range 2 {
		resp, err := o.SubmitAnswer(context.Background(), AnswerRequest{UserID: 3, QuestionID: id, Answer: "1", TimeTaken: 0})
		require.NoError(t, err)
		assert.NotNil(t, resp.Remediation)
	}
	streak, err := f.store.Attempts().IncorrectStreak(context.Background(), 3, id, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, streak)
}
