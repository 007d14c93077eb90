// Package remediation decides when a learner needs help and assembles a
// micro-lesson plus guided practice for the weakest prerequisite.
package remediation

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/cognify/internal/conceptgraph"
	"github.com/abhisek/cognify/internal/lessons"
	"github.com/abhisek/cognify/internal/logger"
	"github.com/abhisek/cognify/internal/metrics"
	"github.com/abhisek/cognify/internal/question"
	"github.com/abhisek/cognify/internal/rating"
	"github.com/abhisek/cognify/internal/workpool"
)

const (
	// CMSThreshold is the mastery score below which remediation starts.
	CMSThreshold = 0.5

	// MaxIncorrectStreak consecutive misses on one question start
	// remediation regardless of CMS.
	MaxIncorrectStreak = 2

	// GuidedCount is the number of guided questions requested.
	GuidedCount = 2
)

// ShouldRemediate reports whether an attempt crosses a failure threshold.
func ShouldRemediate(cms float64, incorrectStreak int) bool {
	return cms < CMSThreshold || incorrectStreak >= MaxIncorrectStreak
}

// Result is a transient remediation bundle.
type Result struct {
	// WeakPrerequisite is empty when no prerequisite rates below baseline.
	WeakPrerequisite string
	TargetConcept    string
	Lesson           *lessons.Lesson
	GuidedQuestions  []*question.Question
}

// LessonText returns the rendered lesson, or "" when there is none.
func (r *Result) LessonText() string {
	if r == nil || r.Lesson == nil {
		return ""
	}
	return r.Lesson.Text()
}

// LessonSource generates micro-lessons.
type LessonSource interface {
	Lesson(ctx context.Context, input lessons.LessonInput) (*lessons.Lesson, error)
}

// GuidedSource returns practice questions by semantic retrieval only.
type GuidedSource interface {
	Semantic(ctx context.Context, concept conceptgraph.Concept, n int, exclude []int64) ([]*question.Question, error)
}

// Engine triggers remediation.
type Engine struct {
	graph   *conceptgraph.Graph
	lessons LessonSource
	guided  GuidedSource
	pool    *workpool.Pool
	log     *logger.Logger
}

// New creates an engine. lessons and guided may be nil; a nil lesson
// source yields a static review prompt and a nil guided source yields no
// questions.
func New(graph *conceptgraph.Graph, lessons LessonSource, guided GuidedSource, pool *workpool.Pool, log *logger.Logger) *Engine {
	return &Engine{
		graph:   graph,
		lessons: lessons,
		guided:  guided,
		pool:    pool,
		log:     logger.OrNop(log).With("component", "remediation"),
	}
}

// Target picks the concept to remediate: the weakest direct prerequisite
// of concept when it rates below baseline, else concept itself.
func (e *Engine) Target(concept string, skills map[string]float64) (target, weak string) {
	p, lowest, ok := e.graph.WeakestPrerequisite(concept, skills, rating.Default)
	if ok && lowest < rating.Default {
		return p.ID, p.ID
	}
	return concept, ""
}

// Trigger builds the remediation bundle for concept. The lesson and the
// guided questions are fetched concurrently. Guided retrieval failures
// yield an empty list; a lesson failure falls back to a review prompt.
func (e *Engine) Trigger(ctx context.Context, concept string, skills map[string]float64, learnerContext string) (*Result, error) {
	targetID, weak := e.Target(concept, skills)
	target, err := e.graph.Get(targetID)
	if err != nil {
		return nil, err
	}
	res := &Result{WeakPrerequisite: weak, TargetConcept: targetID, GuidedQuestions: []*question.Question{}}

	var g errgroup.Group
	g.Go(func() error {
		lesson, err := e.lesson(ctx, target, concept, learnerContext)
		if err != nil {
			e.log.Warn("lesson generation failed, using review prompt", "concept", targetID, "error", err)
			lesson = reviewLesson(target)
		}
		res.Lesson = lesson
		return nil
	})
	g.Go(func() error {
		if e.guided == nil {
			return nil
		}
		start := time.Now()
		qs, err := e.guided.Semantic(ctx, target, GuidedCount, nil)
		metrics.ObserveSince("guided", start)
		if err != nil {
			e.log.Warn("guided questions unavailable", "concept", targetID, "error", err)
		}
		if len(qs) > 0 {
			res.GuidedQuestions = qs
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.log.Info("remediation triggered", "concept", concept, "target", targetID, "guided", len(res.GuidedQuestions))
	return res, nil
}

func (e *Engine) lesson(ctx context.Context, target conceptgraph.Concept, struggled, learnerContext string) (*lessons.Lesson, error) {
	if e.lessons == nil {
		return reviewLesson(target), nil
	}
	input := lessons.LessonInput{Concept: target, LearnerContext: learnerContext}
	if struggled != target.ID {
		input.StruggledWith = struggled
	}
	start := time.Now()
	lesson, err := workpool.Do(ctx, e.pool, 0, func(ctx context.Context) (*lessons.Lesson, error) {
		return e.lessons.Lesson(ctx, input)
	})
	metrics.ObserveSince("lesson", start)
	if err == nil && lesson == nil {
		err = fmt.Errorf("empty lesson for %s", target.ID)
	}
	return lesson, err
}

// reviewLesson is the static lesson served without a model.
func reviewLesson(target conceptgraph.Concept) *lessons.Lesson {
	return &lessons.Lesson{
		ConceptID: target.ID,
		Title:     target.Name(),
		CoreIdea:  fmt.Sprintf("Review the fundamentals of %s before continuing.", target.Name()),
	}
}
