// Package pipeline sources practice questions through four ordered tiers:
// the question bank, semantic retrieval, external ingestion and model
// generation.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/abhisek/cognify/internal/conceptgraph"
	"github.com/abhisek/cognify/internal/llm"
	"github.com/abhisek/cognify/internal/logger"
	"github.com/abhisek/cognify/internal/metrics"
	"github.com/abhisek/cognify/internal/problemgen"
	"github.com/abhisek/cognify/internal/question"
	"github.com/abhisek/cognify/internal/rating"
	"github.com/abhisek/cognify/internal/retrieval"
	"github.com/abhisek/cognify/internal/store"
	"github.com/abhisek/cognify/internal/workpool"
)

// ErrExhausted is returned when every tier produced nothing.
var ErrExhausted = errors.New("no content available")

// Tier names a sourcing stage.
type Tier string

const (
	TierCache      Tier = "cache"
	TierSemantic   Tier = "semantic"
	TierIngestion  Tier = "ingestion"
	TierGenerative Tier = "generative"
)

// Ingester harvests and banks questions for a concept.
type Ingester interface {
	Ingest(ctx context.Context, concept conceptgraph.Concept, n int) ([]*question.Question, error)
}

// Request describes one sourcing run.
type Request struct {
	Concept conceptgraph.Concept
	N       int
	Band    rating.Band

	// Exclude holds ids the learner has already seen.
	Exclude []int64

	// LearnerContext is passed to the generator.
	LearnerContext string
}

// Result is the selected questions plus a per-tier tally.
type Result struct {
	Questions []*question.Question
	ByTier    map[Tier]int
}

// Config tunes the pipeline.
type Config struct {
	// TierTimeout bounds the semantic, ingestion and generative tiers.
	TierTimeout time.Duration

	// SemanticFactor scales the retrieval query size over the shortfall.
	SemanticFactor int
}

func DefaultConfig() Config {
	return Config{TierTimeout: 15 * time.Second, SemanticFactor: 2}
}

// Deps are the pipeline's collaborators. Only Questions is required; a
// tier whose collaborators are nil is skipped.
type Deps struct {
	Questions store.QuestionRepo
	Embedder  llm.Embedder
	Index     retrieval.Index
	Ingester  Ingester
	Generator problemgen.Generator
	Pool      *workpool.Pool
}

type Pipeline struct {
	deps Deps
	cfg  Config
	log  *logger.Logger
}

func New(deps Deps, cfg Config, log *logger.Logger) *Pipeline {
	def := DefaultConfig()
	if cfg.TierTimeout <= 0 {
		cfg.TierTimeout = def.TierTimeout
	}
	if cfg.SemanticFactor <= 0 {
		cfg.SemanticFactor = def.SemanticFactor
	}
	return &Pipeline{deps: deps, cfg: cfg, log: logger.OrNop(log).With("component", "pipeline")}
}

type tier struct {
	name    Tier
	bounded bool
	run     func(ctx context.Context, req Request, sel *selection) ([]*question.Question, error)
}

func (p *Pipeline) tiers() []tier {
	return []tier{
		{name: TierCache, run: p.cacheTier},
		{name: TierSemantic, bounded: true, run: p.semanticTier},
		{name: TierIngestion, bounded: true, run: p.ingestionTier},
		{name: TierGenerative, bounded: true, run: p.generativeTier},
	}
}

// Source runs the tiers in order until req.N unique questions are
// selected. A partial result is not an error; an empty one returns
// ErrExhausted. Tier failures are logged and skipped.
func (p *Pipeline) Source(ctx context.Context, req Request) (*Result, error) {
	sel := newSelection(req.N, req.Exclude)
	log := p.log.With("concept", req.Concept.ID)

	for _, t := range p.tiers() {
		if sel.need() == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		added, err := p.runTier(ctx, t, req, sel)
		if err != nil {
			metrics.TierFailures.WithLabelValues(string(t.name)).Inc()
			log.Warn("tier failed", "tier", t.name, "error", err)
		}
		if added > 0 {
			metrics.PipelineQuestions.WithLabelValues(string(t.name)).Add(float64(added))
			log.Debug("tier added questions", "tier", t.name, "added", added, "need", sel.need())
		}
	}

	res := &Result{Questions: sel.out, ByTier: sel.byTier}
	if len(sel.out) == 0 {
		metrics.PipelineExhausted.Inc()
		return res, ErrExhausted
	}
	return res, nil
}

func (p *Pipeline) runTier(ctx context.Context, t tier, req Request, sel *selection) (int, error) {
	if t.bounded {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.TierTimeout)
		defer cancel()
	}
	qs, err := t.run(ctx, req, sel)
	added := 0
	for _, q := range qs {
		if sel.add(t.name, q) {
			added++
		}
	}
	return added, err
}

// Semantic runs only the retrieval tier, for guided remediation practice.
func (p *Pipeline) Semantic(ctx context.Context, concept conceptgraph.Concept, n int, exclude []int64) ([]*question.Question, error) {
	sel := newSelection(n, exclude)
	ctx, cancel := context.WithTimeout(ctx, p.cfg.TierTimeout)
	defer cancel()
	qs, err := p.semanticTier(ctx, Request{Concept: concept, N: n}, sel)
	for _, q := range qs {
		sel.add(TierSemantic, q)
	}
	return sel.out, err
}

func (p *Pipeline) cacheTier(ctx context.Context, req Request, sel *selection) ([]*question.Question, error) {
	cq := store.CacheQuery{
		Concept:       req.Concept.ID,
		MinDifficulty: req.Band.Min,
		MaxDifficulty: req.Band.Max,
		Exclude:       sel.excluded(),
		Limit:         sel.need(),
	}
	qs, err := p.deps.Questions.Cached(ctx, cq)
	if err != nil {
		return nil, err
	}
	if len(qs) > 0 {
		return qs, nil
	}
	cq.MinDifficulty, cq.MaxDifficulty = rating.Full.Min, rating.Full.Max
	return p.deps.Questions.Cached(ctx, cq)
}

func (p *Pipeline) semanticTier(ctx context.Context, req Request, sel *selection) ([]*question.Question, error) {
	if p.deps.Embedder == nil || p.deps.Index == nil {
		return nil, nil
	}
	concept := req.Concept.ID

	start := time.Now()
	vec, err := workpool.Do(ctx, p.deps.Pool, 0, func(ctx context.Context) ([]float32, error) {
		return p.deps.Embedder.Embed(ctx, conceptgraph.ReadableID(concept))
	})
	metrics.ObserveSince("embed", start)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	matches, err := workpool.Do(ctx, p.deps.Pool, 0, func(ctx context.Context) ([]retrieval.Match, error) {
		return p.deps.Index.Query(ctx, vec, retrieval.Filter{Concept: concept}, p.cfg.SemanticFactor*sel.need())
	})
	metrics.ObserveSince("index_query", start)
	if err != nil {
		return nil, err
	}

	var out []*question.Question
	for _, m := range matches {
		if !question.IsValid(m.Text) {
			continue
		}
		q := m.Question(concept, question.ProvenanceIngested)
		if sel.hasHash(q.ContentHash) {
			continue
		}
		q.EmbeddingRef = m.ID
		if _, _, err := p.deps.Questions.Insert(ctx, q); err != nil {
			return out, err
		}
		// A duplicate comes back as the stored row, which may be banked
		// under another concept.
		if !q.HasConcept(concept) {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (p *Pipeline) ingestionTier(ctx context.Context, req Request, sel *selection) ([]*question.Question, error) {
	if p.deps.Ingester == nil {
		return nil, nil
	}
	return p.deps.Ingester.Ingest(ctx, req.Concept, sel.need())
}

func (p *Pipeline) generativeTier(ctx context.Context, req Request, sel *selection) ([]*question.Question, error) {
	if p.deps.Generator == nil {
		return nil, nil
	}
	band := req.Band
	if band.Min == 0 {
		band = rating.Full
	}
	input := problemgen.GenerateInput{
		Concept:        req.Concept,
		N:              sel.need(),
		MinDifficulty:  band.Min,
		MaxDifficulty:  band.Max,
		PriorQuestions: sel.texts(),
		LearnerContext: req.LearnerContext,
	}

	start := time.Now()
	cands, err := workpool.Do(ctx, p.deps.Pool, 0, func(ctx context.Context) ([]problemgen.Candidate, error) {
		return p.deps.Generator.Generate(ctx, input)
	})
	metrics.ObserveSince("generate", start)
	if err != nil {
		return nil, err
	}

	var out []*question.Question
	for _, c := range cands {
		q := c.Question(req.Concept.ID, question.ProvenanceSynthetic)
		if !question.IsValid(q.Text) || sel.hasHash(q.ContentHash) {
			continue
		}
		if _, _, err := p.deps.Questions.Insert(ctx, q); err != nil {
			return out, err
		}
		if !q.HasConcept(req.Concept.ID) {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}
