// Package refill tops up the question bank for concepts running low on
// stock, either on demand after a session start or on a fixed interval.
package refill

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/abhisek/cognify/internal/conceptgraph"
	"github.com/abhisek/cognify/internal/ingest"
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

// Trigger labels why a refill ran.
type Trigger string

const (
	TriggerLowStock  Trigger = "low_stock"
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

// Ingester harvests and banks questions for a concept.
type Ingester interface {
	Ingest(ctx context.Context, concept conceptgraph.Concept, n int) ([]*question.Question, error)
}

// Config tunes refill runs.
type Config struct {
	// Threshold is the banked count below which a concept is low on stock.
	Threshold int

	// Batch is the number of questions requested per concept.
	Batch int

	// Interval is the period of the scheduler.
	Interval time.Duration

	// Timeout bounds one concept's refill.
	Timeout time.Duration
}

// DefaultConfig returns the default refill configuration.
func DefaultConfig() Config {
	return Config{
		Threshold: 10,
		Batch:     8,
		Interval:  24 * time.Hour,
		Timeout:   2 * time.Minute,
	}
}

// Deps are the collaborators of a Refiller. Ingester and Generator may be
// nil. They must not share the foreground worker pool. Generated
// questions are indexed only when both Embedder and Index are set.
type Deps struct {
	Graph     *conceptgraph.Graph
	Questions store.QuestionRepo
	Ingester  Ingester
	Generator problemgen.Generator
	Executor  *workpool.Executor
	Embedder  llm.Embedder
	Index     retrieval.Index
}

// Refiller banks new questions for low-stock concepts.
type Refiller struct {
	deps Deps
	cfg  Config
	log  *logger.Logger
}

// New creates a Refiller.
func New(deps Deps, cfg Config, log *logger.Logger) *Refiller {
	def := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Batch <= 0 {
		cfg.Batch = def.Batch
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Refiller{deps: deps, cfg: cfg, log: logger.OrNop(log).With("component", "refill")}
}

// Threshold returns the low-stock threshold.
func (r *Refiller) Threshold() int { return r.cfg.Threshold }

// TriggerLowStock schedules a detached refill of concept. At most one
// refill per concept is in flight; it reports false when the job was
// deduplicated or dropped.
func (r *Refiller) TriggerLowStock(concept conceptgraph.Concept) bool {
	if r.deps.Executor == nil {
		return false
	}
	ok := r.deps.Executor.GoOnce("refill:"+concept.ID, "refill", r.cfg.Timeout, func(ctx context.Context) error {
		_, err := r.Concept(ctx, concept, TriggerLowStock)
		return err
	})
	if ok {
		r.log.Debug("low-stock refill queued", "concept", concept.ID)
	}
	return ok
}

// Concept banks up to one batch of questions for concept: ingestion
// first, then generation when ingestion yields nothing. It returns the
// number of questions banked.
func (r *Refiller) Concept(ctx context.Context, concept conceptgraph.Concept, trigger Trigger) (int, error) {
	metrics.RefillRuns.WithLabelValues(string(trigger)).Inc()
	log := r.log.With("concept", concept.ID, "trigger", trigger)

	var ingestErr error
	if r.deps.Ingester != nil {
		qs, err := r.deps.Ingester.Ingest(ctx, concept, r.cfg.Batch)
		if err != nil {
			ingestErr = err
			log.Warn("refill ingestion failed", "error", err)
		}
		if len(qs) > 0 {
			log.Info("refill banked ingested questions", "count", len(qs))
			return len(qs), nil
		}
	}

	n, err := r.generate(ctx, concept)
	if err != nil {
		if ingestErr != nil {
			return 0, fmt.Errorf("refill %s: ingest: %v; generate: %w", concept.ID, ingestErr, err)
		}
		return 0, fmt.Errorf("refill %s: %w", concept.ID, err)
	}
	log.Info("refill banked generated questions", "count", n)
	return n, nil
}

func (r *Refiller) generate(ctx context.Context, concept conceptgraph.Concept) (int, error) {
	if r.deps.Generator == nil {
		return 0, nil
	}
	start := time.Now()
	cands, err := r.deps.Generator.Generate(ctx, problemgen.GenerateInput{
		Concept:       concept,
		N:             r.cfg.Batch,
		MinDifficulty: rating.Full.Min,
		MaxDifficulty: rating.Full.Max,
	})
	metrics.ObserveSince("generate", start)
	if err != nil {
		return 0, err
	}
	banked := 0
	for _, c := range cands {
		q := c.Question(concept.ID, question.ProvenanceSynthetic)
		if !question.IsValid(q.Text) {
			continue
		}
		_, created, err := r.deps.Questions.Insert(ctx, q)
		if err != nil {
			return banked, err
		}
		if !created {
			continue
		}
		banked++
		if r.deps.Embedder != nil && r.deps.Index != nil {
			if err := ingest.IndexQuestion(ctx, nil, 0, r.deps.Embedder, r.deps.Index, q); err != nil {
				r.log.Warn("index generated question failed", "question", q.ID, "error", err)
			}
		}
	}
	return banked, nil
}

// Report summarizes one pass over the graph.
type Report struct {
	Scanned  int
	LowStock []string
	Banked   map[string]int
	Failed   map[string]error
}

// LowStock returns the concepts with fewer than Threshold banked
// questions, in topological order.
func (r *Refiller) LowStock(ctx context.Context) ([]conceptgraph.Concept, error) {
	counts, err := r.deps.Questions.CountsByConcept(ctx)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	var low []conceptgraph.Concept
	for _, c := range r.deps.Graph.TopologicalOrder() {
		if counts[c.ID] < r.cfg.Threshold {
			low = append(low, c)
		}
	}
	return low, nil
}

// RunOnce refills every low-stock concept sequentially. Per-concept
// failures are collected in the report, not returned.
func (r *Refiller) RunOnce(ctx context.Context, trigger Trigger) (*Report, error) {
	low, err := r.LowStock(ctx)
	if err != nil {
		return nil, err
	}
	rep := &Report{
		Scanned: r.deps.Graph.Len(),
		Banked:  make(map[string]int),
		Failed:  make(map[string]error),
	}
	for _, c := range low {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.LowStock = append(rep.LowStock, c.ID)
		cctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		n, err := r.Concept(cctx, c, trigger)
		cancel()
		if err != nil {
			rep.Failed[c.ID] = err
			continue
		}
		rep.Banked[c.ID] = n
	}
	r.log.Info("refill pass complete", "trigger", trigger, "low_stock", len(rep.LowStock), "failed", len(rep.Failed))
	return rep, nil
}

// Total returns the number of questions banked in the pass.
func (rep *Report) Total() int {
	total := 0
	for _, n := range rep.Banked {
		total += n
	}
	return total
}

// FailedIDs returns the concepts whose refill failed, sorted.
func (rep *Report) FailedIDs() []string {
	ids := make([]string, 0, len(rep.Failed))
	for id := range rep.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
