package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/cognify/internal/conceptgraph"
	"github.com/abhisek/cognify/internal/llm"
	"github.com/abhisek/cognify/internal/logger"
	"github.com/abhisek/cognify/internal/metrics"
	"github.com/abhisek/cognify/internal/problemgen"
	"github.com/abhisek/cognify/internal/question"
	"github.com/abhisek/cognify/internal/retrieval"
	"github.com/abhisek/cognify/internal/store"
	"github.com/abhisek/cognify/internal/workpool"
)

// Config tunes ingestion.
type Config struct {
	// MaxResults is the number of search results requested per query.
	MaxResults int

	// SpanFactor caps collected raw spans at SpanFactor*n.
	SpanFactor int

	// CallTimeout bounds each search, classify and embed call.
	CallTimeout time.Duration

	// Concurrency bounds spans processed at once.
	Concurrency int
}

func DefaultConfig() Config {
	return Config{
		MaxResults:  5,
		SpanFactor:  2,
		CallTimeout: 15 * time.Second,
		Concurrency: 4,
	}
}

// Ingester harvests spans from a Searcher, labels and embeds them, and
// banks the accepted ones in both the question store and the index.
type Ingester struct {
	search     Searcher
	classifier problemgen.Classifier
	embedder   llm.Embedder
	questions  store.QuestionRepo
	index      retrieval.Index
	pool       *workpool.Pool
	cfg        Config
	log        *logger.Logger
}

// Deps groups the collaborators of an Ingester. Classifier, Embedder,
// Index and Pool may be nil.
type Deps struct {
	Search     Searcher
	Classifier problemgen.Classifier
	Embedder   llm.Embedder
	Questions  store.QuestionRepo
	Index      retrieval.Index
	Pool       *workpool.Pool
}

func New(deps Deps, cfg Config, log *logger.Logger) *Ingester {
	def := DefaultConfig()
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = def.MaxResults
	}
	if cfg.SpanFactor <= 0 {
		cfg.SpanFactor = def.SpanFactor
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	return &Ingester{
		search:     deps.Search,
		classifier: deps.Classifier,
		embedder:   deps.Embedder,
		questions:  deps.Questions,
		index:      deps.Index,
		pool:       deps.Pool,
		cfg:        cfg,
		log:        logger.OrNop(log).With("component", "ingest"),
	}
}

// Enabled reports whether a search source is configured.
func (in *Ingester) Enabled() bool {
	return in != nil && in.search != nil
}

// Ingest harvests up to n new questions for concept. It returns the banked
// questions, including ones whose text was already in the bank. An error
// means no search query succeeded.
func (in *Ingester) Ingest(ctx context.Context, concept conceptgraph.Concept, n int) ([]*question.Question, error) {
	if !in.Enabled() || n <= 0 {
		return nil, nil
	}

	spans, err := in.collect(ctx, concept, n*in.cfg.SpanFactor)
	if err != nil {
		return nil, err
	}

	var valid []question.Span
	seen := make(map[string]bool)
	for _, s := range spans {
		if !question.IsValid(s.Text) {
			continue
		}
		h := question.ContentHash(s.Text)
		if seen[h] {
			continue
		}
		seen[h] = true
		valid = append(valid, s)
		if len(valid) == n {
			break
		}
	}
	if len(valid) == 0 {
		in.log.Info("no valid spans harvested", "concept", concept.ID, "raw", len(spans))
		return nil, nil
	}

	banked := make([]*question.Question, len(valid))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.cfg.Concurrency)
	for i, span := range valid {
		g.Go(func() error {
			q, err := in.bank(gctx, concept, span)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				in.log.Warn("dropping harvested span", "concept", concept.ID, "error", err)
				return nil
			}
			banked[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := banked[:0]
	for _, q := range banked {
		if q != nil {
			out = append(out, q)
		}
	}
	in.log.Info("ingested questions", "concept", concept.ID, "count", len(out))
	return out, nil
}

// collect runs every query concurrently and merges spans in query order,
// stopping at limit.
func (in *Ingester) collect(ctx context.Context, concept conceptgraph.Concept, limit int) ([]question.Span, error) {
	queries := BuildQueries(concept)
	results := make([][]Result, len(queries))
	errs := make([]error, len(queries))

	var g errgroup.Group
	for i, q := range queries {
		g.Go(func() error {
			start := time.Now()
			res, err := workpool.Do(ctx, in.pool, in.cfg.CallTimeout, func(ctx context.Context) ([]Result, error) {
				return in.search.Search(ctx, q, in.cfg.MaxResults)
			})
			metrics.ObserveSince("search", start)
			if err != nil {
				in.log.Warn("search failed", "query", q, "error", err)
				errs[i] = err
				return nil
			}
			results[i] = res
			return nil
		})
	}
	g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed == len(queries) {
		return nil, fmt.Errorf("all %d searches failed: %w", failed, errors.Join(errs...))
	}

	var spans []question.Span
	for _, res := range results {
		for _, r := range res {
			spans = append(spans, question.ExtractSpans(r.Content, r.URL)...)
			if len(spans) >= limit {
				return spans[:limit], nil
			}
		}
	}
	return spans, nil
}

func (in *Ingester) bank(ctx context.Context, concept conceptgraph.Concept, span question.Span) (*question.Question, error) {
	cls := in.classify(ctx, concept.ID, span.Text)

	q := &question.Question{
		Text:       span.Text,
		Answer:     question.Numerical{},
		Subtopics:  cls.Subtopics,
		Difficulty: cls.Difficulty,
		Provenance: question.ProvenanceIngested,
		SourceURL:  span.SourceURL,
	}
	if q.Difficulty == 0 && concept.Difficulty > 0 {
		q.Difficulty = concept.Difficulty
	}
	q.Normalize(concept.ID)

	if in.embedder != nil && in.index != nil {
		if err := IndexQuestion(ctx, in.pool, in.cfg.CallTimeout, in.embedder, in.index, q); err != nil {
			in.log.Warn("index upsert failed", "concept", concept.ID, "error", err)
		}
	}

	if _, _, err := in.questions.Insert(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (in *Ingester) classify(ctx context.Context, concept, text string) problemgen.Classification {
	if in.classifier == nil {
		return problemgen.FallbackClassification(concept)
	}
	start := time.Now()
	cls, err := workpool.Do(ctx, in.pool, in.cfg.CallTimeout, func(ctx context.Context) (problemgen.Classification, error) {
		return in.classifier.Classify(ctx, text, concept)
	})
	metrics.ObserveSince("classify", start)
	if err != nil {
		in.log.Warn("classification failed, using fallback", "concept", concept, "error", err)
		return problemgen.FallbackClassification(concept)
	}
	return cls
}

// IndexQuestion embeds q and upserts it under its vector id, setting
// q.EmbeddingRef on success.
func IndexQuestion(ctx context.Context, pool *workpool.Pool, timeout time.Duration, embedder llm.Embedder, index retrieval.Index, q *question.Question) error {
	start := time.Now()
	vec, err := workpool.Do(ctx, pool, timeout, func(ctx context.Context) ([]float32, error) {
		return embedder.Embed(ctx, q.Text)
	})
	metrics.ObserveSince("embed", start)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}

	id := question.VectorID(q.ContentHash)
	start = time.Now()
	_, err = workpool.Do(ctx, pool, timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, index.Upsert(ctx, id, vec, retrieval.RecordFromQuestion(q))
	})
	metrics.ObserveSince("index_upsert", start)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", id, err)
	}
	q.EmbeddingRef = id
	return nil
}
