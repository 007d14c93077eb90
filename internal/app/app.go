// Package app wires every collaborator of the practice service from
// configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/cognify/internal/conceptgraph"
	"github.com/abhisek/cognify/internal/config"
	"github.com/abhisek/cognify/internal/grading"
	"github.com/abhisek/cognify/internal/ingest"
	"github.com/abhisek/cognify/internal/lessons"
	"github.com/abhisek/cognify/internal/llm"
	"github.com/abhisek/cognify/internal/logger"
	"github.com/abhisek/cognify/internal/memory"
	"github.com/abhisek/cognify/internal/pipeline"
	"github.com/abhisek/cognify/internal/problemgen"
	"github.com/abhisek/cognify/internal/question"
	"github.com/abhisek/cognify/internal/refill"
	"github.com/abhisek/cognify/internal/remediation"
	"github.com/abhisek/cognify/internal/retrieval"
	"github.com/abhisek/cognify/internal/session"
	"github.com/abhisek/cognify/internal/store"
	"github.com/abhisek/cognify/internal/workpool"
)

// App is the assembled service.
type App struct {
	Config config.Config
	Log    *logger.Logger

	Graph    *conceptgraph.Graph
	Store    *store.Store
	Provider llm.Provider
	Embedder llm.Embedder
	Index    retrieval.Index
	Memory   memory.Store

	Pool     *workpool.Pool
	Executor *workpool.Executor

	Pipeline     *pipeline.Pipeline
	Remediation  *remediation.Engine
	Refiller     *refill.Refiller
	Orchestrator *session.Orchestrator

	sched   *refill.Scheduler
	closers []func() error
}

// New builds the full service. It requires a usable LLM configuration.
func New(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error) {
	log = logger.OrNop(log)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.LLM.Validate(); err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}

	a := &App{Config: cfg, Log: log}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	var err error
	if a.Graph, err = LoadGraph(cfg); err != nil {
		return nil, err
	}
	if a.Store, err = OpenStore(ctx, cfg); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.Store.Close)

	if a.Provider, err = llm.NewProvider(ctx, cfg.LLM, a.Store.EventRepo(), log); err != nil {
		return nil, err
	}
	if a.Embedder, err = llm.NewEmbedder(ctx, cfg.LLM); err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	if a.Index, err = NewIndex(cfg, a.Embedder.Dimensions(), log); err != nil {
		return nil, err
	}
	if a.Memory, err = a.newMemory(); err != nil {
		return nil, err
	}

	a.Pool = workpool.New(cfg.Workers)
	a.closers = append(a.closers, func() error { a.Pool.Close(); return nil })
	a.Executor = workpool.NewExecutor(cfg.BackgroundWorkers, cfg.BackgroundWorkers*8, log)

	generator := problemgen.New(a.Provider, problemgen.DefaultConfig(), log)
	search, err := a.newSearcher()
	if err != nil {
		return nil, err
	}

	ingestDeps := ingest.Deps{
		Search:     search,
		Classifier: generator,
		Embedder:   a.Embedder,
		Questions:  a.Store.Questions(),
		Index:      a.Index,
		Pool:       a.Pool,
	}
	ingestCfg := ingest.DefaultConfig()
	ingestCfg.CallTimeout = cfg.TierTimeout

	var foreground pipeline.Ingester
	var background refill.Ingester
	if search != nil {
		foreground = ingest.New(ingestDeps, ingestCfg, log)
		// Background refills run inline on executor workers.
		ingestDeps.Pool = nil
		background = ingest.New(ingestDeps, ingestCfg, log)
	}

	a.Pipeline = pipeline.New(pipeline.Deps{
		Questions: a.Store.Questions(),
		Embedder:  a.Embedder,
		Index:     a.Index,
		Ingester:  foreground,
		Generator: generator,
		Pool:      a.Pool,
	}, pipeline.Config{TierTimeout: cfg.TierTimeout}, log)

	a.Remediation = remediation.New(a.Graph,
		lessons.NewService(a.Provider, lessons.DefaultConfig()),
		a.Pipeline, a.Pool, log)

	a.Refiller = refill.New(refill.Deps{
		Graph:     a.Graph,
		Questions: a.Store.Questions(),
		Ingester:  background,
		Generator: generator,
		Executor:  a.Executor,
		Embedder:  a.Embedder,
		Index:     a.Index,
	}, refill.Config{
		Threshold: cfg.LowStockThreshold,
		Batch:     cfg.RefillBatch,
		Interval:  cfg.RefillInterval,
	}, log)

	a.Orchestrator = session.New(session.Deps{
		Graph:       a.Graph,
		Questions:   a.Store.Questions(),
		Skills:      a.Store.Skills(),
		Attempts:    a.Store.Attempts(),
		Pipeline:    a.Pipeline,
		Grader:      grading.New(a.Provider, grading.DefaultConfig()),
		Memory:      a.Memory,
		Remediation: a.Remediation,
		Refill:      a.Refiller,
		Pool:        a.Pool,
		Executor:    a.Executor,
	}, session.Config{
		GradeTimeout:       cfg.GradeTimeout,
		ContextTimeout:     cfg.ContextTimeout,
		RemediationTimeout: cfg.RemediationTimeout,
		LowStockThreshold:  cfg.LowStockThreshold,
		AvgTime:            cfg.AvgSeconds(),
	}, log)

	ok = true
	return a, nil
}

// LoadGraph returns the configured concept graph, or the embedded one.
func LoadGraph(cfg config.Config) (*conceptgraph.Graph, error) {
	if cfg.ConceptGraph == "" {
		return conceptgraph.Default(), nil
	}
	g, err := conceptgraph.LoadFile(cfg.ConceptGraph)
	if err != nil {
		return nil, fmt.Errorf("load concept graph %s: %w", cfg.ConceptGraph, err)
	}
	return g, nil
}

// OpenStore opens the configured database, defaulting SQLite to the XDG
// data path.
func OpenStore(ctx context.Context, cfg config.Config) (*store.Store, error) {
	dsn := cfg.DB
	if dsn == "" && cfg.DBDriver == store.DriverSQLite {
		p, err := store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve database path: %w", err)
		}
		dsn = p
	}
	s, err := store.OpenDriver(ctx, cfg.DBDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return s, nil
}

// NewIndex builds the configured retrieval index.
func NewIndex(cfg config.Config, dims int, log *logger.Logger) (retrieval.Index, error) {
	switch cfg.Retrieval {
	case "pinecone":
		return retrieval.NewPineconeIndex(log, retrieval.PineconeConfig{
			APIKey:    cfg.Pinecone.APIKey,
			Host:      cfg.Pinecone.Host,
			Namespace: cfg.Pinecone.Namespace,
		})
	case "memory", "":
		return retrieval.NewMemoryIndex(dims), nil
	default:
		return nil, fmt.Errorf("unknown retrieval backend: %q", cfg.Retrieval)
	}
}

func (a *App) newMemory() (memory.Store, error) {
	switch a.Config.Memory {
	case "supermemory":
		return memory.NewSupermemoryStore(a.Log, memory.SupermemoryConfig{APIKey: a.Config.SupermemoryAPIKey})
	case "redis":
		r, err := memory.NewRedisStore(a.Log, a.Config.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, r.Close)
		return r, nil
	case "none", "":
		return memory.Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown memory backend: %q", a.Config.Memory)
	}
}

// newSearcher returns nil when ingestion is disabled.
func (a *App) newSearcher() (ingest.Searcher, error) {
	switch a.Config.Ingest {
	case "tavily":
		return ingest.NewTavilySearcher(a.Log, ingest.TavilyConfig{APIKey: a.Config.TavilyAPIKey})
	case "corpus":
		c, err := ingest.NewCorpusSource()
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, c.Close)
		n, err := c.LoadDir(a.Config.CorpusDir)
		if err != nil {
			return nil, fmt.Errorf("load corpus: %w", err)
		}
		a.Log.Info("corpus loaded", "dir", a.Config.CorpusDir, "documents", n)
		return c, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown ingestion source: %q", a.Config.Ingest)
	}
}

// WarmIndex loads every banked question into an in-process index, which
// starts empty on each run. It is a no-op for remote indexes.
func (a *App) WarmIndex(ctx context.Context) (int, error) {
	if _, ok := a.Index.(*retrieval.MemoryIndex); !ok {
		return 0, nil
	}
	return IndexAll(ctx, a.Store.Questions(), a.Embedder, a.Index, nil)
}

// IndexAll embeds and upserts every banked question, page by page.
// Questions that fail to embed are skipped. progress may be nil.
func IndexAll(ctx context.Context, questions store.QuestionRepo, embedder llm.Embedder, index retrieval.Index, progress func(*question.Question, error)) (int, error) {
	const page = 200
	var after int64
	indexed := 0
	for {
		qs, err := questions.List(ctx, after, page)
		if err != nil {
			return indexed, err
		}
		for _, q := range qs {
			err := ingest.IndexQuestion(ctx, nil, 0, embedder, index, q)
			if progress != nil {
				progress(q, err)
			}
			if err == nil {
				indexed++
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return indexed, ctxErr
			}
		}
		if len(qs) < page {
			return indexed, nil
		}
		after = qs[len(qs)-1].ID
	}
}

// Start launches background work: index warm-up and the refill
// scheduler. The scheduler stops when ctx is done.
func (a *App) Start(ctx context.Context) {
	a.Executor.Go("index-warm", 0, func(ctx context.Context) error {
		n, err := a.WarmIndex(ctx)
		if n > 0 {
			a.Log.Info("retrieval index warmed", "questions", n)
		}
		return err
	})
	a.sched = refill.NewScheduler(a.Refiller)
	a.sched.Start(ctx)
}

// Close drains background jobs and releases resources in reverse order.
func (a *App) Close() error {
	var errs []error
	if a.sched != nil {
		a.sched.Stop()
		a.sched = nil
	}
	if a.Executor != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := a.Executor.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain background jobs: %w", err))
		}
		cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
