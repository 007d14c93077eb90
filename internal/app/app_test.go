package app

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/cognify/internal/config"
	"github.com/abhisek/cognify/internal/llm"
	"github.com/abhisek/cognify/internal/question"
	"github.com/abhisek/cognify/internal/retrieval"
	"github.com/abhisek/cognify/internal/session"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg.DB = fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	cfg.LLM.Provider = "mock"
	cfg.LLM.Embedding.Provider = "hash"
	cfg.LLM.Embedding.Dimensions = 64
	return cfg
}

func TestNewWiresService(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	assert.NotNil(t, a.Orchestrator)
	assert.IsType(t, &retrieval.MemoryIndex{}, a.Index)
	assert.Greater(t, a.Graph.Len(), 0)
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Retrieval = "faiss"
	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)

	cfg = testConfig(t)
	cfg.LLM.Provider = "gemini"
	cfg.LLM.Gemini.APIKey = ""
	_, err = New(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestWarmIndexAndStartSession(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	texts := []string{
		"Find the limit of (x^2-1)/(x-1) as x tends to 1.",
		"Evaluate the limit of sin(3x)/x as x tends to 0.",
	}
	for _, text := range texts {
		q := &question.Question{Text: text, Difficulty: 3, Provenance: question.ProvenanceCache}
		q.Normalize("limits")
		_, _, err := a.Store.Questions().Insert(ctx, q)
		require.NoError(t, err)
	}

	n, err := a.WarmIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, a.Index.(*retrieval.MemoryIndex).Len())

	resp, err := a.Orchestrator.StartSession(ctx, session.StartRequest{UserID: 1, Concept: "limits", N: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)
}

func TestIndexAllPages(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	for i := range 205 {
		q := &question.Question{Text: fmt.Sprintf("Find the value of %d^2 + 1.", i), Provenance: question.ProvenanceCache}
		q.Normalize("functions")
		_, _, err := a.Store.Questions().Insert(ctx, q)
		require.NoError(t, err)
	}

	index := retrieval.NewMemoryIndex(64)
	seen := 0
	n, err := IndexAll(ctx, a.Store.Questions(), llm.NewHashEmbedder(64), index, func(q *question.Question, err error) {
		seen++
	})
	require.NoError(t, err)
	assert.Equal(t, 205, n)
	assert.Equal(t, 205, seen)
	assert.Equal(t, 205, index.Len())
}
