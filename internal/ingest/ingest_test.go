package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/abhisek/cognify/internal/conceptgraph"
	"github.com/abhisek/cognify/internal/llm"
	"github.com/abhisek/cognify/internal/problemgen"
	"github.com/abhisek/cognify/internal/question"
	"github.com/abhisek/cognify/internal/retrieval"
	"github.com/abhisek/cognify/internal/store"
	"github.com/abhisek/cognify/internal/workpool"
)

type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
	results map[string][]Result
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

type fakeClassifier struct {
	err error
}

func (f fakeClassifier) Classify(ctx context.Context, text, concept string) (problemgen.Classification, error) {
	if f.err != nil {
		return problemgen.Classification{}, f.err
	}
	return problemgen.Classification{Kind: question.KindNumerical, Difficulty: 4, Subtopics: []string{"integration", concept}}, nil
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := store.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var definite = conceptgraph.Concept{ID: "definite_integrals", DisplayName: "Definite Integrals"}

func TestBuildQueries(t *testing.T) {
	got := BuildQueries(definite)
	want := []string{
		"definite integrals JEE Mains problems with solutions",
		"definite integrals JEE Advanced practice questions",
		"solved definite integrals problems for JEE Mathematics",
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("query %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIngest_BanksAndIndexes(t *testing.T) {
	queries := BuildQueries(definite)
	search := &fakeSearcher{results: map[string][]Result{
		queries[0]: {{
			URL: "https://example.com/a",
			Content: "Practice set\n" +
				"Evaluate ∫ from 0 to 1 of x^2 dx.\n" +
				"Find the value of ∫ sin(x) dx from 0 to π.\n" +
				"Click here to download the PDF with all rights reserved.",
		}},
		queries[1]: {{
			URL:     "https://example.com/b",
			Content: "Evaluate ∫ from 0 to 1 of x^2 dx.",
		}},
	}}
	s := openStore(t)
	idx := retrieval.NewMemoryIndex(64)
	pool := workpool.New(2)
	defer pool.Close()

	in := New(Deps{
		Search:     search,
		Classifier: fakeClassifier{},
		Embedder:   llm.NewHashEmbedder(64),
		Questions:  s.Questions(),
		Index:      idx,
		Pool:       pool,
	}, DefaultConfig(), nil)

	got, err := in.Ingest(context.Background(), definite, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("banked %d questions, want 2", len(got))
	}
	for _, q := range got {
		if q.ID == 0 {
			t.Errorf("question %q has no id", q.Text)
		}
		if q.Concept() != "definite_integrals" {
			t.Errorf("first subtopic = %s", q.Concept())
		}
		if q.Provenance != question.ProvenanceIngested || q.Difficulty != 4 {
			t.Errorf("question = %+v", q)
		}
		if q.EmbeddingRef != question.VectorID(q.ContentHash) {
			t.Errorf("embedding ref = %q", q.EmbeddingRef)
		}
	}
	if idx.Len() != 2 {
		t.Errorf("index has %d vectors, want 2", idx.Len())
	}
	n, err := s.Questions().CountByConcept(context.Background(), "definite_integrals")
	if err != nil || n != 2 {
		t.Errorf("CountByConcept = %d, %v", n, err)
	}
	if len(search.queries) != 3 {
		t.Errorf("ran %d queries, want 3", len(search.queries))
	}
}

func TestIngest_ClassifierFailureFallsBack(t *testing.T) {
	queries := BuildQueries(definite)
	search := &fakeSearcher{results: map[string][]Result{
		queries[2]: {{URL: "u", Content: "Find the area bounded by y = x^2 and y = x."}},
	}}
	s := openStore(t)
	in := New(Deps{
		Search:     search,
		Classifier: fakeClassifier{err: errors.New("model down")},
		Questions:  s.Questions(),
	}, DefaultConfig(), nil)

	got, err := in.Ingest(context.Background(), definite, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d", len(got))
	}
	q := got[0]
	if q.Difficulty != 3 || q.Kind() != question.KindNumerical || len(q.Subtopics) != 1 {
		t.Errorf("fallback question = %+v", q)
	}
	if q.EmbeddingRef != "" {
		t.Errorf("no embedder configured, ref = %q", q.EmbeddingRef)
	}
}

func TestIngest_AllSearchesFail(t *testing.T) {
	s := openStore(t)
	in := New(Deps{Search: &fakeSearcher{err: errors.New("quota")}, Questions: s.Questions()}, DefaultConfig(), nil)
	if _, err := in.Ingest(context.Background(), definite, 2); err == nil {
		t.Fatal("expected error when every search fails")
	}
}

func TestIngest_DisabledWithoutSearcher(t *testing.T) {
	in := New(Deps{}, DefaultConfig(), nil)
	if in.Enabled() {
		t.Fatal("ingester without searcher should be disabled")
	}
	got, err := in.Ingest(context.Background(), definite, 2)
	if err != nil || got != nil {
		t.Errorf("got %v, %v", got, err)
	}
}

func TestIngest_CapsSpans(t *testing.T) {
	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, fmt.Sprintf("Find the integral of x^%d dx over the unit interval.", i+2))
	}
	queries := BuildQueries(definite)
	search := &fakeSearcher{results: map[string][]Result{
		queries[0]: {{URL: "u", Content: strings.Join(lines, "\n")}},
	}}
	s := openStore(t)
	in := New(Deps{Search: search, Questions: s.Questions()}, DefaultConfig(), nil)

	got, err := in.Ingest(context.Background(), definite, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("got %d questions, want 2", len(got))
	}
}

func TestStripHTML(t *testing.T) {
	in := `<html><head><style>p{}</style><script>var x=1;</script></head>
<body><nav>Home</nav><p>Find   the derivative of <b>x^2</b>.</p><ul><li>Evaluate lim x→0</li></ul></body></html>`
	got := StripHTML(in)
	if strings.Contains(got, "var x") || strings.Contains(got, "Home") || strings.Contains(got, "p{}") {
		t.Errorf("script/style/nav text leaked: %q", got)
	}
	lines := strings.Split(got, "\n")
	if lines[0] != "Find the derivative of x^2." {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.Contains(got, "Evaluate lim x→0") {
		t.Errorf("list item missing: %q", got)
	}
	if StripHTML("  plain text  ") != "plain text" {
		t.Error("plain text should pass through trimmed")
	}
}

func TestTavilySearcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tv-key" {
			t.Errorf("auth = %q", r.Header.Get("Authorization"))
		}
		var req tavilyRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.MaxResults != 5 || req.Query != "limits" {
			t.Errorf("request = %+v", req)
		}
		w.Write([]byte(`{"results":[{"title":"T","url":"https://x","content":"<p>Find lim x→0 sin x / x.</p>","score":0.9}]}`))
	}))
	defer srv.Close()

	ts, err := NewTavilySearcher(nil, TavilyConfig{APIKey: "tv-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	got, err := ts.Search(context.Background(), "limits", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Content != "Find lim x→0 sin x / x." || got[0].URL != "https://x" {
		t.Errorf("results = %+v", got)
	}
}

func TestTavilySearcher_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()
	ts, _ := NewTavilySearcher(nil, TavilyConfig{APIKey: "k", BaseURL: srv.URL})
	if _, err := ts.Search(context.Background(), "q", 1); err == nil {
		t.Fatal("expected error")
	}
	if _, err := NewTavilySearcher(nil, TavilyConfig{}); err == nil {
		t.Fatal("expected missing key error")
	}
}
