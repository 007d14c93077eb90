package memory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSupermemory_GetState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/documents" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if q := r.URL.Query().Get("q"); q != "learner_profile user:42" {
			t.Errorf("q = %q", q)
		}
		if r.Header.Get("Authorization") != "Bearer sm-key" {
			t.Errorf("auth = %q", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`{"results":[{"metadata":{"weak_concepts":"limits, vectors","slow_solver":"true","hint_dependency":"medium"}}]}`))
	}))
	defer srv.Close()

	s, err := NewSupermemoryStore(nil, SupermemoryConfig{APIKey: "sm-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	st, err := s.GetState(context.Background(), 42)
	if err != nil {
		t.Fatal(err)
	}
	if len(st.WeakConcepts) != 2 || st.WeakConcepts[1] != "vectors" || !st.SlowSolver || st.HintDependency != "medium" {
		t.Errorf("state = %+v", st)
	}
}

func TestSupermemory_GetStateEmptyIsDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	s, _ := NewSupermemoryStore(nil, SupermemoryConfig{APIKey: "k", BaseURL: srv.URL})
	st, err := s.GetState(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if st.HintDependency != "low" || len(st.WeakConcepts) != 0 {
		t.Errorf("state = %+v", st)
	}
}

func TestSupermemory_WriteSummary(t *testing.T) {
	var got documentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"doc_1"}`))
	}))
	defer srv.Close()

	s, _ := NewSupermemoryStore(nil, SupermemoryConfig{APIKey: "k", BaseURL: srv.URL})
	err := s.WriteSummary(context.Background(), 9, "User 9 attempted ...", map[string]string{"concept": "limits"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "User 9 attempted ..." {
		t.Errorf("content = %q", got.Content)
	}
	want := map[string]string{"user_id": "9", "type": "session_summary", "concept": "limits"}
	for k, v := range want {
		if got.Metadata[k] != v {
			t.Errorf("metadata[%s] = %q, want %q", k, got.Metadata[k], v)
		}
	}
}

func TestSupermemory_HTTPErrorReturnsDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s, _ := NewSupermemoryStore(nil, SupermemoryConfig{APIKey: "k", BaseURL: srv.URL})
	st, err := s.GetState(context.Background(), 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if st.HintDependency != "low" {
		t.Errorf("state on error = %+v", st)
	}
}
