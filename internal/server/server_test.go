package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/cognify/internal/conceptgraph"
	"github.com/abhisek/cognify/internal/question"
	"github.com/abhisek/cognify/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakePractice struct {
	startReq  session.StartRequest
	answerReq session.AnswerRequest
	err       error
}

func (f *fakePractice) StartSession(ctx context.Context, req session.StartRequest) (*session.StartResponse, error) {
	f.startReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &session.StartResponse{
		SessionID:      "s-1",
		UserID:         req.UserID,
		Concept:        req.Concept,
		Skill:          1000,
		DifficultyBand: [2]int{3, 4},
		Questions:      []question.View{{ID: 1, Text: "Find the limit.", Type: question.KindNumerical, Difficulty: 3}},
		Count:          1,
	}, nil
}

func (f *fakePractice) SubmitAnswer(ctx context.Context, req session.AnswerRequest) (*session.AnswerResponse, error) {
	f.answerReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &session.AnswerResponse{UserID: req.UserID, QuestionID: req.QuestionID, IsCorrect: true, CMS: 0.9219, OldSkill: 1000, NewSkill: 1016.6}, nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func newTestServer(t *testing.T, p Practice, pinger Pinger) *Server {
	t.Helper()
	g, err := conceptgraph.New([]conceptgraph.Concept{
		{ID: "functions", Topic: "Algebra", DisplayName: "Functions"},
		{ID: "limits", Topic: "Calculus", Prerequisites: []string{"functions"}},
	})
	require.NoError(t, err)
	return New(p, g, pinger, nil)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestStart(t *testing.T) {
	p := &fakePractice{}
	s := newTestServer(t, p, nil)

	rec := do(t, s, http.MethodPost, "/v1/practice/start", `{"user_id":1,"concept":"limits","n":3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp session.StartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, [2]int{3, 4}, resp.DifficultyBand)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, session.StartRequest{UserID: 1, Concept: "limits", N: 3}, p.startReq)
}

func TestStart_Defaults(t *testing.T) {
	p := &fakePractice{}
	s := newTestServer(t, p, nil)

	rec := do(t, s, http.MethodPost, "/v1/practice/start", `{"user_id":1,"topic":"limits"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, DefaultQuestions, p.startReq.N)
	assert.Equal(t, "limits", p.startReq.Concept)
}

func TestStart_ExplicitZeroIsPassedThrough(t *testing.T) {
	p := &fakePractice{}
	s := newTestServer(t, p, nil)

	do(t, s, http.MethodPost, "/v1/practice/start", `{"user_id":1,"concept":"limits","n":0}`)
	assert.Equal(t, 0, p.startReq.N)
}

func TestStart_BadJSON(t *testing.T) {
	s := newTestServer(t, &fakePractice{}, nil)
	rec := do(t, s, http.MethodPost, "/v1/practice/start", `{"user_id":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnswer(t *testing.T) {
	p := &fakePractice{}
	s := newTestServer(t, p, nil)

	rec := do(t, s, http.MethodPost, "/v1/practice/answer",
		`{"user_id":2,"question_id":9,"answer":"2","time_taken":45,"retries":1,"hint_used":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["is_correct"])
	assert.Contains(t, body, "remediation")
	assert.Nil(t, body["remediation"])
	assert.Equal(t, session.AnswerRequest{UserID: 2, QuestionID: 9, Answer: "2", TimeTaken: 45, Retries: 1, HintUsed: true}, p.answerReq)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"validation", &session.ValidationError{Field: "n", Message: "must be between 1 and 20"}, http.StatusBadRequest, "invalid n"},
		{"not found", &session.NotFoundError{Kind: "question", ID: "9"}, http.StatusNotFound, "question 9 not found"},
		{"exhausted", &session.ExhaustionError{Concept: "limits"}, http.StatusNotFound, "no content available"},
		{"timeout", &session.UpstreamTimeoutError{Op: "grade", Err: context.DeadlineExceeded}, http.StatusGatewayTimeout, "grade timed out"},
		{"persistence", &session.PersistenceError{Op: "record attempt", Err: errors.New("disk full")}, http.StatusInternalServerError, "record attempt failed"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &fakePractice{err: tt.err}, nil)
			rec := do(t, s, http.MethodPost, "/v1/practice/answer", `{"user_id":1,"question_id":9,"answer":"2"}`)
			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.msg)
		})
	}
}

func TestConcepts(t *testing.T) {
	s := newTestServer(t, &fakePractice{}, nil)

	rec := do(t, s, http.MethodGet, "/v1/concepts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Concepts []conceptView `json:"concepts"`
		Count    int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)

	rec = do(t, s, http.MethodGet, "/v1/concepts?topic=Calculus", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Concepts, 1)
	assert.Equal(t, "limits", body.Concepts[0].ID)
	assert.Equal(t, "limits", body.Concepts[0].Name)
	assert.Equal(t, []string{"functions"}, body.Concepts[0].Prerequisites)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &fakePractice{}, fakePinger{})
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", "").Code)

	s = newTestServer(t, &fakePractice{}, fakePinger{err: errors.New("db down")})
	assert.Equal(t, http.StatusServiceUnavailable, do(t, s, http.MethodGet, "/healthz", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, &fakePractice{}, nil)
	rec := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cognify_pipeline_exhausted_total")
}
