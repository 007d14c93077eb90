package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/abhisek/cognify/internal/logger"
)

const defaultSupermemoryURL = "https://api.supermemory.ai/v3"

// SupermemoryConfig configures the Supermemory REST client.
type SupermemoryConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// SupermemoryStore keeps memory as Supermemory documents.
type SupermemoryStore struct {
	log  *logger.Logger
	cfg  SupermemoryConfig
	http *http.Client
}

func NewSupermemoryStore(log *logger.Logger, cfg SupermemoryConfig) (*SupermemoryStore, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing Supermemory API key")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultSupermemoryURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SupermemoryStore{
		log:  logger.OrNop(log).With("client", "SupermemoryStore"),
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type documentsResponse struct {
	Results []struct {
		Metadata map[string]any `json:"metadata"`
	} `json:"results"`
}

type documentRequest struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

func (s *SupermemoryStore) GetState(ctx context.Context, userID int64) (State, error) {
	q := url.Values{}
	q.Set("q", fmt.Sprintf("learner_profile user:%d", userID))
	q.Set("limit", "1")
	u := strings.TrimRight(s.cfg.BaseURL, "/") + "/documents?" + q.Encode()

	raw, err := s.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return DefaultState(), err
	}
	var out documentsResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return DefaultState(), fmt.Errorf("supermemory decode error: %w", err)
	}
	if len(out.Results) == 0 || out.Results[0].Metadata == nil {
		return DefaultState(), nil
	}
	return stateFromMetadata(out.Results[0].Metadata), nil
}

func (s *SupermemoryStore) WriteSummary(ctx context.Context, userID int64, text string, metadata map[string]string) error {
	md := map[string]string{
		"user_id": strconv.FormatInt(userID, 10),
		"type":    "session_summary",
	}
	for k, v := range metadata {
		md[k] = v
	}
	body, err := json.Marshal(documentRequest{Content: text, Metadata: md})
	if err != nil {
		return err
	}
	u := strings.TrimRight(s.cfg.BaseURL, "/") + "/documents"
	if _, err := s.do(ctx, http.MethodPost, u, body); err != nil {
		return err
	}
	s.log.Debug("summary written", "user_id", userID)
	return nil
}

func (s *SupermemoryStore) do(ctx context.Context, method, u string, body []byte) ([]byte, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("supermemory http %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}

// stateFromMetadata tolerates list or comma-separated weak concepts and
// string or bool flags.
func stateFromMetadata(md map[string]any) State {
	st := DefaultState()
	switch v := md["weak_concepts"].(type) {
	case []any:
		for _, c := range v {
			if s, ok := c.(string); ok && s != "" {
				st.WeakConcepts = append(st.WeakConcepts, s)
			}
		}
	case string:
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				st.WeakConcepts = append(st.WeakConcepts, c)
			}
		}
	}
	switch v := md["slow_solver"].(type) {
	case bool:
		st.SlowSolver = v
	case string:
		st.SlowSolver, _ = strconv.ParseBool(v)
	}
	if v, ok := md["hint_dependency"].(string); ok {
		st.HintDependency = v
	}
	return normalize(st)
}
