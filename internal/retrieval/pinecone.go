package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/abhisek/cognify/internal/logger"
	"github.com/abhisek/cognify/internal/question"
)

// PineconeConfig configures the Pinecone data-plane client.
type PineconeConfig struct {
	APIKey string
	// Host is the index host, with or without scheme.
	Host       string
	Namespace  string
	APIVersion string
	Timeout    time.Duration
}

// PineconeIndex is an Index backed by the Pinecone REST data plane.
type PineconeIndex struct {
	log  *logger.Logger
	cfg  PineconeConfig
	base string
	http *http.Client
}

func NewPineconeIndex(log *logger.Logger, cfg PineconeConfig) (*PineconeIndex, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing Pinecone API key")
	}
	host := strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	if host == "" {
		return nil, fmt.Errorf("missing Pinecone index host")
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	if strings.TrimSpace(cfg.APIVersion) == "" {
		cfg.APIVersion = "2025-10"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &PineconeIndex{
		log:  logger.OrNop(log).With("client", "PineconeIndex"),
		cfg:  cfg,
		base: host,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type pineconeVector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type upsertRequest struct {
	Vectors   []pineconeVector `json:"vectors"`
	Namespace string           `json:"namespace,omitempty"`
}

type upsertResponse struct {
	UpsertedCount int64 `json:"upsertedCount"`
}

type queryRequest struct {
	Namespace       string         `json:"namespace,omitempty"`
	Vector          []float32      `json:"vector"`
	TopK            int            `json:"topK"`
	Filter          map[string]any `json:"filter,omitempty"`
	IncludeValues   bool           `json:"includeValues"`
	IncludeMetadata bool           `json:"includeMetadata"`
}

type queryMatch struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type queryResponse struct {
	Matches []queryMatch `json:"matches"`
}

func (p *PineconeIndex) Upsert(ctx context.Context, id string, vector []float32, rec Record) error {
	if id == "" {
		return fmt.Errorf("vector id required")
	}
	req := upsertRequest{
		Vectors:   []pineconeVector{{ID: id, Values: vector, Metadata: encodeMetadata(rec)}},
		Namespace: p.cfg.Namespace,
	}
	out, err := doJSON[upsertResponse](p, ctx, http.MethodPost, p.base+"/vectors/upsert", req)
	if err != nil {
		return err
	}
	p.log.Debug("vector upserted", "id", id, "count", out.UpsertedCount)
	return nil
}

func (p *PineconeIndex) Query(ctx context.Context, vector []float32, f Filter, topK int) ([]Match, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector required")
	}
	if topK <= 0 {
		topK = 10
	}
	req := queryRequest{
		Namespace:       p.cfg.Namespace,
		Vector:          vector,
		TopK:            topK,
		Filter:          buildFilter(f),
		IncludeMetadata: true,
	}
	out, err := doJSON[queryResponse](p, ctx, http.MethodPost, p.base+"/query", req)
	if err != nil {
		return nil, err
	}
	matches := make([]Match, 0, len(out.Matches))
	for _, m := range out.Matches {
		rec, ok := decodeMetadata(m.Metadata)
		if !ok {
			p.log.Debug("skipping match without text", "id", m.ID)
			continue
		}
		matches = append(matches, Match{ID: m.ID, Score: m.Score, Record: rec})
	}
	return matches, nil
}

func buildFilter(f Filter) map[string]any {
	filter := map[string]any{}
	if f.Concept != "" {
		filter["subtopics"] = map[string]any{"$in": []string{f.Concept}}
	}
	if f.Difficulty != 0 {
		filter["difficulty"] = map[string]any{"$eq": f.Difficulty}
	}
	if len(filter) == 0 {
		return nil
	}
	return filter
}

// encodeMetadata flattens a record into Pinecone's metadata value types.
// Options are stored as a JSON object string.
func encodeMetadata(r Record) map[string]any {
	md := map[string]any{
		"text":       truncateRunes(r.Text, MaxMetadataText),
		"kind":       string(r.Kind),
		"subtopics":  r.Subtopics,
		"difficulty": r.Difficulty,
	}
	if len(r.Options) > 0 {
		if b, err := json.Marshal(r.Options); err == nil {
			md["options"] = string(b)
		}
	}
	if r.CorrectOption != "" {
		md["correct_option"] = r.CorrectOption
	}
	if r.CorrectAnswer != "" {
		md["correct_answer"] = r.CorrectAnswer
	}
	if r.SourceURL != "" {
		md["source_url"] = r.SourceURL
	}
	if r.ContentHash != "" {
		md["text_hash"] = r.ContentHash
	}
	if r.Provenance != "" {
		md["provenance"] = string(r.Provenance)
	}
	return md
}

func decodeMetadata(md map[string]any) (Record, bool) {
	text, _ := md["text"].(string)
	if strings.TrimSpace(text) == "" {
		return Record{}, false
	}
	r := Record{Text: text}
	if k, _ := md["kind"].(string); k != "" {
		r.Kind = question.Kind(k)
	}
	switch subs := md["subtopics"].(type) {
	case []any:
		for _, s := range subs {
			if str, ok := s.(string); ok {
				r.Subtopics = append(r.Subtopics, str)
			}
		}
	case []string:
		r.Subtopics = append(r.Subtopics, subs...)
	}
	switch d := md["difficulty"].(type) {
	case float64:
		r.Difficulty = int(d)
	case int:
		r.Difficulty = d
	}
	if raw, _ := md["options"].(string); raw != "" {
		var opts map[string]string
		if err := json.Unmarshal([]byte(raw), &opts); err == nil {
			r.Options = opts
		}
	}
	r.CorrectOption, _ = md["correct_option"].(string)
	r.CorrectAnswer, _ = md["correct_answer"].(string)
	r.SourceURL, _ = md["source_url"].(string)
	r.ContentHash, _ = md["text_hash"].(string)
	if p, _ := md["provenance"].(string); p != "" {
		r.Provenance = question.Provenance(p)
	}
	if r.Kind == "" {
		r.Kind = question.KindNumerical
		if len(r.Options) > 0 {
			r.Kind = question.KindMCQ
		}
	}
	return r, true
}

func doJSON[T any](p *PineconeIndex, ctx context.Context, method, url string, body any) (*T, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Api-Key", p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Pinecone-Api-Version", p.cfg.APIVersion)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("pinecone http %d: %s", resp.StatusCode, string(raw))
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("pinecone decode error: %w", err)
	}
	return &out, nil
}
