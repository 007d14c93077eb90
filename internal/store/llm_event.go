package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var llmEventColumns = []string{
	"id", "sequence", "created_at", "provider", "model", "purpose",
	"input_tokens", "output_tokens", "latency_ms", "success",
	"error_message", "request_body", "response_body",
}

// eventRepo implements EventRepo backed by the llm_events table and the
// global sequence counter.
type eventRepo struct {
	db  *sql.DB
	b   *entsql.DialectBuilder
	seq *sequenceCounter
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := r.b.Insert(tableLLMEvents).
		Columns(llmEventColumns[1:]...).
		Values(seqNum, time.Now().UTC(), data.Provider, data.Model, data.Purpose,
			data.InputTokens, data.OutputTokens, data.LatencyMs, data.Success,
			data.ErrorMessage, data.RequestBody, data.ResponseBody).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error) {
	t := r.b.Table(tableLLMEvents)
	var preds []*entsql.Predicate
	if opts.Purpose != "" {
		preds = append(preds, entsql.EQ(t.C("purpose"), opts.Purpose))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE(t.C("created_at"), opts.From.UTC()))
	}

	sel := r.b.Select(t.Columns(llmEventColumns...)...).
		From(t).
		OrderExpr(entsql.Expr(t.C("sequence") + " DESC"))
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
	query, args := sel.Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	defer rows.Close()

	var out []LLMEvent
	for rows.Next() {
		e, err := scanLLMEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *eventRepo) GetLLMEvent(ctx context.Context, id int64) (*LLMEvent, error) {
	t := r.b.Table(tableLLMEvents)
	query, args := r.b.Select(t.Columns(llmEventColumns...)...).
		From(t).
		Where(entsql.EQ(t.C("id"), id)).
		Query()
	e, err := scanLLMEvent(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

func (r *eventRepo) UsageByPurpose(ctx context.Context) ([]LLMUsageStats, error) {
	events, err := r.QueryLLMEvents(ctx, QueryOpts{})
	if err != nil {
		return nil, err
	}

	byPurpose := make(map[string]*LLMUsageStats)
	var order []string
	latency := make(map[string]int64)
	for _, e := range events {
		s, ok := byPurpose[e.Purpose]
		if !ok {
			s = &LLMUsageStats{Purpose: e.Purpose}
			byPurpose[e.Purpose] = s
			order = append(order, e.Purpose)
		}
		s.Calls++
		if !e.Success {
			s.Failures++
		}
		s.InputTokens += int64(e.InputTokens)
		s.OutputTokens += int64(e.OutputTokens)
		latency[e.Purpose] += e.LatencyMs
	}

	sort.Strings(order)
	out := make([]LLMUsageStats, 0, len(order))
	for _, p := range order {
		s := byPurpose[p]
		s.AvgLatencyMs = float64(latency[p]) / float64(s.Calls)
		out = append(out, *s)
	}
	return out, nil
}

func (r *eventRepo) UsageByModel(ctx context.Context) ([]LLMModelUsage, error) {
	events, err := r.QueryLLMEvents(ctx, QueryOpts{})
	if err != nil {
		return nil, err
	}
	byModel := make(map[string]*LLMModelUsage)
	for _, e := range events {
		u, ok := byModel[e.Model]
		if !ok {
			u = &LLMModelUsage{Model: e.Model}
			byModel[e.Model] = u
		}
		u.Calls++
		u.InputTokens += int64(e.InputTokens)
		u.OutputTokens += int64(e.OutputTokens)
	}
	out := make([]LLMModelUsage, 0, len(byModel))
	for _, u := range byModel {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Calls != out[j].Calls {
			return out[i].Calls > out[j].Calls
		}
		return out[i].Model < out[j].Model
	})
	return out, nil
}

func scanLLMEvent(row rowScanner) (*LLMEvent, error) {
	var e LLMEvent
	err := row.Scan(&e.ID, &e.Sequence, &e.Timestamp, &e.Provider, &e.Model, &e.Purpose,
		&e.InputTokens, &e.OutputTokens, &e.LatencyMs, &e.Success,
		&e.ErrorMessage, &e.RequestBody, &e.ResponseBody)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan LLM event: %w", err)
	}
	return &e, nil
}
