package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/cognify/internal/question"
)

var questionColumns = []string{
	"id", "text", "kind", "options", "correct_option", "correct_answer",
	"subtopics", "difficulty", "content_hash", "provenance", "source_url",
	"embedding_ref", "created_at",
}

type questionRepo struct {
	db *sql.DB
	b  *entsql.DialectBuilder
}

func (r *questionRepo) Insert(ctx context.Context, q *question.Question) (int64, bool, error) {
	if q.ContentHash == "" {
		q.ContentHash = question.ContentHash(q.Text)
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	if q.Provenance == "" {
		q.Provenance = question.ProvenanceCache
	}

	kind, options, correctOption, correctAnswer, err := encodeAnswer(q.Answer)
	if err != nil {
		return 0, false, err
	}
	subtopics, err := json.Marshal(nonNil(q.Subtopics))
	if err != nil {
		return 0, false, fmt.Errorf("encode subtopics: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin insert question: %w", err)
	}
	defer tx.Rollback()

	query, args := r.b.Insert(tableQuestions).
		Columns(questionColumns[1:]...).
		Values(q.Text, string(kind), options, correctOption, correctAnswer,
			string(subtopics), question.ClampDifficulty(q.Difficulty), q.ContentHash,
			string(q.Provenance), q.SourceURL, q.EmbeddingRef, q.CreatedAt).
		OnConflict(entsql.ConflictColumns("content_hash"), entsql.DoNothing()).
		Query()
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, false, fmt.Errorf("insert question: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("insert question: %w", err)
	}

	t := r.b.Table(tableQuestions)
	if affected == 0 {
		// Duplicate: the stored row wins and keeps its own concept links.
		query, args = r.b.Select(t.Columns(questionColumns...)...).
			From(t).
			Where(entsql.EQ(t.C("content_hash"), q.ContentHash)).
			Query()
		existing, err := scanQuestion(tx.QueryRowContext(ctx, query, args...))
		if err != nil {
			return 0, false, fmt.Errorf("load existing question: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return 0, false, fmt.Errorf("commit insert question: %w", err)
		}
		*q = *existing
		return q.ID, false, nil
	}

	query, args = r.b.Select(t.C("id")).From(t).Where(entsql.EQ(t.C("content_hash"), q.ContentHash)).Query()
	var id int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, false, fmt.Errorf("resolve question id: %w", err)
	}

	for _, concept := range q.Subtopics {
		if concept == "" {
			continue
		}
		query, args := r.b.Insert(tableQuestionConcepts).
			Columns("question_id", "concept_id").
			Values(id, concept).
			OnConflict(entsql.ConflictColumns("question_id", "concept_id"), entsql.DoNothing()).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, false, fmt.Errorf("link question concept: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("commit insert question: %w", err)
	}
	q.ID = id
	return id, true, nil
}

func (r *questionRepo) Get(ctx context.Context, id int64) (*question.Question, error) {
	t := r.b.Table(tableQuestions)
	query, args := r.b.Select(t.Columns(questionColumns...)...).
		From(t).
		Where(entsql.EQ(t.C("id"), id)).
		Query()

	q, err := scanQuestion(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get question %d: %w", id, err)
	}
	return q, nil
}

func (r *questionRepo) Cached(ctx context.Context, cq CacheQuery) ([]*question.Question, error) {
	if cq.Limit <= 0 {
		return nil, nil
	}
	q := r.b.Table(tableQuestions).As("q")
	c := r.b.Table(tableQuestionConcepts).As("qc")

	preds := []*entsql.Predicate{
		entsql.EQ(c.C("concept_id"), cq.Concept),
	}
	if cq.MinDifficulty > 0 {
		preds = append(preds, entsql.GTE(q.C("difficulty"), cq.MinDifficulty))
	}
	if cq.MaxDifficulty > 0 {
		preds = append(preds, entsql.LTE(q.C("difficulty"), cq.MaxDifficulty))
	}
	if len(cq.Exclude) > 0 {
		ids := make([]any, len(cq.Exclude))
		for i, id := range cq.Exclude {
			ids[i] = id
		}
		preds = append(preds, entsql.NotIn(q.C("id"), ids...))
	}

	query, args := r.b.Select(q.Columns(questionColumns...)...).
		From(q).
		Join(c).On(q.C("id"), c.C("question_id")).
		Where(entsql.And(preds...)).
		OrderExpr(entsql.Expr("RANDOM()")).
		Limit(cq.Limit).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cached questions: %w", err)
	}
	defer rows.Close()

	var out []*question.Question
	for rows.Next() {
		item, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cached question: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *questionRepo) List(ctx context.Context, afterID int64, limit int) ([]*question.Question, error) {
	if limit <= 0 {
		limit = 100
	}
	t := r.b.Table(tableQuestions)
	query, args := r.b.Select(t.Columns(questionColumns...)...).
		From(t).
		Where(entsql.GT(t.C("id"), afterID)).
		OrderBy(t.C("id")).
		Limit(limit).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var out []*question.Question
	for rows.Next() {
		item, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *questionRepo) CountByConcept(ctx context.Context, concept string) (int, error) {
	c := r.b.Table(tableQuestionConcepts)
	query, args := r.b.Select(entsql.Count("*")).
		From(c).
		Where(entsql.EQ(c.C("concept_id"), concept)).
		Query()
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count questions for %s: %w", concept, err)
	}
	return n, nil
}

func (r *questionRepo) CountsByConcept(ctx context.Context) (map[string]int, error) {
	c := r.b.Table(tableQuestionConcepts)
	query, args := r.b.Select(c.C("concept_id"), entsql.Count("*")).
		From(c).
		GroupBy(c.C("concept_id")).
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count questions by concept: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			concept string
			n       int
		)
		if err := rows.Scan(&concept, &n); err != nil {
			return nil, fmt.Errorf("scan concept count: %w", err)
		}
		out[concept] = n
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (*question.Question, error) {
	var (
		q                                        question.Question
		kind, options, correctOption, correctAns string
		subtopics, provenance                    string
	)
	err := row.Scan(&q.ID, &q.Text, &kind, &options, &correctOption, &correctAns,
		&subtopics, &q.Difficulty, &q.ContentHash, &provenance, &q.SourceURL,
		&q.EmbeddingRef, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	q.Provenance = question.Provenance(provenance)
	if subtopics != "" {
		if err := json.Unmarshal([]byte(subtopics), &q.Subtopics); err != nil {
			return nil, fmt.Errorf("decode subtopics: %w", err)
		}
	}
	q.Answer, err = decodeAnswer(question.Kind(kind), options, correctOption, correctAns)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func encodeAnswer(a question.Answer) (kind question.Kind, options, correctOption, correctAnswer string, err error) {
	switch v := a.(type) {
	case question.MCQ:
		raw, err := json.Marshal(v.Options)
		if err != nil {
			return "", "", "", "", fmt.Errorf("encode options: %w", err)
		}
		return question.KindMCQ, string(raw), v.CorrectOption, "", nil
	case question.Numerical:
		return question.KindNumerical, "", "", v.CorrectAnswer, nil
	case nil:
		return question.KindNumerical, "", "", "", nil
	default:
		return "", "", "", "", fmt.Errorf("unsupported answer type %T", a)
	}
}

func decodeAnswer(kind question.Kind, options, correctOption, correctAnswer string) (question.Answer, error) {
	if kind != question.KindMCQ {
		return question.Numerical{CorrectAnswer: correctAnswer}, nil
	}
	m := question.MCQ{CorrectOption: correctOption}
	if options != "" {
		if err := json.Unmarshal([]byte(options), &m.Options); err != nil {
			return nil, fmt.Errorf("decode options: %w", err)
		}
	}
	return m, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
