package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

type attemptRepo struct {
	db  *sql.DB
	b   *entsql.DialectBuilder
	seq *sequenceCounter
}

func (r *attemptRepo) Append(ctx context.Context, a *Attempt) (string, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return "", err
	}
	a.Sequence = seqNum

	query, args := r.b.Insert(tableAttempts).
		Columns("id", "sequence", "user_id", "question_id", "answer", "is_correct",
			"time_taken", "retries", "hint_used", "mastery_score", "created_at").
		Values(a.ID, a.Sequence, a.UserID, a.QuestionID, a.Answer, a.IsCorrect,
			a.TimeTaken, a.Retries, a.HintUsed, a.MasteryScore, a.CreatedAt).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("append attempt: %w", err)
	}
	return a.ID, nil
}

func (r *attemptRepo) IncorrectStreak(ctx context.Context, userID, questionID int64, window int) (int, error) {
	if window <= 0 {
		window = 5
	}
	t := r.b.Table(tableAttempts)
	query, args := r.b.Select(t.C("is_correct")).
		From(t).
		Where(entsql.And(
			entsql.EQ(t.C("user_id"), userID),
			entsql.EQ(t.C("question_id"), questionID),
		)).
		OrderExpr(entsql.Expr(t.C("sequence") + " DESC")).
		Limit(window).
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("query streak: %w", err)
	}
	defer rows.Close()

	streak := 0
	for rows.Next() {
		var correct bool
		if err := rows.Scan(&correct); err != nil {
			return 0, fmt.Errorf("scan streak: %w", err)
		}
		if correct {
			break
		}
		streak++
	}
	return streak, rows.Err()
}

func (r *attemptRepo) SeenQuestionIDs(ctx context.Context, userID int64, concept string) ([]int64, error) {
	a := r.b.Table(tableAttempts).As("a")
	c := r.b.Table(tableQuestionConcepts).As("qc")
	query, args := r.b.Select(a.C("question_id")).
		Distinct().
		From(a).
		Join(c).On(a.C("question_id"), c.C("question_id")).
		Where(entsql.And(
			entsql.EQ(a.C("user_id"), userID),
			entsql.EQ(c.C("concept_id"), concept),
		)).
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query seen questions: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan seen question: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *attemptRepo) Recent(ctx context.Context, userID int64, limit int) ([]Attempt, error) {
	t := r.b.Table(tableAttempts)
	sel := r.b.Select(t.Columns("id", "sequence", "user_id", "question_id", "answer", "is_correct",
		"time_taken", "retries", "hint_used", "mastery_score", "created_at")...).
		From(t).
		Where(entsql.EQ(t.C("user_id"), userID)).
		OrderExpr(entsql.Expr(t.C("sequence") + " DESC"))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.Sequence, &a.UserID, &a.QuestionID, &a.Answer, &a.IsCorrect,
			&a.TimeTaken, &a.Retries, &a.HintUsed, &a.MasteryScore, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
