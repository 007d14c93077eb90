package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

type skillRepo struct {
	db *sql.DB
	b  *entsql.DialectBuilder
}

func (r *skillRepo) Get(ctx context.Context, userID int64, concept string) (float64, bool, error) {
	t := r.b.Table(tableSkills)
	query, args := r.b.Select(t.C("rating")).
		From(t).
		Where(entsql.And(
			entsql.EQ(t.C("user_id"), userID),
			entsql.EQ(t.C("concept_id"), concept),
		)).
		Query()

	var rating float64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&rating)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get skill %d/%s: %w", userID, concept, err)
	}
	return rating, true, nil
}

// Upsert is a plain last-writer-wins replace. Two concurrent
// read-update-upsert sequences on the same pair can lose one update.
func (r *skillRepo) Upsert(ctx context.Context, userID int64, concept string, rating float64) error {
	query, args := r.b.Insert(tableSkills).
		Columns("user_id", "concept_id", "rating", "updated_at").
		Values(userID, concept, rating, time.Now().UTC()).
		OnConflict(
			entsql.ConflictColumns("user_id", "concept_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("rating")
				u.SetExcluded("updated_at")
			}),
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert skill %d/%s: %w", userID, concept, err)
	}
	return nil
}

func (r *skillRepo) ForUser(ctx context.Context, userID int64) (map[string]float64, error) {
	t := r.b.Table(tableSkills)
	query, args := r.b.Select(t.C("concept_id"), t.C("rating")).
		From(t).
		Where(entsql.EQ(t.C("user_id"), userID)).
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list skills for %d: %w", userID, err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var (
			concept string
			rating  float64
		)
		if err := rows.Scan(&concept, &rating); err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}
		out[concept] = rating
	}
	return out, rows.Err()
}
