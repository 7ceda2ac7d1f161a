package planstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yangjx/studymate/internal/plan"
)

// PostgresStore persists finalized plans and their day notes in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS plans (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			title TEXT NOT NULL,
			markdown TEXT NOT NULL,
			record JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_plans_created ON plans (created_at);`,
		`CREATE TABLE IF NOT EXISTS plan_notes (
			plan_id TEXT NOT NULL REFERENCES plans(id) ON DELETE CASCADE,
			day INT NOT NULL,
			note TEXT NOT NULL,
			PRIMARY KEY (plan_id, day)
		);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) SavePlan(ctx context.Context, sessionID string, rec plan.Record) (Ref, error) {
	ref := Ref{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Title:     rec.Title,
		SavedAt:   time.Now().UTC(),
	}

	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return Ref{}, fmt.Errorf("marshal plan record: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Ref{}, fmt.Errorf("begin save plan: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO plans (id, session_id, title, markdown, record, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ref.ID, ref.SessionID, ref.Title, plan.RenderMarkdown(rec), recordJSON, ref.SavedAt,
	)
	if err != nil {
		return Ref{}, fmt.Errorf("save plan: %w", err)
	}

	for day, note := range dayNotes(rec) {
		if _, err := tx.Exec(ctx,
			`INSERT INTO plan_notes (plan_id, day, note) VALUES ($1, $2, $3)`,
			ref.ID, day, note,
		); err != nil {
			return Ref{}, fmt.Errorf("save day note %d: %w", day, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Ref{}, fmt.Errorf("commit save plan: %w", err)
	}
	return ref, nil
}

func (s *PostgresStore) GetPlan(ctx context.Context, id string) (Saved, error) {
	var saved Saved
	var recordJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, session_id, title, markdown, record, created_at FROM plans WHERE id=$1`,
		id,
	).Scan(&saved.Ref.ID, &saved.Ref.SessionID, &saved.Ref.Title, &saved.Markdown, &recordJSON, &saved.Ref.SavedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Saved{}, ErrNotFound
		}
		return Saved{}, fmt.Errorf("get plan: %w", err)
	}
	if err := json.Unmarshal(recordJSON, &saved.Record); err != nil {
		return Saved{}, fmt.Errorf("decode plan record: %w", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT day, note FROM plan_notes WHERE plan_id=$1`, id)
	if err != nil {
		return Saved{}, fmt.Errorf("query day notes: %w", err)
	}
	defer rows.Close()

	saved.DayNotes = make(map[int]string)
	for rows.Next() {
		var day int
		var note string
		if err := rows.Scan(&day, &note); err != nil {
			return Saved{}, fmt.Errorf("scan day note: %w", err)
		}
		saved.DayNotes[day] = note
	}
	if err := rows.Err(); err != nil {
		return Saved{}, fmt.Errorf("iterate day notes: %w", err)
	}
	return saved, nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Ref, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, title, created_at FROM plans ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent plans: %w", err)
	}
	defer rows.Close()

	refs := make([]Ref, 0, limit)
	for rows.Next() {
		var r Ref
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Title, &r.SavedAt); err != nil {
			return nil, fmt.Errorf("scan plan ref: %w", err)
		}
		refs = append(refs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plan refs: %w", err)
	}
	return refs, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
