package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCheckpointer stores one serialized State per session id.
type PostgresCheckpointer struct {
	pool *pgxpool.Pool
}

func NewPostgresCheckpointer(ctx context.Context, databaseURL string) (*PostgresCheckpointer, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initCheckpointSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresCheckpointer{pool: pool}, nil
}

func initCheckpointSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS session_checkpoints (
			session_id TEXT PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			state JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_session_checkpoints_updated ON session_checkpoints (updated_at);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init checkpoint schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (c *PostgresCheckpointer) Save(ctx context.Context, s *State) error {
	payload, err := json.Marshal(checkpointEnvelope{SchemaVersion: schemaVersion, State: s})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	_, err = c.pool.Exec(ctx,
		`INSERT INTO session_checkpoints (session_id, schema_version, state, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id) DO UPDATE SET
			schema_version=EXCLUDED.schema_version,
			state=EXCLUDED.state,
			updated_at=EXCLUDED.updated_at`,
		s.ID, schemaVersion, payload, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

func (c *PostgresCheckpointer) Load(ctx context.Context, id string) (*State, error) {
	var (
		version int
		payload []byte
	)
	err := c.pool.QueryRow(ctx,
		`SELECT schema_version, state FROM session_checkpoints WHERE session_id=$1`, id,
	).Scan(&version, &payload)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if version > schemaVersion {
		return nil, fmt.Errorf("checkpoint schema version %d is newer than supported %d", version, schemaVersion)
	}

	var env checkpointEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	if env.State == nil {
		return nil, ErrNotFound
	}
	return env.State, nil
}

func (c *PostgresCheckpointer) Delete(ctx context.Context, id string) error {
	if _, err := c.pool.Exec(ctx, `DELETE FROM session_checkpoints WHERE session_id=$1`, id); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

func (c *PostgresCheckpointer) Close() error {
	c.pool.Close()
	return nil
}
