package session

import (
	"context"
	"strings"
)

// NewCheckpointer creates a postgres-backed checkpointer when configured,
// otherwise nil (in-memory only).
func NewCheckpointer(ctx context.Context, databaseURL string) (Checkpointer, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, nil
	}
	return NewPostgresCheckpointer(ctx, databaseURL)
}
