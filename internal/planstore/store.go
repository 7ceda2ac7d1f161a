package planstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/yangjx/studymate/internal/plan"
)

// ErrNotFound is returned when a plan id has no stored record.
var ErrNotFound = errors.New("plan not found")

// Ref identifies a saved plan.
type Ref struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	SavedAt   time.Time `json:"saved_at"`
}

// Saved is a stored plan plus the per-day note stubs generated at save time.
type Saved struct {
	Ref      Ref
	Record   plan.Record
	Markdown string
	DayNotes map[int]string
}

// Store persists finalized learning plans.
type Store interface {
	SavePlan(ctx context.Context, sessionID string, rec plan.Record) (Ref, error)
	GetPlan(ctx context.Context, id string) (Saved, error)
	ListRecent(ctx context.Context, limit int) ([]Ref, error)
	Close() error
}

// NewStore creates a postgres-backed store when configured, otherwise in-memory.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryStore(), nil
	}
	return NewPostgresStore(ctx, databaseURL)
}

func dayNotes(rec plan.Record) map[int]string {
	notes := make(map[int]string, len(rec.Days))
	for _, d := range rec.Days {
		notes[d.Day] = plan.DayNote(d)
	}
	return notes
}
