package planstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yangjx/studymate/internal/plan"
)

// InMemoryStore is a simple in-process plan store for local/dev use.
type InMemoryStore struct {
	mu    sync.RWMutex
	plans map[string]Saved
	order []string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{plans: make(map[string]Saved)}
}

func (s *InMemoryStore) SavePlan(_ context.Context, sessionID string, rec plan.Record) (Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref := Ref{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Title:     rec.Title,
		SavedAt:   time.Now().UTC(),
	}
	s.plans[ref.ID] = Saved{
		Ref:      ref,
		Record:   rec,
		Markdown: plan.RenderMarkdown(rec),
		DayNotes: dayNotes(rec),
	}
	s.order = append(s.order, ref.ID)
	return ref, nil
}

func (s *InMemoryStore) GetPlan(_ context.Context, id string) (Saved, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	saved, ok := s.plans[id]
	if !ok {
		return Saved{}, ErrNotFound
	}
	return saved, nil
}

func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]Ref, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.order) {
		limit = len(s.order)
	}
	out := make([]Ref, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.plans[s.order[i]].Ref)
	}
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
