package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrNotFound = errors.New("session not found")

// Manager owns all session state for the process. It is the only mutable
// shared resource of the turn loop: the executor borrows a clone for one
// turn and writes it back through Put exactly once per completed turn.
//
// An optional Checkpointer receives a durable copy on every Put and is
// consulted on a Get miss, so a restarted process resumes mid-conversation.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*State

	turnMu    sync.Mutex
	turnLocks map[string]*sync.Mutex

	checkpoint Checkpointer
}

func NewManager(checkpoint Checkpointer) *Manager {
	return &Manager{
		sessions:   make(map[string]*State),
		turnLocks:  make(map[string]*sync.Mutex),
		checkpoint: checkpoint,
	}
}

// Get returns a clone of the stored state, falling back to the durable
// checkpoint when the in-memory map has no entry.
func (m *Manager) Get(ctx context.Context, id string) (*State, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return s.Clone(), nil
	}

	if m.checkpoint == nil {
		return nil, ErrNotFound
	}
	restored, err := m.checkpoint.Load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	m.mu.Lock()
	// Another goroutine may have raced the restore; keep whichever is there.
	if existing, ok := m.sessions[id]; ok {
		restored = existing
	} else {
		m.sessions[id] = restored
	}
	m.mu.Unlock()
	log.Debug().Str("session", id).Msg("session restored from checkpoint")
	return restored.Clone(), nil
}

// Put stores the state and writes the durable checkpoint. The checkpoint
// write is part of the turn contract: a failure is reported to the caller
// rather than silently dropped.
func (m *Manager) Put(ctx context.Context, id string, s *State) error {
	c := s.Clone()
	c.ID = id
	c.UpdatedAt = time.Now().UTC()

	m.mu.Lock()
	m.sessions[id] = c
	m.mu.Unlock()

	if m.checkpoint == nil {
		return nil
	}
	return m.checkpoint.Save(ctx, c)
}

// CreateDefault seeds a fresh session: status start, the first user message
// both as subject and as the opening transcript entry.
func (m *Manager) CreateDefault(ctx context.Context, id, firstMessage string) (*State, error) {
	now := time.Now().UTC()
	s := &State{
		ID:        id,
		Subject:   firstMessage,
		Status:    StatusStart,
		Messages:  []Message{{Role: RoleUser, Content: firstMessage}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	if m.checkpoint != nil {
		if err := m.checkpoint.Save(ctx, s); err != nil {
			return nil, err
		}
	}
	return s.Clone(), nil
}

// AcquireTurn serializes turns of the same session: the returned release
// function must be called when the turn finishes. Turns for distinct
// sessions proceed independently.
func (m *Manager) AcquireTurn(id string) (release func()) {
	m.turnMu.Lock()
	lock, ok := m.turnLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.turnLocks[id] = lock
	}
	m.turnMu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Delete removes a session from memory and from the durable checkpoint.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	m.turnMu.Lock()
	delete(m.turnLocks, id)
	m.turnMu.Unlock()

	if m.checkpoint == nil {
		return nil
	}
	return m.checkpoint.Delete(ctx, id)
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ActiveCount reports sessions that have not reached the terminal status.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.sessions {
		if s.Status != StatusEnd {
			count++
		}
	}
	return count
}
