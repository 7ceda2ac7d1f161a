package session

import (
	"context"
	"sync"
	"testing"
)

func TestManagerCreateDefaultSeedsState(t *testing.T) {
	m := NewManager(nil)
	s, err := m.CreateDefault(context.Background(), "s1", "我想学习Python")
	if err != nil {
		t.Fatalf("CreateDefault() error = %v", err)
	}
	if s.Status != StatusStart {
		t.Fatalf("Status = %q, want %q", s.Status, StatusStart)
	}
	if s.Subject != "我想学习Python" {
		t.Fatalf("Subject = %q", s.Subject)
	}
	if len(s.Messages) != 1 || s.Messages[0].Role != RoleUser {
		t.Fatalf("seed transcript = %+v", s.Messages)
	}
}

func TestManagerGetReturnsClone(t *testing.T) {
	m := NewManager(nil)
	if _, err := m.CreateDefault(context.Background(), "s1", "hello"); err != nil {
		t.Fatalf("CreateDefault() error = %v", err)
	}

	got, err := m.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	got.Status = StatusEnd
	got.AppendAssistant("mutated")

	again, err := m.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if again.Status != StatusStart {
		t.Fatalf("stored status changed through clone: %q", again.Status)
	}
	if len(again.Messages) != 1 {
		t.Fatalf("stored transcript changed through clone: %d messages", len(again.Messages))
	}
}

func TestManagerGetMissing(t *testing.T) {
	m := NewManager(nil)
	if _, err := m.Get(context.Background(), "nope"); err != ErrNotFound {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestManagerSessionIsolation(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			s, err := m.CreateDefault(ctx, id, "subject-"+id)
			if err != nil {
				t.Errorf("CreateDefault(%s) error = %v", id, err)
				return
			}
			for i := 0; i < 50; i++ {
				s.AppendAssistant("reply-" + id)
				if err := m.Put(ctx, id, s); err != nil {
					t.Errorf("Put(%s) error = %v", id, err)
					return
				}
			}
		}(id)
	}
	wg.Wait()

	for _, id := range []string{"a", "b"} {
		s, err := m.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", id, err)
		}
		if s.Subject != "subject-"+id {
			t.Fatalf("session %s observed foreign subject %q", id, s.Subject)
		}
		for _, msg := range s.Messages {
			if msg.Role == RoleAssistant && msg.Content != "reply-"+id {
				t.Fatalf("session %s observed foreign message %q", id, msg.Content)
			}
		}
	}
}

func TestManagerAcquireTurnSerializes(t *testing.T) {
	m := NewManager(nil)

	var inTurn, maxInTurn int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := m.AcquireTurn("same")
			defer release()
			mu.Lock()
			inTurn++
			if inTurn > maxInTurn {
				maxInTurn = inTurn
			}
			mu.Unlock()
			mu.Lock()
			inTurn--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxInTurn != 1 {
		t.Fatalf("concurrent turns for one session: %d", maxInTurn)
	}
}

type stubCheckpointer struct {
	mu     sync.Mutex
	states map[string]*State
	saves  int
}

func newStubCheckpointer() *stubCheckpointer {
	return &stubCheckpointer{states: make(map[string]*State)}
}

func (c *stubCheckpointer) Save(_ context.Context, s *State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[s.ID] = s.Clone()
	c.saves++
	return nil
}

func (c *stubCheckpointer) Load(_ context.Context, id string) (*State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.states[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (c *stubCheckpointer) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, id)
	return nil
}

func (c *stubCheckpointer) Close() error { return nil }

func TestManagerRestoresFromCheckpoint(t *testing.T) {
	ctx := context.Background()
	cp := newStubCheckpointer()

	first := NewManager(cp)
	s, err := first.CreateDefault(ctx, "s1", "学习Go")
	if err != nil {
		t.Fatalf("CreateDefault() error = %v", err)
	}
	s.Status = StatusPresentingPlan
	s.LearningPlan = "plan text"
	if err := first.Put(ctx, "s1", s); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// A second manager simulates a restarted process sharing the backend.
	second := NewManager(cp)
	restored, err := second.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get() after restart error = %v", err)
	}
	if restored.Status != StatusPresentingPlan || restored.LearningPlan != "plan text" {
		t.Fatalf("restored state = %+v", restored)
	}
}
