package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yangjx/studymate/internal/llm"
	"github.com/yangjx/studymate/internal/session"
)

// maxNodesPerTurn bounds the within-turn node chain. The longest legal chain
// is check -> retrieve -> ask -> generate (4); anything past this indicates
// a transition-table bug.
const maxNodesPerTurn = 8

// TurnResult is the single assistant-visible outcome of one user turn.
type TurnResult struct {
	SessionID string         `json:"session_id"`
	Reply     string         `json:"reply"`
	Status    session.Status `json:"status"`
	Ended     bool           `json:"ended"`
}

// RunTurn processes one inbound user message: load or create the session,
// resolve the entry node, and execute nodes until one produces an assistant
// message, then checkpoint the updated state. Exactly one assistant message
// is emitted per call.
//
// Turns of the same session are serialized in arrival order; turns of
// distinct sessions run independently.
func (e *Engine) RunTurn(ctx context.Context, sessionID, text string) (TurnResult, error) {
	if sessionID == "" || text == "" {
		return TurnResult{}, fmt.Errorf("%w: session id and text are required", ErrInput)
	}

	release := e.sessions.AcquireTurn(sessionID)
	defer release()

	started := time.Now()

	s, seeded, err := e.loadOrCreate(ctx, sessionID, text)
	if err != nil {
		return TurnResult{}, err
	}
	if !seeded {
		s.AppendUser(text)
	}

	emittedFrom := len(s.Messages)
	node := Resolve(s.Status)

	for steps := 0; steps < maxNodesPerTurn; steps++ {
		preStatus := s.Status
		err := e.runNode(ctx, node, s)
		if err != nil {
			if ctx.Err() != nil {
				// Client went away mid-turn. Nothing is checkpointed, so the
				// pre-turn state stays authoritative.
				e.countTurn("cancelled")
				return TurnResult{}, ctx.Err()
			}
			e.reportNodeError(node, sessionID, preStatus, err, s)
			break
		}
		if s.Status == session.StatusEnd || len(s.Messages) > emittedFrom {
			break
		}
		next, ok := nextNode(node, s.Status)
		if !ok {
			log.Error().Str("session", sessionID).Str("node", string(node)).Str("status", string(s.Status)).Msg("no transition for node outcome")
			s.Status = preStatus
			s.AppendAssistant(msgTransientFailure)
			break
		}
		node = next
	}
	if len(s.Messages) == emittedFrom {
		// A correctly wired table cannot get here; keep the turn contract
		// anyway so the caller always receives one assistant message.
		s.AppendAssistant(msgTransientFailure)
	}

	reply := s.Messages[len(s.Messages)-1].Content
	if err := e.sessions.Put(ctx, sessionID, s); err != nil {
		e.countTurn("checkpoint_error")
		return TurnResult{}, fmt.Errorf("checkpoint session %s: %w", sessionID, err)
	}

	if e.metrics != nil {
		e.metrics.ObserveTurnLatency(time.Since(started))
		e.metrics.ActiveSessions.Set(float64(e.sessions.ActiveCount()))
	}
	e.countTurn("ok")

	return TurnResult{
		SessionID: sessionID,
		Reply:     reply,
		Status:    s.Status,
		Ended:     s.Status == session.StatusEnd,
	}, nil
}

// loadOrCreate fetches the session or seeds a new one from the first
// message. A session that already finished planning starts a fresh flow
// under the same identifier, keeping its transcript.
func (e *Engine) loadOrCreate(ctx context.Context, sessionID, text string) (*session.State, bool, error) {
	s, err := e.sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		created, cerr := e.sessions.CreateDefault(ctx, sessionID, text)
		if cerr != nil {
			return nil, false, fmt.Errorf("create session %s: %w", sessionID, cerr)
		}
		return created, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	if s.Status == session.StatusEnd {
		log.Warn().Str("session", sessionID).Msg("message after plan completion, starting a fresh planning flow")
		s.ResetPlanning(text)
	}
	return s, false, nil
}

// reportNodeError converts a node failure into a single assistant-visible
// message. Transient failures keep the pre-node status so the same step can
// be retried; parse and persistence failures at save roll the session back
// to plan presentation so the user can ask for a redo.
func (e *Engine) reportNodeError(node NodeID, sessionID string, preStatus session.Status, err error, s *session.State) {
	log.Error().Err(err).Str("session", sessionID).Str("node", string(node)).Msg("node failed")

	switch {
	case errors.Is(err, ErrPlanParse):
		s.Status = session.StatusPresentingPlan
		s.AppendAssistant(msgPlanUnparsable)
		e.countProviderError("planner", "parse")
		e.countTurn("parse_error")
	case errors.Is(err, ErrPersistence):
		s.Status = session.StatusPresentingPlan
		s.AppendAssistant(msgSaveFailed)
		e.countProviderError("store", "save")
		e.countTurn("persistence_error")
	case isTransient(err):
		s.Status = preStatus
		if errors.Is(err, llm.ErrTimeout) {
			s.AppendAssistant(msgTimeoutFailure)
		} else {
			s.AppendAssistant(msgTransientFailure)
		}
		e.countProviderError("completion", "transient")
		e.countTurn("transient_error")
	default:
		s.Status = preStatus
		s.AppendAssistant(msgTransientFailure)
		e.countProviderError("engine", "internal")
		e.countTurn("internal_error")
	}
}

func (e *Engine) countTurn(outcome string) {
	if e.metrics != nil {
		e.metrics.Turns.WithLabelValues(outcome).Inc()
	}
}

func (e *Engine) countProviderError(provider, code string) {
	if e.metrics != nil {
		e.metrics.ProviderErrors.WithLabelValues(provider, code).Inc()
	}
}
