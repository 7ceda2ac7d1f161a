package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/yangjx/studymate/internal/config"
	"github.com/yangjx/studymate/internal/graph"
	"github.com/yangjx/studymate/internal/observability"
	"github.com/yangjx/studymate/internal/protocol"
	"github.com/yangjx/studymate/internal/session"
)

// TurnRunner is the conversation engine seen from the transport layer.
type TurnRunner interface {
	RunTurn(ctx context.Context, sessionID, text string) (graph.TurnResult, error)
}

type Server struct {
	cfg      config.Config
	sessions *session.Manager
	engine   TurnRunner
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, sessions *session.Manager, engine TurnRunner, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		engine:   engine,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same
				// origin unless explicitly opened up.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/plan/session", s.handleCreateSession)
	r.Get("/v1/plan/session/{id}", s.handleGetSession)
	r.Post("/v1/plan/session/{id}/end", s.handleEndSession)
	r.Post("/v1/plan/turn", s.handleTurn)
	r.Get("/v1/plan/session/ws", s.handleSessionWS)
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Count(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"active_sessions": s.sessions.ActiveCount(),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusCreated, map[string]any{
		"session_id": uuid.NewString(),
		"created_at": time.Now().UTC(),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}
	state, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			respondError(w, http.StatusNotFound, "session_not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "session_load_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// handleEndSession discards a session and its durable checkpoint. Finished
// sessions may also simply be left alone; a later message starts a fresh
// flow under the same id.
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}
	if _, err := s.sessions.Get(r.Context(), id); err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	if err := s.sessions.Delete(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, "session_delete_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"session_id": id, "deleted": true})
}

type turnRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// handleTurn runs one conversation turn and streams the single assistant
// payload followed by the completion sentinel.
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := s.engine.RunTurn(r.Context(), strings.TrimSpace(req.SessionID), strings.TrimSpace(req.Text))
	if err != nil {
		switch {
		case errors.Is(err, graph.ErrInput):
			respondError(w, http.StatusBadRequest, "invalid_turn", err.Error())
		case errors.Is(err, context.Canceled):
			// Client is gone, nothing to write.
		default:
			log.Error().Err(err).Str("session", req.SessionID).Msg("turn failed")
			respondError(w, http.StatusInternalServerError, "turn_failed", err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	writeChunk := func(text string) {
		_, _ = w.Write([]byte(text))
		if flusher != nil {
			flusher.Flush()
		}
	}
	writeChunk(res.Reply + "\n\n")
	writeChunk(graph.TurnEndSentinel)
}

func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
		return nil
	})

	writeJSON := func(v any) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(v); err != nil {
			return false
		}
		return true
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			if !writeJSON(protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Retryable: false,
				Detail:    err.Error(),
			}) {
				return
			}
			continue
		}
		user := parsed.(protocol.UserMessage)
		if user.SessionID != sessionID {
			if !writeJSON(protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "session_mismatch",
				Retryable: false,
				Detail:    "message session_id does not match the connection",
			}) {
				return
			}
			continue
		}

		res, err := s.engine.RunTurn(r.Context(), user.SessionID, user.Text)
		if err != nil {
			if !writeJSON(protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "turn_failed",
				Retryable: !errors.Is(err, graph.ErrInput),
				Detail:    err.Error(),
			}) {
				return
			}
			continue
		}

		if !writeJSON(protocol.AssistantMessage{
			Type:      protocol.TypeAssistantMessage,
			SessionID: sessionID,
			Text:      res.Reply,
			Status:    string(res.Status),
		}) {
			return
		}
		if !writeJSON(protocol.TurnEnd{
			Type:      protocol.TypeTurnEnd,
			SessionID: sessionID,
			Sentinel:  graph.TurnEndSentinel,
			Ended:     res.Ended,
		}) {
			return
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
