package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/yangjx/studymate/internal/config"
	"github.com/yangjx/studymate/internal/graph"
	"github.com/yangjx/studymate/internal/llm"
	"github.com/yangjx/studymate/internal/planstore"
	"github.com/yangjx/studymate/internal/protocol"
	"github.com/yangjx/studymate/internal/retrieval"
	"github.com/yangjx/studymate/internal/session"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	sessions := session.NewManager(nil)
	engine := graph.NewEngine(sessions, llm.NewMockCompleter(), retrieval.NewMemoryIndex(), planstore.NewInMemoryStore(), nil, graph.Config{})
	srv := New(config.Config{BindAddr: ":0"}, sessions, engine, nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

func TestHealthAndReady(t *testing.T) {
	_, ts := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		res, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d", path, res.StatusCode)
		}
	}
}

func TestCreateSessionMintsID(t *testing.T) {
	_, ts := newTestServer(t)

	res, err := http.Post(ts.URL+"/v1/plan/session", "application/json", nil)
	if err != nil {
		t.Fatalf("POST session: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", res.StatusCode)
	}

	var body struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.SessionID == "" {
		t.Fatal("expected a minted session id")
	}
}

func TestTurnStreamsReplyAndSentinel(t *testing.T) {
	_, ts := newTestServer(t)

	res, err := http.Post(ts.URL+"/v1/plan/turn", "application/json",
		strings.NewReader(`{"session_id":"sess-1","text":"我想学习Python"}`))
	if err != nil {
		t.Fatalf("POST turn: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("Content-Type = %q, want event stream", ct)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	text := string(body)
	if !strings.Contains(text, "请输入更多的信息") {
		t.Fatalf("stream should carry the assistant reply, got %q", text)
	}
	if !strings.HasSuffix(text, graph.TurnEndSentinel) {
		t.Fatalf("stream should end with the sentinel, got %q", text)
	}
}

func TestTurnRejectsMalformedRequest(t *testing.T) {
	_, ts := newTestServer(t)

	res, err := http.Post(ts.URL+"/v1/plan/turn", "application/json",
		strings.NewReader(`{"session_id":"","text":""}`))
	if err != nil {
		t.Fatalf("POST turn: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.StatusCode)
	}
}

func TestGetSessionSnapshot(t *testing.T) {
	_, ts := newTestServer(t)

	res, err := http.Get(ts.URL + "/v1/plan/session/missing")
	if err != nil {
		t.Fatalf("GET session: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("missing session status = %d, want 404", res.StatusCode)
	}

	res, err = http.Post(ts.URL+"/v1/plan/turn", "application/json",
		strings.NewReader(`{"session_id":"sess-2","text":"我想学习Python"}`))
	if err != nil {
		t.Fatalf("POST turn: %v", err)
	}
	res.Body.Close()

	res, err = http.Get(ts.URL + "/v1/plan/session/sess-2")
	if err != nil {
		t.Fatalf("GET session: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.StatusCode)
	}

	var state session.State
	if err := json.NewDecoder(res.Body).Decode(&state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.Status != session.StatusCheckingInput {
		t.Fatalf("status = %q, want checking_input_completeness", state.Status)
	}
	if len(state.Messages) != 2 {
		t.Fatalf("transcript length = %d, want 2", len(state.Messages))
	}
}

func TestEndSessionDeletes(t *testing.T) {
	_, ts := newTestServer(t)

	res, err := http.Post(ts.URL+"/v1/plan/turn", "application/json",
		strings.NewReader(`{"session_id":"sess-3","text":"我想学习Python"}`))
	if err != nil {
		t.Fatalf("POST turn: %v", err)
	}
	res.Body.Close()

	res, err = http.Post(ts.URL+"/v1/plan/session/sess-3/end", "application/json", nil)
	if err != nil {
		t.Fatalf("POST end: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("end status = %d, want 200", res.StatusCode)
	}

	res, err = http.Get(ts.URL + "/v1/plan/session/sess-3")
	if err != nil {
		t.Fatalf("GET session: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted session status = %d, want 404", res.StatusCode)
	}

	res, err = http.Post(ts.URL+"/v1/plan/session/missing/end", "application/json", nil)
	if err != nil {
		t.Fatalf("POST end missing: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("missing session end status = %d, want 404", res.StatusCode)
	}
}

func TestWebSocketTurnRoundTrip(t *testing.T) {
	_, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/plan/session/ws?session_id=sess-ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	err = conn.WriteJSON(protocol.UserMessage{
		Type:      protocol.TypeUserMessage,
		SessionID: "sess-ws",
		Text:      "我想学习Python，零基础，目标是写简单脚本",
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	var assistant protocol.AssistantMessage
	if err := conn.ReadJSON(&assistant); err != nil {
		t.Fatalf("read assistant: %v", err)
	}
	if assistant.Type != protocol.TypeAssistantMessage {
		t.Fatalf("first frame type = %q, want assistant_message", assistant.Type)
	}
	if !strings.Contains(assistant.Text, "学习计划") {
		t.Fatalf("assistant text should carry the plan, got %q", assistant.Text)
	}
	if assistant.Status != string(session.StatusPresentingPlan) {
		t.Fatalf("assistant status = %q, want presenting_plan", assistant.Status)
	}

	var end protocol.TurnEnd
	if err := conn.ReadJSON(&end); err != nil {
		t.Fatalf("read turn end: %v", err)
	}
	if end.Type != protocol.TypeTurnEnd || end.Sentinel != graph.TurnEndSentinel {
		t.Fatalf("unexpected turn end frame: %+v", end)
	}
	if end.Ended {
		t.Fatal("presenting a plan should not end the session")
	}
}

func TestWebSocketRejectsUnknownFrame(t *testing.T) {
	_, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/plan/session/ws?session_id=sess-ws2"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"wat"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	var ev protocol.ErrorEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read error event: %v", err)
	}
	if ev.Type != protocol.TypeErrorEvent || ev.Code != "invalid_client_message" {
		t.Fatalf("unexpected error event: %+v", ev)
	}
}
