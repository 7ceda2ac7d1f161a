package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeUserMessage      MessageType = "user_message"
	TypeAssistantMessage MessageType = "assistant_message"
	TypeTurnEnd          MessageType = "turn_end"
	TypeErrorEvent       MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// UserMessage carries one inbound conversation turn.
type UserMessage struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Text      string      `json:"text"`
	TSMs      int64       `json:"ts_ms,omitempty"`
}

// AssistantMessage is the single assistant-visible payload of a turn.
type AssistantMessage struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Text      string      `json:"text"`
	Status    string      `json:"status"`
}

// TurnEnd closes a turn; Sentinel mirrors the stream completion marker so
// websocket and stream clients share one protocol.
type TurnEnd struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Sentinel  string      `json:"sentinel"`
	Ended     bool        `json:"ended"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeUserMessage:
		var msg UserMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.Text == "" {
			return nil, errors.New("invalid user_message")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
