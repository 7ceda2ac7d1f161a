package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessageUserMessage(t *testing.T) {
	raw := []byte(`{"type":"user_message","session_id":"s1","text":"我想学习Python","ts_ms":123}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	user, ok := msg.(UserMessage)
	if !ok {
		t.Fatalf("message type = %T, want UserMessage", msg)
	}
	if user.SessionID != "s1" || user.Text != "我想学习Python" {
		t.Fatalf("unexpected user message: %+v", user)
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageRejectsEmptyFields(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{"type":"user_message","session_id":"","text":"hi"}`)); err == nil {
		t.Fatal("missing session_id should be rejected")
	}
	if _, err := ParseClientMessage([]byte(`{"type":"user_message","session_id":"s1","text":""}`)); err == nil {
		t.Fatal("missing text should be rejected")
	}
}

func TestParseClientMessageRejectsBadJSON(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{`)); err == nil {
		t.Fatal("malformed JSON should be rejected")
	}
}
