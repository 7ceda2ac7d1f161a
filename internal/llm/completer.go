package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Completer is the text-generation collaborator. One call, one completion:
// token streaming stays inside the adapter if a provider offers it.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

var (
	// ErrTimeout marks a completion call that exceeded its bounded timeout.
	ErrTimeout = errors.New("completion timed out")
	// ErrProvider marks a transient provider failure (429/5xx); the same
	// node can be retried without advancing conversation state.
	ErrProvider = errors.New("completion provider error")
)

// Config controls completer construction.
type Config struct {
	Mode        string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// NewCompleter builds a completer for the configured mode. "auto" picks the
// HTTP provider when credentials are present and falls back to the
// deterministic mock otherwise.
func NewCompleter(cfg Config) (Completer, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.APIKey) != "" && strings.TrimSpace(cfg.BaseURL) != "" {
			return NewHTTPCompleter(cfg), nil
		}
		return NewMockCompleter(), nil
	case "http":
		if strings.TrimSpace(cfg.BaseURL) == "" {
			return nil, errors.New("completion base URL is required for http mode")
		}
		return NewHTTPCompleter(cfg), nil
	case "mock":
		return NewMockCompleter(), nil
	default:
		return nil, fmt.Errorf("unsupported completer mode %q", cfg.Mode)
	}
}
