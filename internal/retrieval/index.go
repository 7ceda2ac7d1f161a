package retrieval

import (
	"context"
	"strings"
)

// ScoredPassage is one semantic-search hit over previously saved plans.
// Score is cosine similarity, higher means closer.
type ScoredPassage struct {
	ID      string
	Content string
	Score   float32
}

// Index holds the searchable history of saved learning plans.
type Index interface {
	Add(ctx context.Context, id, content string) error
	Search(ctx context.Context, query string, k int) ([]ScoredPassage, error)
	Close() error
}

// Config controls index construction.
type Config struct {
	Mode         string
	DataDir      string
	EmbedBaseURL string
	EmbedAPIKey  string
	EmbedModel   string
}

// NewIndex builds the configured index. "auto" uses the persistent vector
// store when embedding credentials are present and the lexical in-memory
// index otherwise.
func NewIndex(cfg Config) (Index, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.EmbedAPIKey) != "" && strings.TrimSpace(cfg.EmbedBaseURL) != "" {
			return NewVectorIndex(cfg)
		}
		return NewMemoryIndex(), nil
	case "vector":
		return NewVectorIndex(cfg)
	case "memory":
		return NewMemoryIndex(), nil
	}
	return nil, errUnsupportedMode(cfg.Mode)
}

// FilterByScore keeps passages at or above threshold, preserving order.
func FilterByScore(in []ScoredPassage, threshold float32) []ScoredPassage {
	out := make([]ScoredPassage, 0, len(in))
	for _, p := range in {
		if p.Score >= threshold {
			out = append(out, p)
		}
	}
	return out
}
