package retrieval

import (
	"context"
	"sort"
	"sync"
)

// MemoryIndex is a lexical in-memory index used when no embedding provider
// is configured. Scoring is character-bigram overlap, which works for both
// Chinese and Latin text and keeps tests deterministic.
type MemoryIndex struct {
	mu   sync.RWMutex
	docs []ScoredPassage
}

func NewMemoryIndex() *MemoryIndex { return &MemoryIndex{} }

func (m *MemoryIndex) Add(ctx context.Context, id, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.docs {
		if m.docs[i].ID == id {
			m.docs[i].Content = content
			return nil
		}
	}
	m.docs = append(m.docs, ScoredPassage{ID: id, Content: content})
	return nil
}

func (m *MemoryIndex) Search(ctx context.Context, query string, k int) ([]ScoredPassage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	qgrams := bigrams(query)
	out := make([]ScoredPassage, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, ScoredPassage{ID: d.ID, Content: d.Content, Score: overlap(qgrams, bigrams(d.Content))})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (m *MemoryIndex) Close() error { return nil }

func bigrams(s string) map[string]struct{} {
	runes := []rune(s)
	grams := make(map[string]struct{}, len(runes))
	for i := 0; i+1 < len(runes); i++ {
		grams[string(runes[i:i+2])] = struct{}{}
	}
	if len(runes) == 1 {
		grams[string(runes)] = struct{}{}
	}
	return grams
}

func overlap(query, doc map[string]struct{}) float32 {
	if len(query) == 0 {
		return 0
	}
	hits := 0
	for g := range query {
		if _, ok := doc[g]; ok {
			hits++
		}
	}
	return float32(hits) / float32(len(query))
}
