package retrieval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

const planCollection = "study_plans"

func errUnsupportedMode(mode string) error {
	return fmt.Errorf("unsupported retrieval mode %q", mode)
}

// VectorIndex persists plan embeddings on disk via chromem and answers
// similarity queries against them.
type VectorIndex struct {
	mu      sync.RWMutex
	db      *chromem.DB
	embedFn chromem.EmbeddingFunc
}

func NewVectorIndex(cfg Config) (*VectorIndex, error) {
	dir := filepath.Join(cfg.DataDir, "vectorstore")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create vectorstore dir: %w", err)
	}
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open vectorstore: %w", err)
	}
	embedFn := chromem.NewEmbeddingFuncOpenAICompat(cfg.EmbedBaseURL, cfg.EmbedAPIKey, cfg.EmbedModel, nil)
	return &VectorIndex{db: db, embedFn: embedFn}, nil
}

func (v *VectorIndex) collection() (*chromem.Collection, error) {
	if col := v.db.GetCollection(planCollection, v.embedFn); col != nil {
		return col, nil
	}
	col, err := v.db.CreateCollection(planCollection, nil, v.embedFn)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return col, nil
}

func (v *VectorIndex) Add(ctx context.Context, id, content string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	col, err := v.collection()
	if err != nil {
		return err
	}
	return col.AddDocument(ctx, chromem.Document{ID: id, Content: content})
}

func (v *VectorIndex) Search(ctx context.Context, query string, k int) ([]ScoredPassage, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	col, err := v.collection()
	if err != nil {
		return nil, err
	}
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	// chromem can still reject k despite the Count check when documents
	// were removed concurrently. Step down until it accepts.
	var results []chromem.Result
	for attemptK := k; attemptK > 0; attemptK-- {
		results, err = col.Query(ctx, query, attemptK, nil, nil)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("query vectorstore: %w", err)
	}

	out := make([]ScoredPassage, 0, len(results))
	for _, r := range results {
		out = append(out, ScoredPassage{ID: r.ID, Content: r.Content, Score: r.Similarity})
	}
	return out, nil
}

func (v *VectorIndex) Close() error { return nil }
