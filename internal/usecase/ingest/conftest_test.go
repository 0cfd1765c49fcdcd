package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/kailas-cloud/retrievex/internal/domain"
	domdoc "github.com/kailas-cloud/retrievex/internal/domain/document"
)

const testDim = 3

// memRepo stores documents in memory and assigns sequential ids.
type memRepo struct {
	mu        sync.Mutex
	docs      map[string]domdoc.Document
	next      int
	insertErr error
	batchErr  error
	batches   int
}

func newMemRepo() *memRepo {
	return &memRepo{docs: make(map[string]domdoc.Document)}
}

func (m *memRepo) Insert(_ context.Context, doc domdoc.Document) (domdoc.Document, error) {
	if m.insertErr != nil {
		return domdoc.Document{}, m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	stored := doc.WithID(fmt.Sprintf("doc-%d", m.next))
	m.docs[stored.ID()] = stored
	return stored, nil
}

func (m *memRepo) InsertMany(ctx context.Context, docs []domdoc.Document) ([]domdoc.Document, error) {
	m.batches++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make([]domdoc.Document, len(docs))
	for i, d := range docs {
		stored, err := m.Insert(ctx, d)
		if err != nil {
			return nil, err
		}
		out[i] = stored
	}
	return out, nil
}

func (m *memRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

// stubEmbedder returns a fixed-length vector and fails for texts containing failOn.
type stubEmbedder struct {
	mu     sync.Mutex
	dim    int
	failOn string
	err    error
	calls  int
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return domain.EmbeddingResult{}, e.err
	}
	if err := ctx.Err(); err != nil {
		return domain.EmbeddingResult{}, err
	}
	vec := make([]float32, e.dim)
	for i := range vec {
		vec[i] = float32(len(text) + i)
	}
	return domain.EmbeddingResult{Embedding: vec, TotalTokens: 1}, nil
}

func newTestService(t *testing.T, repo Repository, embed Embedder, cfg Config) *Service {
	t.Helper()
	if cfg.Dimensions == 0 {
		cfg.Dimensions = testDim
	}
	svc, err := New(repo, embed, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}
