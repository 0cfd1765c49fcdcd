package search

import (
	"context"
	"testing"

	"github.com/kailas-cloud/retrievex/internal/domain"
	"github.com/kailas-cloud/retrievex/internal/domain/search/filter"
	"github.com/kailas-cloud/retrievex/internal/domain/search/mode"
	"github.com/kailas-cloud/retrievex/internal/domain/search/request"
	"github.com/kailas-cloud/retrievex/internal/domain/search/result"
)

const testDim = 4

type mockRepo struct {
	knnFn        func(ctx context.Context, vector []float32, topK int) ([]result.Result, error)
	bm25Fn       func(ctx context.Context, query string, topK int) ([]result.Result, error)
	knnResults   []result.Result
	knnErr       error
	bm25Results  []result.Result
	bm25Err      error
	textSearchOK bool
	knnCalled    bool
	bm25Called   bool
	lastVector   []float32
}

func (m *mockRepo) SearchKNN(
	ctx context.Context, vector []float32, _ filter.Expression, topK int,
) ([]result.Result, error) {
	m.knnCalled = true
	m.lastVector = vector
	if m.knnFn != nil {
		return m.knnFn(ctx, vector, topK)
	}
	return m.knnResults, m.knnErr
}

func (m *mockRepo) SearchBM25(
	ctx context.Context, query string, _ filter.Expression, topK int,
) ([]result.Result, error) {
	m.bm25Called = true
	if m.bm25Fn != nil {
		return m.bm25Fn(ctx, query, topK)
	}
	return m.bm25Results, m.bm25Err
}

func (m *mockRepo) SupportsTextSearch(_ context.Context) bool {
	return m.textSearchOK
}

type mockEmbedder struct {
	vec    []float32
	err    error
	called bool
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.called = true
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

func newTestService(repo Repository, embed Embedder) *Service {
	return New(repo, embed, Config{
		Fusion:         FusionWeighted,
		LexicalWeight:  0.5,
		SemanticWeight: 0.5,
		Dimensions:     testDim,
		Fields:         filter.Schema{"type": filter.KindTag, "year": filter.KindNumeric},
	})
}

func testVec() []float32 { return []float32{0.1, 0.2, 0.3, 0.4} }

func hit(id string, score float64) result.Result {
	return result.New(id, score, "text-"+id, nil)
}

func makeSearchRequest(t *testing.T, m mode.Mode, topK int) *request.Request {
	t.Helper()
	r, err := request.New("test query", m, filter.Expression{}, topK, 0, nil)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return &r
}

func ids(results []result.Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID()
	}
	return out
}
