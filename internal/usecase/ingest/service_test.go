package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/retrievex/internal/domain"
)

func TestIngest_Success(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, repo, &stubEmbedder{dim: testDim}, Config{})

	doc, err := svc.Ingest(context.Background(), Item{Text: "the cat sat", Metadata: map[string]any{"type": "animal"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID() == "" {
		t.Fatal("expected assigned id")
	}
	if len(doc.Vector()) != testDim {
		t.Fatalf("expected %d-dim vector, got %d", testDim, len(doc.Vector()))
	}
	if repo.count() != 1 {
		t.Fatalf("expected 1 stored document, got %d", repo.count())
	}
}

func TestIngest_InvalidText(t *testing.T) {
	embed := &stubEmbedder{dim: testDim}
	svc := newTestService(t, newMemRepo(), embed, Config{})

	_, err := svc.Ingest(context.Background(), Item{Text: "   "})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if embed.calls != 0 {
		t.Fatal("embedder must not be called for invalid input")
	}
}

func TestIngest_DimensionMismatchRejectedBeforeWrite(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, repo, &stubEmbedder{dim: 2}, Config{})

	_, err := svc.Ingest(context.Background(), Item{Text: "hello"})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
	if repo.count() != 0 {
		t.Fatal("nothing must be written")
	}
}

func TestIngest_StoreError(t *testing.T) {
	repo := newMemRepo()
	repo.insertErr = domain.ErrStoreUnavailable
	svc := newTestService(t, repo, &stubEmbedder{dim: testDim}, Config{})

	_, err := svc.Ingest(context.Background(), Item{Text: "hello"})
	if domain.KindOf(err) != domain.KindStoreUnavailable {
		t.Fatalf("expected store_unavailable, got %v", err)
	}
}

func TestIngestBatch_Success(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, repo, &stubEmbedder{dim: testDim}, Config{Workers: 2})

	items := []Item{{Text: "a"}, {Text: "bb"}, {Text: "ccc"}, {Text: "dddd"}}
	docs, err := svc.IngestBatch(context.Background(), items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != len(items) {
		t.Fatalf("expected %d docs, got %d", len(items), len(docs))
	}
	for i, d := range docs {
		if d.Text() != items[i].Text {
			t.Errorf("result %d out of order: %q", i, d.Text())
		}
		if d.Vector()[0] != float32(len(items[i].Text)) {
			t.Errorf("result %d has the wrong vector", i)
		}
	}
	if repo.batches != 1 {
		t.Fatalf("expected a single batch write, got %d", repo.batches)
	}
}

func TestIngestBatch_InvalidItemAbortsAll(t *testing.T) {
	repo := newMemRepo()
	embed := &stubEmbedder{dim: testDim}
	svc := newTestService(t, repo, embed, Config{})

	_, err := svc.IngestBatch(context.Background(), []Item{{Text: "one"}, {Text: ""}, {Text: "three"}})

	var itemErr *domain.BatchItemError
	if !errors.As(err, &itemErr) {
		t.Fatalf("expected BatchItemError, got %v", err)
	}
	if itemErr.Index != 1 {
		t.Fatalf("expected failing index 1, got %d", itemErr.Index)
	}
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if repo.count() != 0 {
		t.Fatalf("expected empty store, got %d documents", repo.count())
	}
	if embed.calls != 0 {
		t.Fatal("no item may be embedded when validation fails")
	}
}

func TestIngestBatch_EmbeddingFailureReportsIndex(t *testing.T) {
	repo := newMemRepo()
	embed := &stubEmbedder{dim: testDim, failOn: "boom", err: domain.ErrRateLimited}
	svc := newTestService(t, repo, embed, Config{Workers: 1})

	_, err := svc.IngestBatch(context.Background(), []Item{{Text: "ok"}, {Text: "ok too"}, {Text: "boom"}, {Text: "later"}})

	var itemErr *domain.BatchItemError
	if !errors.As(err, &itemErr) || itemErr.Index != 2 {
		t.Fatalf("expected BatchItemError at index 2, got %v", err)
	}
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if repo.batches != 0 || repo.count() != 0 {
		t.Fatal("nothing must be written")
	}
}

func TestIngestBatch_DimensionMismatch(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, repo, &stubEmbedder{dim: testDim + 1}, Config{})

	_, err := svc.IngestBatch(context.Background(), []Item{{Text: "a"}, {Text: "b"}})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
	if repo.count() != 0 {
		t.Fatal("nothing must be written")
	}
}

func TestIngestBatch_Limits(t *testing.T) {
	svc := newTestService(t, newMemRepo(), &stubEmbedder{dim: testDim}, Config{MaxBatchSize: 2})

	if _, err := svc.IngestBatch(context.Background(), nil); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("empty batch: expected ErrInvalidRequest, got %v", err)
	}
	_, err := svc.IngestBatch(context.Background(), []Item{{Text: "a"}, {Text: "b"}, {Text: "c"}})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("oversized batch: expected ErrInvalidRequest, got %v", err)
	}
}

func TestIngestBatch_WriteFailure(t *testing.T) {
	repo := newMemRepo()
	repo.batchErr = domain.ErrStoreUnavailable
	svc := newTestService(t, repo, &stubEmbedder{dim: testDim}, Config{})

	_, err := svc.IngestBatch(context.Background(), []Item{{Text: "a"}})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestFirstFailure(t *testing.T) {
	boom := errors.New("boom")
	errs := []error{nil, context.Canceled, boom, nil}
	i, err := firstFailure(errs)
	if i != 2 || !errors.Is(err, boom) {
		t.Fatalf("expected root cause at 2, got %d %v", i, err)
	}

	i, err = firstFailure([]error{nil, context.Canceled})
	if i != 1 || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled at 1, got %d %v", i, err)
	}

	if i, err := firstFailure([]error{nil}); i != -1 || err != nil {
		t.Fatalf("expected no failure, got %d %v", i, err)
	}
}
