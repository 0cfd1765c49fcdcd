package ingest

import (
	"context"

	"github.com/kailas-cloud/retrievex/internal/domain"
	domdoc "github.com/kailas-cloud/retrievex/internal/domain/document"
)

// Repository persists new documents.
type Repository interface {
	Insert(ctx context.Context, doc domdoc.Document) (domdoc.Document, error)
	InsertMany(ctx context.Context, docs []domdoc.Document) ([]domdoc.Document, error)
}

// Embedder vectorizes document text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
