package document

import (
	"context"

	"github.com/kailas-cloud/retrievex/internal/domain"
	domdoc "github.com/kailas-cloud/retrievex/internal/domain/document"
)

// Repository defines the storage contract for stored documents.
type Repository interface {
	Get(ctx context.Context, id string) (domdoc.Document, error)
	Replace(ctx context.Context, prev, next domdoc.Document) error
	Delete(ctx context.Context, id string) error
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
