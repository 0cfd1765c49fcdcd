package document

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/retrievex/internal/domain"
	domdoc "github.com/kailas-cloud/retrievex/internal/domain/document"
	"github.com/kailas-cloud/retrievex/internal/domain/document/patch"
)

// Config holds lifecycle settings.
type Config struct {
	Dimensions int
	// StoreTimeout bounds each store call; zero disables it.
	StoreTimeout time.Duration
}

// Service handles reads, updates and deletes of stored documents.
type Service struct {
	repo  Repository
	embed Embedder
	cfg   Config
}

// New creates a document service.
func New(repo Repository, embed Embedder, cfg Config) *Service {
	return &Service{repo: repo, embed: embed, cfg: cfg}
}

// Get retrieves a document by id.
func (s *Service) Get(ctx context.Context, id string) (domdoc.Document, error) {
	if id == "" {
		return domdoc.Document{}, domain.Invalid("id is required")
	}
	doc, err := domain.WithTimeout(ctx, s.cfg.StoreTimeout, "get document",
		func(ctx context.Context) (domdoc.Document, error) {
			return s.repo.Get(ctx, id)
		})
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// Update applies p to the document. The text is re-embedded only when it actually
// changes; otherwise the stored vector is kept as is. On failure the previous
// version stays intact.
func (s *Service) Update(ctx context.Context, id string, p patch.Patch) (domdoc.Document, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return domdoc.Document{}, err
	}

	next := cur.WithID(cur.ID())
	if p.HasMetadata() {
		meta, err := p.ApplyMetadata(cur.Metadata())
		if err != nil {
			return domdoc.Document{}, err
		}
		next = next.WithMetadata(meta)
	}
	if p.HasText() && *p.Text() != cur.Text() {
		res, err := s.embed.Embed(ctx, *p.Text())
		if err != nil {
			return domdoc.Document{}, fmt.Errorf("vectorize updated text: %w", err)
		}
		if err := domain.CheckDimensions(res.Embedding, s.cfg.Dimensions); err != nil {
			return domdoc.Document{}, fmt.Errorf("vectorize updated text: %w: %w", domain.ErrEmbeddingProviderError, err)
		}
		next = next.WithText(*p.Text())
		next.SetVector(res.Embedding)
	}

	err = domain.RunWithTimeout(ctx, s.cfg.StoreTimeout, "replace document", func(ctx context.Context) error {
		return s.repo.Replace(ctx, cur, next)
	})
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("update document: %w", err)
	}
	return next, nil
}

// Delete removes a document. Deleting a missing id, including one already deleted,
// returns ErrDocumentNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domain.Invalid("id is required")
	}
	err := domain.RunWithTimeout(ctx, s.cfg.StoreTimeout, "delete document", func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
