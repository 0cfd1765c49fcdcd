package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/kailas-cloud/retrievex/internal/domain"
	domdoc "github.com/kailas-cloud/retrievex/internal/domain/document"
)

// Batch defaults.
const (
	DefaultMaxBatchSize = 100
	DefaultWorkers      = 8
)

// Item is a single document to ingest.
type Item struct {
	Text     string
	Metadata map[string]any
}

// Config holds ingestion limits.
type Config struct {
	Dimensions   int
	MaxBatchSize int
	// Workers bounds concurrent embedding calls within one batch.
	Workers int
	// StoreTimeout bounds each store write; zero disables it.
	StoreTimeout time.Duration
}

// Service validates, embeds and stores new documents.
type Service struct {
	repo  Repository
	embed Embedder
	pool  *ants.Pool
	cfg   Config
}

// New creates an ingestion service. Call Close to release the worker pool.
func New(repo Repository, embed Embedder, cfg Config) (*Service, error) {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("create embedding pool: %w", err)
	}
	return &Service{repo: repo, embed: embed, pool: pool, cfg: cfg}, nil
}

// Close releases the embedding worker pool.
func (s *Service) Close() {
	s.pool.Release()
}

// Ingest validates, embeds and stores one document. The returned document carries
// its assigned id.
func (s *Service) Ingest(ctx context.Context, item Item) (domdoc.Document, error) {
	doc, err := domdoc.New(item.Text, item.Metadata)
	if err != nil {
		return domdoc.Document{}, err
	}

	vec, err := s.vectorize(ctx, doc.Text())
	if err != nil {
		return domdoc.Document{}, err
	}
	doc.SetVector(vec)

	created, err := domain.WithTimeout(ctx, s.cfg.StoreTimeout, "insert document",
		func(ctx context.Context) (domdoc.Document, error) {
			return s.repo.Insert(ctx, doc)
		})
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("insert document: %w", err)
	}
	return created, nil
}

// IngestBatch stores all items or none. Items are validated, then embedded, then
// written in a single round-trip; any failure before the write returns a
// *domain.BatchItemError naming the first failing item. Results keep input order.
func (s *Service) IngestBatch(ctx context.Context, items []Item) ([]domdoc.Document, error) {
	if len(items) == 0 {
		return nil, domain.Invalid("batch is empty")
	}
	if len(items) > s.cfg.MaxBatchSize {
		return nil, domain.Invalid("batch size %d exceeds maximum of %d", len(items), s.cfg.MaxBatchSize)
	}

	docs := make([]domdoc.Document, len(items))
	for i, item := range items {
		doc, err := domdoc.New(item.Text, item.Metadata)
		if err != nil {
			return nil, domain.NewBatchItemError(i, err)
		}
		docs[i] = doc
	}

	vectors, err := s.vectorizeAll(ctx, docs)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].SetVector(vectors[i])
	}

	created, err := domain.WithTimeout(ctx, s.cfg.StoreTimeout, "insert batch",
		func(ctx context.Context) ([]domdoc.Document, error) {
			return s.repo.InsertMany(ctx, docs)
		})
	if err != nil {
		return nil, fmt.Errorf("insert batch: %w", err)
	}
	return created, nil
}

// vectorizeAll embeds every document on the worker pool. The first failure cancels
// the remaining calls; the lowest failing index is reported.
func (s *Service) vectorizeAll(ctx context.Context, docs []domdoc.Document) ([][]float32, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	vectors := make([][]float32, len(docs))
	errs := make([]error, len(docs))

	var wg sync.WaitGroup
	for i := range docs {
		text := docs[i].Text()
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			vec, err := s.vectorize(ctx, text)
			if err != nil {
				errs[i] = err
				cancel()
				return
			}
			vectors[i] = vec
		})
		if err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("submit embedding: %w", err)
			cancel()
			break
		}
	}
	wg.Wait()

	if i, err := firstFailure(errs); err != nil {
		return nil, domain.NewBatchItemError(i, err)
	}
	return vectors, nil
}

// firstFailure prefers root causes over calls aborted by the batch cancellation.
func firstFailure(errs []error) (int, error) {
	fallback := -1
	for i, err := range errs {
		if err == nil {
			continue
		}
		if !errors.Is(err, context.Canceled) {
			return i, err
		}
		if fallback < 0 {
			fallback = i
		}
	}
	if fallback >= 0 {
		return fallback, errs[fallback]
	}
	return -1, nil
}

func (s *Service) vectorize(ctx context.Context, text string) ([]float32, error) {
	res, err := s.embed.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("vectorize: %w", err)
	}
	if err := domain.CheckDimensions(res.Embedding, s.cfg.Dimensions); err != nil {
		return nil, fmt.Errorf("vectorize: %w: %w", domain.ErrEmbeddingProviderError, err)
	}
	return res.Embedding, nil
}
