package search

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/retrievex/internal/domain"
	"github.com/kailas-cloud/retrievex/internal/domain/search/filter"
	"github.com/kailas-cloud/retrievex/internal/domain/search/mode"
	"github.com/kailas-cloud/retrievex/internal/domain/search/request"
	"github.com/kailas-cloud/retrievex/internal/domain/search/result"
	"github.com/kailas-cloud/retrievex/internal/metrics"
)

// Fusion selects how hybrid search combines the two candidate lists.
type Fusion string

// Fusion methods.
const (
	FusionWeighted Fusion = "weighted"
	FusionRRF      Fusion = "rrf"
)

// IsValid reports whether f is a known fusion method.
func (f Fusion) IsValid() bool {
	return f == FusionWeighted || f == FusionRRF
}

// Config holds search tuning.
type Config struct {
	Fusion         Fusion
	LexicalWeight  float64
	SemanticWeight float64
	// Dimensions is the expected query vector length.
	Dimensions int
	// Fields lists filterable metadata fields.
	Fields filter.Schema
	// StoreTimeout bounds each store query; zero disables it.
	StoreTimeout time.Duration
}

// Service handles document search across lexical, semantic, and hybrid modes.
type Service struct {
	repo  Repository
	embed Embedder
	cfg   Config
}

// New creates a search service. cfg is used as given; defaults are applied by
// the configuration layer.
func New(repo Repository, embed Embedder, cfg Config) *Service {
	return &Service{repo: repo, embed: embed, cfg: cfg}
}

// Fusion returns the active fusion method.
func (s *Service) Fusion() Fusion { return s.cfg.Fusion }

// Search executes a document search. Results are ordered by descending score,
// ties broken by ascending id, and never exceed the requested topK.
func (s *Service) Search(ctx context.Context, req *request.Request) (results []result.Result, err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = string(domain.KindOf(err))
		}
		metrics.SearchRequestsTotal.WithLabelValues(string(req.Mode()), status).Inc()
		metrics.SearchDuration.WithLabelValues(string(req.Mode())).Observe(time.Since(start).Seconds())
	}()

	if err = req.Filters().Validate(s.cfg.Fields); err != nil {
		return nil, fmt.Errorf("validate filters: %w", err)
	}

	switch req.Mode() {
	case mode.Lexical:
		results, err = s.searchLexical(ctx, req)
	case mode.Semantic:
		results, err = s.searchSemantic(ctx, req)
	case mode.Hybrid:
		results, err = s.searchHybrid(ctx, req)
	default:
		return nil, domain.Invalid("unsupported search mode: %s", req.Mode())
	}
	if err != nil {
		return nil, err
	}

	return rank(results, req.TopK()), nil
}

// searchLexical runs BM25 search (requires TEXT field, Redis 8.4+ only).
func (s *Service) searchLexical(ctx context.Context, req *request.Request) ([]result.Result, error) {
	if !s.repo.SupportsTextSearch(ctx) {
		return nil, domain.ErrKeywordSearchNotSupported
	}

	results, err := domain.WithTimeout(ctx, s.cfg.StoreTimeout, "search bm25",
		func(ctx context.Context) ([]result.Result, error) {
			return s.repo.SearchBM25(ctx, req.Query(), req.Filters(), req.TopK())
		})
	if err != nil {
		return nil, fmt.Errorf("search bm25: %w", err)
	}
	metrics.SearchCandidates.WithLabelValues(string(mode.Lexical)).Observe(float64(len(results)))
	return results, nil
}

// searchSemantic embeds the query (unless a vector was supplied) and runs KNN search.
func (s *Service) searchSemantic(ctx context.Context, req *request.Request) ([]result.Result, error) {
	vector, err := s.queryVector(ctx, req)
	if err != nil {
		return nil, err
	}

	results, err := domain.WithTimeout(ctx, s.cfg.StoreTimeout, "search knn",
		func(ctx context.Context) ([]result.Result, error) {
			return s.repo.SearchKNN(ctx, vector, req.Filters(), req.TopK())
		})
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}
	metrics.SearchCandidates.WithLabelValues(string(mode.Semantic)).Observe(float64(len(results)))
	return results, nil
}

func (s *Service) queryVector(ctx context.Context, req *request.Request) ([]float32, error) {
	if v := req.Vector(); len(v) > 0 {
		if err := domain.CheckDimensions(v, s.cfg.Dimensions); err != nil {
			return nil, fmt.Errorf("query vector: %w", err)
		}
		return v, nil
	}

	embResult, err := s.embed.Embed(ctx, req.Query())
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}
	if err := domain.CheckDimensions(embResult.Embedding, s.cfg.Dimensions); err != nil {
		return nil, fmt.Errorf("vectorize query: %w: %w", domain.ErrEmbeddingProviderError, err)
	}
	return embResult.Embedding, nil
}

// searchHybrid runs BM25 and KNN concurrently and fuses them. Both sub-queries must
// succeed; a failure on either side fails the whole search.
func (s *Service) searchHybrid(ctx context.Context, req *request.Request) ([]result.Result, error) {
	if !s.repo.SupportsTextSearch(ctx) {
		return nil, domain.ErrKeywordSearchNotSupported
	}

	var lexical, semantic []result.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lexical, err = s.searchLexical(gctx, req)
		return err
	})
	g.Go(func() error {
		var err error
		semantic, err = s.searchSemantic(gctx, req)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}

	if s.cfg.Fusion == FusionRRF {
		return fuseRRF(lexical, semantic, req.TopK()), nil
	}
	return fuseWeighted(lexical, semantic, s.cfg.LexicalWeight, s.cfg.SemanticWeight, req.TopK()), nil
}
