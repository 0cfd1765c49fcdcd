// Package app assembles the retrieval stack from configuration. It is the
// composition root shared by the API server, the operator CLI and the
// embeddable client.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/retrievex/internal/config"
	"github.com/kailas-cloud/retrievex/internal/db"
	dbRedis "github.com/kailas-cloud/retrievex/internal/db/redis"
	dbValkey "github.com/kailas-cloud/retrievex/internal/db/valkey"
	"github.com/kailas-cloud/retrievex/internal/domain"
	"github.com/kailas-cloud/retrievex/internal/domain/search/filter"
	"github.com/kailas-cloud/retrievex/internal/metrics"
	documentrepo "github.com/kailas-cloud/retrievex/internal/repository/document"
	"github.com/kailas-cloud/retrievex/internal/repository/embcache"
	"github.com/kailas-cloud/retrievex/internal/repository/index"
	searchrepo "github.com/kailas-cloud/retrievex/internal/repository/search"
	openaiEmb "github.com/kailas-cloud/retrievex/internal/transport/openai"
	documentuc "github.com/kailas-cloud/retrievex/internal/usecase/document"
	embeddinguc "github.com/kailas-cloud/retrievex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/retrievex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/retrievex/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/retrievex/internal/usecase/search"
)

// healthTimeout bounds a full /health round.
const healthTimeout = 3 * time.Second

// Embedders holds the document and query embedder chains. They differ only
// by the instruction prefix.
type Embedders struct {
	Document domain.Embedder
	Query    domain.Embedder
	Provider string
	Model    string
}

// App is a fully wired retrieval stack.
type App struct {
	Store     db.Store
	Index     *index.Repo
	Search    *searchuc.Service
	Ingest    *ingestuc.Service
	Documents *documentuc.Service
	Health    *healthuc.Service
	Embedders Embedders
}

// OpenStore creates the database store for the configured driver.
func OpenStore(cfg config.DatabaseConfig) (db.Store, error) {
	rc := dbRedis.Config{
		Addrs:    cfg.Addrs,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	switch cfg.Driver {
	case config.DriverValkey:
		s, err := dbValkey.NewStore(rc)
		if err != nil {
			return nil, fmt.Errorf("create valkey store: %w", err)
		}
		return s, nil
	case config.DriverRedis:
		s, err := dbRedis.NewStore(rc)
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// Layout builds the keyspace layout from configuration.
func Layout(cfg config.Config) (index.Layout, error) {
	algo, err := db.ParseVectorAlgorithm(cfg.Index.Algorithm)
	if err != nil {
		return index.Layout{}, fmt.Errorf("index algorithm: %w", err)
	}
	l := index.Layout{
		KeyPrefix:  cfg.Index.KeyPrefix,
		Name:       cfg.Index.Name,
		Dimensions: cfg.Embedding.Dimensions,
		Algorithm:  algo,
		HNSW:       index.HNSWConfig{M: cfg.Index.HNSWM, EFConstruct: cfg.Index.HNSWEFConstruct},
		Fields:     FilterSchema(cfg.Index.Fields),
	}
	if err := l.Validate(); err != nil {
		return index.Layout{}, fmt.Errorf("index layout: %w", err)
	}
	return l, nil
}

// FilterSchema converts configured field kinds to a filter schema.
func FilterSchema(fields map[string]string) filter.Schema {
	schema := make(filter.Schema, len(fields))
	for name, kind := range fields {
		schema[name] = filter.FieldKind(strings.ToLower(kind))
	}
	return schema
}

// BuildEmbedders assembles the decorator chains:
// provider -> cache (optional) -> instrumented -> instruction (optional).
// The instruction is outermost so the cache key includes it.
func BuildEmbedders(cfg config.EmbeddingConfig, kv embcacheStore, logger *zap.Logger) (Embedders, error) {
	var (
		base  domain.Embedder
		model string
	)
	switch cfg.Provider {
	case config.ProviderFake:
		fake, err := embeddinguc.NewFakeProvider(cfg.Dimensions)
		if err != nil {
			return Embedders{}, fmt.Errorf("fake provider: %w", err)
		}
		base, model = fake, fmt.Sprintf("sha256-%d", cfg.Dimensions)
	case config.ProviderOpenAI:
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:          cfg.APIKey,
			BaseURL:         cfg.BaseURL,
			Model:           cfg.Model,
			Dimensions:      cfg.Dimensions,
			Provider:        cfg.Provider,
			MaxRetries:      cfg.MaxRetries,
			InitialInterval: cfg.RetryInterval(),
			Timeout:         cfg.EmbeddingTimeout(),
			Logger:          logger,
		})
		model = cfg.Model
	default:
		return Embedders{}, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	var chain domain.Embedder = base
	if cfg.Cache.Enabled && kv != nil {
		chain = embcache.New(base, kv, embcache.Options{
			Namespace:  fmt.Sprintf("retrievex:emb_cache:%s:%s:", cfg.Provider, model),
			Dimensions: cfg.Dimensions,
			TTL:        cfg.Cache.CacheTTL(),
		}, metrics.EmbeddingCacheTotal, logger)
	}
	chain = embeddinguc.NewInstrumentedEmbedder(chain, cfg.Provider, model, logger)

	return Embedders{
		Document: withInstruction(chain, cfg.DocumentInstruction),
		Query:    withInstruction(chain, cfg.QueryInstruction),
		Provider: cfg.Provider,
		Model:    model,
	}, nil
}

// embcacheStore is the key-value subset the embedding cache needs.
type embcacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func withInstruction(e domain.Embedder, instruction string) domain.Embedder {
	if instruction == "" {
		return e
	}
	return domain.NewInstructionEmbedder(e, instruction)
}

// New builds embedders from cfg and wires the stack on top of store.
// A provider whose vectors do not match the configured dimension is an error.
func New(ctx context.Context, cfg config.Config, store db.Store, logger *zap.Logger) (*App, error) {
	emb, err := BuildEmbedders(cfg.Embedding, store, logger)
	if err != nil {
		return nil, err
	}
	return Wire(ctx, cfg, store, emb, logger)
}

// Wire assembles repositories and services around the given embedders.
// It verifies the embedding dimension and makes sure the search index exists.
func Wire(ctx context.Context, cfg config.Config, store db.Store, emb Embedders, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	layout, err := Layout(cfg)
	if err != nil {
		return nil, err
	}

	dim := cfg.Embedding.Dimensions
	if err := embeddinguc.VerifyDimensions(ctx, emb.Document, dim); err != nil {
		return nil, fmt.Errorf("verify embedding dimension: %w", err)
	}

	indexRepo := index.New(store, layout)
	created, err := indexRepo.Ensure(ctx)
	if err != nil {
		return nil, fmt.Errorf("ensure index: %w", err)
	}
	textSearch := indexRepo.TextSearch(ctx)
	logger.Info("Search index ready",
		zap.String("index", layout.IndexName()),
		zap.Bool("created", created),
		zap.Bool("text_search", textSearch),
	)

	storeTimeout := cfg.Search.StoreTimeout()
	docRepo := documentrepo.New(store, layout)
	searchRepo := searchrepo.New(store, layout)

	fusion := searchuc.Fusion(cfg.Search.Fusion)
	searchSvc := searchuc.New(searchRepo, emb.Query, searchuc.Config{
		Fusion:         fusion,
		LexicalWeight:  cfg.Search.LexicalWeight,
		SemanticWeight: cfg.Search.SemanticWeight,
		Dimensions:     dim,
		Fields:         layout.Fields,
		StoreTimeout:   storeTimeout,
	})
	ingestSvc, err := ingestuc.New(docRepo, emb.Document, ingestuc.Config{
		Dimensions:   dim,
		MaxBatchSize: cfg.Ingest.MaxBatchSize,
		Workers:      cfg.Ingest.Workers,
		StoreTimeout: storeTimeout,
	})
	if err != nil {
		return nil, err
	}
	docSvc := documentuc.New(docRepo, emb.Document, documentuc.Config{
		Dimensions:   dim,
		StoreTimeout: storeTimeout,
	})
	healthSvc := healthuc.New(store, providerCheck(emb.Document), healthuc.Info{
		Index:      layout.IndexName(),
		Dimensions: dim,
		Provider:   emb.Provider,
		Fusion:     string(searchSvc.Fusion()),
		TextSearch: textSearch,
	}, healthTimeout)

	// Fusion always runs in the application; the store only serves the two sub-queries.
	logger.Info("Retrieval configured",
		zap.String("provider", emb.Provider),
		zap.String("model", emb.Model),
		zap.Int("dimensions", dim),
		zap.String("fusion", string(searchSvc.Fusion())),
		zap.String("fusion_path", "application"),
		zap.Float64("lexical_weight", cfg.Search.LexicalWeight),
		zap.Float64("semantic_weight", cfg.Search.SemanticWeight),
	)

	return &App{
		Store:     store,
		Index:     indexRepo,
		Search:    searchSvc,
		Ingest:    ingestSvc,
		Documents: docSvc,
		Health:    healthSvc,
		Embedders: emb,
	}, nil
}

// Close releases the ingestion worker pool. The store is owned by the caller.
func (a *App) Close() {
	a.Ingest.Close()
}

// providerCheck probes the provider behind e, when the chain exposes one.
func providerCheck(e domain.Embedder) healthuc.CheckFunc {
	return func(ctx context.Context) error {
		hc, ok := e.(domain.HealthChecker)
		if !ok {
			return nil
		}
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
		return nil
	}
}
