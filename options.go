package retrievex

import (
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/retrievex/internal/config"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	cfg      config.Config
	embedder Embedder
	logger   *zap.Logger
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{cfg: config.Config{Index: config.IndexConfig{Fields: map[string]string{}}}}
}

// WithRedis configures the client to connect to a Redis instance with the search module.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Database.Driver = config.DriverRedis
		c.cfg.Database.Addrs = []string{addr}
		c.cfg.Database.Password = password
	})
}

// WithValkey configures the client to connect to a Valkey instance with valkey-search.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Database.Driver = config.DriverValkey
		c.cfg.Database.Addrs = []string{addr}
		c.cfg.Database.Password = password
	})
}

// WithIndex sets the index name and the key prefix of its documents.
// Defaults: "phrases" and "retrievex:".
func WithIndex(name, keyPrefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Index.Name = name
		c.cfg.Index.KeyPrefix = keyPrefix
	})
}

// WithFlatIndex switches the vector index from HNSW to brute force.
func WithFlatIndex() Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Index.Algorithm = "flat"
	})
}

// WithHNSW configures HNSW index parameters. Defaults: M=16, EFConstruct=200.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Index.HNSWM = m
		c.cfg.Index.HNSWEFConstruct = efConstruct
	})
}

// WithFilterField makes a metadata key filterable.
func WithFilterField(name string, t FieldType) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Index.Fields[name] = string(t)
	})
}

// WithDimensions sets the embedding dimension. Default: 64.
func WithDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Embedding.Dimensions = dim
	})
}

// WithFakeEmbedder selects the deterministic hash embedder (default).
func WithFakeEmbedder() Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Embedding.Provider = config.ProviderFake
		c.embedder = nil
	})
}

// WithOpenAI selects an OpenAI-compatible embeddings API.
// An empty model keeps the default text-embedding-3-small.
func WithOpenAI(apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Embedding.Provider = config.ProviderOpenAI
		c.cfg.Embedding.APIKey = apiKey
		c.cfg.Embedding.Model = model
		c.embedder = nil
	})
}

// WithOpenAIBaseURL points the OpenAI provider at a compatible endpoint.
func WithOpenAIBaseURL(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Embedding.BaseURL = url
	})
}

// WithEmbeddingRetries sets the retry budget and per-attempt timeout of the
// OpenAI provider. maxRetries -1 disables retries.
func WithEmbeddingRetries(maxRetries int, timeout time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Embedding.MaxRetries = maxRetries
		c.cfg.Embedding.TimeoutMS = int(timeout / time.Millisecond)
	})
}

// WithEmbeddingCache caches vectors in the store. ttl 0 keeps them forever.
func WithEmbeddingCache(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Embedding.Cache = config.CacheConfig{Enabled: true, TTLSec: int(ttl / time.Second)}
	})
}

// WithInstructions sets the prefixes prepended to documents and queries before embedding.
func WithInstructions(document, query string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Embedding.DocumentInstruction = document
		c.cfg.Embedding.QueryInstruction = query
	})
}

// WithEmbedder plugs in a custom embedding provider. It takes precedence over
// WithFakeEmbedder and WithOpenAI given earlier.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithFusion sets the hybrid fusion strategy and the weighted-fusion weights.
// Weights are ignored by FusionRRF. Defaults: FusionWeighted, 0.5/0.5.
func WithFusion(f Fusion, lexicalWeight, semanticWeight float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Search.Fusion = string(f)
		c.cfg.Search.LexicalWeight = lexicalWeight
		c.cfg.Search.SemanticWeight = semanticWeight
	})
}

// WithMaxTopK caps top_k. Larger requests are rejected. Default: 100.
func WithMaxTopK(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Search.MaxTopK = n
	})
}

// WithStoreTimeout bounds every store call. Default: 2s.
func WithStoreTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Search.StoreTimeoutMS = int(d / time.Millisecond)
	})
}

// WithMaxBatchSize sets the maximum number of items per batch. Default: 100.
func WithMaxBatchSize(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Ingest.MaxBatchSize = size
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// resolve applies defaults and validates the resulting configuration.
func (c *clientConfig) resolve() (config.Config, error) {
	cfg := c.cfg
	cfg.ApplyDefaults()
	if err := cfg.ValidateStack(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
