package retrievex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/retrievex/internal/app"
	"github.com/kailas-cloud/retrievex/internal/config"
	"github.com/kailas-cloud/retrievex/internal/db"
	"github.com/kailas-cloud/retrievex/internal/domain"
	domdoc "github.com/kailas-cloud/retrievex/internal/domain/document"
	"github.com/kailas-cloud/retrievex/internal/domain/document/patch"
	"github.com/kailas-cloud/retrievex/internal/domain/search/filter"
	"github.com/kailas-cloud/retrievex/internal/domain/search/mode"
	"github.com/kailas-cloud/retrievex/internal/domain/search/request"
	"github.com/kailas-cloud/retrievex/internal/domain/search/result"
	embeddinguc "github.com/kailas-cloud/retrievex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/retrievex/internal/usecase/health"
	"github.com/kailas-cloud/retrievex/internal/usecase/ingest"
)

// Client is the retrievex library entry point.
type Client struct {
	store   db.Store
	app     *app.App
	maxTopK int
}

// New creates a Client, connects to the database and makes sure the search
// index exists. A provider whose vectors do not match the configured
// dimension fails here rather than on the first write.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cc := defaultClientConfig()
	for _, o := range opts {
		o.apply(cc)
	}
	if len(cc.cfg.Database.Addrs) == 0 {
		return nil, errors.New("retrievex: database address required (use WithRedis or WithValkey)")
	}
	cfg, err := cc.resolve()
	if err != nil {
		return nil, fmt.Errorf("retrievex: %w", err)
	}

	store, err := app.OpenStore(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("retrievex: %w", err)
	}
	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, readiness); err != nil {
		store.Close()
		return nil, fmt.Errorf("retrievex: database not ready: %w", err)
	}

	c, err := wireClient(ctx, store, cfg, cc.embedder, cc.logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func wireClient(ctx context.Context, store db.Store, cfg config.Config, custom Embedder, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		emb app.Embedders
		err error
	)
	if custom != nil {
		var chain domain.Embedder = embeddinguc.NewInstrumentedEmbedder(&embedderAdapter{inner: custom}, "custom", "custom", logger)
		emb = app.Embedders{Document: chain, Query: chain, Provider: "custom", Model: "custom"}
		if cfg.Embedding.DocumentInstruction != "" {
			emb.Document = domain.NewInstructionEmbedder(chain, cfg.Embedding.DocumentInstruction)
		}
		if cfg.Embedding.QueryInstruction != "" {
			emb.Query = domain.NewInstructionEmbedder(chain, cfg.Embedding.QueryInstruction)
		}
	} else {
		emb, err = app.BuildEmbedders(cfg.Embedding, store, logger)
		if err != nil {
			return nil, fmt.Errorf("retrievex: %w", err)
		}
	}

	a, err := app.Wire(ctx, cfg, store, emb, logger)
	if err != nil {
		return nil, fmt.Errorf("retrievex: %w", err)
	}
	return &Client{store: store, app: a, maxTopK: cfg.Search.MaxTopK}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	c.app.Close()
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Health checks the database and the embedding provider.
func (c *Client) Health(ctx context.Context) HealthReport {
	r := c.app.Health.Check(ctx)
	checks := make(map[string]string, len(r.Checks))
	for k, v := range r.Checks {
		checks[k] = string(v)
	}
	return HealthReport{OK: r.Status == healthuc.Healthy, Checks: checks}
}

// Ingest embeds and stores one text.
func (c *Client) Ingest(ctx context.Context, text string, metadata map[string]any) (Document, error) {
	doc, err := c.app.Ingest.Ingest(ctx, ingest.Item{Text: text, Metadata: metadata})
	if err != nil {
		return Document{}, err
	}
	return toDocument(&doc), nil
}

// IngestBatch stores all items or none. On failure FailedItem reports the
// position of the offending item when the failure belongs to one.
func (c *Client) IngestBatch(ctx context.Context, items []Item) ([]Document, error) {
	in := make([]ingest.Item, len(items))
	for i, it := range items {
		in[i] = ingest.Item{Text: it.Text, Metadata: it.Metadata}
	}
	docs, err := c.app.Ingest.IngestBatch(ctx, in)
	if err != nil {
		return nil, err
	}
	out := make([]Document, len(docs))
	for i := range docs {
		out[i] = toDocument(&docs[i])
	}
	return out, nil
}

// Get returns a stored document.
func (c *Client) Get(ctx context.Context, id string) (Document, error) {
	doc, err := c.app.Documents.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}
	return toDocument(&doc), nil
}

// Update modifies a stored document. The vector is recomputed only when the text changes.
func (c *Client) Update(ctx context.Context, id string, u Update) (Document, error) {
	p, err := patch.New(u.Text, u.Metadata, u.Partial)
	if err != nil {
		return Document{}, err
	}
	doc, err := c.app.Documents.Update(ctx, id, p)
	if err != nil {
		return Document{}, err
	}
	return toDocument(&doc), nil
}

// Delete removes a stored document. Deleting a missing id returns ErrNotFound.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.app.Documents.Delete(ctx, id)
}

// Search runs a lexical, semantic or hybrid query.
func (c *Client) Search(ctx context.Context, q Query) ([]Hit, error) {
	req, err := c.buildRequest(q)
	if err != nil {
		return nil, err
	}
	results, err := c.app.Search.Search(ctx, &req)
	if err != nil {
		return nil, err
	}
	return toHits(results), nil
}

func (c *Client) buildRequest(q Query) (request.Request, error) {
	expr, err := toExpression(q.Filters)
	if err != nil {
		return request.Request{}, err
	}
	topK := q.TopK
	if topK == 0 {
		topK = request.DefaultTopK
	}
	return request.New(q.Text, mode.Mode(q.Mode), expr, topK, c.maxTopK, q.Vector)
}

func toExpression(f Filters) (filter.Expression, error) {
	must, err := toConditions(f.Must)
	if err != nil {
		return filter.Expression{}, err
	}
	should, err := toConditions(f.Should)
	if err != nil {
		return filter.Expression{}, err
	}
	mustNot, err := toConditions(f.MustNot)
	if err != nil {
		return filter.Expression{}, err
	}
	return filter.NewExpression(must, should, mustNot)
}

func toConditions(cs []Condition) ([]filter.Condition, error) {
	if len(cs) == 0 {
		return nil, nil
	}
	out := make([]filter.Condition, 0, len(cs))
	for _, c := range cs {
		var (
			cond filter.Condition
			err  error
		)
		switch {
		case c.Range != nil && c.Match != "":
			return nil, domain.Invalid("condition on %q: match and range are mutually exclusive", c.Key)
		case c.Range != nil:
			var r filter.Range
			r, err = filter.NewRangeFilter(c.Range.GT, c.Range.GTE, c.Range.LT, c.Range.LTE)
			if err == nil {
				cond, err = filter.NewRange(c.Key, r)
			}
		default:
			cond, err = filter.NewMatch(c.Key, c.Match)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, cond)
	}
	return out, nil
}

func toDocument(d *domdoc.Document) Document {
	return Document{ID: d.ID(), Text: d.Text(), Metadata: d.Metadata()}
}

func toHits(results []result.Result) []Hit {
	hits := make([]Hit, len(results))
	for i := range results {
		r := &results[i]
		hits[i] = Hit{ID: r.ID(), Score: r.Score(), Text: r.Text(), Metadata: r.Metadata()}
	}
	return hits
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// HealthCheck forwards to the custom embedder when it exposes one.
func (a *embedderAdapter) HealthCheck(ctx context.Context) error {
	if hc, ok := a.inner.(interface{ HealthCheck(context.Context) error }); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
