package search

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/retrievex/internal/db"
	"github.com/kailas-cloud/retrievex/internal/domain/search/filter"
	"github.com/kailas-cloud/retrievex/internal/domain/search/result"
	"github.com/kailas-cloud/retrievex/internal/repository/index"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SupportsTextSearch(ctx context.Context) bool
}

var returnFields = []string{index.FieldContent, index.FieldMeta}

// Repo implements usecase/search.Repository.
type Repo struct {
	store  store
	layout index.Layout
}

// New creates a search repository.
func New(s store, l index.Layout) *Repo {
	return &Repo{store: s, layout: l}
}

// SupportsTextSearch proxies the capability check from the store.
func (r *Repo) SupportsTextSearch(ctx context.Context) bool {
	return r.store.SupportsTextSearch(ctx)
}

// SearchKNN performs a KNN (vector similarity) search with filter pre-filtering.
// Scores are cosine similarities in [0,1].
func (r *Repo) SearchKNN(
	ctx context.Context, vector []float32, filters filter.Expression, topK int,
) ([]result.Result, error) {
	q := &db.KNNQuery{
		IndexName:    r.layout.IndexName(),
		VectorField:  index.VectorAlias,
		Filters:      filters,
		Vector:       vector,
		K:            topK,
		EFRuntime:    r.layout.EFRuntime(topK),
		ReturnFields: returnFields,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, index.MapStoreErr("search knn", err)
	}
	return r.toResults(sr)
}

// SearchBM25 performs a BM25 keyword search (requires a TEXT field in the index).
func (r *Repo) SearchBM25(
	ctx context.Context, query string, filters filter.Expression, topK int,
) ([]result.Result, error) {
	q := &db.TextQuery{
		IndexName:    r.layout.IndexName(),
		TextField:    index.FieldContent,
		Query:        query,
		Filters:      filters,
		TopK:         topK,
		ReturnFields: returnFields,
	}

	sr, err := r.store.SearchBM25(ctx, q)
	if err != nil {
		return nil, index.MapStoreErr("search bm25", err)
	}
	return r.toResults(sr)
}

func (r *Repo) toResults(sr *db.SearchResult) ([]result.Result, error) {
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	results := make([]result.Result, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		id := r.layout.IDFromKey(entry.Key)
		doc, err := r.layout.Decode(id, entry.Fields)
		if err != nil {
			return nil, fmt.Errorf("decode hit %s: %w", id, err)
		}
		results = append(results, result.New(id, entry.Score, doc.Text(), doc.Metadata()))
	}
	return results, nil
}
