package index

import (
	"context"
	"errors"

	"github.com/kailas-cloud/retrievex/internal/db"
)

// store is the consumer interface for index management (ISP).
type store interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SupportsTextSearch(ctx context.Context) bool
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Info describes the live search index.
type Info struct {
	Name       string
	Dimensions int
	Documents  int
	TextSearch bool
}

// Repo manages the FT index backing the document keyspace.
type Repo struct {
	store  store
	layout Layout
}

// New creates an index repository.
func New(s store, l Layout) *Repo {
	return &Repo{store: s, layout: l}
}

// Layout returns the keyspace layout.
func (r *Repo) Layout() Layout { return r.layout }

// Ensure creates the index if it does not exist. created is false when it already existed.
func (r *Repo) Ensure(ctx context.Context) (bool, error) {
	exists, err := r.store.IndexExists(ctx, r.layout.IndexName())
	if err != nil {
		return false, MapStoreErr("index exists", err)
	}
	if exists {
		return false, nil
	}

	def, err := r.layout.Definition(r.store.SupportsTextSearch(ctx))
	if err != nil {
		return false, err
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, MapStoreErr("create index", err)
	}
	return true, nil
}

// Drop removes the index. Documents stay in the keyspace.
func (r *Repo) Drop(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.layout.IndexName()); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return MapStoreErr("drop index", err)
	}
	return nil
}

// Info returns index name, dimension and document count.
func (r *Repo) Info(ctx context.Context) (Info, error) {
	n, err := r.store.SearchCount(ctx, r.layout.IndexName(), "*")
	if err != nil {
		return Info{}, MapStoreErr("count documents", err)
	}
	return Info{
		Name:       r.layout.IndexName(),
		Dimensions: r.layout.Dimensions,
		Documents:  n,
		TextSearch: r.store.SupportsTextSearch(ctx),
	}, nil
}

// TextSearch reports whether the backend can serve lexical queries.
func (r *Repo) TextSearch(ctx context.Context) bool {
	return r.store.SupportsTextSearch(ctx)
}
