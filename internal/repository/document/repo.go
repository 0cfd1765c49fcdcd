package document

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/kailas-cloud/retrievex/internal/db"
	"github.com/kailas-cloud/retrievex/internal/domain"
	domdoc "github.com/kailas-cloud/retrievex/internal/domain/document"
	"github.com/kailas-cloud/retrievex/internal/repository/index"
)

// store is the consumer interface for documents (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSetExisting(ctx context.Context, key string, fields map[string]string, remove []string) (bool, error)
	Del(ctx context.Context, key string) (int64, error)
	DelMulti(ctx context.Context, keys []string) error
}

// Repo implements the document repositories of the ingest and document use cases.
type Repo struct {
	store  store
	layout index.Layout
	newID  func() string
}

// New creates a document repository. Ids are random UUIDv4 strings.
func New(s store, l index.Layout) *Repo {
	return &Repo{store: s, layout: l, newID: uuid.NewString}
}

// WithIDGenerator replaces the id source.
func (r *Repo) WithIDGenerator(fn func() string) *Repo {
	r.newID = fn
	return r
}

// Insert assigns an id to doc and stores it.
func (r *Repo) Insert(ctx context.Context, doc domdoc.Document) (domdoc.Document, error) {
	stored := doc.WithID(r.newID())
	fields, err := r.layout.Encode(stored)
	if err != nil {
		return domdoc.Document{}, err
	}

	key := r.layout.DocKey(stored.ID())
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return domdoc.Document{}, index.MapStoreErr("hset "+key, err)
	}
	return stored, nil
}

// InsertMany assigns ids and stores all documents in one pipelined round-trip.
// When the pipeline fails part-way, every key of the batch is removed best-effort
// so that no partial batch stays visible.
func (r *Repo) InsertMany(ctx context.Context, docs []domdoc.Document) ([]domdoc.Document, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	stored := make([]domdoc.Document, len(docs))
	items := make([]db.HashSetItem, len(docs))
	for i := range docs {
		stored[i] = docs[i].WithID(r.newID())
		fields, err := r.layout.Encode(stored[i])
		if err != nil {
			return nil, domain.NewBatchItemError(i, err)
		}
		items[i] = db.HashSetItem{Key: r.layout.DocKey(stored[i].ID()), Fields: fields}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		keys := make([]string, len(items))
		for i, item := range items {
			keys[i] = item.Key
		}
		if delErr := r.store.DelMulti(context.WithoutCancel(ctx), keys); delErr != nil {
			return nil, fmt.Errorf("%w (rollback failed: %v)", index.MapStoreErr("hset batch", err), delErr)
		}
		return nil, index.MapStoreErr("hset batch", err)
	}
	return stored, nil
}

// Get returns a document by id, including its vector.
func (r *Repo) Get(ctx context.Context, id string) (domdoc.Document, error) {
	key := r.layout.DocKey(id)
	fields, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domdoc.Document{}, index.MapStoreErr("hgetall "+key, err)
	}
	if len(fields) == 0 {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	return r.layout.Decode(id, fields)
}

// Replace overwrites an existing document with next. Fields written for prev but
// absent from next (dropped filterable metadata) are removed in the same step.
// A document deleted in the meantime stays deleted: Replace then returns
// ErrDocumentNotFound.
func (r *Repo) Replace(ctx context.Context, prev, next domdoc.Document) error {
	fields, err := r.layout.Encode(next)
	if err != nil {
		return err
	}
	oldFields, err := r.layout.Encode(prev)
	if err != nil {
		return err
	}

	var stale []string
	for name := range oldFields {
		if _, ok := fields[name]; !ok {
			stale = append(stale, name)
		}
	}
	slices.Sort(stale)

	key := r.layout.DocKey(next.ID())
	ok, err := r.store.HSetExisting(ctx, key, fields, stale)
	if err != nil {
		return index.MapStoreErr("update "+key, err)
	}
	if !ok {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// Delete removes a document. A missing document is ErrDocumentNotFound; of two
// concurrent deletes of one id exactly one succeeds.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := r.layout.DocKey(id)

	n, err := r.store.Del(ctx, key)
	if err != nil {
		return index.MapStoreErr("del "+key, err)
	}
	if n == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}
