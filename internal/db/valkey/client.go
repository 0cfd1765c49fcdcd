package valkey

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/retrievex/internal/db"
	"github.com/kailas-cloud/retrievex/internal/db/redis"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Store implements db.Store for Valkey with the valkey-search module.
// Wire protocol and hash commands are shared with the Redis driver; valkey-search
// indexes TAG, NUMERIC and VECTOR fields only, so text search is unavailable.
type Store struct {
	*redis.Store
}

// NewStore creates a Valkey store via rueidis.
func NewStore(cfg redis.Config) (*Store, error) {
	base, err := redis.NewStore(cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Store: base}, nil
}

// NewStoreForTest creates a Store with an injected client (for unit tests with mocks).
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{Store: redis.NewStoreFromClient(c)}
}

// SupportsTextSearch returns false: valkey-search has no TEXT fields or BM25.
func (s *Store) SupportsTextSearch(_ context.Context) bool {
	return false
}

// CreateIndex creates the index without TEXT fields, which valkey-search rejects.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	stripped := *def
	stripped.Fields = make([]db.IndexField, 0, len(def.Fields))
	for _, f := range def.Fields {
		if f.Type != db.IndexFieldText {
			stripped.Fields = append(stripped.Fields, f)
		}
	}
	return s.Store.CreateIndex(ctx, &stripped)
}

// SearchBM25 always fails with db.ErrTextSearchUnsupported.
func (s *Store) SearchBM25(_ context.Context, _ *db.TextQuery) (*db.SearchResult, error) {
	return nil, &db.Error{Op: db.OpSearch, Err: db.ErrTextSearchUnsupported}
}

// SearchCount returns document count. Falls back to SCAN for query="*"
// because valkey-search does not support bare FT.SEARCH without KNN.
func (s *Store) SearchCount(ctx context.Context, index, query string) (int, error) {
	if query != "*" {
		return s.Store.SearchCount(ctx, index, query)
	}
	keys, err := s.Scan(ctx, indexToKeyPrefix(index)+"*")
	if err != nil {
		return 0, fmt.Errorf("scan for count: %w", err)
	}
	return len(keys), nil
}

// indexToKeyPrefix converts index name to a SCAN prefix.
// "retrievex:phrases:idx" -> "retrievex:phrases:"
func indexToKeyPrefix(index string) string {
	if strings.HasSuffix(index, ":idx") {
		return index[:len(index)-3]
	}
	return index + ":"
}
