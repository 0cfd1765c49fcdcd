// Package db defines the store contract behind the retrieval stack: hashes
// for documents, plain keys for the embedding cache, and FT indexes for
// lexical and vector search. Redis and Valkey implement it.
package db

import (
	"context"
	"time"
)

// Store is everything the application needs from one backend.
//
//nolint:interfacebloat // facade; consumers depend on narrow sub-interfaces
type Store interface {
	Pinger
	HashStore
	KeyScanner
	KVStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity. Health is reported OK only when it succeeds.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem is one document hash for a pipelined batch write.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore stores documents as hashes.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	// HSetMulti writes all items in one pipeline and fails if any write fails.
	HSetMulti(ctx context.Context, items []HashSetItem) error
	// HGetAll returns an empty map for a missing key.
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	// HSetExisting sets fields and removes the listed ones in one atomic step,
	// only when key exists. It reports false, writing nothing, for a missing key.
	HSetExisting(ctx context.Context, key string, fields map[string]string, remove []string) (bool, error)
	// Del returns the number of keys removed, 0 for a missing key.
	Del(ctx context.Context, key string) (int64, error)
	DelMulti(ctx context.Context, keys []string) error
}

// KeyScanner lists keys by glob pattern.
type KeyScanner interface {
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// KVStore holds opaque values such as cached embeddings.
// Get returns ErrKeyNotFound for a missing key.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// IndexManager creates and inspects FT indexes.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	// SupportsTextSearch reports whether TEXT fields and BM25 queries are available.
	SupportsTextSearch(ctx context.Context) bool
}

// Searcher runs queries against an FT index.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchBM25(ctx context.Context, q *TextQuery) (*SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}
