package document

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"testing"

	"github.com/kailas-cloud/retrievex/internal/db"
	"github.com/kailas-cloud/retrievex/internal/domain/search/filter"
	"github.com/kailas-cloud/retrievex/internal/repository/index"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn      func(ctx context.Context, key string, fields map[string]string) error
	hsetMultiFn func(ctx context.Context, items []db.HashSetItem) error
	hgetAllFn   func(ctx context.Context, key string) (map[string]string, error)
	updateFn    func(ctx context.Context, key string, fields map[string]string, remove []string) (bool, error)
	delFn       func(ctx context.Context, key string) (int64, error)
	delMultiFn  func(ctx context.Context, keys []string) error
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) HSetExisting(ctx context.Context, key string, fields map[string]string, remove []string) (bool, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, key, fields, remove)
	}
	return true, nil
}

func (m *mockStore) Del(ctx context.Context, key string) (int64, error) {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return 1, nil
}

func (m *mockStore) DelMulti(ctx context.Context, keys []string) error {
	if m.delMultiFn != nil {
		return m.delMultiFn(ctx, keys)
	}
	return nil
}

// hashStore keeps hashes in memory with the key semantics of Redis: HSET
// creates a missing key, DEL reports how many keys it removed.
type hashStore struct {
	mu     sync.Mutex
	hashes map[string]map[string]string
}

func newHashStore() *hashStore {
	return &hashStore{hashes: map[string]map[string]string{}}
}

func (h *hashStore) HSet(_ context.Context, key string, fields map[string]string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.hashes[key] == nil {
		h.hashes[key] = map[string]string{}
	}
	maps.Copy(h.hashes[key], fields)
	return nil
}

func (h *hashStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	for _, it := range items {
		_ = h.HSet(ctx, it.Key, it.Fields)
	}
	return nil
}

func (h *hashStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return maps.Clone(h.hashes[key]), nil
}

func (h *hashStore) HSetExisting(_ context.Context, key string, fields map[string]string, remove []string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cur, ok := h.hashes[key]
	if !ok {
		return false, nil
	}
	maps.Copy(cur, fields)
	for _, f := range remove {
		delete(cur, f)
	}
	return true, nil
}

func (h *hashStore) Del(_ context.Context, key string) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.hashes[key]; !ok {
		return 0, nil
	}
	delete(h.hashes, key)
	return 1, nil
}

func (h *hashStore) DelMulti(ctx context.Context, keys []string) error {
	for _, k := range keys {
		_, _ = h.Del(ctx, k)
	}
	return nil
}

func newTestRepo(t *testing.T, s store) *Repo {
	t.Helper()
	n := 0
	layout := index.Layout{
		KeyPrefix:  "retrievex:",
		Name:       "phrases",
		Dimensions: 2,
		Fields:     filter.Schema{"lang": filter.KindTag},
	}
	return New(s, layout).WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})
}
