package document

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/kailas-cloud/retrievex/internal/db"
	"github.com/kailas-cloud/retrievex/internal/domain"
	domdoc "github.com/kailas-cloud/retrievex/internal/domain/document"
)

func newDoc(t *testing.T, text string, meta map[string]any) domdoc.Document {
	t.Helper()
	d, err := domdoc.New(text, meta)
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	d.SetVector([]float32{0.5, 0.5})
	return d
}

func TestInsert_AssignsID(t *testing.T) {
	var gotKey string
	var gotFields map[string]string
	s := &mockStore{
		hsetFn: func(_ context.Context, key string, fields map[string]string) error {
			gotKey, gotFields = key, fields
			return nil
		},
	}

	doc, err := newTestRepo(t, s).Insert(context.Background(), newDoc(t, "hello", map[string]any{"lang": "en"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID() != "id-1" {
		t.Errorf("ID() = %q", doc.ID())
	}
	if gotKey != "retrievex:phrases:id-1" {
		t.Errorf("key = %q", gotKey)
	}
	if gotFields["__content"] != "hello" || gotFields["lang"] != "en" {
		t.Errorf("fields = %v", gotFields)
	}
}

func TestInsert_StoreUnavailable(t *testing.T) {
	s := &mockStore{
		hsetFn: func(context.Context, string, map[string]string) error {
			return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("%w: refused", db.ErrUnavailable)}
		},
	}
	_, err := newTestRepo(t, s).Insert(context.Background(), newDoc(t, "hello", nil))
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestInsertMany_Success(t *testing.T) {
	var items []db.HashSetItem
	s := &mockStore{
		hsetMultiFn: func(_ context.Context, in []db.HashSetItem) error {
			items = in
			return nil
		},
	}

	docs, err := newTestRepo(t, s).InsertMany(context.Background(), []domdoc.Document{
		newDoc(t, "a", nil), newDoc(t, "b", nil),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 || docs[0].ID() != "id-1" || docs[1].ID() != "id-2" {
		t.Fatalf("unexpected docs %+v", docs)
	}
	if len(items) != 2 || items[1].Fields["__content"] != "b" {
		t.Errorf("items = %+v", items)
	}
}

func TestInsertMany_RollsBackOnFailure(t *testing.T) {
	var deleted []string
	s := &mockStore{
		hsetMultiFn: func(context.Context, []db.HashSetItem) error {
			return &db.Error{Op: db.OpHSet, Err: errors.New("OOM")}
		},
		delMultiFn: func(_ context.Context, keys []string) error {
			deleted = keys
			return nil
		},
	}

	_, err := newTestRepo(t, s).InsertMany(context.Background(), []domdoc.Document{
		newDoc(t, "a", nil), newDoc(t, "b", nil),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	want := []string{"retrievex:phrases:id-1", "retrievex:phrases:id-2"}
	if !slices.Equal(deleted, want) {
		t.Errorf("deleted = %v, want %v", deleted, want)
	}
}

func TestGet_NotFound(t *testing.T) {
	_, err := newTestRepo(t, &mockStore{}).Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestGet_Decodes(t *testing.T) {
	s := &mockStore{
		hgetAllFn: func(_ context.Context, key string) (map[string]string, error) {
			if key != "retrievex:phrases:abc" {
				t.Errorf("key = %q", key)
			}
			return map[string]string{"__content": "hello", "__meta": `{"lang":"en"}`}, nil
		},
	}
	doc, err := newTestRepo(t, s).Get(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID() != "abc" || doc.Text() != "hello" || doc.Metadata()["lang"] != "en" {
		t.Errorf("unexpected doc %+v", doc)
	}
}

func TestReplace_RemovesStaleFields(t *testing.T) {
	var removed []string
	s := &mockStore{
		updateFn: func(_ context.Context, key string, fields map[string]string, remove []string) (bool, error) {
			if key != "retrievex:phrases:abc" {
				t.Errorf("key = %q", key)
			}
			if fields["other"] != "" {
				t.Errorf("non-filterable metadata must not be flattened: %v", fields)
			}
			removed = remove
			return true, nil
		},
	}
	prev := domdoc.Reconstruct("abc", "t", map[string]any{"lang": "en"}, []float32{1, 0})
	next := prev.WithMetadata(map[string]any{"other": "x"})

	if err := newTestRepo(t, s).Replace(context.Background(), prev, next); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(removed, []string{"lang"}) {
		t.Errorf("removed = %v, want [lang]", removed)
	}
}

func TestReplace_StoreError(t *testing.T) {
	s := &mockStore{
		updateFn: func(context.Context, string, map[string]string, []string) (bool, error) {
			return false, context.DeadlineExceeded
		},
	}
	prev := domdoc.Reconstruct("abc", "t", nil, []float32{1, 0})
	err := newTestRepo(t, s).Replace(context.Background(), prev, prev.WithText("u"))
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestReplace_AfterDeleteKeepsDocumentDeleted(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, newHashStore())

	doc, err := repo.Insert(ctx, newDoc(t, "hello", map[string]any{"lang": "en"}))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	cur, err := repo.Get(ctx, doc.ID())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := repo.Delete(ctx, doc.ID()); err != nil {
		t.Fatalf("delete: %v", err)
	}

	err = repo.Replace(ctx, cur, cur.WithMetadata(map[string]any{"lang": "de"}))
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("replace after delete: expected ErrDocumentNotFound, got %v", err)
	}
	if _, err := repo.Get(ctx, doc.ID()); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("get after replace: expected ErrDocumentNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, newHashStore())
	doc, err := repo.Insert(ctx, newDoc(t, "hello", nil))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := repo.Delete(ctx, doc.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Delete(ctx, doc.ID()); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("second delete: expected ErrDocumentNotFound, got %v", err)
	}
}

func TestDelete_ConcurrentOnlyOneSucceeds(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, newHashStore())
	doc, err := repo.Insert(ctx, newDoc(t, "hello", nil))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = repo.Delete(ctx, doc.ID())
		}()
	}
	wg.Wait()

	var ok, notFound int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrDocumentNotFound):
			notFound++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || notFound != workers-1 {
		t.Errorf("succeeded = %d, not found = %d; want 1 and %d", ok, notFound, workers-1)
	}
}

func TestDelete_StoreError(t *testing.T) {
	s := &mockStore{
		delFn: func(context.Context, string) (int64, error) {
			return 0, &db.Error{Op: db.OpDel, Err: fmt.Errorf("%w: refused", db.ErrUnavailable)}
		},
	}
	err := newTestRepo(t, s).Delete(context.Background(), "abc")
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
