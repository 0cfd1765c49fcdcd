package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	domdoc "github.com/kailas-cloud/retrievex/internal/domain/document"
	"github.com/kailas-cloud/retrievex/internal/domain/document/patch"
	"github.com/kailas-cloud/retrievex/internal/domain/search/request"
	"github.com/kailas-cloud/retrievex/internal/domain/search/result"
	"github.com/kailas-cloud/retrievex/internal/repository/index"
	healthuc "github.com/kailas-cloud/retrievex/internal/usecase/health"
	"github.com/kailas-cloud/retrievex/internal/usecase/ingest"
)

type mockSearcher struct {
	searchFn func(ctx context.Context, req *request.Request) ([]result.Result, error)
}

func (m *mockSearcher) Search(ctx context.Context, req *request.Request) ([]result.Result, error) {
	return m.searchFn(ctx, req)
}

type mockIngester struct {
	ingestFn func(ctx context.Context, item ingest.Item) (domdoc.Document, error)
	batchFn  func(ctx context.Context, items []ingest.Item) ([]domdoc.Document, error)
}

func (m *mockIngester) Ingest(ctx context.Context, item ingest.Item) (domdoc.Document, error) {
	return m.ingestFn(ctx, item)
}

func (m *mockIngester) IngestBatch(ctx context.Context, items []ingest.Item) ([]domdoc.Document, error) {
	return m.batchFn(ctx, items)
}

type mockDocuments struct {
	getFn    func(ctx context.Context, id string) (domdoc.Document, error)
	updateFn func(ctx context.Context, id string, p patch.Patch) (domdoc.Document, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockDocuments) Get(ctx context.Context, id string) (domdoc.Document, error) {
	return m.getFn(ctx, id)
}

func (m *mockDocuments) Update(ctx context.Context, id string, p patch.Patch) (domdoc.Document, error) {
	return m.updateFn(ctx, id, p)
}

func (m *mockDocuments) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

type mockIndex struct {
	ensureFn func(ctx context.Context) (bool, error)
	infoFn   func(ctx context.Context) (index.Info, error)
}

func (m *mockIndex) Ensure(ctx context.Context) (bool, error) { return m.ensureFn(ctx) }

func (m *mockIndex) Info(ctx context.Context) (index.Info, error) { return m.infoFn(ctx) }

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

// testDeps holds the mocks behind a test server. Unset mocks stay empty
// and panic when a handler reaches them.
type testDeps struct {
	search    mockSearcher
	ingest    mockIngester
	documents mockDocuments
	index     mockIndex
	health    mockHealth
	opts      Options
}

func (d *testDeps) handler() http.Handler {
	return NewServer(&d.search, &d.ingest, &d.documents, &d.index, &d.health, d.opts, nil).Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v (body %q)", err, rr.Body.String())
	}
	return resp
}

func testDoc(id, text string, meta map[string]any) domdoc.Document {
	return domdoc.Reconstruct(id, text, meta, nil)
}
