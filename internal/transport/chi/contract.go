package chi

import (
	"context"

	domdoc "github.com/kailas-cloud/retrievex/internal/domain/document"
	"github.com/kailas-cloud/retrievex/internal/domain/document/patch"
	"github.com/kailas-cloud/retrievex/internal/domain/search/request"
	"github.com/kailas-cloud/retrievex/internal/domain/search/result"
	"github.com/kailas-cloud/retrievex/internal/repository/index"
	healthuc "github.com/kailas-cloud/retrievex/internal/usecase/health"
	"github.com/kailas-cloud/retrievex/internal/usecase/ingest"
)

// Searcher runs retrieval queries.
type Searcher interface {
	Search(ctx context.Context, req *request.Request) ([]result.Result, error)
}

// Ingester creates documents.
type Ingester interface {
	Ingest(ctx context.Context, item ingest.Item) (domdoc.Document, error)
	IngestBatch(ctx context.Context, items []ingest.Item) ([]domdoc.Document, error)
}

// Documents manages existing documents.
type Documents interface {
	Get(ctx context.Context, id string) (domdoc.Document, error)
	Update(ctx context.Context, id string, p patch.Patch) (domdoc.Document, error)
	Delete(ctx context.Context, id string) error
}

// IndexManager manages the search index.
type IndexManager interface {
	Ensure(ctx context.Context) (bool, error)
	Info(ctx context.Context) (index.Info, error)
}

// HealthChecker reports service health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
