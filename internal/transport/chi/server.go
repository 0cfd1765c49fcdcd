package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	gochi "github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/retrievex/internal/domain"
	"github.com/kailas-cloud/retrievex/internal/domain/document/patch"
	"github.com/kailas-cloud/retrievex/internal/domain/search/mode"
	"github.com/kailas-cloud/retrievex/internal/domain/search/request"
	logpkg "github.com/kailas-cloud/retrievex/internal/logger"
	"github.com/kailas-cloud/retrievex/internal/metrics"
	healthuc "github.com/kailas-cloud/retrievex/internal/usecase/health"
	"github.com/kailas-cloud/retrievex/internal/usecase/ingest"
)

// maxBodyBytes caps request bodies; a full batch of maximum-size texts fits.
const maxBodyBytes = 32 << 20

// Options tunes request defaults and limits.
type Options struct {
	// MaxTopK caps top_k; zero falls back to request.MaxTopK.
	MaxTopK int
	// APIKeys enables bearer authentication when non-empty.
	APIKeys []string
}

// Server serves the retrieval HTTP API.
type Server struct {
	search    Searcher
	ingest    Ingester
	documents Documents
	index     IndexManager
	health    HealthChecker
	opts      Options
	logger    *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	search Searcher,
	ingester Ingester,
	documents Documents,
	index IndexManager,
	health HealthChecker,
	opts Options,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		search:    search,
		ingest:    ingester,
		documents: documents,
		index:     index,
		health:    health,
		opts:      opts,
		logger:    logger,
	}
}

// Handler returns the routed API with the middleware stack applied.
func (s *Server) Handler() http.Handler {
	r := gochi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(s.opts.APIKeys))
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, domain.KindNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, domain.KindInvalidRequest, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Post("/index", s.EnsureIndex)
	r.Get("/index", s.IndexInfo)

	r.Post("/ingest", s.IngestTexts)
	r.Route("/documents", func(r gochi.Router) {
		r.Post("/", s.CreateDocument)
		r.Post("/batch", s.BatchCreate)
		r.Get("/{id}", s.GetDocument)
		r.Put("/{id}", s.UpdateDocument)
		r.Delete("/{id}", s.DeleteDocument)
	})

	r.Post("/search", s.Search)
	r.Post("/search/{mode}", s.Search)

	return r
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, healthResponse{
		Status:     string(report.Status),
		Checks:     checks,
		Index:      report.Info.Index,
		Dimensions: report.Info.Dimensions,
		Provider:   report.Info.Provider,
		Fusion:     report.Info.Fusion,
		TextSearch: report.Info.TextSearch,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// EnsureIndex handles POST /index.
func (s *Server) EnsureIndex(w http.ResponseWriter, r *http.Request) {
	created, err := s.index.Ensure(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	info, err := s.index.Info(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, indexResponse{
		Name:       info.Name,
		Dimensions: info.Dimensions,
		TextSearch: info.TextSearch,
		Created:    &created,
	})
}

// IndexInfo handles GET /index.
func (s *Server) IndexInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.index.Info(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	docs := info.Documents
	writeJSON(w, http.StatusOK, indexResponse{
		Name:       info.Name,
		Dimensions: info.Dimensions,
		Documents:  &docs,
		TextSearch: info.TextSearch,
	})
}

// CreateDocument handles POST /documents.
func (s *Server) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var body documentRequest
	if !s.decode(w, r, &body) {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	doc, err := s.ingest.Ingest(ctx, body.toItem())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusCreated, documentToResponse(doc))
}

// BatchCreate handles POST /documents/batch. The batch is all or nothing.
func (s *Server) BatchCreate(w http.ResponseWriter, r *http.Request) {
	var body batchRequest
	if !s.decode(w, r, &body) {
		return
	}

	items := make([]ingest.Item, len(body.Items))
	for i, it := range body.Items {
		items[i] = it.toItem()
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	docs, err := s.ingest.IngestBatch(ctx, items)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	out := make([]documentResponse, len(docs))
	for i := range docs {
		out[i] = documentToResponse(docs[i])
	}
	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusCreated, batchResponse{Count: len(out), Documents: out})
}

// IngestTexts handles POST /ingest: several texts sharing one metadata map.
func (s *Server) IngestTexts(w http.ResponseWriter, r *http.Request) {
	var body ingestRequest
	if !s.decode(w, r, &body) {
		return
	}

	items := make([]ingest.Item, len(body.Texts))
	for i, text := range body.Texts {
		items[i] = ingest.Item{Text: text, Metadata: body.Metadata}
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	docs, err := s.ingest.IngestBatch(ctx, items)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ids := make([]string, len(docs))
	for i := range docs {
		ids[i] = docs[i].ID()
	}
	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusCreated, ingestResponse{InsertedCount: len(ids), IDs: ids})
}

// GetDocument handles GET /documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documents.Get(r.Context(), gochi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToResponse(doc))
}

// UpdateDocument handles PUT /documents/{id}.
func (s *Server) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	var body updateRequest
	if !s.decode(w, r, &body) {
		return
	}

	p, err := patch.New(body.Text, body.Metadata, body.Partial)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	doc, err := s.documents.Update(ctx, gochi.URLParam(r, "id"), p)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, documentToResponse(doc))
}

// DeleteDocument handles DELETE /documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.documents.Delete(r.Context(), gochi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles POST /search and POST /search/{mode}.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var body searchRequest
	if !s.decode(w, r, &body) {
		return
	}

	req, err := s.searchRequest(gochi.URLParam(r, "mode"), body)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	r = r.WithContext(logpkg.WithFields(r.Context(),
		zap.String("search_mode", string(req.Mode())),
		zap.Int("top_k", req.TopK()),
	))
	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.search.Search(ctx, &req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, searchResponse{
		Mode:    string(req.Mode()),
		Results: resultsToResponse(results),
	})
}

// searchRequest resolves the mode (path wins, body must agree) and the default top_k.
func (s *Server) searchRequest(pathMode string, body searchRequest) (request.Request, error) {
	m := body.Mode
	if pathMode != "" {
		if m != "" && m != pathMode {
			return request.Request{}, domain.Invalid("mode %q in body conflicts with path mode %q", m, pathMode)
		}
		m = pathMode
	}

	topK := request.DefaultTopK
	if body.TopK != nil {
		topK = *body.TopK
	}

	filters, err := body.Filters.toExpression()
	if err != nil {
		return request.Request{}, err
	}

	return request.New(body.Query, mode.Mode(m), filters, topK, s.opts.MaxTopK, body.Vector)
}

// decode parses a JSON body. On failure it writes a 400 and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		msg := "invalid JSON body"
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			msg = fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit)
		case errors.Is(err, io.EOF):
			msg = "request body is required"
		}
		writeError(w, http.StatusBadRequest, domain.KindInvalidRequest, msg)
		return false
	}
	return true
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage.Used() {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens()))
	}
}
