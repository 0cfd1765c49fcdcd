package request

import (
	"strings"

	"github.com/kailas-cloud/retrievex/internal/domain"
	"github.com/kailas-cloud/retrievex/internal/domain/search/filter"
	"github.com/kailas-cloud/retrievex/internal/domain/search/mode"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultTopK    = 5
	MaxTopK        = 500
)

// Request is a validated search query.
type Request struct {
	query      string
	searchMode mode.Mode
	filters    filter.Expression
	topK       int
	vector     []float32
}

// New validates search parameters.
// topK must be within [1, maxTopK]; out-of-range values are rejected, never clamped.
// maxTopK <= 0 falls back to MaxTopK. Lexical and hybrid require non-blank query
// text; semantic accepts either query text or a precomputed vector.
func New(
	query string,
	m mode.Mode,
	filters filter.Expression,
	topK, maxTopK int,
	vector []float32,
) (Request, error) {
	if !m.IsValid() {
		return Request{}, domain.Invalid("invalid search mode: %q", m)
	}
	if len(query) > MaxQueryLength {
		return Request{}, domain.Invalid("query too long (max %d chars)", MaxQueryLength)
	}
	blank := strings.TrimSpace(query) == ""
	if m.NeedsQuery() && blank {
		return Request{}, domain.Invalid("query is required for %s search", m)
	}
	if m == mode.Semantic && blank && len(vector) == 0 {
		return Request{}, domain.Invalid("query or vector is required for semantic search")
	}
	if len(vector) > 0 && m != mode.Semantic {
		return Request{}, domain.Invalid("vector is only accepted for semantic search")
	}
	if maxTopK <= 0 {
		maxTopK = MaxTopK
	}
	if topK <= 0 {
		return Request{}, domain.Invalid("top_k must be positive, got %d", topK)
	}
	if topK > maxTopK {
		return Request{}, domain.Invalid("top_k exceeds maximum of %d, got %d", maxTopK, topK)
	}

	return Request{
		query:      query,
		searchMode: m,
		filters:    filters,
		topK:       topK,
		vector:     vector,
	}, nil
}

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// Mode returns the search strategy.
func (r *Request) Mode() mode.Mode { return r.searchMode }

// Filters returns the pre-filter expression.
func (r *Request) Filters() filter.Expression { return r.filters }

// TopK returns the maximum number of results.
func (r *Request) TopK() int { return r.topK }

// Vector returns the caller-supplied query vector, nil when the query is embedded.
func (r *Request) Vector() []float32 { return r.vector }
