package retrievex

import (
	"errors"

	"github.com/kailas-cloud/retrievex/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidRequest         = domain.ErrInvalidRequest
	ErrNotFound               = domain.ErrDocumentNotFound
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrRateLimited            = domain.ErrRateLimited
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrStoreUnavailable       = domain.ErrStoreUnavailable
	ErrTimeout                = domain.ErrTimeout
	ErrLexicalNotSupported    = domain.ErrKeywordSearchNotSupported
)

// ErrorKind classifies an error the same way the HTTP API does, e.g.
// "invalid_request", "not_found" or "store_unavailable".
func ErrorKind(err error) string {
	return string(domain.KindOf(err))
}

// FailedItem returns the input index of the item that aborted a batch.
func FailedItem(err error) (int, bool) {
	var be *domain.BatchItemError
	if errors.As(err, &be) {
		return be.Index, true
	}
	return 0, false
}
