package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest signals a malformed or out-of-range request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrRateLimited signals a rate limit hit that outlived the retry budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrStoreUnavailable signals that the document store cannot be reached.
	ErrStoreUnavailable = errors.New("document store unavailable")
	// ErrTimeout signals that an external call exceeded its deadline.
	ErrTimeout = errors.New("operation timed out")
	// ErrKeywordSearchNotSupported signals that the backend lacks keyword search.
	ErrKeywordSearchNotSupported = errors.New("keyword search not supported by backend")
)

// Kind is the stable, client-facing classification of an error.
type Kind string

// Error kinds.
const (
	KindInvalidRequest   Kind = "invalid_request"
	KindNotFound         Kind = "not_found"
	KindProviderError    Kind = "provider_error"
	KindRateLimited      Kind = "rate_limited"
	KindStoreUnavailable Kind = "store_unavailable"
	KindTimeout          Kind = "timeout"
	KindNotSupported     Kind = "not_supported"
	KindInternal         Kind = "internal_error"
)

// KindOf classifies err. Order matters: a provider error caused by a dimension
// mismatch is a provider error, not an invalid request.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrEmbeddingProviderError):
		return KindProviderError
	case errors.Is(err, ErrStoreUnavailable):
		return KindStoreUnavailable
	case errors.Is(err, ErrDocumentNotFound):
		return KindNotFound
	case errors.Is(err, ErrKeywordSearchNotSupported):
		return KindNotSupported
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrVectorDimMismatch):
		return KindInvalidRequest
	default:
		return KindInternal
	}
}

// BatchItemError reports the input position of the item that aborted a batch.
type BatchItemError struct {
	Index int
	Err   error
}

func (e *BatchItemError) Error() string {
	return fmt.Sprintf("batch item %d: %s", e.Index, e.Err.Error())
}

func (e *BatchItemError) Unwrap() error { return e.Err }

// NewBatchItemError wraps err with the failing item index.
func NewBatchItemError(index int, err error) error {
	return &BatchItemError{Index: index, Err: err}
}

// Invalid returns an ErrInvalidRequest with a formatted detail message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
