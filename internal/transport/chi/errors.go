package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/retrievex/internal/domain"
	"github.com/kailas-cloud/retrievex/internal/logger"
)

// codeUnauthorized is reported by the auth middleware; it has no domain error.
const codeUnauthorized domain.Kind = "unauthorized"

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Code    domain.Kind `json:"code"`
	Message string      `json:"message"`
	// Index is the position of the batch item that aborted the batch.
	Index *int `json:"index,omitempty"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// kindStatus maps error kinds to HTTP status codes.
var kindStatus = map[domain.Kind]int{
	domain.KindInvalidRequest:   http.StatusBadRequest,
	domain.KindNotFound:         http.StatusNotFound,
	domain.KindProviderError:    http.StatusBadGateway,
	domain.KindRateLimited:      http.StatusTooManyRequests,
	domain.KindStoreUnavailable: http.StatusServiceUnavailable,
	domain.KindTimeout:          http.StatusGatewayTimeout,
	domain.KindNotSupported:     http.StatusNotImplemented,
	domain.KindInternal:         http.StatusInternalServerError,
}

// errorHandlers run in order; the first match writes the response.
var errorHandlers = []errorHandler{
	batchItemHandler,
	kindHandler,
}

// batchItemHandler reports the failing item position alongside the kind.
func batchItemHandler(w http.ResponseWriter, err error) bool {
	var bie *domain.BatchItemError
	if !errors.As(err, &bie) {
		return false
	}
	kind := domain.KindOf(bie.Err)
	if kind == domain.KindInternal {
		return false
	}
	idx := bie.Index
	writeJSON(w, kindStatus[kind], errorResponse{
		Code:    kind,
		Message: clientMessage(err, kind),
		Index:   &idx,
	})
	return true
}

// kindHandler maps every classified, non-internal error to its status code.
func kindHandler(w http.ResponseWriter, err error) bool {
	kind := domain.KindOf(err)
	if kind == domain.KindInternal {
		return false
	}
	writeError(w, kindStatus[kind], kind, clientMessage(err, kind))
	return true
}

// clientMessage returns a message that is safe to show to the caller.
// Validation details are returned verbatim; upstream failures are reduced
// to their sentinel text so driver and provider internals stay server-side.
func clientMessage(err error, kind domain.Kind) string {
	switch kind {
	case domain.KindInvalidRequest, domain.KindNotFound, domain.KindNotSupported:
		return err.Error()
	case domain.KindRateLimited:
		return domain.ErrRateLimited.Error()
	case domain.KindProviderError:
		return domain.ErrEmbeddingProviderError.Error()
	case domain.KindStoreUnavailable:
		return domain.ErrStoreUnavailable.Error()
	case domain.KindTimeout:
		return domain.ErrTimeout.Error()
	default:
		return "internal error"
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	for _, h := range errorHandlers {
		if h(w, err) {
			log.Warn("request failed", zap.String("kind", string(domain.KindOf(err))), zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, domain.KindInternal, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code domain.Kind, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
