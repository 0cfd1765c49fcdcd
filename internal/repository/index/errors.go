package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/retrievex/internal/db"
	"github.com/kailas-cloud/retrievex/internal/domain"
)

// MapStoreErr translates driver errors into domain errors, prefixed with op.
func MapStoreErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrUnavailable):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrTimeout, err)
	case errors.Is(err, db.ErrTextSearchUnsupported):
		return fmt.Errorf("%s: %w", op, domain.ErrKeywordSearchNotSupported)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
