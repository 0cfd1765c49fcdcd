package embedding

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/retrievex/internal/domain"
)

const probeText = "dimension probe"

// VerifyDimensions embeds a fixed probe and fails unless the provider returns
// vectors of exactly want values. It runs once at startup.
func VerifyDimensions(ctx context.Context, e domain.Embedder, want int) error {
	res, err := e.Embed(ctx, probeText)
	if err != nil {
		return fmt.Errorf("embed probe: %w", err)
	}
	if err := domain.CheckDimensions(res.Embedding, want); err != nil {
		return fmt.Errorf("embedding provider dimension: %w", err)
	}
	return nil
}
