package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/kailas-cloud/retrievex/internal/domain"
)

// FakeProvider derives vectors from a hash of the text. It performs no I/O and is
// fully deterministic: identical text yields a bit-identical vector.
type FakeProvider struct {
	dimensions int
}

// NewFakeProvider creates a synthetic provider producing vectors of the given length.
func NewFakeProvider(dimensions int) (*FakeProvider, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}
	return &FakeProvider{dimensions: dimensions}, nil
}

// Dimensions returns the vector length.
func (p *FakeProvider) Dimensions() int { return p.dimensions }

// Embed implements domain.Embedder. Blocks of SHA-256(counter || text) are read as
// little-endian uint32 words and mapped onto [-1, 1).
func (p *FakeProvider) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	vec := make([]float32, 0, p.dimensions)
	var counter [4]byte
	for block := uint32(0); len(vec) < p.dimensions; block++ {
		binary.LittleEndian.PutUint32(counter[:], block)
		h := sha256.New()
		h.Write(counter[:])
		h.Write([]byte(text))
		sum := h.Sum(nil)

		for i := 0; i+4 <= len(sum) && len(vec) < p.dimensions; i += 4 {
			word := binary.LittleEndian.Uint32(sum[i:])
			vec = append(vec, float32(float64(word)/float64(math.MaxUint32+1)*2-1))
		}
	}
	return domain.EmbeddingResult{Embedding: vec}, nil
}

// HealthCheck always succeeds.
func (p *FakeProvider) HealthCheck(context.Context) error { return nil }
