package embedding

import (
	"context"
	"image"
	"math"

	"github.com/sokkuri/sokkuri/pkg/utils"
)

// MockProvider is a deterministic provider for tests and for running without a
// model. The vector is derived from the image fingerprint, so identical pixels
// always embed identically and distinct images diverge.
type MockProvider struct {
	dimensions int
}

// NewMockProvider returns a provider producing deterministic embeddings of the
// given dimensionality.
func NewMockProvider(dimensions int) *MockProvider {
	if dimensions <= 0 {
		dimensions = 1280
	}
	return &MockProvider{dimensions: dimensions}
}

// Infer returns a unit-norm embedding seeded by the image content hash.
func (p *MockProvider) Infer(ctx context.Context, img image.Image) ([]float32, error) {
	seed := hashSeed(Fingerprint(img))
	emb := make([]float32, p.dimensions)
	for i := range emb {
		emb[i] = float32(math.Sin(float64(seed)*float64(i+1)) * 0.1)
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// Dimensions returns the embedding dimensionality.
func (p *MockProvider) Dimensions() int {
	return p.dimensions
}

// Close is a no-op for MockProvider.
func (p *MockProvider) Close() error {
	return nil
}

func hashSeed(s string) uint32 {
	// FNV-1a
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
