// Package embedding provides image embedding providers and caching.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"image"

	"github.com/sokkuri/sokkuri/internal/imaging"
)

// ErrProviderNotReady is returned when inference is requested before the
// provider has loaded or after it failed to load. Callers decide whether to
// retry or surface the failure; the pipeline never degrades silently.
var ErrProviderNotReady = errors.New("embedding provider not ready")

// Provider produces a fixed-length dense vector for a decoded image.
// Implementations must be deterministic for a given image and configuration.
type Provider interface {
	Infer(ctx context.Context, img image.Image) ([]float32, error)
	Dimensions() int
	Close() error
}

// fingerprintCanvas is the downsample size used for cache keys. Small enough
// to hash cheaply, large enough that distinct images rarely collide.
const fingerprintCanvas = 32

// Fingerprint returns a stable content hash for img, used as the embedding
// cache key. The same pixels always produce the same fingerprint.
func Fingerprint(img image.Image) string {
	canvas := imaging.Downsample(img, fingerprintCanvas, fingerprintCanvas)
	sum := sha256.Sum256(canvas.Pix)
	return hex.EncodeToString(sum[:])
}
