//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
	"image"
)

// ONNXProvider stub type when built without CGO (see onnx.go for the real implementation).
type ONNXProvider struct{}

// NewONNXProvider returns an error when built without CGO (ONNX not available).
func NewONNXProvider(_ string, _, _, _ int) (*ONNXProvider, error) {
	return nil, errors.New("ONNX provider requires CGO; build with CGO_ENABLED=1 and onnxruntime")
}

// Infer always fails on the stub.
func (p *ONNXProvider) Infer(_ context.Context, _ image.Image) ([]float32, error) {
	return nil, ErrProviderNotReady
}

// Dimensions returns 0 on the stub.
func (p *ONNXProvider) Dimensions() int { return 0 }

// Close is a no-op on the stub.
func (p *ONNXProvider) Close() error { return nil }
