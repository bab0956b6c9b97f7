//go:build cgo
// +build cgo

// ONNX-based image embedding (requires CGO and the onnxruntime shared library).

package embedding

import (
	"context"
	"fmt"
	"image"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/sokkuri/sokkuri/internal/imaging"
	"github.com/sokkuri/sokkuri/pkg/utils"
)

// ONNXProvider runs a pretrained vision model through ONNX Runtime. The model
// takes a [1,3,S,S] pixel tensor and produces a [1,dims] pooled embedding.
type ONNXProvider struct {
	session    *ort.AdvancedSession
	dimensions int
	inputSize  int
	cache      *Cache
	// Pre-allocated tensors for Run(); we update input data and read output.
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	mu           sync.Mutex
}

// NewONNXProvider creates an ONNX image provider. InitializeEnvironment is
// called if not already done. inputSize is the square model input resolution.
func NewONNXProvider(modelPath string, dimensions, inputSize, cacheSize int) (*ONNXProvider, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	inputData := make([]float32, 3*inputSize*inputSize)
	inputTensor, err := ort.NewTensor(ort.NewShape(1, 3, int64(inputSize), int64(inputSize)), inputData)
	if err != nil {
		return nil, fmt.Errorf("failed to create pixel_values tensor: %w", err)
	}
	outputData := make([]float32, dimensions)
	outputTensor, err := ort.NewTensor(ort.NewShape(1, int64(dimensions)), outputData)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"pixel_values"},
		[]string{"image_embeds"},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXProvider{
		session:      session,
		dimensions:   dimensions,
		inputSize:    inputSize,
		cache:        NewCache(cacheSize),
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Infer returns the embedding for img, using the cache when available.
func (p *ONNXProvider) Infer(ctx context.Context, img image.Image) ([]float32, error) {
	key := Fingerprint(img)
	if cached, ok := p.cache.Get(key); ok {
		return cached, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil, ErrProviderNotReady
	}

	p.fillInput(img)
	if err := p.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	outputData := p.outputTensor.GetData()
	embedding := make([]float32, p.dimensions)
	copy(embedding, outputData[:p.dimensions])

	utils.NormalizeL2(embedding)
	p.cache.Set(key, embedding)
	return embedding, nil
}

// fillInput writes img into the pre-allocated input tensor as planar CHW
// channels scaled to [0,1].
func (p *ONNXProvider) fillInput(img image.Image) {
	canvas := imaging.Downsample(img, p.inputSize, p.inputSize)
	data := p.inputTensor.GetData()
	plane := p.inputSize * p.inputSize
	for y := 0; y < p.inputSize; y++ {
		for x := 0; x < p.inputSize; x++ {
			i := canvas.PixOffset(x, y)
			j := y*p.inputSize + x
			data[j] = float32(canvas.Pix[i]) / 255
			data[plane+j] = float32(canvas.Pix[i+1]) / 255
			data[2*plane+j] = float32(canvas.Pix[i+2]) / 255
		}
	}
}

// Dimensions returns the embedding dimensionality.
func (p *ONNXProvider) Dimensions() int {
	return p.dimensions
}

// Close destroys the session and tensors.
func (p *ONNXProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	if p.session != nil {
		err = p.session.Destroy()
		p.session = nil
	}
	if p.inputTensor != nil {
		_ = p.inputTensor.Destroy()
		p.inputTensor = nil
	}
	if p.outputTensor != nil {
		_ = p.outputTensor.Destroy()
		p.outputTensor = nil
	}
	return err
}
