package feature

import (
	"image/color"
	"math"
	"testing"
)

func TestComposer_Compose(t *testing.T) {
	c := NewComposer(LayoutV2, 4, ExtractorConfig{})
	img := solidImage(32, 32, color.RGBA{150, 100, 50, 255})
	vec := c.Compose([]float32{1, 2, 3, 4}, img)

	if vec.Version != LayoutV2 {
		t.Errorf("version = %d, want %d", vec.Version, LayoutV2)
	}
	if len(vec.Values) != c.TotalLen() {
		t.Fatalf("length = %d, want %d", len(vec.Values), c.TotalLen())
	}
	if vec.IsZero() {
		t.Fatal("vector should not be the zero sentinel")
	}

	// Embedding segment is L2-normalized.
	var norm float64
	for _, v := range vec.Embedding() {
		norm += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-5 {
		t.Errorf("embedding norm = %f, want 1", math.Sqrt(norm))
	}

	if got := vec.Color(); len(got) != ColorLen {
		t.Errorf("color segment length = %d, want %d", len(got), ColorLen)
	}
	if got := vec.Pattern(); len(got) != LayoutV2.PatternLen() {
		t.Errorf("pattern segment length = %d, want %d", len(got), LayoutV2.PatternLen())
	}
}

func TestComposer_WrongEmbeddingLength(t *testing.T) {
	c := NewComposer(LayoutV2, 4, ExtractorConfig{})
	img := solidImage(16, 16, color.RGBA{0, 0, 0, 255})
	vec := c.Compose([]float32{1, 2, 3}, img)
	if !vec.IsZero() {
		t.Error("mismatched embedding length should yield the zero sentinel")
	}
	if len(vec.Values) != c.TotalLen() {
		t.Errorf("sentinel length = %d, want %d", len(vec.Values), c.TotalLen())
	}
}

func TestComposer_Deterministic(t *testing.T) {
	c := NewComposer(LayoutV1, 3, ExtractorConfig{})
	img := solidImage(20, 20, color.RGBA{200, 60, 120, 255})
	emb := []float32{0.5, -0.2, 0.8}
	a := c.Compose(emb, img)
	b := c.Compose(emb, img)
	for i := range a.Values {
		if a.Values[i] != b.Values[i] {
			t.Fatalf("value %d differs between runs", i)
		}
	}
}

func TestComposer_UnknownVersionFallsBack(t *testing.T) {
	c := NewComposer(LayoutVersion(99), 2, ExtractorConfig{})
	if c.Version() != LayoutV2 {
		t.Errorf("version = %d, want fallback to %d", c.Version(), LayoutV2)
	}
}

func TestComposer_InputNotMutated(t *testing.T) {
	c := NewComposer(LayoutV2, 2, ExtractorConfig{})
	emb := []float32{3, 4}
	c.Compose(emb, solidImage(8, 8, color.RGBA{10, 10, 10, 255}))
	if emb[0] != 3 || emb[1] != 4 {
		t.Errorf("input embedding was mutated: %v", emb)
	}
}
