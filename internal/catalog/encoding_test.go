package catalog

import "testing"

func TestEncodeDecodeVector(t *testing.T) {
	values := []float32{0.5, -1.25, 0, 3.75e-3, 1}
	blob := encodeVector(values)
	if len(blob) != len(values)*4 {
		t.Fatalf("blob length = %d, want %d", len(blob), len(values)*4)
	}
	got, err := decodeVector(blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(values) {
		t.Fatalf("decoded length = %d, want %d", len(got), len(values))
	}
	for i := range values {
		if got[i] != values[i] {
			t.Errorf("value %d = %f, want %f", i, got[i], values[i])
		}
	}
}

func TestEncodeVector_Empty(t *testing.T) {
	if blob := encodeVector(nil); blob != nil {
		t.Errorf("empty input should encode to nil, got %d bytes", len(blob))
	}
	got, err := decodeVector(nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("nil blob should decode to nil, got %v", got)
	}
}

func TestDecodeVector_InvalidLength(t *testing.T) {
	if _, err := decodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for blob length not a multiple of 4")
	}
}
