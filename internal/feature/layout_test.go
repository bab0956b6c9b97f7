package feature

import "testing"

func TestVector_Segments(t *testing.T) {
	tests := []struct {
		name    string
		version LayoutVersion
		total   int
		wantEmb int
	}{
		{"v1 with 4-dim embedding", LayoutV1, 4 + ColorLen + 2, 4},
		{"v2 with 4-dim embedding", LayoutV2, 4 + ColorLen + 6, 4},
		{"v2 with no embedding", LayoutV2, ColorLen + 6, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Vector{Version: tt.version, Values: make([]float32, tt.total)}
			if got := v.EmbeddingLen(); got != tt.wantEmb {
				t.Errorf("EmbeddingLen() = %d, want %d", got, tt.wantEmb)
			}
			if got := len(v.Color()); got != ColorLen {
				t.Errorf("len(Color()) = %d, want %d", got, ColorLen)
			}
			if got := len(v.Pattern()); got != tt.version.PatternLen() {
				t.Errorf("len(Pattern()) = %d, want %d", got, tt.version.PatternLen())
			}
		})
	}
}

func TestVector_Malformed(t *testing.T) {
	// Too short to hold the fixed suffix for its version.
	v := Vector{Version: LayoutV2, Values: make([]float32, 5)}
	if v.EmbeddingLen() != 0 {
		t.Errorf("EmbeddingLen() = %d, want 0", v.EmbeddingLen())
	}
	if v.Color() != nil {
		t.Error("Color() should be nil for a malformed vector")
	}
	if v.Pattern() != nil {
		t.Error("Pattern() should be nil for a malformed vector")
	}
}

func TestVector_IsZero(t *testing.T) {
	if !(Vector{}).IsZero() {
		t.Error("empty vector should be zero")
	}
	if !Zero(LayoutV2, 8).IsZero() {
		t.Error("Zero() should produce a zero vector")
	}
	v := Zero(LayoutV2, 8)
	v.Values[3] = 0.1
	if v.IsZero() {
		t.Error("vector with a nonzero value should not be zero")
	}
}

func TestZero_Length(t *testing.T) {
	v := Zero(LayoutV1, 10)
	if len(v.Values) != 10+ColorLen+LayoutV1.PatternLen() {
		t.Errorf("length = %d, want %d", len(v.Values), 10+ColorLen+LayoutV1.PatternLen())
	}
}

func TestLayoutVersion_Known(t *testing.T) {
	if !LayoutV1.Known() || !LayoutV2.Known() {
		t.Error("registered versions should be known")
	}
	if LayoutVersion(0).Known() || LayoutVersion(3).Known() {
		t.Error("unregistered versions should not be known")
	}
}
