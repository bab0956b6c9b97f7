// Package feature builds fixed-layout feature vectors from decoded images.
// A vector is the provider embedding followed by a color descriptor and a
// pattern descriptor; the layout version determines segment boundaries.
package feature

// LayoutVersion identifies which segments compose a feature vector and their lengths.
type LayoutVersion int

const (
	// LayoutV1 is embedding + color[6] + pattern[2] (edge density, pattern fraction).
	LayoutV1 LayoutVersion = 1
	// LayoutV2 is embedding + color[6] + pattern[6] (adds directional line-density ratios).
	LayoutV2 LayoutVersion = 2
)

// ColorLen is the color segment length, identical in every layout version.
const ColorLen = 6

// PatternLen returns the pattern segment length for the layout version, or 0 if unknown.
func (v LayoutVersion) PatternLen() int {
	switch v {
	case LayoutV1:
		return 2
	case LayoutV2:
		return 6
	default:
		return 0
	}
}

// Known reports whether v is a registered layout version.
func (v LayoutVersion) Known() bool {
	return v == LayoutV1 || v == LayoutV2
}

// Vector is a layout-tagged feature vector. Values holds the embedding segment
// first, then color, then pattern. Vectors of different versions share only the
// embedding prefix and must be sliced through the segment accessors.
type Vector struct {
	Version LayoutVersion `json:"layout_version"`
	Values  []float32     `json:"values"`
}

// EmbeddingLen returns the embedding segment length implied by the total length
// and the version's fixed suffix, or 0 when the vector is too short for its layout.
func (v Vector) EmbeddingLen() int {
	n := len(v.Values) - ColorLen - v.Version.PatternLen()
	if n < 0 {
		return 0
	}
	return n
}

// Embedding returns the embedding segment, or nil for a malformed vector.
func (v Vector) Embedding() []float32 {
	n := v.EmbeddingLen()
	if n == 0 && len(v.Values) == 0 {
		return nil
	}
	return v.Values[:n]
}

// Color returns the color segment, or nil when the vector is too short to hold one.
func (v Vector) Color() []float32 {
	n := v.EmbeddingLen()
	if len(v.Values) < n+ColorLen {
		return nil
	}
	return v.Values[n : n+ColorLen]
}

// Pattern returns the pattern segment, or nil when the vector is too short to hold one.
func (v Vector) Pattern() []float32 {
	n := v.EmbeddingLen()
	p := v.Version.PatternLen()
	if p == 0 || len(v.Values) < n+ColorLen+p {
		return nil
	}
	return v.Values[n+ColorLen : n+ColorLen+p]
}

// IsZero reports whether every value is zero (the fail-loud composer sentinel)
// or the vector is empty.
func (v Vector) IsZero() bool {
	for _, x := range v.Values {
		if x != 0 {
			return false
		}
	}
	return true
}

// Zero returns the all-zero sentinel vector of the expected length for the layout.
func Zero(version LayoutVersion, embeddingLen int) Vector {
	return Vector{
		Version: version,
		Values:  make([]float32, embeddingLen+ColorLen+version.PatternLen()),
	}
}
