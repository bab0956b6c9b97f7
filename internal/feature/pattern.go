package feature

import (
	"image"
	"math"

	"github.com/sokkuri/sokkuri/internal/imaging"
)

// PatternConfig holds tunable thresholds for the pattern descriptor.
type PatternConfig struct {
	// Canvas is the square downsample size in pixels.
	Canvas int `yaml:"canvas"` // default: 64
	// GradientThreshold is the minimum gradient magnitude for a pixel to count
	// as a pattern pixel (0-255 intensity scale).
	GradientThreshold float64 `yaml:"gradient_threshold"` // default: 30
	// DiagonalCloseness is the minimum ratio of the weaker to the stronger
	// gradient axis for an edge to count as diagonal rather than axis-aligned.
	DiagonalCloseness float64 `yaml:"diagonal_closeness"` // default: 0.6
}

// DefaultPatternConfig returns the default pattern descriptor thresholds.
func DefaultPatternConfig() PatternConfig {
	return PatternConfig{
		Canvas:            64,
		GradientThreshold: 30,
		DiagonalCloseness: 0.6,
	}
}

// ApplyDefaults fills zero values with defaults.
func (c *PatternConfig) ApplyDefaults() {
	d := DefaultPatternConfig()
	if c.Canvas == 0 {
		c.Canvas = d.Canvas
	}
	if c.GradientThreshold == 0 {
		c.GradientThreshold = d.GradientThreshold
	}
	if c.DiagonalCloseness == 0 {
		c.DiagonalCloseness = d.DiagonalCloseness
	}
}

// maxGradient is the largest possible central-difference gradient magnitude
// on the 0-255 intensity scale, used to normalize edge strength into [0,1].
var maxGradient = 255 * math.Sqrt2

// PatternDescriptor computes the pattern segment for img from local intensity
// gradients on a downsampled canvas. For LayoutV1 the result is
// [edgeStrength, patternDensity]; LayoutV2 appends
// [horizontalRatio, verticalRatio, diagonalRatio, dominantRatio]. All values in [0,1].
//
// The descriptor has no rotational invariance: rotating the input changes the
// directional ratios. Acceptable for near-duplicate detection, where candidate
// images share orientation.
func PatternDescriptor(img image.Image, cfg PatternConfig, version LayoutVersion) []float32 {
	out := make([]float32, version.PatternLen())
	if imaging.IsEmpty(img) || len(out) == 0 {
		return out
	}
	canvas := imaging.Downsample(img, cfg.Canvas, cfg.Canvas)
	lum := luminance(canvas, cfg.Canvas)

	var totalStrength float64
	var patternPixels, horizontal, vertical, diagonal int
	interior := (cfg.Canvas - 2) * (cfg.Canvas - 2)
	if interior <= 0 {
		return out
	}
	for y := 1; y < cfg.Canvas-1; y++ {
		for x := 1; x < cfg.Canvas-1; x++ {
			gx := lum[y*cfg.Canvas+x+1] - lum[y*cfg.Canvas+x-1]
			gy := lum[(y+1)*cfg.Canvas+x] - lum[(y-1)*cfg.Canvas+x]
			mag := math.Hypot(gx, gy)
			totalStrength += mag
			if mag <= cfg.GradientThreshold {
				continue
			}
			patternPixels++
			ax, ay := math.Abs(gx), math.Abs(gy)
			// A strong horizontal gradient is a vertical line and vice versa.
			switch {
			case math.Min(ax, ay) >= cfg.DiagonalCloseness*math.Max(ax, ay):
				diagonal++
			case ax > ay:
				vertical++
			default:
				horizontal++
			}
		}
	}

	n := float64(interior)
	out[0] = float32(totalStrength / n / maxGradient)
	out[1] = float32(float64(patternPixels) / n)
	if version == LayoutV2 {
		out[2] = float32(float64(horizontal) / n)
		out[3] = float32(float64(vertical) / n)
		out[4] = float32(float64(diagonal) / n)
		out[5] = maxOf(out[2], out[3], out[4])
	}
	return out
}

// luminance returns the mean-channel intensity (0-255) of each canvas pixel, row-major.
func luminance(canvas *image.RGBA, size int) []float64 {
	lum := make([]float64, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			i := canvas.PixOffset(x, y)
			lum[y*size+x] = (float64(canvas.Pix[i]) + float64(canvas.Pix[i+1]) + float64(canvas.Pix[i+2])) / 3
		}
	}
	return lum
}

func maxOf(vals ...float32) float32 {
	var m float32
	for _, v := range vals {
		if v > m {
			m = v
		}
	}
	return m
}
