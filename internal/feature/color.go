package feature

import (
	"image"

	"github.com/sokkuri/sokkuri/internal/imaging"
)

// ColorConfig holds tunable thresholds for the color descriptor. The cutoffs
// have no derivation beyond empirical tuning, so they are configuration rather
// than constants.
type ColorConfig struct {
	// Canvas is the square downsample size in pixels.
	Canvas int `yaml:"canvas"` // default: 100
	// DarkBrightness is the mean-channel intensity below which a pixel counts as dark (0-255).
	DarkBrightness float64 `yaml:"dark_brightness"` // default: 60
	// LightBrightness is the intensity above which a pixel may count as light (0-255).
	LightBrightness float64 `yaml:"light_brightness"` // default: 200
	// LightMaxSpread is the maximum channel spread for a light pixel (keeps saturated colors out).
	LightMaxSpread float64 `yaml:"light_max_spread"` // default: 30
	// BrownRedLead is the minimum R-B margin for a brown pixel (0-255).
	BrownRedLead float64 `yaml:"brown_red_lead"` // default: 40
	// BrownMinRed and BrownMaxRed bound the red channel for brown (mid-brightness band).
	BrownMinRed float64 `yaml:"brown_min_red"` // default: 60
	BrownMaxRed float64 `yaml:"brown_max_red"` // default: 200
}

// DefaultColorConfig returns the default color descriptor thresholds.
func DefaultColorConfig() ColorConfig {
	return ColorConfig{
		Canvas:          100,
		DarkBrightness:  60,
		LightBrightness: 200,
		LightMaxSpread:  30,
		BrownRedLead:    40,
		BrownMinRed:     60,
		BrownMaxRed:     200,
	}
}

// ApplyDefaults fills zero values with defaults.
func (c *ColorConfig) ApplyDefaults() {
	d := DefaultColorConfig()
	if c.Canvas == 0 {
		c.Canvas = d.Canvas
	}
	if c.DarkBrightness == 0 {
		c.DarkBrightness = d.DarkBrightness
	}
	if c.LightBrightness == 0 {
		c.LightBrightness = d.LightBrightness
	}
	if c.LightMaxSpread == 0 {
		c.LightMaxSpread = d.LightMaxSpread
	}
	if c.BrownRedLead == 0 {
		c.BrownRedLead = d.BrownRedLead
	}
	if c.BrownMinRed == 0 {
		c.BrownMinRed = d.BrownMinRed
	}
	if c.BrownMaxRed == 0 {
		c.BrownMaxRed = d.BrownMaxRed
	}
}

// ColorDescriptor computes the 6-value color segment for img:
// [meanR, meanG, meanB, darkFraction, brownFraction, lightFraction], each in [0,1].
// Deterministic; an empty image yields all zeros.
func ColorDescriptor(img image.Image, cfg ColorConfig) []float32 {
	out := make([]float32, ColorLen)
	if imaging.IsEmpty(img) {
		return out
	}
	canvas := imaging.Downsample(img, cfg.Canvas, cfg.Canvas)

	var sumR, sumG, sumB float64
	var dark, brown, light int
	total := cfg.Canvas * cfg.Canvas
	for y := 0; y < cfg.Canvas; y++ {
		for x := 0; x < cfg.Canvas; x++ {
			i := canvas.PixOffset(x, y)
			r := float64(canvas.Pix[i])
			g := float64(canvas.Pix[i+1])
			b := float64(canvas.Pix[i+2])
			sumR += r
			sumG += g
			sumB += b

			brightness := (r + g + b) / 3
			spread := max3(r, g, b) - min3(r, g, b)
			switch {
			case brightness < cfg.DarkBrightness:
				dark++
			case r > g && g > b && r-b >= cfg.BrownRedLead && r >= cfg.BrownMinRed && r <= cfg.BrownMaxRed:
				brown++
			case brightness > cfg.LightBrightness && spread < cfg.LightMaxSpread:
				light++
			}
		}
	}

	n := float64(total)
	out[0] = float32(sumR / n / 255)
	out[1] = float32(sumG / n / 255)
	out[2] = float32(sumB / n / 255)
	out[3] = float32(float64(dark) / n)
	out[4] = float32(float64(brown) / n)
	out[5] = float32(float64(light) / n)
	return out
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func min3(a, b, c float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
