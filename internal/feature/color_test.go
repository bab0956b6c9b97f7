package feature

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestColorDescriptor_SolidColors(t *testing.T) {
	cfg := DefaultColorConfig()
	tests := []struct {
		name     string
		fill     color.RGBA
		wantDark float64
		wantBrn  float64
		wantLgt  float64
	}{
		{"black is dark", color.RGBA{0, 0, 0, 255}, 1, 0, 0},
		{"white is light", color.RGBA{255, 255, 255, 255}, 0, 0, 1},
		{"brown is brown", color.RGBA{150, 100, 50, 255}, 0, 1, 0},
		{"mid gray is none", color.RGBA{128, 128, 128, 255}, 0, 0, 0},
		{"saturated red is none", color.RGBA{255, 0, 0, 255}, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := ColorDescriptor(solidImage(50, 50, tt.fill), cfg)
			if len(desc) != ColorLen {
				t.Fatalf("expected %d values, got %d", ColorLen, len(desc))
			}
			if got := float64(desc[3]); math.Abs(got-tt.wantDark) > 0.01 {
				t.Errorf("dark fraction = %f, want %f", got, tt.wantDark)
			}
			if got := float64(desc[4]); math.Abs(got-tt.wantBrn) > 0.01 {
				t.Errorf("brown fraction = %f, want %f", got, tt.wantBrn)
			}
			if got := float64(desc[5]); math.Abs(got-tt.wantLgt) > 0.01 {
				t.Errorf("light fraction = %f, want %f", got, tt.wantLgt)
			}
		})
	}
}

func TestColorDescriptor_MeanChannels(t *testing.T) {
	desc := ColorDescriptor(solidImage(40, 40, color.RGBA{150, 100, 50, 255}), DefaultColorConfig())
	wants := []float64{150.0 / 255, 100.0 / 255, 50.0 / 255}
	for i, want := range wants {
		if got := float64(desc[i]); math.Abs(got-want) > 0.02 {
			t.Errorf("mean channel %d = %f, want %f", i, got, want)
		}
	}
}

func TestColorDescriptor_Bounds(t *testing.T) {
	desc := ColorDescriptor(solidImage(30, 20, color.RGBA{90, 200, 10, 255}), DefaultColorConfig())
	for i, v := range desc {
		if v < 0 || v > 1 {
			t.Errorf("value %d = %f out of [0,1]", i, v)
		}
	}
}

func TestColorDescriptor_Deterministic(t *testing.T) {
	img := solidImage(33, 47, color.RGBA{70, 140, 210, 255})
	cfg := DefaultColorConfig()
	a := ColorDescriptor(img, cfg)
	b := ColorDescriptor(img, cfg)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("value %d differs between runs: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestColorDescriptor_EmptyImage(t *testing.T) {
	desc := ColorDescriptor(nil, DefaultColorConfig())
	for i, v := range desc {
		if v != 0 {
			t.Errorf("value %d = %f, want 0 for empty image", i, v)
		}
	}
}
