// Package e2e provides end-to-end tests with a rendered image corpus and
// multiple query cases.
package e2e

import (
	"fmt"
	"image"
	"image/color"
)

// StripeDir selects the stripe orientation of a rendered image.
type StripeDir int

const (
	StripeNone StripeDir = iota
	StripeVertical
	StripeHorizontal
)

// ImageSpec describes a deterministic synthetic image: a base color,
// optionally striped with an alternate color. Equal specs render to
// byte-identical images, so a query built from a corpus spec always produces
// the exact feature vector of the indexed record.
type ImageSpec struct {
	Base        color.RGBA
	Alt         color.RGBA
	Stripes     StripeDir
	StripeWidth int
}

const renderSize = 64

// Render draws the described image onto a fixed-size canvas.
func (s ImageSpec) Render() *image.RGBA {
	width := s.StripeWidth
	if width <= 0 {
		width = 8
	}
	img := image.NewRGBA(image.Rect(0, 0, renderSize, renderSize))
	for y := 0; y < renderSize; y++ {
		for x := 0; x < renderSize; x++ {
			c := s.Base
			switch s.Stripes {
			case StripeVertical:
				if (x/width)%2 == 1 {
					c = s.Alt
				}
			case StripeHorizontal:
				if (y/width)%2 == 1 {
					c = s.Alt
				}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// CorpusImage is one entry of the E2E corpus.
type CorpusImage struct {
	ID   string
	Name string
	Spec ImageSpec
}

// QueryCase defines a query image and the record ID(s) that must appear in
// the top results. When WantTop is set the first expected ID must be the
// number one hit.
type QueryCase struct {
	Description string
	Query       ImageSpec
	ExpectedIDs []string
	WantTop     bool
}

// Corpus holds rendered images and query cases for the E2E tests.
type Corpus struct {
	Images  []CorpusImage
	Queries []QueryCase
}

// BuildCorpus returns a corpus of solid and striped images spanning the dark,
// brown and light color families plus uncategorized hues, and query cases
// that assert duplicate detection and same-family retrieval.
func BuildCorpus() *Corpus {
	palette := []struct {
		name string
		c    color.RGBA
	}{
		{"black", color.RGBA{10, 10, 10, 255}},
		{"charcoal", color.RGBA{45, 45, 45, 255}},
		{"chestnut", color.RGBA{150, 100, 50, 255}},
		{"walnut", color.RGBA{120, 80, 40, 255}},
		{"snow", color.RGBA{245, 245, 245, 255}},
		{"pearl", color.RGBA{228, 228, 235, 255}},
		{"crimson", color.RGBA{200, 40, 60, 255}},
		{"azure", color.RGBA{40, 90, 200, 255}},
		{"olive", color.RGBA{110, 130, 60, 255}},
	}
	white := color.RGBA{250, 250, 250, 255}

	var images []CorpusImage
	add := func(id, name string, spec ImageSpec) string {
		images = append(images, CorpusImage{ID: id, Name: name, Spec: spec})
		return id
	}
	for _, p := range palette {
		add(fmt.Sprintf("img-%s-plain", p.name), p.name+"_plain.png", ImageSpec{Base: p.c})
		add(fmt.Sprintf("img-%s-vstripe", p.name), p.name+"_vertical_stripes.png",
			ImageSpec{Base: p.c, Alt: white, Stripes: StripeVertical})
		add(fmt.Sprintf("img-%s-hstripe", p.name), p.name+"_horizontal_stripes.png",
			ImageSpec{Base: p.c, Alt: white, Stripes: StripeHorizontal})
	}

	specOf := func(id string) ImageSpec {
		for _, img := range images {
			if img.ID == id {
				return img.Spec
			}
		}
		panic("unknown corpus id " + id)
	}

	queries := []QueryCase{
		{
			Description: "duplicate of a plain black image is the top hit",
			Query:       specOf("img-black-plain"),
			ExpectedIDs: []string{"img-black-plain"},
			WantTop:     true,
		},
		{
			Description: "duplicate of a striped chestnut image is the top hit",
			Query:       specOf("img-chestnut-vstripe"),
			ExpectedIDs: []string{"img-chestnut-vstripe"},
			WantTop:     true,
		},
		{
			Description: "duplicate of a horizontally striped azure image is the top hit",
			Query:       specOf("img-azure-hstripe"),
			ExpectedIDs: []string{"img-azure-hstripe"},
			WantTop:     true,
		},
		{
			Description: "near-black query retrieves the dark family",
			Query:       ImageSpec{Base: color.RGBA{25, 25, 25, 255}},
			ExpectedIDs: []string{"img-black-plain", "img-charcoal-plain"},
		},
		{
			Description: "near-white query retrieves the light family",
			Query:       ImageSpec{Base: color.RGBA{238, 238, 240, 255}},
			ExpectedIDs: []string{"img-snow-plain", "img-pearl-plain"},
		},
		{
			Description: "brown query retrieves the brown family",
			Query:       ImageSpec{Base: color.RGBA{140, 95, 45, 255}},
			ExpectedIDs: []string{"img-chestnut-plain", "img-walnut-plain"},
		},
	}

	return &Corpus{Images: images, Queries: queries}
}
