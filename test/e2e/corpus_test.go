package e2e

import (
	"bytes"
	"testing"
)

func TestBuildCorpus_Sanity(t *testing.T) {
	corpus := BuildCorpus()
	if len(corpus.Images) == 0 {
		t.Fatal("corpus has no images")
	}
	if len(corpus.Queries) == 0 {
		t.Fatal("corpus has no query cases")
	}

	ids := make(map[string]bool)
	for _, img := range corpus.Images {
		if img.ID == "" || img.Name == "" {
			t.Errorf("corpus image with empty id or name: %+v", img)
		}
		if ids[img.ID] {
			t.Errorf("duplicate corpus id %q", img.ID)
		}
		ids[img.ID] = true
	}
	for _, q := range corpus.Queries {
		if len(q.ExpectedIDs) == 0 {
			t.Errorf("query %q has no expected ids", q.Description)
		}
		for _, id := range q.ExpectedIDs {
			if !ids[id] {
				t.Errorf("query %q expects unknown id %q", q.Description, id)
			}
		}
	}
}

func TestImageSpec_RenderDeterministic(t *testing.T) {
	corpus := BuildCorpus()
	spec := corpus.Images[0].Spec
	a := spec.Render()
	b := spec.Render()
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("rendering the same spec twice must give identical pixels")
	}
}

func TestImageSpec_RenderDistinct(t *testing.T) {
	corpus := BuildCorpus()
	seen := make(map[string]string)
	for _, img := range corpus.Images {
		key := string(img.Spec.Render().Pix)
		if other, dup := seen[key]; dup {
			t.Errorf("images %q and %q render identically", img.ID, other)
		}
		seen[key] = img.ID
	}
}
