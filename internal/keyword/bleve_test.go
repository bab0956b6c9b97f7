package keyword

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "names.bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestBleveIndex_IndexAndSearch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Index(ctx, "img:1", "sunset_beach.jpg"); err != nil {
		t.Fatal(err)
	}
	if err := idx.Index(ctx, "img:2", "mountain_lake.png"); err != nil {
		t.Fatal(err)
	}

	hits, err := idx.Search(ctx, "sunset", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ID != "img:1" {
		t.Fatalf("hits = %+v, want img:1", hits)
	}
	if hits[0].Score <= 0 {
		t.Errorf("score = %f, want positive", hits[0].Score)
	}
}

func TestBleveIndex_UnderscoreSplitting(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	if err := idx.Index(ctx, "img:1", "red_summer_dress.jpg"); err != nil {
		t.Fatal(err)
	}
	// Middle token is only reachable if underscores split into words.
	hits, err := idx.Search(ctx, "summer", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit for middle token, got %d", len(hits))
	}
}

func TestBleveIndex_Limit(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	names := []string{"cat_one.jpg", "cat_two.jpg", "cat_three.jpg"}
	for _, name := range names {
		if err := idx.Index(ctx, "img:"+name, name); err != nil {
			t.Fatal(err)
		}
	}
	hits, err := idx.Search(ctx, "cat", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Errorf("expected 2 hits with limit, got %d", len(hits))
	}
}

func TestBleveIndex_Delete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	_ = idx.Index(ctx, "img:1", "sunset.jpg")
	if err := idx.Delete(ctx, "img:1"); err != nil {
		t.Fatal(err)
	}
	hits, err := idx.Search(ctx, "sunset", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits after delete, got %d", len(hits))
	}
}

func TestBleveIndex_Clear(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	for _, name := range []string{"one.jpg", "two.jpg"} {
		_ = idx.Index(ctx, "img:"+name, name)
	}
	if err := idx.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	count, err := idx.index.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("doc count = %d, want 0 after clear", count)
	}
}

func TestBleveIndex_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.bleve")
	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := idx.Index(ctx, "img:1", "sunset.jpg"); err != nil {
		t.Fatal(err)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	idx, err = NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	hits, err := idx.Search(ctx, "sunset", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Errorf("expected 1 hit after reopen, got %d", len(hits))
	}
}
