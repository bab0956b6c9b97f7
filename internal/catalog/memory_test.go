package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/sokkuri/sokkuri/internal/feature"
)

func memRecord(id string, emb ...float32) *Record {
	values := append([]float32(nil), emb...)
	values = append(values, make([]float32, feature.ColorLen+feature.LayoutV2.PatternLen())...)
	return &Record{
		ID:         id,
		SourceName: id + ".png",
		Vector:     feature.Vector{Version: feature.LayoutV2, Values: values},
	}
}

func TestMemoryStore_CRUD(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	if err := store.Add(ctx, memRecord("a", 1)); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if got.SourceName != "a.png" {
		t.Errorf("got %+v", got)
	}
	if got.IndexedAt.IsZero() {
		t.Error("IndexedAt should be set on Add")
	}

	count, _ := store.Count(ctx)
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Deleting a missing record is not an error.
	if err := store.Delete(ctx, "missing"); err != nil {
		t.Errorf("delete of missing record: %v", err)
	}
}

func TestMemoryStore_InsertionOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	ids := []string{"c", "a", "b"}
	for i, id := range ids {
		if err := store.Add(ctx, memRecord(id, float32(i))); err != nil {
			t.Fatal(err)
		}
	}
	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for i, id := range ids {
		if all[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, all[i].ID, id)
		}
	}
}

func TestMemoryStore_ReplaceKeepsPosition(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_ = store.Add(ctx, memRecord(id, 1))
	}
	replaced := memRecord("b", 9)
	replaced.SourceName = "b-v2.png"
	if err := store.Add(ctx, replaced); err != nil {
		t.Fatal(err)
	}
	all, _ := store.GetAll(ctx)
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	if all[1].ID != "b" || all[1].SourceName != "b-v2.png" {
		t.Errorf("position 1 = %+v, want updated record b", all[1])
	}
}

func TestMemoryStore_Clear(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		_ = store.Add(ctx, memRecord(id, 1))
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	count, _ := store.Count(ctx)
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
	all, _ := store.GetAll(ctx)
	if len(all) != 0 {
		t.Errorf("GetAll returned %d records after clear", len(all))
	}
}

func TestMemoryStore_ReturnsClones(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_ = store.Add(ctx, memRecord("a", 1))
	got, _ := store.Get(ctx, "a")
	got.SourceName = "mutated"
	again, _ := store.Get(ctx, "a")
	if again.SourceName != "a.png" {
		t.Error("mutating a returned record should not affect the store")
	}
}
