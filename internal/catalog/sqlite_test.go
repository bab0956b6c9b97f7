package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sokkuri/sokkuri/internal/feature"
)

func TestSQLiteStore_CRUD(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	rec := memRecord("img:a", 0.5, -0.25)
	rec.ImageRef = "/photos/a.png"
	rec.SourceMtime = 1234567890
	rec.SourceSize = 2048
	if err := store.Add(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if rec.IndexedAt.IsZero() {
		t.Error("IndexedAt should be set on Add")
	}

	got, err := store.Get(ctx, "img:a")
	if err != nil {
		t.Fatal(err)
	}
	if got.SourceName != "img:a.png" || got.ImageRef != "/photos/a.png" {
		t.Errorf("got %+v", got)
	}
	if got.SourceMtime != 1234567890 || got.SourceSize != 2048 {
		t.Errorf("file metadata not round-tripped: %+v", got)
	}
	if got.Vector.Version != feature.LayoutV2 {
		t.Errorf("layout version = %d, want %d", got.Vector.Version, feature.LayoutV2)
	}
	if len(got.Vector.Values) != len(rec.Vector.Values) {
		t.Fatalf("vector length = %d, want %d", len(got.Vector.Values), len(rec.Vector.Values))
	}
	for i, v := range rec.Vector.Values {
		if got.Vector.Values[i] != v {
			t.Errorf("vector value %d = %f, want %f", i, got.Vector.Values[i], v)
		}
	}

	if err := store.Delete(ctx, "img:a"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "img:a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSQLiteStore_ReplaceAndOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "order.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	for _, id := range []string{"img:c", "img:a", "img:b"} {
		if err := store.Add(ctx, memRecord(id, 1)); err != nil {
			t.Fatal(err)
		}
	}
	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"img:c", "img:a", "img:b"}
	if len(all) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(all))
	}
	for i, id := range want {
		if all[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, all[i].ID, id)
		}
	}

	replaced := memRecord("img:a", 9, 9)
	replaced.SourceName = "updated.png"
	if err := store.Add(ctx, replaced); err != nil {
		t.Fatal(err)
	}
	count, _ := store.Count(ctx)
	if count != 3 {
		t.Errorf("count = %d, want 3 after replace", count)
	}
	got, _ := store.Get(ctx, "img:a")
	if got.SourceName != "updated.png" {
		t.Errorf("replace did not update record: %+v", got)
	}

	// A replaced record keeps its insertion-order slot, same as MemoryStore.
	all, err = store.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for i, id := range want {
		if all[i].ID != id {
			t.Errorf("after replace, position %d = %s, want %s", i, all[i].ID, id)
		}
	}
}

func TestSQLiteStore_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clear.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	for _, id := range []string{"img:1", "img:2"} {
		_ = store.Add(ctx, memRecord(id, 1))
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	count, _ := store.Count(ctx)
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := store.Add(ctx, memRecord("img:persist", 0.1, 0.2, 0.3)); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	got, err := store.Get(ctx, "img:persist")
	if err != nil {
		t.Fatal(err)
	}
	if got.Vector.Values[0] != 0.1 {
		t.Errorf("persisted vector = %v", got.Vector.Values[:3])
	}
}

func TestSQLiteStore_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "cat.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
}
