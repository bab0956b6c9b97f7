package e2e

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sokkuri/sokkuri/internal/catalog"
	"github.com/sokkuri/sokkuri/internal/config"
	"github.com/sokkuri/sokkuri/internal/embedding"
	"github.com/sokkuri/sokkuri/internal/feature"
	"github.com/sokkuri/sokkuri/internal/fileid"
	"github.com/sokkuri/sokkuri/internal/indexer"
	"github.com/sokkuri/sokkuri/internal/keyword"
	"github.com/sokkuri/sokkuri/internal/search"
	"github.com/sokkuri/sokkuri/internal/similarity"
)

const (
	e2eSearchLimit = 10
	e2eDimensions  = 1280
)

type stack struct {
	store   *catalog.SQLiteStore
	names   *keyword.BleveIndex
	service *search.Service
	indexer *indexer.Indexer
}

func newStack(t *testing.T) *stack {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Storage: config.StorageConfig{
			DatabasePath:  filepath.Join(dir, "catalog.db"),
			NameIndexPath: filepath.Join(dir, "names.bleve"),
		},
		Search: config.SearchConfig{
			TopK:           e2eSearchLimit,
			MaxTopK:        100,
			LayoutVersion:  2,
			IndexGroupSize: 3,
		},
	}

	store, err := catalog.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	provider := embedding.NewMockProvider(e2eDimensions)
	t.Cleanup(func() { _ = provider.Close() })

	names, err := keyword.NewBleveIndex(cfg.Storage.NameIndexPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = names.Close() })

	composer := feature.NewComposer(feature.LayoutV2, e2eDimensions, feature.ExtractorConfig{})
	ranker := search.NewRanker(similarity.NewEngine(nil))
	svc := search.NewService(provider, composer, store, ranker, &cfg.Search, search.WithNameIndex(names))
	idx := indexer.New(svc, store, []string{".png"})
	return &stack{store: store, names: names, service: svc, indexer: idx}
}

func resultIDs(resp *search.Response) []string {
	ids := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		ids = append(ids, r.Record.ID)
	}
	return ids
}

func containsAny(got, expected []string) bool {
	set := make(map[string]bool, len(got))
	for _, id := range got {
		set[id] = true
	}
	for _, id := range expected {
		if set[id] {
			return true
		}
	}
	return false
}

func TestE2E_SimilaritySearch(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()

	corpus := BuildCorpus()
	for _, img := range corpus.Images {
		if _, err := st.service.IndexImage(ctx, img.Spec.Render(), search.IndexInput{
			ID:         img.ID,
			SourceName: img.Name,
		}); err != nil {
			t.Fatalf("index %q: %v", img.ID, err)
		}
	}
	n, err := st.service.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if int(n) != len(corpus.Images) {
		t.Fatalf("indexed %d of %d corpus images", n, len(corpus.Images))
	}
	t.Logf("indexed %d images; running %d query cases", n, len(corpus.Queries))

	for _, tc := range corpus.Queries {
		t.Run(tc.Description, func(t *testing.T) {
			resp, err := st.service.Search(ctx, tc.Query.Render(), search.Options{TopK: e2eSearchLimit})
			if err != nil {
				t.Fatalf("search failed: %v", err)
			}
			ids := resultIDs(resp)
			if !containsAny(ids, tc.ExpectedIDs) {
				t.Errorf("expected at least one of %v in results, got %v", tc.ExpectedIDs, ids)
			}
			if tc.WantTop {
				if len(ids) == 0 || ids[0] != tc.ExpectedIDs[0] {
					t.Errorf("top hit = %v, want %s", ids, tc.ExpectedIDs[0])
				}
			}
		})
	}
}

func TestE2E_NameSearch(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()

	corpus := BuildCorpus()
	for _, img := range corpus.Images {
		if _, err := st.service.IndexImage(ctx, img.Spec.Render(), search.IndexInput{
			ID:         img.ID,
			SourceName: img.Name,
		}); err != nil {
			t.Fatalf("index %q: %v", img.ID, err)
		}
	}

	hits, err := st.service.SearchByName(ctx, "chestnut", 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 3 {
		t.Fatalf("chestnut name search returned %d records, want 3", len(hits))
	}
	for _, hit := range hits {
		if !strings.HasPrefix(hit.Record.SourceName, "chestnut") {
			t.Errorf("unexpected hit %q", hit.Record.SourceName)
		}
	}
}

// TestE2E_FileIndexingSearch writes the corpus to disk as PNG files, indexes
// the directory, and runs the same query cases against path-derived IDs.
func TestE2E_FileIndexingSearch(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()

	imgDir := filepath.Join(t.TempDir(), "images")
	if err := os.MkdirAll(imgDir, 0755); err != nil {
		t.Fatal(err)
	}

	corpus := BuildCorpus()
	corpusIDToFileID := make(map[string]string, len(corpus.Images))
	for _, img := range corpus.Images {
		path := filepath.Join(imgDir, img.Name)
		if err := WritePNGFile(path, img.Spec); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			t.Fatal(err)
		}
		corpusIDToFileID[img.ID] = fileid.ImageID(abs)
	}

	summary, err := st.indexer.IndexDirectory(ctx, imgDir)
	if err != nil {
		t.Fatalf("index directory: %v", err)
	}
	if summary.Indexed != len(corpus.Images) || summary.Failed != 0 {
		t.Fatalf("summary = %+v, want %d indexed", summary, len(corpus.Images))
	}
	t.Logf("indexed %d files from %s", summary.Indexed, imgDir)

	for _, tc := range corpus.Queries {
		expected := make([]string, 0, len(tc.ExpectedIDs))
		for _, id := range tc.ExpectedIDs {
			expected = append(expected, corpusIDToFileID[id])
		}
		t.Run(tc.Description, func(t *testing.T) {
			resp, err := st.service.Search(ctx, tc.Query.Render(), search.Options{TopK: e2eSearchLimit})
			if err != nil {
				t.Fatalf("search failed: %v", err)
			}
			ids := resultIDs(resp)
			if !containsAny(ids, expected) {
				t.Errorf("expected at least one of %v in results, got %v", expected, ids)
			}
			if tc.WantTop {
				if len(ids) == 0 || ids[0] != expected[0] {
					t.Errorf("top hit = %v, want %s", ids, expected[0])
				}
			}
		})
	}
}
