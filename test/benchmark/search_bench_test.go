package benchmark

import (
	"context"
	"fmt"
	"image"
	"math"
	"testing"

	"github.com/sokkuri/sokkuri/internal/catalog"
	"github.com/sokkuri/sokkuri/internal/embedding"
	"github.com/sokkuri/sokkuri/internal/feature"
	"github.com/sokkuri/sokkuri/internal/search"
	"github.com/sokkuri/sokkuri/internal/similarity"
)

const benchDims = 256

func benchVector(seed int) feature.Vector {
	values := make([]float32, benchDims+feature.ColorLen+feature.LayoutV2.PatternLen())
	for i := range values {
		values[i] = float32(math.Sin(float64(seed + i)))
	}
	return feature.Vector{Version: feature.LayoutV2, Values: values}
}

func BenchmarkEngineScore(b *testing.B) {
	engine := similarity.NewEngine(nil)
	q, c := benchVector(1), benchVector(2)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = engine.Score(q, c)
	}
}

func BenchmarkRankerRank(b *testing.B) {
	ranker := search.NewRanker(similarity.NewEngine(nil))
	records := make([]*catalog.Record, 1000)
	for i := range records {
		records[i] = &catalog.Record{
			ID:     fmt.Sprintf("img:%04d", i),
			Vector: benchVector(i),
		}
	}
	query := benchVector(500)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ranker.Rank(query, records, "", 20, false)
	}
}

func BenchmarkMockProviderInfer(b *testing.B) {
	provider := embedding.NewMockProvider(benchDims)
	img := image.NewRGBA(image.Rect(0, 0, 224, 224))
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = provider.Infer(ctx, img)
	}
}

func BenchmarkComposerCompose(b *testing.B) {
	composer := feature.NewComposer(feature.LayoutV2, benchDims, feature.ExtractorConfig{})
	img := image.NewRGBA(image.Rect(0, 0, 224, 224))
	emb := make([]float32, benchDims)
	for i := range emb {
		emb[i] = float32(math.Sin(float64(i)))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = composer.Compose(emb, img)
	}
}
