// Package search runs similarity ranking over the catalog.
package search

import (
	"sort"

	"go.uber.org/zap"

	"github.com/sokkuri/sokkuri/internal/catalog"
	"github.com/sokkuri/sokkuri/internal/feature"
	"github.com/sokkuri/sokkuri/internal/similarity"
)

// DefaultTopK is the number of results returned when no limit is given.
const DefaultTopK = 20

// Result is a single ranked hit. Ephemeral, computed per search.
type Result struct {
	Record    *catalog.Record       `json:"record"`
	Score     float64               `json:"score"`
	Breakdown *similarity.Breakdown `json:"breakdown,omitempty"`
	Rank      int                   `json:"rank"`
}

// Stats carries data-quality counters for one ranking pass.
type Stats struct {
	// Scanned is the number of candidate records visited.
	Scanned int `json:"scanned"`
	// Skipped is the number of records with a missing or all-zero feature
	// vector, silently excluded from the ranking.
	Skipped int `json:"skipped"`
}

// Ranker scores a query vector against catalog records with a full linear
// scan. There is no index structure; this is O(N) per search and intended for
// catalogs of at most a few thousand images.
type Ranker struct {
	engine *similarity.Engine
	logger *zap.Logger
}

// RankerOption configures a Ranker.
type RankerOption func(*Ranker)

// WithLogger sets a logger for data-quality warnings (corrupt records skipped).
func WithLogger(l *zap.Logger) RankerOption {
	return func(r *Ranker) { r.logger = l }
}

// NewRanker creates a ranker using the given similarity engine.
func NewRanker(engine *similarity.Engine, opts ...RankerOption) *Ranker {
	r := &Ranker{engine: engine}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank scores query against every record, excluding excludeID (the query
// image itself when it is already indexed), skipping records without a usable
// vector, and returns the topK results sorted by descending score. Ties keep
// catalog insertion order. withBreakdown attaches per-segment sub-scores.
func (r *Ranker) Rank(query feature.Vector, records []*catalog.Record, excludeID string, topK int, withBreakdown bool) ([]*Result, Stats) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	var stats Stats
	results := make([]*Result, 0, len(records))
	for _, rec := range records {
		if excludeID != "" && rec.ID == excludeID {
			continue
		}
		stats.Scanned++
		if len(rec.Vector.Values) == 0 || rec.Vector.IsZero() {
			stats.Skipped++
			if r.logger != nil {
				r.logger.Warn("skipping record without usable feature vector", zap.String("id", rec.ID))
			}
			continue
		}
		res := &Result{Record: rec}
		if withBreakdown {
			b := r.engine.ScoreDetail(query, rec.Vector)
			res.Score = b.Final
			res.Breakdown = &b
		} else {
			res.Score = r.engine.Score(query, rec.Vector)
		}
		results = append(results, res)
	}

	// Stable sort keeps insertion order for equal scores, so repeated searches
	// over an unchanged catalog return identical orderings.
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if topK < len(results) {
		results = results[:topK]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, stats
}
