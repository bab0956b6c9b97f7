package similarity

import "github.com/sokkuri/sokkuri/internal/feature"

// Classifier assigns a coarse style class to a feature vector. It is an
// optional plug-in stage consulted by the engine as a tie-breaker; it is never
// a hard filter, and it is disabled unless explicitly attached.
type Classifier interface {
	// Classify returns a class label, or "" when the vector is ambiguous.
	Classify(v feature.Vector) string
}

// HeuristicClassifier buckets vectors by dominant color category and pattern
// density. Earlier revisions of this scoring pipeline carried brand-level
// classification with large cross-brand penalties; that proved unreliable and
// only this coarse style bucket remains.
type HeuristicClassifier struct {
	config *Config
	// PatternedDensity is the minimum pattern-pixel fraction for the
	// "patterned" half of the class label.
	PatternedDensity float64
}

// NewHeuristicClassifier creates a classifier sharing the engine's category
// thresholds. patternedDensity <= 0 selects the default of 0.25.
func NewHeuristicClassifier(cfg *Config, patternedDensity float64) *HeuristicClassifier {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.ApplyDefaults()
	if patternedDensity <= 0 {
		patternedDensity = 0.25
	}
	return &HeuristicClassifier{config: cfg, PatternedDensity: patternedDensity}
}

// Classify returns "plain-<color>" or "patterned-<color>", or "" when the
// vector has no dominant color category.
func (c *HeuristicClassifier) Classify(v feature.Vector) string {
	e := &Engine{config: c.config}
	category := e.dominantCategory(v.Color())
	if category == "" {
		return ""
	}
	style := "plain"
	if pat := v.Pattern(); len(pat) >= 2 && float64(pat[1]) >= c.PatternedDensity {
		style = "patterned"
	}
	return style + "-" + category
}
