// Package similarity scores feature vectors against each other using weighted
// per-segment cosine similarity.
package similarity

import (
	"math"

	"github.com/sokkuri/sokkuri/internal/feature"
	"github.com/sokkuri/sokkuri/pkg/utils"
)

// Weights are the per-segment contributions to the combined score. They are
// normalized to sum to 1.0 before use.
type Weights struct {
	Embedding float64 `yaml:"embedding"` // default: 0.6
	Color     float64 `yaml:"color"`     // default: 0.25
	Pattern   float64 `yaml:"pattern"`   // default: 0.15
}

// DefaultWeights returns the default segment weights.
func DefaultWeights() Weights {
	return Weights{Embedding: 0.6, Color: 0.25, Pattern: 0.15}
}

// Normalized returns the weights scaled to sum to 1.0. All-zero weights fall
// back to the defaults.
func (w Weights) Normalized() Weights {
	sum := w.Embedding + w.Color + w.Pattern
	if sum <= 0 {
		return DefaultWeights()
	}
	return Weights{
		Embedding: w.Embedding / sum,
		Color:     w.Color / sum,
		Pattern:   w.Pattern / sum,
	}
}

// Config holds the scoring configuration. The category thresholds and the
// bonus/penalty magnitudes are empirically tuned values, exposed rather than
// hard-coded.
type Config struct {
	Weights Weights `yaml:"weights"`

	// CategoryAdjust enables the dominant-color bonus/penalty tie-breaker.
	// Defaults to true when unset.
	CategoryAdjust *bool `yaml:"category_adjust"`
	// DarkFraction, BrownFraction, LightFraction are the minimum color-segment
	// fractions for a vector to strongly indicate that category.
	DarkFraction  float64 `yaml:"dark_fraction"`  // default: 0.3
	BrownFraction float64 `yaml:"brown_fraction"` // default: 0.2
	LightFraction float64 `yaml:"light_fraction"` // default: 0.4
	// CategoryBonus and CategoryPenalty are the multiplicative adjustments for
	// matching and conflicting dominant categories. Both are capped at 0.10.
	CategoryBonus   float64 `yaml:"category_bonus"`   // default: 0.05
	CategoryPenalty float64 `yaml:"category_penalty"` // default: 0.05

	// ClassifierEnabled attaches the heuristic style classifier to the engine.
	// Off by default; conflicting classes then incur ClassPenalty.
	ClassifierEnabled bool `yaml:"classifier_enabled"`
	// PatternedDensity is the classifier's minimum pattern-pixel fraction for
	// the "patterned" style half. <= 0 selects 0.25.
	PatternedDensity float64 `yaml:"patterned_density"`
	// ClassPenalty is the multiplicative penalty when an attached classifier
	// assigns conflicting classes. Only consulted when a classifier is set.
	ClassPenalty float64 `yaml:"class_penalty"` // default: 0.10
}

// DefaultConfig returns the default scoring configuration.
func DefaultConfig() *Config {
	return &Config{
		Weights:         DefaultWeights(),
		DarkFraction:    0.3,
		BrownFraction:   0.2,
		LightFraction:   0.4,
		CategoryBonus:   0.05,
		CategoryPenalty: 0.05,
		ClassPenalty:    0.10,
	}
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Weights.Embedding == 0 && c.Weights.Color == 0 && c.Weights.Pattern == 0 {
		c.Weights = d.Weights
	}
	if c.DarkFraction == 0 {
		c.DarkFraction = d.DarkFraction
	}
	if c.BrownFraction == 0 {
		c.BrownFraction = d.BrownFraction
	}
	if c.LightFraction == 0 {
		c.LightFraction = d.LightFraction
	}
	if c.CategoryBonus == 0 {
		c.CategoryBonus = d.CategoryBonus
	}
	if c.CategoryPenalty == 0 {
		c.CategoryPenalty = d.CategoryPenalty
	}
	if c.ClassPenalty == 0 {
		c.ClassPenalty = d.ClassPenalty
	}
	c.CategoryBonus = math.Min(c.CategoryBonus, 0.10)
	c.CategoryPenalty = math.Min(c.CategoryPenalty, 0.10)
}

// categoryAdjustEnabled returns whether the dominant-color tie-breaker runs; defaults to true.
func (c *Config) categoryAdjustEnabled() bool {
	if c.CategoryAdjust != nil {
		return *c.CategoryAdjust
	}
	return true
}

// Breakdown carries the per-segment sub-scores of one comparison, for
// diagnostics. Ephemeral, never persisted.
type Breakdown struct {
	Embedding  float64 `json:"embedding"`
	Color      float64 `json:"color"`
	Pattern    float64 `json:"pattern"`
	Adjustment float64 `json:"adjustment"`
	Final      float64 `json:"final"`
}

// Engine computes weighted similarity between feature vectors.
type Engine struct {
	config     *Config
	weights    Weights
	classifier Classifier
}

// Option configures an Engine.
type Option func(*Engine)

// WithClassifier attaches an optional classification stage whose conflicting
// classes incur Config.ClassPenalty.
func WithClassifier(c Classifier) Option {
	return func(e *Engine) { e.classifier = c }
}

// NewEngine creates an engine with the given configuration.
func NewEngine(cfg *Config, opts ...Option) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.ApplyDefaults()
	e := &Engine{config: cfg, weights: cfg.Weights.Normalized()}
	for _, opt := range opts {
		opt(e)
	}
	if e.classifier == nil && cfg.ClassifierEnabled {
		e.classifier = NewHeuristicClassifier(cfg, cfg.PatternedDensity)
	}
	return e
}

// Score returns the combined similarity of two feature vectors in [0,1].
func (e *Engine) Score(query, candidate feature.Vector) float64 {
	return e.ScoreDetail(query, candidate).Final
}

// ScoreDetail returns the combined score with per-segment sub-scores.
// Vectors of different layout versions are sliced defensively: the embedding
// segments are compared over their shared prefix, and a missing or
// length-mismatched color/pattern segment contributes 0.
func (e *Engine) ScoreDetail(query, candidate feature.Vector) Breakdown {
	b := Breakdown{
		Embedding:  prefixSimilarity(query.Embedding(), candidate.Embedding()),
		Color:      SegmentSimilarity(query.Color(), candidate.Color()),
		Pattern:    prefixSimilarity(query.Pattern(), candidate.Pattern()),
		Adjustment: 1.0,
	}

	score := e.weights.Embedding*b.Embedding + e.weights.Color*b.Color + e.weights.Pattern*b.Pattern

	if e.config.categoryAdjustEnabled() {
		qc := e.dominantCategory(query.Color())
		cc := e.dominantCategory(candidate.Color())
		if qc != "" && cc != "" {
			if qc == cc {
				b.Adjustment *= 1 + e.config.CategoryBonus
			} else {
				b.Adjustment *= 1 - e.config.CategoryPenalty
			}
		}
	}
	if e.classifier != nil {
		qClass := e.classifier.Classify(query)
		cClass := e.classifier.Classify(candidate)
		if qClass != "" && cClass != "" && qClass != cClass {
			b.Adjustment *= 1 - e.config.ClassPenalty
		}
	}

	b.Final = utils.Clamp01(score * b.Adjustment)
	return b
}

// SegmentSimilarity returns the cosine similarity of two equal-length segments,
// floored at 0 (anti-correlated directions carry no meaning here) and capped at 1.
// A zero-norm or missing segment, or a length mismatch, yields 0, never NaN.
func SegmentSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		va, vb := float64(a[i]), float64(b[i])
		dot += va * vb
		na += va * va
		nb += vb * vb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return utils.Clamp01(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// prefixSimilarity compares two segments over their shared leading prefix.
// Used for the embedding segment (the stable prefix across layout versions)
// and for pattern segments of different lengths.
func prefixSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	return SegmentSimilarity(a[:n], b[:n])
}

// dominantCategory returns the color category the segment strongly indicates,
// or "" when no fraction crosses its threshold. The largest qualifying
// fraction wins.
func (e *Engine) dominantCategory(color []float32) string {
	if len(color) < feature.ColorLen {
		return ""
	}
	dark, brown, light := float64(color[3]), float64(color[4]), float64(color[5])
	best, bestName := 0.0, ""
	if dark >= e.config.DarkFraction && dark > best {
		best, bestName = dark, "dark"
	}
	if brown >= e.config.BrownFraction && brown > best {
		best, bestName = brown, "brown"
	}
	if light >= e.config.LightFraction && light > best {
		best, bestName = light, "light"
	}
	return bestName
}
