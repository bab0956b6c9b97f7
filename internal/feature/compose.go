package feature

import (
	"image"

	"github.com/sokkuri/sokkuri/pkg/utils"
)

// ExtractorConfig groups the auxiliary descriptor tuning knobs.
type ExtractorConfig struct {
	Color   ColorConfig   `yaml:"color"`
	Pattern PatternConfig `yaml:"pattern"`
}

// ApplyDefaults fills zero values with defaults.
func (c *ExtractorConfig) ApplyDefaults() {
	c.Color.ApplyDefaults()
	c.Pattern.ApplyDefaults()
}

// Composer concatenates a provider embedding with the auxiliary descriptors
// into a layout-tagged feature vector.
type Composer struct {
	version      LayoutVersion
	embeddingLen int
	config       ExtractorConfig
}

// NewComposer creates a composer producing vectors of the given layout version.
// embeddingLen must match the provider's output dimensionality.
func NewComposer(version LayoutVersion, embeddingLen int, cfg ExtractorConfig) *Composer {
	cfg.ApplyDefaults()
	if !version.Known() {
		version = LayoutV2
	}
	return &Composer{
		version:      version,
		embeddingLen: embeddingLen,
		config:       cfg,
	}
}

// Version returns the layout version the composer tags vectors with.
func (c *Composer) Version() LayoutVersion {
	return c.version
}

// TotalLen returns the full vector length the composer produces.
func (c *Composer) TotalLen() int {
	return c.embeddingLen + ColorLen + c.version.PatternLen()
}

// Compose builds the feature vector for img from the provider embedding.
// The embedding is L2-normalized here rather than trusting the provider's raw
// magnitudes. When the embedding has the wrong length, the all-zero sentinel of
// the expected full length is returned so downstream slicing stays valid.
func (c *Composer) Compose(embedding []float32, img image.Image) Vector {
	if len(embedding) != c.embeddingLen {
		return Zero(c.version, c.embeddingLen)
	}
	values := make([]float32, 0, c.TotalLen())
	emb := make([]float32, c.embeddingLen)
	copy(emb, embedding)
	utils.NormalizeL2(emb)
	values = append(values, emb...)
	values = append(values, ColorDescriptor(img, c.config.Color)...)
	values = append(values, PatternDescriptor(img, c.config.Pattern, c.version)...)
	return Vector{Version: c.version, Values: values}
}
