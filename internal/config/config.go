// Package config provides configuration loading and structs for the sokkuri server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sokkuri/sokkuri/internal/feature"
	"github.com/sokkuri/sokkuri/internal/similarity"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool                    `yaml:"debug"`
	Server     ServerConfig            `yaml:"server"`
	Storage    StorageConfig           `yaml:"storage"`
	Embedding  EmbeddingConfig         `yaml:"embedding"`
	Similarity similarity.Config       `yaml:"similarity"`
	Extractors feature.ExtractorConfig `yaml:"extractors"`
	Search     SearchConfig            `yaml:"search"`
	Watch      WatchConfig             `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the catalog database and the name index.
type StorageConfig struct {
	DatabasePath  string `yaml:"database_path"`
	NameIndexPath string `yaml:"name_index_path"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// ModelPath is the primary ONNX vision model. Empty selects the
	// deterministic mock provider (development mode).
	ModelPath string `yaml:"model_path"`
	// AlternateModelPath is an optional second model tried at startup with a
	// bounded wait; on timeout or failure the primary is used.
	AlternateModelPath string `yaml:"alternate_model_path"`
	Dimensions         int    `yaml:"dimensions"`
	InputSize          int    `yaml:"input_size"`
	CacheSize          int    `yaml:"cache_size"`
	LoadTimeoutSeconds int    `yaml:"load_timeout_seconds"`
}

// SearchConfig holds search and indexing settings.
type SearchConfig struct {
	// TopK is the default number of ranked results returned.
	TopK int `yaml:"top_k"`
	// MaxTopK caps client-requested result counts.
	MaxTopK int `yaml:"max_top_k"`
	// LayoutVersion selects the feature vector layout new records are composed with.
	LayoutVersion int `yaml:"layout_version"`
	// IndexGroupSize is the number of images processed concurrently within one
	// batch; catalog writes remain serialized.
	IndexGroupSize int `yaml:"index_group_size"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.NameIndexPath = expandPath(cfg.Storage.NameIndexPath, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	if cfg.Embedding.AlternateModelPath != "" {
		cfg.Embedding.AlternateModelPath = expandPath(cfg.Embedding.AlternateModelPath, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Save writes cfg back to path as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
