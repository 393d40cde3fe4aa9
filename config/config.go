// Package config loads the memory subsystem configuration from
// defaults, an optional YAML/JSON file, and GENAI_-prefixed environment
// variables, in increasing priority.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/Dev-solder124/genAI/fieldcrypt"
)

const (
	// EnvPrefix is the prefix for environment variables, e.g.
	// GENAI_ANTHROPIC_APIKEY -> anthropic.apikey.
	EnvPrefix = "GENAI_"

	// Delimiter is the key delimiter for nested config.
	Delimiter = "."
)

// Config is the full runtime configuration.
type Config struct {
	Anthropic  AnthropicConfig  `koanf:"anthropic"`
	Memory     MemoryConfig     `koanf:"memory"`
	Store      StoreConfig      `koanf:"store"`
	Encryption EncryptionConfig `koanf:"encryption"`
	Stage      StageConfig      `koanf:"stage"`
	Log        LogConfig        `koanf:"log"`
}

// AnthropicConfig configures the analyzer and responder models.
type AnthropicConfig struct {
	APIKey         string `koanf:"apikey"`
	AnalyzerModel  string `koanf:"analyzermodel"`
	ResponderModel string `koanf:"respondermodel"`
	MaxTokens      int64  `koanf:"maxtokens"`
}

// MemoryConfig tunes the retrieval and write paths.
type MemoryConfig struct {
	TopK          int     `koanf:"topk"`
	MinSimilarity float64 `koanf:"minsimilarity"`
	ContextTurns  int     `koanf:"contextturns"`
	Dimensions    int     `koanf:"dimensions"`
}

// StoreConfig locates the two stores. Empty paths select in-memory
// backends, which suits tests and the example CLI.
type StoreConfig struct {
	Path      string `koanf:"path"`
	IndexPath string `koanf:"indexpath"`
}

// EncryptionConfig holds the field encryption key. An empty key
// disables encryption and records are stored plaintext.
type EncryptionConfig struct {
	Key string `koanf:"key"`
}

// StageConfig tunes the stage controller.
type StageConfig struct {
	InactivityReset time.Duration `koanf:"inactivityreset"`
}

// LogConfig configures the slog logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Anthropic: AnthropicConfig{
			AnalyzerModel:  "claude-3-5-haiku-latest",
			ResponderModel: "claude-sonnet-4-5",
			MaxTokens:      1024,
		},
		Memory: MemoryConfig{
			TopK:          3,
			MinSimilarity: 0,
			ContextTurns:  6,
			Dimensions:    384,
		},
		Stage: StageConfig{
			InactivityReset: 24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration. path may be empty to skip the file
// layer.
func Load(path string) (*Config, error) {
	k := koanf.New(Delimiter)

	// Defaults go in as leaf keys so later layers merge per key instead
	// of replacing whole sections.
	defaults := Default()
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"anthropic.apikey":         defaults.Anthropic.APIKey,
		"anthropic.analyzermodel":  defaults.Anthropic.AnalyzerModel,
		"anthropic.respondermodel": defaults.Anthropic.ResponderModel,
		"anthropic.maxtokens":      defaults.Anthropic.MaxTokens,
		"memory.topk":              defaults.Memory.TopK,
		"memory.minsimilarity":     defaults.Memory.MinSimilarity,
		"memory.contextturns":      defaults.Memory.ContextTurns,
		"memory.dimensions":        defaults.Memory.Dimensions,
		"store.path":               defaults.Store.Path,
		"store.indexpath":          defaults.Store.IndexPath,
		"encryption.key":           defaults.Encryption.Key,
		"stage.inactivityreset":    defaults.Stage.InactivityReset,
		"log.level":                defaults.Log.Level,
		"log.format":               defaults.Log.Format,
	}, Delimiter), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		var parser koanf.Parser
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = kjson.Parser()
		default:
			return nil, fmt.Errorf("unsupported config file format: %s", path)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, Delimiter, func(s string) string {
		// GENAI_MEMORY_TOPK -> memory.topk
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", Delimiter)
	}), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and decodability of the key material.
func (c *Config) Validate() error {
	if c.Memory.TopK <= 0 {
		return fmt.Errorf("memory.topk must be positive, got %d", c.Memory.TopK)
	}
	if c.Memory.Dimensions <= 0 {
		return fmt.Errorf("memory.dimensions must be positive, got %d", c.Memory.Dimensions)
	}
	if c.Memory.MinSimilarity < -1 || c.Memory.MinSimilarity > 1 {
		return fmt.Errorf("memory.minsimilarity must be in [-1, 1], got %v", c.Memory.MinSimilarity)
	}
	if c.Memory.ContextTurns < 0 {
		return fmt.Errorf("memory.contextturns must not be negative, got %d", c.Memory.ContextTurns)
	}
	if c.Stage.InactivityReset <= 0 {
		return fmt.Errorf("stage.inactivityreset must be positive, got %v", c.Stage.InactivityReset)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Encryption.Key != "" {
		if _, err := fieldcrypt.KeyFromBase64(c.Encryption.Key); err != nil {
			return err
		}
	}
	return nil
}

// Cipher builds the field cipher from the configured key, or nil when
// encryption is disabled.
func (c *Config) Cipher() (fieldcrypt.Cipher, error) {
	if c.Encryption.Key == "" {
		return nil, nil
	}
	key, err := fieldcrypt.KeyFromBase64(c.Encryption.Key)
	if err != nil {
		return nil, err
	}
	return fieldcrypt.NewChaCha20Poly1305(key)
}

// MinSimilarity returns the retrieval threshold as float32.
func (c *Config) MinSimilarity() float32 {
	return float32(c.Memory.MinSimilarity)
}
