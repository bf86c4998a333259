// Package config provides configuration loading and structs for the Tsunagu server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	LLM       LLMConfig       `yaml:"llm"`
	Prompts   PromptsConfig   `yaml:"prompts"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the chat database and indices.
type StorageConfig struct {
	DatabasePath     string `yaml:"database_path"`
	VectorIndexPath  string `yaml:"vector_index_path"`
	MessageIndexPath string `yaml:"message_index_path"`
}

// EmbeddingConfig holds ONNX embedder settings.
type EmbeddingConfig struct {
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// RetrievalConfig holds context selection settings.
type RetrievalConfig struct {
	TopK            int  `yaml:"top_k"`
	GraphDepth      *int `yaml:"graph_depth"`
	MaxContextNodes int  `yaml:"max_context_nodes"`
	HistoryLimit    int  `yaml:"history_limit"`
}

// GraphDepthOrDefault returns the configured graph expansion depth; defaults
// to 1 when unset. Zero is a valid setting (no expansion), so a pointer
// distinguishes "unset" from "disabled".
func (r *RetrievalConfig) GraphDepthOrDefault() int {
	if r.GraphDepth != nil {
		return *r.GraphDepth
	}
	return 1
}

// LLMConfig holds completion backend settings. The API key is read from the
// environment (OPENAI_API_KEY), never from the config file.
type LLMConfig struct {
	Provider     string  `yaml:"provider"`
	Model        string  `yaml:"model"`
	BaseURL      string  `yaml:"base_url"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	SystemPrompt string  `yaml:"system_prompt"`
}

// PromptsConfig holds prompt template settings.
type PromptsConfig struct {
	Path      string `yaml:"path"`
	HotReload bool   `yaml:"hot_reload"`
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
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	cfg.Storage.MessageIndexPath = expandPath(cfg.Storage.MessageIndexPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	if cfg.Prompts.Path != "" {
		cfg.Prompts.Path = expandPath(cfg.Prompts.Path, configDir)
	}

	return &cfg, nil
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
