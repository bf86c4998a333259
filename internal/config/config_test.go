package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9000
retrieval:
  top_k: 3
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Port=%d, want 9000", cfg.Server.Port)
	}
	if cfg.Server.Host != "localhost" {
		t.Errorf("Host=%q, want default localhost", cfg.Server.Host)
	}
	if cfg.Retrieval.TopK != 3 {
		t.Errorf("TopK=%d, want 3", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.MaxContextNodes != 15 {
		t.Errorf("MaxContextNodes=%d, want default 15", cfg.Retrieval.MaxContextNodes)
	}
	if cfg.Retrieval.HistoryLimit != 6 {
		t.Errorf("HistoryLimit=%d, want default 6", cfg.Retrieval.HistoryLimit)
	}
	if cfg.Retrieval.GraphDepthOrDefault() != 1 {
		t.Errorf("GraphDepth=%d, want default 1", cfg.Retrieval.GraphDepthOrDefault())
	}
	if cfg.LLM.BaseURL == "" || cfg.LLM.Model == "" {
		t.Error("LLM defaults not applied")
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("Dimensions=%d, want default 384", cfg.Embedding.Dimensions)
	}
}

func TestLoadGraphDepthZeroIsRespected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
retrieval:
  graph_depth: 0
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Retrieval.GraphDepthOrDefault() != 0 {
		t.Errorf("explicit graph_depth 0 overridden: got %d", cfg.Retrieval.GraphDepthOrDefault())
	}
}

func TestLoadRelativePathsExpandToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: ./data/chat.db
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := filepath.Join(dir, "data/chat.db")
	if cfg.Storage.DatabasePath != want {
		t.Errorf("DatabasePath=%q, want %q", cfg.Storage.DatabasePath, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
