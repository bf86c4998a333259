package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGetDefaultTemplates(t *testing.T) {
	s, err := NewStore("")
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(KeyRAGTemplate, map[string]string{
		"system_prompt": "You are helpful.",
		"context_text":  "[1] User's note:\nhello",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "You are helpful.") {
		t.Errorf("system prompt not substituted: %q", got)
	}
	if !strings.Contains(got, "[1] User's note:\nhello") {
		t.Errorf("context not substituted: %q", got)
	}
	if strings.Contains(got, "{system_prompt}") || strings.Contains(got, "{context_text}") {
		t.Errorf("placeholders left behind: %q", got)
	}
}

func TestGetUnknownKey(t *testing.T) {
	s, err := NewStore("")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get("does.not.exist", nil); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestGetLeavesUnknownPlaceholders(t *testing.T) {
	s, err := NewStore("")
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(KeySynthesisSummary, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "{content}") {
		t.Errorf("missing variable should leave placeholder intact: %q", got)
	}
}

func TestFileOverridesAndDottedKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	data := `rag_template: "custom {context_text}"
chat_summary:
  system: "custom summarizer"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(KeyRAGTemplate, map[string]string{"context_text": "ctx"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "custom ctx" {
		t.Errorf("Get = %q", got)
	}

	got, err = s.Get(KeyChatSummarySystem, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "custom summarizer" {
		t.Errorf("Get = %q", got)
	}

	// Keys absent from the file keep their defaults.
	if _, err := s.Get(KeySynthesisSystem, nil); err != nil {
		t.Errorf("default key lost after file load: %v", err)
	}
}

func TestMissingFileUsesDefaults(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if _, err := s.Get(KeyRAGTemplate, nil); err != nil {
		t.Error(err)
	}
}

func TestMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	if err := os.WriteFile(path, []byte(":\n  bad: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewStore(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestReloadPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	if err := os.WriteFile(path, []byte(`rag_template: "v1"`), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Get(KeyRAGTemplate, nil); got != "v1" {
		t.Fatalf("Get = %q", got)
	}

	if err := os.WriteFile(path, []byte(`rag_template: "v2"`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Reload(); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Get(KeyRAGTemplate, nil); got != "v2" {
		t.Errorf("Get = %q, want v2", got)
	}
}
