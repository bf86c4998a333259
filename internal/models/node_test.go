package models

import (
	"strings"
	"testing"
)

func TestSnippetContextBlock(t *testing.T) {
	s := Snippet{ID: "n1", Content: "Bayes' theorem inverts conditional probabilities.", SourceDocument: "probability.pdf", PageIndex: 3}
	got := s.ContextBlock(2)
	want := "[2] From \"probability.pdf\":\nBayes' theorem inverts conditional probabilities."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSnippetContextBlockNoSource(t *testing.T) {
	s := Snippet{ID: "n1", Content: "orphan excerpt"}
	got := s.ContextBlock(1)
	if !strings.HasPrefix(got, "[1] From \"Unknown\":") {
		t.Errorf("missing placeholder source: %q", got)
	}
}

func TestNoteContextBlock(t *testing.T) {
	n := Note{ID: "n2", Content: "check this against chapter 4"}
	got := n.ContextBlock(3)
	want := "[3] User's note:\ncheck this against chapter 4"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNodeInputContentNode(t *testing.T) {
	tests := []struct {
		name     string
		input    NodeInput
		wantNote bool
	}{
		{"note type", NodeInput{ID: "a", Content: "x", NodeType: NodeTypeNote}, true},
		{"snippet type", NodeInput{ID: "b", Content: "y", NodeType: NodeTypeSnippet}, false},
		{"unknown type defaults to snippet", NodeInput{ID: "c", Content: "z", NodeType: "mystery"}, false},
		{"empty type defaults to snippet", NodeInput{ID: "d", Content: "w"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := tt.input.ContentNode()
			_, isNote := node.(Note)
			if isNote != tt.wantNote {
				t.Errorf("isNote=%v, want %v", isNote, tt.wantNote)
			}
			if node.NodeID() != tt.input.ID {
				t.Errorf("NodeID=%q, want %q", node.NodeID(), tt.input.ID)
			}
		})
	}
}

func TestNodeLookupDropsEmptyIDs(t *testing.T) {
	lookup := NodeLookup([]NodeInput{
		{ID: "a", Content: "x"},
		{ID: "", Content: "dropped"},
	})
	if len(lookup) != 1 {
		t.Fatalf("len=%d, want 1", len(lookup))
	}
	if _, ok := lookup["a"]; !ok {
		t.Error("node a missing")
	}
}

func TestPreview(t *testing.T) {
	n := Note{ID: "p", Content: strings.Repeat("a", 100)}
	got := Preview(n, 80)
	if len(got) != 83 {
		t.Errorf("len=%d, want 83 (80 chars + ellipsis)", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("missing ellipsis")
	}
}
