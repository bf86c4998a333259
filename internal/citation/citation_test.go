package citation

import (
	"strings"
	"testing"

	"github.com/hyperjump/tsunagu/internal/models"
)

func testNodes() ([]string, map[string]models.ContentNode) {
	ordered := []string{"n1", "n2", "n3"}
	nodes := map[string]models.ContentNode{
		"n1": models.Note{ID: "n1", Content: "alpha content"},
		"n2": models.Snippet{ID: "n2", Content: "bravo content", SourceDocument: "doc.pdf"},
		"n3": models.Note{ID: "n3", Content: strings.Repeat("x", 150)},
	}
	return ordered, nodes
}

func TestExtract(t *testing.T) {
	ordered, nodes := testNodes()

	tests := []struct {
		name    string
		text    string
		wantIDs []string
	}{
		{
			name:    "single marker",
			text:    "As noted in [1], this holds.",
			wantIDs: []string{"n1"},
		},
		{
			name:    "multiple markers in appearance order",
			text:    "See [2] and also [1].",
			wantIDs: []string{"n2", "n1"},
		},
		{
			name:    "repeated marker counted once",
			text:    "Both [1] and [1] again.",
			wantIDs: []string{"n1"},
		},
		{
			name:    "out of range dropped",
			text:    "See [4] and [0] and [99].",
			wantIDs: nil,
		},
		{
			name:    "mix of valid and invalid",
			text:    "Valid [3], invalid [7].",
			wantIDs: []string{"n3"},
		},
		{
			name:    "no markers",
			text:    "Nothing cited here.",
			wantIDs: nil,
		},
		{
			name:    "non numeric brackets ignored",
			text:    "Array access arr[i] and [foo] are not citations.",
			wantIDs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text, ordered, nodes)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d citations, want %d", len(got), len(tt.wantIDs))
			}
			for i, c := range got {
				if c.NodeID != tt.wantIDs[i] {
					t.Errorf("citation %d = %s, want %s", i, c.NodeID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestExtractPreviewTruncated(t *testing.T) {
	ordered, nodes := testNodes()
	got := Extract("See [3].", ordered, nodes)
	if len(got) != 1 {
		t.Fatalf("got %d citations", len(got))
	}
	want := strings.Repeat("x", 100) + "..."
	if got[0].Preview != want {
		t.Errorf("preview = %q, want %q", got[0].Preview, want)
	}
}

func TestExtractUnknownNodeDropped(t *testing.T) {
	nodes := map[string]models.ContentNode{
		"n1": models.Note{ID: "n1", Content: "alpha"},
	}
	got := Extract("See [1] and [2].", []string{"n1", "ghost"}, nodes)
	if len(got) != 1 || got[0].NodeID != "n1" {
		t.Errorf("citations = %v", got)
	}
}
