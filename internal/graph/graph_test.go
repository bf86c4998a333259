package graph

import (
	"reflect"
	"testing"

	"github.com/hyperjump/tsunagu/internal/models"
)

func TestExpand(t *testing.T) {
	chain := []models.Edge{{Source: "a", Target: "b"}, {Source: "b", Target: "c"}}

	tests := []struct {
		name     string
		seeds    []string
		edges    []models.Edge
		depth    int
		maxNodes int
		want     []string
	}{
		{
			name:  "depth one reaches direct neighbors",
			seeds: []string{"a"},
			edges: chain,
			depth: 1,
			want:  []string{"a", "b"},
		},
		{
			name:  "depth two reaches second hop",
			seeds: []string{"a"},
			edges: chain,
			depth: 2,
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "edges are undirected",
			seeds: []string{"c"},
			edges: chain,
			depth: 1,
			want:  []string{"c", "b"},
		},
		{
			name:  "zero depth returns seeds",
			seeds: []string{"a", "b"},
			edges: chain,
			depth: 0,
			want:  []string{"a", "b"},
		},
		{
			name:  "no edges returns seeds",
			seeds: []string{"a"},
			edges: nil,
			depth: 3,
			want:  []string{"a"},
		},
		{
			name:  "duplicate seeds collapse",
			seeds: []string{"a", "a", "b"},
			edges: chain,
			depth: 0,
			want:  []string{"a", "b"},
		},
		{
			name:  "neighbor order follows edge input order",
			seeds: []string{"a"},
			edges: []models.Edge{{Source: "a", Target: "x"}, {Source: "a", Target: "y"}, {Source: "a", Target: "z"}},
			depth: 1,
			want:  []string{"a", "x", "y", "z"},
		},
		{
			name:     "cap keeps earliest discovered",
			seeds:    []string{"a"},
			edges:    []models.Edge{{Source: "a", Target: "x"}, {Source: "a", Target: "y"}, {Source: "a", Target: "z"}},
			depth:    1,
			maxNodes: 2,
			want:     []string{"a", "x"},
		},
		{
			name:  "cycles do not revisit",
			seeds: []string{"a"},
			edges: []models.Edge{{Source: "a", Target: "b"}, {Source: "b", Target: "a"}},
			depth: 5,
			want:  []string{"a", "b"},
		},
		{
			name:  "self loops ignored",
			seeds: []string{"a"},
			edges: []models.Edge{{Source: "a", Target: "a"}, {Source: "a", Target: "b"}},
			depth: 1,
			want:  []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Expand(tt.seeds, tt.edges, tt.depth, tt.maxNodes)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expand() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpandDeterministic(t *testing.T) {
	edges := []models.Edge{
		{Source: "a", Target: "b"},
		{Source: "a", Target: "c"},
		{Source: "b", Target: "d"},
		{Source: "c", Target: "e"},
	}
	first := Expand([]string{"a"}, edges, 2, 0)
	for i := 0; i < 20; i++ {
		got := Expand([]string{"a"}, edges, 2, 0)
		if !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: %v != %v", i, got, first)
		}
	}
}

func TestSubgraph(t *testing.T) {
	edges := []models.Edge{{Source: "a", Target: "b"}, {Source: "a", Target: "c"}}
	got := Subgraph([]string{"a", "b"}, edges)
	want := []models.Edge{{Source: "a", Target: "b"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Subgraph() = %v, want %v", got, want)
	}
}

func TestSubgraphEmpty(t *testing.T) {
	if got := Subgraph(nil, []models.Edge{{Source: "a", Target: "b"}}); len(got) != 0 {
		t.Errorf("Subgraph(nil) = %v, want empty", got)
	}
}
