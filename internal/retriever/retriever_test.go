package retriever

import (
	"context"
	"testing"

	"github.com/hyperjump/tsunagu/internal/embedding"
	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/vector"
	"github.com/hyperjump/tsunagu/pkg/utils"
)

func newTestRetriever(t *testing.T) (*Retriever, func(projectID string, nodes ...models.ContentNode)) {
	t.Helper()
	emb := embedding.NewMockEmbedder(32)
	idx, err := vector.NewMemoryIndex(32)
	if err != nil {
		t.Fatal(err)
	}
	add := func(projectID string, nodes ...models.ContentNode) {
		ctx := context.Background()
		for _, n := range nodes {
			v, _ := emb.Embed(ctx, n.Text())
			_ = idx.Upsert(ctx, []vector.Entry{{NodeID: n.NodeID(), ProjectID: projectID, Vector: v}})
		}
	}
	return NewRetriever(emb, idx), add
}

func TestQueryReturnsMostSimilarFirst(t *testing.T) {
	r, add := newTestRetriever(t)
	add("p1",
		models.Note{ID: "a", Content: "the exact query text"},
		models.Note{ID: "b", Content: "completely unrelated content"},
	)

	results, err := r.Query(context.Background(), "the exact query text", "p1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("len=%d", len(results))
	}
	if results[0].NodeID != "a" {
		t.Errorf("top hit=%s, want a", results[0].NodeID)
	}
	// Identical text embeds identically: similarity 1.000 after rounding.
	if results[0].Similarity != 1.0 {
		t.Errorf("similarity=%f, want 1.0", results[0].Similarity)
	}
	if results[0].Similarity != utils.Round3(1.0-results[0].Distance) {
		t.Error("similarity does not derive from distance")
	}
}

func TestQueryRespectsK(t *testing.T) {
	r, add := newTestRetriever(t)
	add("p1",
		models.Note{ID: "a", Content: "one"},
		models.Note{ID: "b", Content: "two"},
		models.Note{ID: "c", Content: "three"},
	)
	results, err := r.Query(context.Background(), "one", "p1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("len=%d, want 2", len(results))
	}
}

func TestQueryEmptyProject(t *testing.T) {
	r, _ := newTestRetriever(t)
	results, err := r.Query(context.Background(), "anything", "", 5)
	if err != nil {
		t.Fatalf("empty project must not error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("len=%d, want 0", len(results))
	}
}

func TestQueryUnknownProject(t *testing.T) {
	r, add := newTestRetriever(t)
	add("p1", models.Note{ID: "a", Content: "one"})
	results, err := r.Query(context.Background(), "one", "ghost", 5)
	if err != nil {
		t.Fatalf("unknown project must not error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("len=%d, want 0", len(results))
	}
}
