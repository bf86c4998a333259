package keyword

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/tsunagu/internal/models"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "messages.bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestSearchScopedToProject(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	msgs := []struct {
		project string
		msg     models.ChatMessage
	}{
		{"p1", models.ChatMessage{ID: "m1", SessionID: "s1", Role: models.RoleUser, Content: "tell me about entropy"}},
		{"p1", models.ChatMessage{ID: "m2", SessionID: "s1", Role: models.RoleAssistant, Content: "entropy measures disorder"}},
		{"p2", models.ChatMessage{ID: "m3", SessionID: "s9", Role: models.RoleUser, Content: "entropy again"}},
	}
	for _, m := range msgs {
		if err := idx.Index(ctx, m.project, &m.msg); err != nil {
			t.Fatal(err)
		}
	}

	hits, err := idx.Search(ctx, "p1", "entropy", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("len = %d, want 2", len(hits))
	}
	for _, h := range hits {
		if h.SessionID != "s1" {
			t.Errorf("hit from wrong session: %+v", h)
		}
		if h.Content == "" || h.MessageID == "" {
			t.Errorf("hit missing fields: %+v", h)
		}
	}
}

func TestSearchNoMatches(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Index(ctx, "p1", &models.ChatMessage{ID: "m1", SessionID: "s1", Role: models.RoleUser, Content: "hello world"}); err != nil {
		t.Fatal(err)
	}
	hits, err := idx.Search(ctx, "p1", "quantum", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("hits = %v", hits)
	}
}

func TestDeleteSession(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Index(ctx, "p1", &models.ChatMessage{ID: "m1", SessionID: "s1", Role: models.RoleUser, Content: "keep searching"}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Index(ctx, "p1", &models.ChatMessage{ID: "m2", SessionID: "s2", Role: models.RoleUser, Content: "keep this one"}); err != nil {
		t.Fatal(err)
	}

	if err := idx.DeleteSession(ctx, "s1"); err != nil {
		t.Fatal(err)
	}

	hits, err := idx.Search(ctx, "p1", "keep", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].SessionID != "s2" {
		t.Errorf("hits = %v", hits)
	}
}

func TestReopenExistingIndex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "messages.bleve")
	ctx := context.Background()

	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Index(ctx, "p1", &models.ChatMessage{ID: "m1", SessionID: "s1", Role: models.RoleUser, Content: "persistent content"}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	hits, err := reopened.Search(ctx, "p1", "persistent", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Errorf("hits = %v", hits)
	}
}
