// Package indexer keeps the vector index consistent with a project's node set.
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/tsunagu/internal/embedding"
	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/vector"
)

// Synchronizer reconciles the vector index with the current node set of a
// project. It is incremental: only new or changed nodes are re-embedded, and
// entries whose nodes disappeared are deleted.
type Synchronizer struct {
	embedder embedding.Embedder
	index    vector.Index
	logger   *zap.Logger // optional; when set, logs debug events
}

// SynchronizerOption configures a Synchronizer.
type SynchronizerOption func(*Synchronizer)

// WithLogger sets a logger for debug output (nodes re-embedded, entries deleted, etc.).
func WithLogger(l *zap.Logger) SynchronizerOption {
	return func(s *Synchronizer) { s.logger = l }
}

// NewSynchronizer creates a synchronizer with the given dependencies.
func NewSynchronizer(embedder embedding.Embedder, index vector.Index, opts ...SynchronizerOption) *Synchronizer {
	s := &Synchronizer{embedder: embedder, index: index}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fingerprint returns the content fingerprint stored alongside each index
// entry: the first 16 hex characters of the content's SHA-256.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}

// Sync reconciles the index with nodes, the full current node list of the
// project. Nodes with empty content are ignored. Returns the number of
// entries actually (re)written. Calling Sync twice with an unchanged node
// list performs zero writes on the second call.
//
// Entries with a missing fingerprint are treated as changed and re-embedded.
// Concurrent syncs of the same project may both re-embed a node; upserts are
// idempotent per id, so the index still converges.
func (s *Synchronizer) Sync(ctx context.Context, projectID string, nodes []models.ContentNode) (int, error) {
	existing, err := s.index.Entries(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("read index entries: %w", err)
	}
	existingHashes := make(map[string]string, len(existing))
	for _, e := range existing {
		existingHashes[e.NodeID] = e.ContentHash
	}

	var changed []models.ContentNode
	currentIDs := make(map[string]bool, len(nodes))
	for _, node := range nodes {
		id := node.NodeID()
		content := node.Text()
		if id == "" || strings.TrimSpace(content) == "" {
			continue
		}
		currentIDs[id] = true
		// A missing hash forces re-embedding rather than silently skipping.
		if old, ok := existingHashes[id]; !ok || old == "" || old != Fingerprint(content) {
			changed = append(changed, node)
		}
	}

	if len(changed) > 0 {
		texts := make([]string, len(changed))
		for i, node := range changed {
			texts[i] = node.Text()
		}
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed nodes: %w", err)
		}
		entries := make([]vector.Entry, len(changed))
		for i, node := range changed {
			entries[i] = vector.Entry{
				NodeID:      node.NodeID(),
				ProjectID:   projectID,
				ContentHash: Fingerprint(node.Text()),
				Vector:      vectors[i],
			}
			if snippet, ok := node.(models.Snippet); ok {
				entries[i].SourceDocument = snippet.SourceDocument
				entries[i].PageIndex = snippet.PageIndex
			}
		}
		if err := s.index.Upsert(ctx, entries); err != nil {
			return 0, fmt.Errorf("upsert entries: %w", err)
		}
	}

	var stale []string
	for _, e := range existing {
		if !currentIDs[e.NodeID] {
			stale = append(stale, e.NodeID)
		}
	}
	if len(stale) > 0 {
		if err := s.index.Delete(ctx, stale); err != nil {
			return 0, fmt.Errorf("delete stale entries: %w", err)
		}
	}

	if s.logger != nil {
		s.logger.Debug("index synchronized",
			zap.String("project_id", projectID),
			zap.Int("written", len(changed)),
			zap.Int("deleted", len(stale)),
		)
	}
	return len(changed), nil
}
