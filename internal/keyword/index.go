// Package keyword provides full-text search over chat transcripts with Bleve.
package keyword

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/hyperjump/tsunagu/internal/models"
)

// MessageHit is one transcript search result.
type MessageHit struct {
	MessageID string  `json:"message_id"`
	SessionID string  `json:"session_id"`
	Role      string  `json:"role"`
	Content   string  `json:"content"`
	Score     float64 `json:"score"`
}

// MessageIndex indexes chat messages for transcript search.
type MessageIndex interface {
	Index(ctx context.Context, projectID string, msg *models.ChatMessage) error
	DeleteSession(ctx context.Context, sessionID string) error
	Search(ctx context.Context, projectID, query string, limit int) ([]MessageHit, error)
	Close() error
}

// messageDoc is the indexed shape of a message.
type messageDoc struct {
	ProjectID string `json:"project_id"`
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
}

// BleveIndex implements MessageIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An existing index is
// reused; remove the directory to force a rebuild after a mapping change.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so queries match
	// the exact words users typed.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("project_id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("session_id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("role", keywordFieldMapping)
	im.AddDocumentMapping("message", docMapping)
	im.DefaultType = "message"
	im.DefaultMapping = docMapping

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index adds a message to the transcript index.
func (b *BleveIndex) Index(ctx context.Context, projectID string, msg *models.ChatMessage) error {
	return b.index.Index(msg.ID, messageDoc{
		ProjectID: projectID,
		SessionID: msg.SessionID,
		Role:      msg.Role,
		Content:   msg.Content,
	})
}

// DeleteSession removes all indexed messages belonging to a session.
func (b *BleveIndex) DeleteSession(ctx context.Context, sessionID string) error {
	term := bleve.NewTermQuery(sessionID)
	term.SetField("session_id")
	req := bleve.NewSearchRequest(term)
	req.Size = 1000
	for {
		results, err := b.index.Search(req)
		if err != nil {
			return fmt.Errorf("Bleve search failed: %w", err)
		}
		if len(results.Hits) == 0 {
			return nil
		}
		batch := b.index.NewBatch()
		for _, hit := range results.Hits {
			batch.Delete(hit.ID)
		}
		if err := b.index.Batch(batch); err != nil {
			return fmt.Errorf("Bleve delete failed: %w", err)
		}
	}
}

// Search runs a match query over message content, scoped to one project.
func (b *BleveIndex) Search(ctx context.Context, projectID, query string, limit int) ([]MessageHit, error) {
	match := bleve.NewMatchQuery(query)
	match.SetField("content")
	scope := bleve.NewTermQuery(projectID)
	scope.SetField("project_id")
	q := bleve.NewConjunctionQuery(match, scope)

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{"session_id", "role", "content"}
	results, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	hits := make([]MessageHit, 0, len(results.Hits))
	for _, hit := range results.Hits {
		h := MessageHit{MessageID: hit.ID, Score: hit.Score}
		if v, ok := hit.Fields["session_id"].(string); ok {
			h.SessionID = v
		}
		if v, ok := hit.Fields["role"].(string); ok {
			h.Role = v
		}
		if v, ok := hit.Fields["content"].(string); ok {
			h.Content = v
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// Close closes the index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
