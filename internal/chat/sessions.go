package chat

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/tsunagu/internal/keyword"
	"github.com/hyperjump/tsunagu/internal/llm"
	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/prompts"
	"github.com/hyperjump/tsunagu/pkg/utils"
)

const (
	summaryMinMessages   = 2
	summaryMessageLength = 500
)

// Synthesis modes.
const (
	ModeSummary   = "summary"
	ModeCompare   = "compare"
	ModeNarrative = "narrative"
)

// Summary is the result of summarizing a session transcript.
type Summary struct {
	Summary      string `json:"summary"`
	MessageCount int    `json:"message_count"`
	SessionID    string `json:"session_id,omitempty"`
}

// SessionDetail is a session with its full transcript.
type SessionDetail struct {
	Session  *models.ChatSession   `json:"session"`
	Messages []*models.ChatMessage `json:"messages"`
}

// SynthesizeRequest combines selected canvas nodes into one text.
type SynthesizeRequest struct {
	NodeIDs []string           `json:"node_ids"`
	Nodes   []models.NodeInput `json:"nodes"`
	Mode    string             `json:"mode,omitempty"`
}

// Synthesis is the result of combining nodes.
type Synthesis struct {
	Synthesis      string `json:"synthesis"`
	InputNodeCount int    `json:"input_node_count"`
	Mode           string `json:"mode"`
}

// ListSessions returns a project's sessions, most recently updated first.
func (s *Service) ListSessions(ctx context.Context, projectID string) ([]*models.ChatSession, error) {
	return s.store.ListSessions(ctx, projectID)
}

// GetSessionDetail returns a session with all its messages in creation order.
func (s *Service) GetSessionDetail(ctx context.Context, id string) (*SessionDetail, error) {
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	messages, err := s.store.SessionMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SessionDetail{Session: session, Messages: messages}, nil
}

// DeleteSession removes a session, its messages, and its transcript index
// entries.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	if err := s.store.DeleteSession(ctx, id); err != nil {
		return err
	}
	if s.messages != nil {
		if err := s.messages.DeleteSession(ctx, id); err != nil {
			s.logger.Warn("failed to remove session from transcript index", zap.String("session_id", id), zap.Error(err))
		}
	}
	return nil
}

// SearchMessages runs full-text search over a project's transcripts.
func (s *Service) SearchMessages(ctx context.Context, projectID, query string, limit int) ([]keyword.MessageHit, error) {
	if s.messages == nil {
		return nil, nil
	}
	return s.messages.Search(ctx, projectID, query, limit)
}

// Summarize generates a short summary of a session transcript. Transcripts
// with fewer than two messages get a fixed response without a model call.
func (s *Service) Summarize(ctx context.Context, sessionID string) (*Summary, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	messages, err := s.store.SessionMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if len(messages) < summaryMinMessages {
		return &Summary{
			Summary:      "This conversation is too short to summarize.",
			MessageCount: len(messages),
		}, nil
	}

	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		role := "AI"
		if msg.Role == models.RoleUser {
			role = "User"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, utils.Truncate(msg.Content, summaryMessageLength)))
	}
	transcript := strings.Join(lines, "\n\n")

	system, err := s.templates.Get(prompts.KeyChatSummarySystem, nil)
	if err != nil {
		return nil, err
	}
	user, err := s.templates.Get(prompts.KeyChatSummaryUser, map[string]string{"conversation_text": transcript})
	if err != nil {
		return nil, err
	}

	summary, err := s.client.Invoke(ctx, []llm.Message{
		{Role: models.RoleSystem, Content: system},
		{Role: models.RoleUser, Content: user},
	})
	if err != nil {
		return nil, fmt.Errorf("summary generation: %w", err)
	}

	return &Summary{
		Summary:      strings.TrimSpace(summary),
		MessageCount: len(messages),
		SessionID:    sessionID,
	}, nil
}

// Synthesize combines two or more canvas nodes into a summary, comparison,
// or narrative.
func (s *Service) Synthesize(ctx context.Context, req SynthesizeRequest) (*Synthesis, error) {
	if len(req.NodeIDs) < 2 {
		return nil, ErrTooFewNodes
	}

	lookup := models.NodeLookup(req.Nodes)
	var parts []string
	for i, id := range req.NodeIDs {
		node, ok := lookup[id]
		if !ok || strings.TrimSpace(node.Text()) == "" {
			continue
		}
		switch n := node.(type) {
		case models.Note:
			parts = append(parts, fmt.Sprintf("[%d] (Note): %s", i+1, n.Content))
		case models.Snippet:
			source := n.SourceDocument
			if source == "" {
				source = "Unknown"
			}
			parts = append(parts, fmt.Sprintf("[%d] From %q: %s", i+1, source, n.Content))
		}
	}
	if len(parts) == 0 {
		return nil, ErrNoNodeContent
	}

	mode := req.Mode
	switch mode {
	case ModeSummary, ModeCompare, ModeNarrative:
	default:
		mode = ModeSummary
	}

	system, err := s.templates.Get(prompts.KeySynthesisSystem, nil)
	if err != nil {
		return nil, err
	}
	user, err := s.templates.Get("synthesis."+mode, map[string]string{"content": strings.Join(parts, "\n\n")})
	if err != nil {
		return nil, err
	}

	result, err := s.client.Invoke(ctx, []llm.Message{
		{Role: models.RoleSystem, Content: system},
		{Role: models.RoleUser, Content: user},
	})
	if err != nil {
		return nil, fmt.Errorf("synthesis: %w", err)
	}

	return &Synthesis{
		Synthesis:      strings.TrimSpace(result),
		InputNodeCount: len(parts),
		Mode:           mode,
	}, nil
}
