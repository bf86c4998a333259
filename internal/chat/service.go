// Package chat runs the request pipeline for one conversation turn: sync the
// vector index, assemble context, build the prompt with recent history, call
// the completion backend, extract citations, and persist both messages.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/tsunagu/internal/assembler"
	"github.com/hyperjump/tsunagu/internal/citation"
	"github.com/hyperjump/tsunagu/internal/indexer"
	"github.com/hyperjump/tsunagu/internal/keyword"
	"github.com/hyperjump/tsunagu/internal/llm"
	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/prompts"
	"github.com/hyperjump/tsunagu/internal/storage"
	"github.com/hyperjump/tsunagu/pkg/utils"
)

const titleLength = 50

// Caller errors, mapped to bad-request responses by the HTTP layer.
var (
	ErrTooFewNodes   = errors.New("at least 2 nodes required for synthesis")
	ErrNoNodeContent = errors.New("no content found in selected nodes")
)

// Request is one chat turn.
type Request struct {
	ProjectID string `json:"project_id"`
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`

	// Live canvas snapshot for context assembly.
	Nodes []models.NodeInput `json:"nodes,omitempty"`
	Edges []models.Edge      `json:"edges,omitempty"`

	ContextMode    models.ContextMode `json:"context_mode,omitempty"`
	PinnedNodeIDs  []string           `json:"pinned_node_ids,omitempty"`
	ContextNodeIDs []string           `json:"context_node_ids,omitempty"`
}

// Response is the result of one chat turn.
type Response struct {
	Response     string            `json:"response"`
	Citations    []models.Citation `json:"citations"`
	ContextNodes []string          `json:"context_nodes"`
	SessionID    string            `json:"session_id"`
	Insights     models.Insights   `json:"insights"`
}

// Service orchestrates the chat pipeline. Each turn runs strictly
// sequentially; the only shared mutable state is the vector index and the
// history store.
type Service struct {
	syncer    *indexer.Synchronizer
	assembler *assembler.Assembler
	store     storage.Store
	client    llm.Client
	templates *prompts.Store

	messages     keyword.MessageIndex
	systemPrompt string
	historyLimit int
	graphDepth   int
	maxNodes     int
	logger       *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMessageIndex enables transcript search over persisted messages.
func WithMessageIndex(idx keyword.MessageIndex) Option {
	return func(s *Service) { s.messages = idx }
}

// WithSystemPrompt sets the base system prompt prepended to every turn.
func WithSystemPrompt(prompt string) Option {
	return func(s *Service) { s.systemPrompt = prompt }
}

// WithHistoryLimit sets how many recent messages feed the prompt.
func WithHistoryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithGraphDepth sets how many hops graph expansion follows.
func WithGraphDepth(depth int) Option {
	return func(s *Service) { s.graphDepth = depth }
}

// WithMaxContextNodes caps the assembled context size.
func WithMaxContextNodes(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxNodes = n
		}
	}
}

// NewService creates a chat service.
func NewService(syncer *indexer.Synchronizer, asm *assembler.Assembler, store storage.Store, client llm.Client, templates *prompts.Store, opts ...Option) *Service {
	s := &Service{
		syncer:       syncer,
		assembler:    asm,
		store:        store,
		client:       client,
		templates:    templates,
		systemPrompt: "You are a helpful assistant.",
		historyLimit: 6,
		graphDepth:   1,
		maxNodes:     15,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// turn holds the per-request derived state shared by the blocking and
// streaming paths.
type turn struct {
	lookup  map[string]models.ContentNode
	context *assembler.Result
	session *models.ChatSession
}

// prepare syncs supplied nodes into the vector index, assembles the context,
// and resolves the session. A missing session id fails with
// storage.ErrSessionNotFound before anything is persisted.
func (s *Service) prepare(ctx context.Context, req Request) (*turn, error) {
	contentNodes := make([]models.ContentNode, 0, len(req.Nodes))
	for _, in := range req.Nodes {
		contentNodes = append(contentNodes, in.ContentNode())
	}
	if len(contentNodes) > 0 {
		written, err := s.syncer.Sync(ctx, req.ProjectID, contentNodes)
		if err != nil {
			return nil, fmt.Errorf("index sync: %w", err)
		}
		s.logger.Debug("index synced", zap.String("project_id", req.ProjectID), zap.Int("written", written))
	}

	lookup := models.NodeLookup(req.Nodes)
	assembled, err := s.assembler.Assemble(ctx, assembler.Request{
		Query:      req.Query,
		ProjectID:  req.ProjectID,
		Nodes:      lookup,
		Edges:      req.Edges,
		Mode:       req.ContextMode,
		PinnedIDs:  req.PinnedNodeIDs,
		ContextIDs: req.ContextNodeIDs,
		GraphDepth: s.graphDepth,
		MaxNodes:   s.maxNodes,
	})
	if err != nil {
		return nil, err
	}

	session, err := s.resolveSession(ctx, req)
	if err != nil {
		return nil, err
	}

	return &turn{lookup: lookup, context: assembled, session: session}, nil
}

// resolveSession attaches to an existing session or creates one titled from
// the query.
func (s *Service) resolveSession(ctx context.Context, req Request) (*models.ChatSession, error) {
	if req.SessionID != "" {
		return s.store.GetSession(ctx, req.SessionID)
	}
	session := &models.ChatSession{
		ID:        uuid.New().String(),
		ProjectID: req.ProjectID,
		Title:     utils.Truncate(req.Query, titleLength),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// buildMessages composes the completion request: templated system prompt
// with context, recent history oldest-first, then the current query.
func (s *Service) buildMessages(ctx context.Context, sessionID, query, contextText string) ([]llm.Message, error) {
	system, err := s.templates.Get(prompts.KeyRAGTemplate, map[string]string{
		"system_prompt": s.systemPrompt,
		"context_text":  contextText,
	})
	if err != nil {
		return nil, err
	}

	history, err := s.store.RecentMessages(ctx, sessionID, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: models.RoleSystem, Content: system})
	for _, msg := range history {
		messages = append(messages, llm.Message{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, llm.Message{Role: models.RoleUser, Content: query})
	return messages, nil
}

// persistUser writes the user message with the turn's context node ids. It
// runs before the completion call, so a cancelled turn can leave a user
// message without its paired assistant message.
func (s *Service) persistUser(ctx context.Context, t *turn, query string) error {
	msg := &models.ChatMessage{
		ID:             uuid.New().String(),
		SessionID:      t.session.ID,
		Role:           models.RoleUser,
		Content:        query,
		ContextNodeIDs: t.context.OrderedNodeIDs,
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return fmt.Errorf("persist user message: %w", err)
	}
	s.indexMessage(ctx, t.session.ProjectID, msg)
	return nil
}

// persistAssistant writes the assistant message with its citations and bumps
// the session timestamp.
func (s *Service) persistAssistant(ctx context.Context, t *turn, response string, citations []models.Citation) error {
	msg := &models.ChatMessage{
		ID:        uuid.New().String(),
		SessionID: t.session.ID,
		Role:      models.RoleAssistant,
		Content:   response,
		Citations: citations,
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return fmt.Errorf("persist assistant message: %w", err)
	}
	s.indexMessage(ctx, t.session.ProjectID, msg)
	if err := s.store.TouchSession(ctx, t.session.ID); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// indexMessage adds a message to the transcript index. Indexing failures are
// logged, not surfaced; search lagging behind the store is tolerable.
func (s *Service) indexMessage(ctx context.Context, projectID string, msg *models.ChatMessage) {
	if s.messages == nil {
		return
	}
	if err := s.messages.Index(ctx, projectID, msg); err != nil {
		s.logger.Warn("failed to index message", zap.String("message_id", msg.ID), zap.Error(err))
	}
}

// Chat runs one blocking turn.
func (s *Service) Chat(ctx context.Context, req Request) (*Response, error) {
	t, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	messages, err := s.buildMessages(ctx, t.session.ID, req.Query, t.context.ContextText)
	if err != nil {
		return nil, err
	}

	if err := s.persistUser(ctx, t, req.Query); err != nil {
		return nil, err
	}

	response, err := s.client.Invoke(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}

	citations := citation.Extract(response, t.context.OrderedNodeIDs, t.lookup)
	if err := s.persistAssistant(ctx, t, response, citations); err != nil {
		return nil, err
	}

	return &Response{
		Response:     response,
		Citations:    citations,
		ContextNodes: t.context.OrderedNodeIDs,
		SessionID:    t.session.ID,
		Insights:     t.context.Insights,
	}, nil
}

// Stream runs one streaming turn, calling onToken for each text delta. The
// returned Response carries the accumulated text, citations, and insights
// for the caller's final event.
func (s *Service) Stream(ctx context.Context, req Request, onToken func(delta string) error) (*Response, error) {
	t, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	messages, err := s.buildMessages(ctx, t.session.ID, req.Query, t.context.ContextText)
	if err != nil {
		return nil, err
	}

	if err := s.persistUser(ctx, t, req.Query); err != nil {
		return nil, err
	}

	var full strings.Builder
	err = s.client.Stream(ctx, messages, func(delta string) error {
		full.WriteString(delta)
		return onToken(delta)
	})
	if err != nil {
		return nil, fmt.Errorf("completion stream: %w", err)
	}

	response := full.String()
	citations := citation.Extract(response, t.context.OrderedNodeIDs, t.lookup)
	if err := s.persistAssistant(ctx, t, response, citations); err != nil {
		return nil, err
	}

	return &Response{
		Response:     response,
		Citations:    citations,
		ContextNodes: t.context.OrderedNodeIDs,
		SessionID:    t.session.ID,
		Insights:     t.context.Insights,
	}, nil
}
