// Package storage persists chat sessions and messages.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/tsunagu/internal/models"
)

// ErrSessionNotFound is returned when a session id does not exist. Callers
// distinguish it from backend failures with errors.Is.
var ErrSessionNotFound = errors.New("chat session not found")

// Store defines chat history persistence operations.
type Store interface {
	// Session operations
	CreateSession(ctx context.Context, session *models.ChatSession) error
	GetSession(ctx context.Context, id string) (*models.ChatSession, error)
	ListSessions(ctx context.Context, projectID string) ([]*models.ChatSession, error)
	TouchSession(ctx context.Context, id string) error
	DeleteSession(ctx context.Context, id string) error

	// Message operations
	AppendMessage(ctx context.Context, msg *models.ChatMessage) error
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]*models.ChatMessage, error)
	SessionMessages(ctx context.Context, sessionID string) ([]*models.ChatMessage, error)

	Close() error
}
