// SQLite implementation of the chat history Store.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/tsunagu/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chat_sessions (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		title TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_project_id ON chat_sessions(project_id);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		context_nodes TEXT,
		citations TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (session_id) REFERENCES chat_sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_messages_session_id ON chat_messages(session_id);
	CREATE INDEX IF NOT EXISTS idx_messages_session_created ON chat_messages(session_id, created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateSession inserts a session and stamps its timestamps.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *models.ChatSession) error {
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, project_id, title, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		session.ID, session.ProjectID, session.Title, session.CreatedAt, session.UpdatedAt,
	)
	return err
}

// GetSession returns a session by id, or ErrSessionNotFound.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*models.ChatSession, error) {
	var session models.ChatSession
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, title, created_at, updated_at
		 FROM chat_sessions WHERE id = ?`, id,
	).Scan(&session.ID, &session.ProjectID, &session.Title, &session.CreatedAt, &session.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions returns a project's sessions, most recently updated first.
func (s *SQLiteStore) ListSessions(ctx context.Context, projectID string) ([]*models.ChatSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, title, created_at, updated_at
		 FROM chat_sessions WHERE project_id = ? ORDER BY updated_at DESC`,
		projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.ChatSession
	for rows.Next() {
		var session models.ChatSession
		if err := rows.Scan(&session.ID, &session.ProjectID, &session.Title, &session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, &session)
	}
	return sessions, rows.Err()
}

// TouchSession bumps a session's updated_at to now.
func (s *SQLiteStore) TouchSession(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET updated_at = ? WHERE id = ?`,
		time.Now(), id,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// DeleteSession removes a session and its messages.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = ?`, id)
	return err
}

// AppendMessage inserts a message. Context node ids and citations are stored
// as JSON columns.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *models.ChatMessage) error {
	nodesJSON, err := json.Marshal(msg.ContextNodeIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal context nodes: %w", err)
	}
	citationsJSON, err := json.Marshal(msg.Citations)
	if err != nil {
		return fmt.Errorf("failed to marshal citations: %w", err)
	}

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, context_nodes, citations, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, msg.Role, msg.Content, string(nodesJSON), string(citationsJSON), msg.CreatedAt,
	)
	return err
}

// RecentMessages returns the latest limit messages for a session, oldest
// first within that window.
func (s *SQLiteStore) RecentMessages(ctx context.Context, sessionID string, limit int) ([]*models.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, context_nodes, citations, created_at
		 FROM chat_messages WHERE session_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	messages, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	// Reverse into ascending creation order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// SessionMessages returns all messages for a session in creation order.
func (s *SQLiteStore) SessionMessages(ctx context.Context, sessionID string) ([]*models.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, context_nodes, citations, created_at
		 FROM chat_messages WHERE session_id = ?
		 ORDER BY created_at ASC, id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]*models.ChatMessage, error) {
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		var nodesJSON, citationsJSON string
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &nodesJSON, &citationsJSON, &msg.CreatedAt); err != nil {
			return nil, err
		}
		if nodesJSON != "" {
			_ = json.Unmarshal([]byte(nodesJSON), &msg.ContextNodeIDs)
		}
		if citationsJSON != "" {
			_ = json.Unmarshal([]byte(citationsJSON), &msg.Citations)
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
