package models

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatSession groups the messages of one conversation within a project.
type ChatSession struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatMessage is one turn message. User messages carry the context node ids
// used for the turn; assistant messages carry the extracted citations.
type ChatMessage struct {
	ID             string     `json:"id"`
	SessionID      string     `json:"session_id"`
	Role           string     `json:"role"`
	Content        string     `json:"content"`
	ContextNodeIDs []string   `json:"context_nodes,omitempty"`
	Citations      []Citation `json:"citations,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
