// Package domain holds the shared data model for the deskflow router.
package domain

import "time"

// Role identifies the sender of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ConversationTurn is a single message in a session's history.
// Turns are immutable once appended; the history store owns them.
type ConversationTurn struct {
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Unsuccessful reports whether the turn was flagged as an unsuccessful
// resolution attempt. Only meaningful for assistant turns.
func (t ConversationTurn) Unsuccessful() bool {
	v, ok := t.Metadata["unsuccessful"]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}
