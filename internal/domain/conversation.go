package domain

import (
	"fmt"
	"time"
)

// Role identifies the author of a conversation turn or prompt message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is a single message in a session's history. Turns are
// immutable once created.
type ConversationTurn struct {
	Role      Role
	Content   string
	Timestamp time.Time
}

// NewConversationTurn creates a turn stamped with the current UTC time.
func NewConversationTurn(role Role, content string) ConversationTurn {
	return ConversationTurn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// ValidateTurn validates a ConversationTurn instance
func ValidateTurn(t ConversationTurn) error {
	if t.Role != RoleUser && t.Role != RoleAssistant {
		return fmt.Errorf("%w: %q", ErrInvalidRole, t.Role)
	}
	if t.Content == "" {
		return ErrEmptyMessage
	}
	return nil
}

// PromptMessage is one element of a composed prompt handed to the
// completion service. Unlike ConversationTurn it may carry the system
// role and has no timestamp.
type PromptMessage struct {
	Role    Role
	Content string
}

// SessionInfo describes a registered session for listing and eviction.
type SessionInfo struct {
	ID         string
	TurnCount  int
	LastActive time.Time
}
