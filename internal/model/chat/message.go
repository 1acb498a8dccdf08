package chat

import (
	"strings"

	"github.com/zhouzirui/mindscope/backend/internal/docstore"
)

// Collection stores chat turns, one document per message.
const Collection = "mhChatHistory"

// Stored field names.
const (
	FieldOwnerID   = "ownerId"
	FieldSessionID = "sessionId"
	FieldRole      = "role"
	FieldContent   = "content"
	FieldCreatedAt = "createdAt"
	FieldCrisis    = "crisis"
)

// Roles a turn can have.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// FallbackReply is written as the assistant turn when the chat backend
// cannot be reached, so the transcript never has an unanswered user turn.
const FallbackReply = "I couldn't reach the assistant right now. Please try again in a moment."

// EmptyReply replaces a blank reply from the backend.
const EmptyReply = "I'm here and listening."

// Message persists one turn of a chat session.
type Message struct {
	OwnerID   string
	SessionID string
	Role      string
	Content   string
	Crisis    bool
}

// Fields builds the document written for m; createdAt is assigned by the
// store.
func (m Message) Fields() docstore.Fields {
	return docstore.Fields{
		FieldOwnerID:   m.OwnerID,
		FieldSessionID: m.SessionID,
		FieldRole:      m.Role,
		FieldContent:   m.Content,
		FieldCrisis:    m.Crisis,
		FieldCreatedAt: docstore.ServerTimestamp(),
	}
}

// Turn is a role/content pair sent to the chat backend as history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ValidRole reports whether role may appear in backend history.
func ValidRole(role string) bool {
	switch strings.ToLower(role) {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}
