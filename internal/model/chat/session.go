package chat

import "github.com/google/uuid"

// Session scopes the messages sent during one activation of the chat
// screen. It is never stored on its own, only as Message.SessionID.
type Session struct {
	ID string
}

// NewSession mints a session id.
func NewSession() Session {
	return Session{ID: uuid.NewString()}
}
