package session

import (
	"errors"
	"fmt"

	"github.com/zhouzirui/mindscope/backend/internal/service/auth"
)

// AuthError reports a failed identity-provider call. The tracker state is
// unchanged when one is returned.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Message is the text shown on the login screen.
func (e *AuthError) Message() string {
	switch {
	case errors.Is(e.Err, auth.ErrInvalidCredentials):
		return "Incorrect email or password."
	case errors.Is(e.Err, auth.ErrEmailTaken):
		return "An account with this email already exists."
	case errors.Is(e.Err, auth.ErrInvalidEmail):
		return "Please enter a valid email address."
	case errors.Is(e.Err, auth.ErrWeakPassword):
		return "Password should be at least 6 characters."
	default:
		return "Authentication failed. Please try again."
	}
}
