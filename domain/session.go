// Package domain contains core concepts of the messaging client.
// This file defines the session lifecycle states.
package domain

// SessionStatus tracks the authenticated-identity lifecycle.
// The identity is present if and only if the status is StatusAuthenticated.
type SessionStatus int

const (
	// StatusCheckingInitial is the process-start state while the client
	// asks the server whether a previous session is still valid.
	StatusCheckingInitial SessionStatus = iota
	StatusAnonymous
	StatusAuthenticating
	StatusAuthenticated
)

func (s SessionStatus) String() string {
	switch s {
	case StatusCheckingInitial:
		return "CheckingInitial"
	case StatusAnonymous:
		return "Anonymous"
	case StatusAuthenticating:
		return "Authenticating"
	case StatusAuthenticated:
		return "Authenticated"
	default:
		return "Unknown"
	}
}
