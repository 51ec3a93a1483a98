//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"

	"convo/auth"
	"convo/domain"
)

// IAuthAPI is the request-layer surface for the session lifecycle.
// Each call either resolves with the server-canonical payload or fails
// with an error whose chain may carry a user-displayable message.
type IAuthAPI interface {
	CurrentSession(ctx context.Context) (domain.User, error)
	SignUp(ctx context.Context, req auth.SignUpRequest) (domain.User, error)
	LogIn(ctx context.Context, req auth.LogInRequest) (domain.User, error)
	LogOut(ctx context.Context) error
	UpdateProfile(ctx context.Context, patch auth.ProfilePatch) (domain.User, error)
}

// IChatAPI is the request-layer surface for conversations.
type IChatAPI interface {
	ListContacts(ctx context.Context) ([]domain.User, error)
	GetHistory(ctx context.Context, userID string) ([]domain.Message, error)
	SendMessage(ctx context.Context, recipientID, content string) (domain.Message, error)
}

// EventHandler consumes the raw payload of a single stream event.
// Handlers run on the transport's read loop and must not block.
type EventHandler func(payload []byte)

// EventRegistrar is the subscribe-only view of an open stream handed
// out to components that may attach handlers but never open or close
// the connection themselves.
type EventRegistrar interface {
	On(event string, handler EventHandler)
	Off(event string)
}

// StreamTransport is the long-lived event-stream link. At most one
// stream is open per transport; Open on an already-open transport is
// an error, Close on a closed one is a no-op.
type StreamTransport interface {
	EventRegistrar
	Open(ctx context.Context, userID string) error
	Close() error
}

// IConnectionManager owns the single process-wide stream connection.
type IConnectionManager interface {
	Connect(ctx context.Context, identity string) error
	Disconnect() error
	Handle() EventRegistrar
	IsOpen() bool
	OnlineUsers() []string
}

// Notifier is the user-visible notification sink. The core reports
// outcomes through it and leaves presentation to the injected
// implementation.
type Notifier interface {
	Success(message string)
	Failure(message string)
}
