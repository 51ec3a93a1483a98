// Package domain contains core concepts of the messaging client.
// This file defines Message values exchanged in a conversation.
// Messages are immutable once confirmed by the server.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat message.
type Message struct {
	ID          uuid.UUID // server-assigned identifier
	SenderID    string
	RecipientID string
	Content     string
	CreatedAt   time.Time // server-assigned timestamp
}
