// Package event defines the events delivered over the live stream and
// their wire decoding. Payloads arrive as raw JSON and are decoded at
// the subscription boundary, never inside the owning components.
package event

import (
	"encoding/json"
	"time"

	"convo/domain"

	"github.com/google/uuid"
)

// Names of the recognized stream events.
const (
	OnlineUsers = "online-users"
	Message     = "message"
)

// messagePayload is the wire shape of a "message" event.
type messagePayload struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"senderId"`
	RecipientID string    `json:"recipientId"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DecodeOnlineUsers decodes an "online-users" payload into the full
// replacement set of online user IDs.
func DecodeOnlineUsers(data []byte) ([]string, error) {
	var users []string
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// DecodeMessage decodes a "message" payload into a domain message.
func DecodeMessage(data []byte) (domain.Message, error) {
	var p messagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Message{}, err
	}
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:          id,
		SenderID:    p.SenderID,
		RecipientID: p.RecipientID,
		Content:     p.Content,
		CreatedAt:   p.CreatedAt,
	}, nil
}
