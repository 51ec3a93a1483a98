// Package domain contains core concepts of the messaging client.
// This file defines the User identity as returned by the server.
package domain

import "time"

// User is the server-canonical representation of an account.
// Profile fields are only ever replaced wholesale from a server response.
type User struct {
	ID        string
	Email     string
	FullName  string
	AvatarURL string
	CreatedAt time.Time
}
