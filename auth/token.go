// Package auth holds the client-side pieces of authentication: form
// validation before a request is issued, and local inspection of the
// bearer token. Signature verification is the server's job; the client
// only reads the expiry claim to avoid a doomed round-trip.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrWeakPassword = fmt.Errorf("password must contain at least one letter and one number")

// TokenExpired reports whether the stored bearer token is past its
// expiry claim. A token that cannot be parsed counts as expired; a
// token without an expiry claim counts as live.
func TokenExpired(tokenString string, now time.Time) bool {
	parser := jwt.NewParser()
	claims := jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(tokenString, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Before(now)
}
