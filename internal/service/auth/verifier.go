// Package auth provides bearer-credential verification for the HTTP API
// and the WebSocket gateway. Credential issuance lives in the external
// identity service; this package only validates tokens it issued.
package auth

import (
	"context"
	"time"
)

// TokenVerifier defines the credential-verification port consumed by the
// gateway handshake and the HTTP auth middleware.
type TokenVerifier interface {
	// VerifyToken validates the provided bearer token string and extracts
	// the claims. Returns ErrExpiredToken, ErrTokenNotYetValid, or
	// ErrInvalidToken on failure.
	VerifyToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the authenticated identity carried by a verified token.
type Claims struct {
	// UserID is the unique identifier of the user the token was issued for.
	UserID string `json:"uid"`

	// Role is the user's role within the application ("member", "admin").
	Role string `json:"role,omitempty"`

	// DisplayName is the user-facing name shown in presence events.
	DisplayName string `json:"name,omitempty"`

	// Standard registered JWT claims
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
}
