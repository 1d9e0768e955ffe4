// Package auth issues and validates the bearer tokens that guard the
// scheduler control API.
package auth

import (
	"context"
	"time"
)

// RoleAdmin is the only role the control API accepts.
const RoleAdmin = "admin"

// JWTService defines operations for managing control API tokens.
type JWTService interface {
	// GenerateToken creates a signed token for subject with the given role.
	GenerateToken(ctx context.Context, subject, role string) (string, error)

	// ValidateToken validates the token string and extracts the claims.
	// Returns ErrExpiredToken, ErrTokenNotYetValid or ErrInvalidToken on
	// failure.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims is the validated content of a token.
type Claims struct {
	Subject   string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}
