package auth

import "errors"

// Common authentication service errors
var (
	// ErrInvalidToken indicates the token format is invalid or signature doesn't match
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken indicates the token has expired
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrTokenNotYetValid indicates the token is not yet valid (nbf claim in the future)
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")

	// ErrInsufficientRole indicates a valid token without the required role
	ErrInsufficientRole = errors.New("token lacks required role")

	// ErrSecretTooShort is returned when the signing secret is under 32 bytes
	ErrSecretTooShort = errors.New("jwt secret must be at least 32 characters")
)
