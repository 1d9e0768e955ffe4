package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/phrazzld/duewatch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestService(t *testing.T, now func() time.Time) *hmacJWTService {
	t.Helper()
	s, err := newHMACJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetime: time.Hour}, now)
	require.NoError(t, err)
	return s
}

func TestNewJWTService_RejectsShortSecret(t *testing.T) {
	t.Parallel()
	_, err := NewJWTService(config.AuthConfig{JWTSecret: "short", TokenLifetime: time.Hour})
	assert.ErrorIs(t, err, ErrSecretTooShort)
}

func TestGenerateAndValidate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	issued := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	s := newTestService(t, func() time.Time { return issued })

	token, err := s.GenerateToken(ctx, "ops", RoleAdmin)
	require.NoError(t, err)

	claims, err := s.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Equal(t, issued.Add(time.Hour), claims.ExpiresAt)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateToken_Failures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	issued := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	s := newTestService(t, func() time.Time { return issued })

	token, err := s.GenerateToken(ctx, "ops", RoleAdmin)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := newTestService(t, func() time.Time { return issued.Add(2 * time.Hour) })
		_, err := later.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("within clock skew", func(t *testing.T) {
		later := newTestService(t, func() time.Time { return issued.Add(time.Hour + time.Minute) })
		_, err := later.ValidateToken(ctx, token)
		assert.NoError(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := newHMACJWTService(config.AuthConfig{
			JWTSecret:     "fedcba9876543210fedcba9876543210",
			TokenLifetime: time.Hour,
		}, func() time.Time { return issued })
		require.NoError(t, err)
		_, err = other.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := s.ValidateToken(ctx, "not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unsigned", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"role": RoleAdmin,
			"exp":  issued.Add(time.Hour).Unix(),
		})
		raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = s.ValidateToken(ctx, raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing expiry", func(t *testing.T) {
		noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": RoleAdmin})
		raw, err := noExp.SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = s.ValidateToken(ctx, raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
