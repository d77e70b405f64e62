package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dossierapi/internal/config"
)

func TestJWTResolver(t *testing.T) {
	cfg := config.AuthConfig{JWTSecret: "test-secret", TokenExpireHours: 1}
	resolver, err := NewJWTResolver(cfg)
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		token, expiresAt, err := GenerateToken(Actor{ID: "client-1", Role: RoleClient}, cfg)
		require.NoError(t, err)
		assert.True(t, expiresAt.After(time.Now()))

		actor, err := resolver.Resolve(token)
		require.NoError(t, err)
		assert.Equal(t, "client-1", actor.ID)
		assert.Equal(t, RoleClient, actor.Role)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, _, err := GenerateToken(Actor{ID: "acct-1", Role: RoleAccountant}, config.AuthConfig{JWTSecret: "other", TokenExpireHours: 1})
		require.NoError(t, err)

		_, err = resolver.Resolve(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unknown role", func(t *testing.T) {
		claims := Claims{
			Role: "intern",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "someone",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
		require.NoError(t, err)

		_, err = resolver.Resolve(token)
		assert.ErrorIs(t, err, ErrUnknownRole)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := Claims{
			Role: string(RoleClient),
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "client-1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
		require.NoError(t, err)

		_, err = resolver.Resolve(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing secret refuses construction", func(t *testing.T) {
		_, err := NewJWTResolver(config.AuthConfig{})
		assert.Error(t, err)
	})
}
