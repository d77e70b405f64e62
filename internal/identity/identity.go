// Package identity is the identity/role collaborator: it resolves the
// acting client or accountant from a bearer token. The core consumes only
// the Resolver interface; permissions are enforced at the HTTP boundary.
package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"dossierapi/internal/config"
)

// Role distinguishes the two actor kinds at this boundary.
type Role string

const (
	RoleClient     Role = "client"
	RoleAccountant Role = "accountant"
)

// Actor is the resolved caller.
type Actor struct {
	ID   string
	Role Role
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrUnknownRole  = errors.New("unknown role")
)

// Resolver resolves a bearer token into an Actor.
type Resolver interface {
	Resolve(token string) (Actor, error)
}

// Claims carries the actor identity inside the JWT.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// jwtResolver validates HS256 tokens signed with the shared secret.
type jwtResolver struct {
	secret []byte
}

// NewJWTResolver constructs a Resolver from the auth configuration.
func NewJWTResolver(cfg config.AuthConfig) (Resolver, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return &jwtResolver{secret: []byte(cfg.JWTSecret)}, nil
}

func (r *jwtResolver) Resolve(tokenString string) (Actor, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil || !token.Valid {
		return Actor{}, ErrInvalidToken
	}

	role := Role(claims.Role)
	if role != RoleClient && role != RoleAccountant {
		return Actor{}, ErrUnknownRole
	}
	if claims.Subject == "" {
		return Actor{}, ErrInvalidToken
	}
	return Actor{ID: claims.Subject, Role: role}, nil
}

// GenerateToken mints a token for the given actor. Used by the auth
// endpoint of the surrounding application and by tests.
func GenerateToken(actor Actor, cfg config.AuthConfig) (string, time.Time, error) {
	expiresAt := time.Now().Add(time.Duration(cfg.TokenExpireHours) * time.Hour)

	claims := Claims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
