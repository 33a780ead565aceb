// Package auth authenticates dashboard users and issues the bearer tokens
// the API expects.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/good-yellow-bee/secdash/internal/models"
)

const (
	tokenIssuer   = "secdash"
	tokenAudience = "secdash-api"
)

// ErrInvalidToken wraps every reason an access token is refused.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims identify the caller of an API request.
type Claims struct {
	jwt.RegisteredClaims
	Username string      `json:"usr"`
	Role     models.Role `json:"role"`
}

// UserID returns the token subject.
func (c *Claims) UserID() string {
	return c.Subject
}

// CanImport reports whether the caller may upload tool exports.
func (c *Claims) CanImport() bool {
	return c.Role.CanImport()
}

// Signer signs and verifies HS256 access tokens.
type Signer struct {
	key    []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewSigner returns a Signer whose tokens live for ttl.
func NewSigner(key []byte, ttl time.Duration) *Signer {
	return &Signer{
		key: key,
		ttl: ttl,
		now: time.Now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(tokenIssuer),
			jwt.WithAudience(tokenAudience),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
		),
	}
}

// TTL returns how long issued tokens stay valid.
func (s *Signer) TTL() time.Duration {
	return s.ttl
}

// Sign returns an access token for user and the time it expires.
func (s *Signer) Sign(user *models.User) (string, time.Time, error) {
	if user == nil || user.ID == "" {
		return "", time.Time{}, fmt.Errorf("sign access token: user id is required")
	}
	now := s.now()
	expires := now.Add(s.ttl)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   user.ID,
			Audience:  jwt.ClaimStrings{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Username: user.Username,
		Role:     user.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expires, nil
}

// Verify checks raw and returns its claims. Tokens without a subject or
// with an unknown role are refused even when correctly signed.
func (s *Signer) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	switch claims.Role {
	case models.RoleAdmin, models.RoleOperator, models.RoleViewer:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	return claims, nil
}
