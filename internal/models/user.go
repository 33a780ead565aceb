// Package models defines the records secdash stores and serves.
package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"time"
)

// Role represents a user's permission level.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

// User is an account allowed to read dashboards or upload exports.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CanImport reports whether the user may upload tool exports.
func (u *User) CanImport() bool {
	return u.Role.CanImport()
}

// CanImport reports whether the role may upload tool exports.
func (r Role) CanImport() bool {
	return r == RoleAdmin || r == RoleOperator
}

// ParseRole converts a string to Role, defaulting to viewer.
func ParseRole(s string) Role {
	switch s {
	case "admin":
		return RoleAdmin
	case "operator":
		return RoleOperator
	default:
		return RoleViewer
	}
}

// RefreshToken is a long-lived token exchanged for new access tokens.
// Only the SHA-256 hash of the token is persisted.
type RefreshToken struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	Revoked   bool       `json:"revoked"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// NewRefreshToken returns the stored form of a fresh token and its plaintext.
func NewRefreshToken(userID string, ttl time.Duration) (*RefreshToken, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", err
	}
	plain := base64.RawURLEncoding.EncodeToString(raw)

	now := time.Now().UTC()
	return &RefreshToken{
		UserID:    userID,
		TokenHash: HashToken(plain),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}, plain, nil
}

// HashToken returns the lookup hash of a plaintext token.
func HashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// IsValid returns true if the token is neither revoked nor expired.
func (t *RefreshToken) IsValid() bool {
	return !t.Revoked && time.Now().Before(t.ExpiresAt)
}
