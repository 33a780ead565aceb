package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/secdash/internal/models"
)

type tokenRepo struct {
	db *DB
}

// Create inserts a new refresh token.
func (r *tokenRepo) Create(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}

	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at, revoked)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		token.ID, token.UserID, token.TokenHash,
		token.ExpiresAt.UTC(), token.CreatedAt.UTC(), token.Revoked,
	)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", r.db.conflict(err))
	}
	return nil
}

// GetByTokenHash retrieves a refresh token by its hash.
func (r *tokenRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, created_at, revoked, revoked_at
		FROM refresh_tokens
		WHERE token_hash = ?
	`

	var token models.RefreshToken
	var revokedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&token.ID, &token.UserID, &token.TokenHash,
		&token.ExpiresAt, &token.CreatedAt, &token.Revoked, &revokedAt,
	)
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query refresh token: %w", err)
	}

	token.RevokedAt = timePtr(revokedAt)
	return &token, nil
}

// Revoke marks a token as revoked.
func (r *tokenRepo) Revoke(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked = ?, revoked_at = ? WHERE id = ?",
		true, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("token %s: %w", id, ErrNotFound)
	}
	return nil
}

// RevokeByTokenHash revokes a token by its hash.
func (r *tokenRepo) RevokeByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked = ?, revoked_at = ? WHERE token_hash = ?",
		true, time.Now().UTC(), tokenHash,
	)
	if err != nil {
		return fmt.Errorf("revoke token by hash: %w", err)
	}
	return nil
}

// RevokeAllForUser revokes all tokens for a user.
func (r *tokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked = ?, revoked_at = ? WHERE user_id = ? AND revoked = ?",
		true, time.Now().UTC(), userID, false,
	)
	if err != nil {
		return fmt.Errorf("revoke all tokens for user: %w", err)
	}
	return nil
}

// DeleteExpired removes expired tokens from the database.
func (r *tokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE expires_at < ?", time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return result.RowsAffected()
}
