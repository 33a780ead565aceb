package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/good-yellow-bee/secdash/internal/metrics"
	"github.com/good-yellow-bee/secdash/internal/models"
	"github.com/good-yellow-bee/secdash/internal/storage"
)

// sweepEvery bounds how often expired refresh tokens are deleted.
const sweepEvery = time.Hour

// errRefreshRejected covers unknown, expired, revoked and orphaned
// refresh tokens.
var errRefreshRejected = errors.New("invalid or expired refresh token")

// refreshTokens issues, rotates and revokes the long-lived tokens that
// buy new access tokens. Only token hashes reach storage.
type refreshTokens struct {
	store storage.Storage
	ttl   time.Duration

	mu        sync.Mutex
	lastSweep time.Time
}

func newRefreshTokens(store storage.Storage, ttl time.Duration) *refreshTokens {
	return &refreshTokens{store: store, ttl: ttl}
}

// issue stores a new token for userID and returns its plaintext.
func (r *refreshTokens) issue(ctx context.Context, userID string) (string, error) {
	r.sweep(ctx)

	token, plain, err := models.NewRefreshToken(userID, r.ttl)
	if err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	if err := r.store.Tokens().Create(ctx, token); err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	metrics.AuthTokensIssued.WithLabelValues("refresh").Inc()
	return plain, nil
}

// exchange spends plain and returns its owner with a replacement token.
// A token can be exchanged once.
func (r *refreshTokens) exchange(ctx context.Context, plain string) (*models.User, string, error) {
	token, err := r.store.Tokens().GetByTokenHash(ctx, models.HashToken(plain))
	if err != nil {
		return nil, "", fmt.Errorf("lookup refresh token: %w", err)
	}
	if token == nil || !token.IsValid() {
		return nil, "", errRefreshRejected
	}

	user, err := r.store.Users().GetByID(ctx, token.UserID)
	if err != nil {
		return nil, "", fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, "", errRefreshRejected
	}

	if err := r.store.Tokens().Revoke(ctx, token.ID); err != nil {
		return nil, "", fmt.Errorf("revoke spent refresh token: %w", err)
	}
	next, err := r.issue(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, next, nil
}

// revoke invalidates plain. Unknown tokens are not an error.
func (r *refreshTokens) revoke(ctx context.Context, plain string) error {
	return r.store.Tokens().RevokeByTokenHash(ctx, models.HashToken(plain))
}

// sweep deletes expired tokens at most once per sweepEvery.
func (r *refreshTokens) sweep(ctx context.Context) {
	r.mu.Lock()
	if time.Since(r.lastSweep) < sweepEvery {
		r.mu.Unlock()
		return
	}
	r.lastSweep = time.Now()
	r.mu.Unlock()

	n, err := r.store.Tokens().DeleteExpired(ctx)
	if err != nil {
		log.Printf("auth: sweep refresh tokens: %v", err)
		return
	}
	if n > 0 {
		log.Printf("auth: removed %d expired refresh tokens", n)
	}
}
