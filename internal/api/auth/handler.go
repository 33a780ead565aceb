package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/good-yellow-bee/secdash/internal/metrics"
	"github.com/good-yellow-bee/secdash/internal/models"
	"github.com/good-yellow-bee/secdash/internal/storage"
)

const (
	codeBadRequest    = "BAD_REQUEST"
	codeUnauthorized  = "UNAUTHORIZED"
	codeAccountLocked = "ACCOUNT_LOCKED"
	codeInternal      = "INTERNAL_ERROR"

	maxCredentialBytes = 4 << 10
)

var errBadCredentials = errors.New("invalid credentials")

// lockedError is returned while a username is locked out.
type lockedError struct {
	remaining time.Duration
}

func (e *lockedError) Error() string {
	return fmt.Sprintf("account locked for %v", e.remaining.Round(time.Second))
}

// decoyHash is compared against when the username does not exist, so
// unknown and known users take the same time to refuse.
var decoyHash = sync.OnceValue(func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("secdash-decoy-password"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
})

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest is the body of refresh and logout requests.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is returned by login and refresh. Role tells clients
// whether to offer uploads.
type TokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int         `json:"expires_in"`
	ExpiresAt    time.Time   `json:"expires_at"`
	Role         models.Role `json:"role"`
	CanImport    bool        `json:"can_import"`
}

// Handler serves the login, refresh and logout endpoints.
type Handler struct {
	store   storage.Storage
	signer  *Signer
	lockout *Lockout
	refresh *refreshTokens
}

// NewHandler returns a Handler whose refresh tokens live for refreshTTL.
func NewHandler(store storage.Storage, signer *Signer, lockout *Lockout, refreshTTL time.Duration) *Handler {
	return &Handler{
		store:   store,
		signer:  signer,
		lockout: lockout,
		refresh: newRefreshTokens(store, refreshTTL),
	}
}

// Login exchanges a username and password for a token pair.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req Credentials
	if !decode(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "username and password required")
		return
	}

	ctx := r.Context()
	user, err := h.authenticate(ctx, req.Username, req.Password)
	var locked *lockedError
	switch {
	case err == nil:
	case errors.As(err, &locked):
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(locked.remaining.Seconds()))))
		writeError(w, http.StatusTooManyRequests, codeAccountLocked, "account temporarily locked after repeated failed logins")
		return
	case errors.Is(err, errBadCredentials):
		writeError(w, http.StatusUnauthorized, codeUnauthorized, errBadCredentials.Error())
		return
	default:
		log.Printf("auth: login %s: %v", req.Username, err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
		return
	}

	refresh, err := h.refresh.issue(ctx, user.ID)
	if err != nil {
		log.Printf("auth: login %s: %v", user.Username, err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
		return
	}
	log.Printf("auth: %s (%s) logged in", user.Username, user.Role)
	h.grant(w, user, refresh)
}

// Refresh spends a refresh token for a new token pair.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeRefresh(w, r, &req) {
		return
	}

	user, next, err := h.refresh.exchange(r.Context(), req.RefreshToken)
	switch {
	case err == nil:
	case errors.Is(err, errRefreshRejected):
		writeError(w, http.StatusUnauthorized, codeUnauthorized, err.Error())
		return
	default:
		log.Printf("auth: refresh: %v", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
		return
	}
	h.grant(w, user, next)
}

// Logout revokes a refresh token. Access tokens stay valid until they
// expire.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeRefresh(w, r, &req) {
		return
	}
	if err := h.refresh.revoke(r.Context(), req.RefreshToken); err != nil {
		log.Printf("auth: logout: %v", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// authenticate checks a password and keeps the lockout and metrics
// current.
func (h *Handler) authenticate(ctx context.Context, username, password string) (*models.User, error) {
	if remaining, locked := h.lockout.Blocked(username); locked {
		metrics.AuthAttemptsTotal.WithLabelValues("locked").Inc()
		return nil, &lockedError{remaining: remaining}
	}

	user, err := h.store.Users().GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	hash := decoyHash()
	if user != nil {
		hash = []byte(user.PasswordHash)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || user == nil {
		metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
		if h.lockout.Fail(username) {
			log.Printf("auth: %s locked after repeated failed logins", username)
		}
		return nil, errBadCredentials
	}

	h.lockout.Succeed(username)
	metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
	return user, nil
}

// grant signs an access token for user and writes the pair.
func (h *Handler) grant(w http.ResponseWriter, user *models.User, refresh string) {
	access, expires, err := h.signer.Sign(user)
	if err != nil {
		log.Printf("auth: %v", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
		return
	}
	metrics.AuthTokensIssued.WithLabelValues("access").Inc()

	writeData(w, &TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(h.signer.TTL().Seconds()),
		ExpiresAt:    expires.UTC(),
		Role:         user.Role,
		CanImport:    user.CanImport(),
	})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCredentialBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return false
	}
	return true
}

func decodeRefresh(w http.ResponseWriter, r *http.Request, req *RefreshRequest) bool {
	if !decode(w, r, req) {
		return false
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "refresh_token required")
		return false
	}
	return true
}

// The envelopes match the api package; they are repeated here because
// api imports auth.

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]any{"error": map[string]string{"code": code, "message": message}}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("auth: encode response: %v", err)
	}
}

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"data": data}); err != nil {
		log.Printf("auth: encode response: %v", err)
	}
}
