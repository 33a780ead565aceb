package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/good-yellow-bee/secdash/internal/api/auth"
	"github.com/good-yellow-bee/secdash/internal/models"
)

type contextKey int

const (
	claimsKey contextKey = iota
	requestIDKey
)

func jsonUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="secdash"`)
	writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
}

func jsonForbidden(w http.ResponseWriter) {
	writeJSONError(w, http.StatusForbidden, "FORBIDDEN", "access denied")
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

// bearerToken returns the token from an "Authorization: Bearer" header.
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// JWTAuth rejects requests without a valid access token and stores the
// token's claims in the request context.
func JWTAuth(signer *auth.Signer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				jsonUnauthorized(w)
				return
			}
			claims, err := signer.Verify(token)
			if err != nil {
				log.Printf("[%s] token refused for %s: %v", RequestID(r.Context()), r.RemoteAddr, err)
				jsonUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// WithClaims returns ctx carrying claims.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// GetClaims returns the caller's claims, or nil outside JWTAuth.
func GetClaims(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey).(*auth.Claims)
	return c
}

// GetUserID returns the caller's user id, or "".
func GetUserID(ctx context.Context) string {
	if c := GetClaims(ctx); c != nil {
		return c.UserID()
	}
	return ""
}

// GetRole returns the caller's role, or "".
func GetRole(ctx context.Context) models.Role {
	if c := GetClaims(ctx); c != nil {
		return c.Role
	}
	return ""
}
