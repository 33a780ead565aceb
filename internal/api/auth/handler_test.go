package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/good-yellow-bee/secdash/internal/models"
	"github.com/good-yellow-bee/secdash/internal/storage"
)

func setupHandler(t *testing.T) (*Handler, *storage.SQLStorage, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "secdash-auth-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	store := storage.NewSQLiteStorage(filepath.Join(tmpDir, "test.db"))
	if err := store.Open(); err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate database: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("Correct-Horse-42"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	err = store.Users().Create(context.Background(), &models.User{
		ID:           uuid.New().String(),
		Username:     "analyst",
		Email:        "analyst@example.com",
		PasswordHash: string(hash),
		Role:         models.RoleOperator,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}

	h := NewHandler(store, NewSigner(testKey, 15*time.Minute), NewLockout(3, time.Minute), time.Hour)

	return h, store, func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}
}

func post(h http.HandlerFunc, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(b))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeTokens(t *testing.T, rec *httptest.ResponseRecorder) TokenResponse {
	t.Helper()
	var resp struct {
		Data TokenResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.Data
}

func TestHandler_LoginRefreshLogout(t *testing.T) {
	h, _, cleanup := setupHandler(t)
	defer cleanup()

	rec := post(h.Login, Credentials{Username: " analyst ", Password: "Correct-Horse-42"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	login := decodeTokens(t, rec)
	if login.AccessToken == "" || login.RefreshToken == "" || login.TokenType != "Bearer" {
		t.Fatalf("login = %+v", login)
	}
	if login.Role != models.RoleOperator || !login.CanImport || login.ExpiresIn != 900 {
		t.Errorf("login = %+v", login)
	}

	claims, err := h.signer.Verify(login.AccessToken)
	if err != nil || claims.Role != models.RoleOperator || claims.Username != "analyst" {
		t.Errorf("claims = %+v, %v", claims, err)
	}

	rec = post(h.Refresh, RefreshRequest{RefreshToken: login.RefreshToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d", rec.Code)
	}
	refreshed := decodeTokens(t, rec)
	if refreshed.RefreshToken == login.RefreshToken {
		t.Error("refresh token should rotate")
	}

	// A spent token cannot be exchanged again.
	if rec := post(h.Refresh, RefreshRequest{RefreshToken: login.RefreshToken}); rec.Code != http.StatusUnauthorized {
		t.Errorf("spent refresh status = %d, want 401", rec.Code)
	}

	if rec := post(h.Logout, RefreshRequest{RefreshToken: refreshed.RefreshToken}); rec.Code != http.StatusNoContent {
		t.Errorf("logout status = %d, want 204", rec.Code)
	}
	if rec := post(h.Refresh, RefreshRequest{RefreshToken: refreshed.RefreshToken}); rec.Code != http.StatusUnauthorized {
		t.Errorf("refresh after logout status = %d, want 401", rec.Code)
	}
}

func TestHandler_RefreshForDeletedUser(t *testing.T) {
	h, store, cleanup := setupHandler(t)
	defer cleanup()
	ctx := context.Background()

	login := decodeTokens(t, post(h.Login, Credentials{Username: "analyst", Password: "Correct-Horse-42"}))
	user, err := store.Users().GetByUsername(ctx, "analyst")
	if err != nil || user == nil {
		t.Fatalf("get user: %v", err)
	}
	if err := store.Users().Delete(ctx, user.ID); err != nil {
		t.Fatal(err)
	}
	if rec := post(h.Refresh, RefreshRequest{RefreshToken: login.RefreshToken}); rec.Code != http.StatusUnauthorized {
		t.Errorf("refresh status = %d, want 401", rec.Code)
	}
}

func TestHandler_BadRequests(t *testing.T) {
	h, _, cleanup := setupHandler(t)
	defer cleanup()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		body    string
	}{
		{"login not json", h.Login, "username=analyst"},
		{"login missing password", h.Login, `{"username":"analyst"}`},
		{"login blank username", h.Login, `{"username":"  ","password":"x"}`},
		{"refresh without token", h.Refresh, `{}`},
		{"logout without token", h.Logout, `{}`},
		{"oversized body", h.Login, `{"username":"` + strings.Repeat("a", maxCredentialBytes) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body)))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestHandler_LoginFailuresLockAccount(t *testing.T) {
	h, _, cleanup := setupHandler(t)
	defer cleanup()

	tests := []struct {
		name string
		req  Credentials
		want int
	}{
		{"unknown user", Credentials{Username: "nobody", Password: "x"}, http.StatusUnauthorized},
		{"wrong password 1", Credentials{Username: "analyst", Password: "wrong"}, http.StatusUnauthorized},
		{"wrong password 2", Credentials{Username: "Analyst", Password: "wrong"}, http.StatusUnauthorized},
		{"wrong password 3", Credentials{Username: "analyst", Password: "wrong"}, http.StatusUnauthorized},
		{"locked", Credentials{Username: "analyst", Password: "Correct-Horse-42"}, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		rec := post(h.Login, tt.req)
		if rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, rec.Code, tt.want)
		}
		if tt.want == http.StatusTooManyRequests {
			if ra, err := strconv.Atoi(rec.Header().Get("Retry-After")); err != nil || ra < 59 || ra > 60 {
				t.Errorf("Retry-After = %q, want about 60", rec.Header().Get("Retry-After"))
			}
		}
	}
}
