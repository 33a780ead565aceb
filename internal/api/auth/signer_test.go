package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/good-yellow-bee/secdash/internal/models"
)

var testKey = []byte("test-secret-key-32-bytes-long!!")

func testUser(role models.Role) *models.User {
	return &models.User{ID: "user-123", Username: "analyst", Role: role}
}

func TestSigner_SignAndVerify(t *testing.T) {
	s := NewSigner(testKey, 15*time.Minute)

	before := time.Now()
	token, expires, err := s.Sign(testUser(models.RoleOperator))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if expires.Before(before.Add(15*time.Minute)) || expires.After(time.Now().Add(15*time.Minute)) {
		t.Errorf("expires = %v, want about 15m from now", expires)
	}

	claims, err := s.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID() != "user-123" || claims.Username != "analyst" || claims.Role != models.RoleOperator {
		t.Errorf("claims = %+v", claims)
	}
	if !claims.CanImport() {
		t.Error("operator should be able to import")
	}
	if claims.ID == "" {
		t.Error("token id should be set")
	}

	// Two tokens for the same user differ.
	again, _, _ := s.Sign(testUser(models.RoleOperator))
	if again == token {
		t.Error("tokens should be unique")
	}
}

func TestSigner_Rejects(t *testing.T) {
	s := NewSigner(testKey, 15*time.Minute)

	expired := NewSigner(testKey, time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expiredToken, _, err := expired.Sign(testUser(models.RoleViewer))
	if err != nil {
		t.Fatal(err)
	}

	otherKey, _, _ := NewSigner([]byte("another-secret-key-32-bytes!!!!"), time.Minute).Sign(testUser(models.RoleViewer))

	forge := func(claims jwt.Claims, method jwt.SigningMethod, key any) string {
		t.Helper()
		raw, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatal(err)
		}
		return raw
	}
	valid := func() *Claims {
		now := time.Now()
		return &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    tokenIssuer,
				Subject:   "user-123",
				Audience:  jwt.ClaimStrings{tokenAudience},
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			},
			Role: models.RoleViewer,
		}
	}

	wrongIssuer := valid()
	wrongIssuer.Issuer = "other-issuer"
	wrongAudience := valid()
	wrongAudience.Audience = jwt.ClaimStrings{"other"}
	noExpiry := valid()
	noExpiry.ExpiresAt = nil
	noSubject := valid()
	noSubject.Subject = ""
	badRole := valid()
	badRole.Role = "root"

	tests := []struct {
		name     string
		token    string
		contains string
	}{
		{"empty", "", ""},
		{"garbage", "not-a-jwt-token", ""},
		{"expired", expiredToken, "expired"},
		{"other key", otherKey, "signature"},
		{"wrong issuer", forge(wrongIssuer, jwt.SigningMethodHS256, testKey), "issuer"},
		{"wrong audience", forge(wrongAudience, jwt.SigningMethodHS256, testKey), "audience"},
		{"no expiry", forge(noExpiry, jwt.SigningMethodHS256, testKey), "exp"},
		{"wrong algorithm", forge(valid(), jwt.SigningMethodHS512, testKey), "signing method"},
		{"no subject", forge(noSubject, jwt.SigningMethodHS256, testKey), "missing subject"},
		{"unknown role", forge(badRole, jwt.SigningMethodHS256, testKey), "unknown role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Verify(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("error = %v, want ErrInvalidToken", err)
			}
			if tt.contains != "" && !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q should mention %q", err, tt.contains)
			}
		})
	}
}

func TestSigner_SignRequiresUserID(t *testing.T) {
	if _, _, err := NewSigner(testKey, time.Minute).Sign(&models.User{Username: "x"}); err == nil {
		t.Error("expected error for user without id")
	}
}
