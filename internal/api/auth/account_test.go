package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/good-yellow-bee/secdash/internal/models"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		username string
		wantErr  bool
	}{
		{"analyst", false},
		{"j.doe-2", false},
		{"", true},
		{"ab", true},
		{strings.Repeat("a", 33), true},
		{"1user", true},
		{"bad user", true},
	}

	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUsername(%q) error = %v, wantErr %v", tt.username, err, tt.wantErr)
			}
			var fe *FieldError
			if err != nil && (!errors.As(err, &fe) || fe.Field != "username") {
				t.Errorf("error = %#v, want username FieldError", err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email   string
		wantErr bool
	}{
		{"soc@example.com", false},
		{"", true},
		{"no-at-sign", true},
		{"a@b", true},
	}

	for _, tt := range tests {
		if err := ValidateEmail(tt.email); (err != nil) != tt.wantErr {
			t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
		}
	}
}

func TestValidateRole(t *testing.T) {
	tests := []struct {
		in      string
		want    models.Role
		wantErr bool
	}{
		{"admin", models.RoleAdmin, false},
		{" Operator ", models.RoleOperator, false},
		{"viewer", models.RoleViewer, false},
		{"root", "", true},
	}

	for _, tt := range tests {
		got, err := ValidateRole(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ValidateRole(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		want     string // empty means valid
	}{
		{"valid", "analyst", "Correct-Horse-42", ""},
		{"unicode symbols count", "analyst", "Pässwörd€2025x", ""},
		{"too short", "analyst", "Sh0rt!", "password needs at least 12 characters"},
		{"letters only", "analyst", "abcdefghijklmn", "password needs an uppercase letter, a digit, a symbol"},
		{"no lowercase", "analyst", "CORRECT-HORSE-42", "password needs a lowercase letter"},
		{"contains username", "analyst", "Analyst-2025-pw", "password must not contain the username"},
		{"short and contains username", "root", "Root1!", "password needs at least 12 characters; password must not contain the username"},
		{"empty username skips the check", "", "Correct-Horse-42", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.username, tt.password)
			if tt.want == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			var fe *FieldError
			if !errors.As(err, &fe) || fe.Field != "password" {
				t.Fatalf("error = %#v, want password FieldError", err)
			}
			if fe.Message != tt.want {
				t.Errorf("message = %q, want %q", fe.Message, tt.want)
			}
		})
	}
}
