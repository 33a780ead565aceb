package auth

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/good-yellow-bee/secdash/internal/models"
)

const minPasswordLength = 12

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_.-]{2,31}$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// FieldError reports an invalid account field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return e.Message
}

// ValidateUsername validates a username.
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	switch {
	case username == "":
		return &FieldError{Field: "username", Message: "username is required"}
	case len(username) < 3:
		return &FieldError{Field: "username", Message: "username must be at least 3 characters"}
	case len(username) > 32:
		return &FieldError{Field: "username", Message: "username must be at most 32 characters"}
	case !usernameRegex.MatchString(username):
		return &FieldError{Field: "username", Message: "username must start with a letter and contain only letters, numbers, dots, underscores, or hyphens"}
	}
	return nil
}

// ValidateEmail validates an email address.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	switch {
	case email == "":
		return &FieldError{Field: "email", Message: "email is required"}
	case len(email) > 255:
		return &FieldError{Field: "email", Message: "email must be at most 255 characters"}
	case !emailRegex.MatchString(email):
		return &FieldError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateRole parses a role name strictly; unlike models.ParseRole it
// does not fall back to viewer.
func ValidateRole(role string) (models.Role, error) {
	switch r := models.Role(strings.TrimSpace(strings.ToLower(role))); r {
	case models.RoleAdmin, models.RoleOperator, models.RoleViewer:
		return r, nil
	}
	return "", &FieldError{Field: "role", Message: "role must be one of: admin, operator, viewer"}
}

// ValidatePassword checks a new password for username. It needs at least
// minPasswordLength characters, upper and lower case letters, a digit and
// a symbol, and must not contain the username. All unmet rules are
// reported in one FieldError.
func ValidatePassword(username, password string) error {
	var problems []string
	if len([]rune(password)) < minPasswordLength {
		problems = append(problems, "at least 12 characters")
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	if !upper {
		problems = append(problems, "an uppercase letter")
	}
	if !lower {
		problems = append(problems, "a lowercase letter")
	}
	if !digit {
		problems = append(problems, "a digit")
	}
	if !symbol {
		problems = append(problems, "a symbol")
	}

	msg := ""
	if len(problems) > 0 {
		msg = "password needs " + strings.Join(problems, ", ")
	}
	if u := strings.ToLower(strings.TrimSpace(username)); u != "" && strings.Contains(strings.ToLower(password), u) {
		if msg != "" {
			msg += "; "
		}
		msg += "password must not contain the username"
	}
	if msg != "" {
		return &FieldError{Field: "password", Message: msg}
	}
	return nil
}
