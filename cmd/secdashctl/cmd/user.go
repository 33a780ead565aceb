package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/good-yellow-bee/secdash/internal/api/auth"
	"github.com/good-yellow-bee/secdash/internal/models"
	"github.com/good-yellow-bee/secdash/internal/storage"
)

// stdin is shared so both prompts read from one buffer when piped.
var stdin = bufio.NewReader(os.Stdin)

var (
	userUsername string
	userEmail    string
	userRole     string
)

// userCmd represents the user command group
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "User management commands",
	Long: `Commands for managing secdash users.

These commands operate directly on the database and are intended for
administrators; the API has no user management endpoints.

Examples:
  # List all users
  secdashctl user list

  # Create an operator who can upload exports
  secdashctl user create --username jdoe --email jdoe@example.com --role operator

  # Change a user's password
  secdashctl user passwd --username admin`,
}

// userListCmd lists all users
var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(false)
		if err != nil {
			return err
		}
		defer store.Close()

		userList, err := store.Users().List(context.Background())
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}

		if GetOutput() == "json" {
			data, _ := json.MarshalIndent(userList, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		if len(userList) == 0 {
			fmt.Println("No users found.")
			return nil
		}

		// Print header
		fmt.Printf("\n%-36s  %-20s  %-30s  %-10s  %s\n",
			"ID", "USERNAME", "EMAIL", "ROLE", "CREATED")
		fmt.Println(strings.Repeat("-", 120))

		for _, u := range userList {
			fmt.Printf("%-36s  %-20s  %-30s  %-10s  %s\n",
				u.ID,
				u.Username,
				u.Email,
				u.Role,
				u.CreatedAt.Format("2006-01-02 15:04:05"),
			)
		}
		fmt.Printf("\nTotal: %d user(s)\n", len(userList))

		return nil
	},
}

// userCreateCmd creates a new user
var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new user",
	Long: `Create a new user in the database.

The password is prompted interactively so it stays out of shell history.

Password requirements:
  - Minimum 12 characters
  - At least 1 uppercase letter (A-Z)
  - At least 1 lowercase letter (a-z)
  - At least 1 digit (0-9)
  - At least 1 special character (!@#$%^&*...)

Available roles:
  - admin: everything, including user management via this tool
  - operator: can upload exports and read dashboards
  - viewer: read-only dashboards`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := auth.ValidateUsername(userUsername); err != nil {
			return fmt.Errorf("invalid username: %w", err)
		}
		if err := auth.ValidateEmail(userEmail); err != nil {
			return fmt.Errorf("invalid email: %w", err)
		}
		role, err := auth.ValidateRole(userRole)
		if err != nil {
			return fmt.Errorf("invalid role: %w", err)
		}

		password, err := readNewPassword(userUsername, "Enter password: ", "Confirm password: ")
		if err != nil {
			return err
		}

		store, err := openDatabase(false)
		if err != nil {
			return err
		}
		defer store.Close()

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		now := time.Now().UTC()
		user := &models.User{
			ID:           uuid.New().String(),
			Username:     strings.TrimSpace(userUsername),
			Email:        strings.TrimSpace(userEmail),
			PasswordHash: string(hash),
			Role:         role,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := store.Users().Create(context.Background(), user); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return fmt.Errorf("username or email already exists")
			}
			return fmt.Errorf("create user: %w", err)
		}

		fmt.Printf("\nUser created successfully:\n")
		fmt.Printf("  ID:       %s\n", user.ID)
		fmt.Printf("  Username: %s\n", user.Username)
		fmt.Printf("  Email:    %s\n", user.Email)
		fmt.Printf("  Role:     %s\n", user.Role)

		return nil
	},
}

// userPasswdCmd changes a user's password
var userPasswdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change a user's password",
	Long: `Change the password for an existing user and revoke every refresh
token they hold.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(false)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()

		user, err := store.Users().GetByUsername(ctx, userUsername)
		if err != nil {
			return fmt.Errorf("find user: %w", err)
		}
		if user == nil {
			return fmt.Errorf("user '%s' not found", userUsername)
		}

		password, err := readNewPassword(user.Username, "Enter new password: ", "Confirm new password: ")
		if err != nil {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		user.PasswordHash = string(hash)
		user.UpdatedAt = time.Now().UTC()

		if err := store.Users().Update(ctx, user); err != nil {
			return fmt.Errorf("update user: %w", err)
		}

		// Revoke all refresh tokens for this user (force re-login)
		if err := store.Tokens().RevokeAllForUser(ctx, user.ID); err != nil {
			// Password was already changed
			PrintVerbose("Warning: could not revoke existing sessions: %v", err)
		}

		fmt.Printf("\nPassword changed successfully for user '%s'.\n", user.Username)
		fmt.Println("All existing sessions have been revoked.")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userPasswdCmd)

	// Create-specific flags
	userCreateCmd.Flags().StringVar(&userUsername, "username", "", "username for the new user (required)")
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "email for the new user (required)")
	userCreateCmd.Flags().StringVar(&userRole, "role", "viewer", "role: admin, operator, or viewer")
	userCreateCmd.MarkFlagRequired("username")
	userCreateCmd.MarkFlagRequired("email")

	// Passwd-specific flags
	userPasswdCmd.Flags().StringVar(&userUsername, "username", "", "username of the user to update (required)")
	userPasswdCmd.MarkFlagRequired("username")
}

// readNewPassword prompts twice and checks the password policy for username.
func readNewPassword(username, prompt, confirm string) (string, error) {
	password, err := promptPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if err := auth.ValidatePassword(username, password); err != nil {
		return "", fmt.Errorf("invalid password: %w", err)
	}

	confirmPassword, err := promptPassword(confirm)
	if err != nil {
		return "", fmt.Errorf("read password confirmation: %w", err)
	}
	if password != confirmPassword {
		return "", fmt.Errorf("passwords do not match")
	}
	return password, nil
}

// promptPassword prompts for a password without echoing to the terminal.
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)

	// Check if stdin is a terminal
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		// Read password without echo
		passwordBytes, err := term.ReadPassword(fd)
		fmt.Println() // Add newline after password input
		if err != nil {
			return "", err
		}
		return string(passwordBytes), nil
	}

	// Fallback for non-terminal input (e.g., piped input)
	password, err := stdin.ReadString('\n')
	if err != nil && password == "" {
		return "", err
	}
	return strings.TrimSpace(password), nil
}
