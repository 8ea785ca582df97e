package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// SeedAdmin creates the admin account from configuration if no accounts
// exist yet. Idempotent: does nothing when any account is already present or
// when credentials are not configured.
func SeedAdmin(ctx context.Context, logger *slog.Logger, db *sql.DB, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count); err != nil {
		return fmt.Errorf("counting accounts: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO accounts (email, password_hash, is_admin)
		VALUES (?, ?, 1)
	`, email, string(hash))
	if err != nil {
		return fmt.Errorf("creating admin account: %w", err)
	}

	logger.Info("admin account seeded", "email", email)
	return nil
}
