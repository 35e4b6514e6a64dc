// Package seed creates initial data for a fresh installation.
package seed

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/selimd/porta/internal/pkg/auth"
)

const (
	defaultAdminEmail    = "admin@porta.local"
	defaultAdminPassword = "Admin123!"
)

// CreateDefaultData seeds a first user so a fresh deployment can be
// logged into. It only runs against an empty users table; the default
// password is meant to be changed immediately.
func CreateDefaultData(ctx context.Context, db *pgxpool.Pool, logger zerolog.Logger) error {
	var userCount int
	if err := db.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&userCount); err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if userCount > 0 {
		return nil
	}

	hashedPassword, err := auth.HashPassword(defaultAdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash default admin password: %w", err)
	}

	_, err = db.Exec(ctx, `
		INSERT INTO users (email, password, first_name, last_name, is_active)
		VALUES ($1, $2, 'Porta', 'Admin', TRUE)`,
		defaultAdminEmail, hashedPassword)
	if err != nil {
		return fmt.Errorf("failed to create default admin user: %w", err)
	}

	logger.Info().Str("email", defaultAdminEmail).Msg("Created default admin user; change its password after first login")
	return nil
}
