// Package devseed provisions a local login account for development so a
// fresh environment is usable without manual SQL.
package devseed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/extranet-gate/internal/data"
	domainauth "github.com/target/extranet-gate/internal/domain/auth"
	"github.com/target/extranet-gate/internal/ports"
)

const (
	devUsername = "dev-admin"
	devPassword = "dev-password"
)

// Seed creates the dev-admin local account if it does not exist yet.
// Idempotent: an existing account is left untouched.
func Seed(ctx context.Context, db *sql.DB, hasher ports.PasswordHasher, logger *slog.Logger) error {
	repo := data.NewIdentityRepo(db)

	if _, err := repo.FindByUsername(ctx, devUsername); err == nil {
		return nil
	} else if !errors.Is(err, data.ErrIdentityNotFound) {
		return fmt.Errorf("check dev account: %w", err)
	}

	hash, err := hasher.Hash(devPassword)
	if err != nil {
		return fmt.Errorf("hash dev password: %w", err)
	}

	_, err = repo.Create(ctx, domainauth.Identity{
		Username:     devUsername,
		DisplayName:  "Dev Admin",
		Email:        "dev-admin@example.com",
		Groups:       []string{"admins"},
		PasswordHash: hash,
	})
	if err != nil {
		// Another instance may have seeded concurrently.
		if errors.Is(err, data.ErrUsernameExists) {
			return nil
		}
		return fmt.Errorf("create dev account: %w", err)
	}

	if logger != nil {
		logger.Warn("seeded development login account",
			"username", devUsername,
			"password", devPassword,
		)
	}
	return nil
}
