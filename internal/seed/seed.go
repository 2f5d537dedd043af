// Package seed provisions a development admin account and a sample client so
// a fresh environment is usable immediately.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/datalinc/formbridge/internal/auth"
	"github.com/datalinc/formbridge/internal/config"
	"github.com/datalinc/formbridge/pkg/client"
	"github.com/datalinc/formbridge/pkg/formconfig"
)

// DevAdminPassword is used when ADMIN_PASSWORD is not set. Seeding refuses
// to fall back to it in production.
const DevAdminPassword = "formbridge-dev-password"

// Run creates the admin user, its admin_users row, and a sample client with
// an active contact form config. It is idempotent: re-running ensures the
// resources exist without duplicating them.
func Run(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config, logger *slog.Logger) error {
	password := cfg.AdminPassword
	if password == "" {
		if cfg.IsProduction() {
			return fmt.Errorf("ADMIN_PASSWORD is required to seed in production")
		}
		password = DevAdminPassword
		logger.Warn("ADMIN_PASSWORD not set, using development default")
	}

	users := auth.NewUserStore(pool)

	user, err := users.GetByEmail(ctx, cfg.AdminEmail)
	switch {
	case err == nil:
		logger.Info("seed: admin user already exists", "email", cfg.AdminEmail)
	case errors.Is(err, pgx.ErrNoRows):
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hashing admin password: %w", err)
		}
		user, err = users.Create(ctx, cfg.AdminEmail, "Administrator", string(hash))
		if err != nil {
			return fmt.Errorf("creating admin user: %w", err)
		}
		logger.Info("seed: created admin user", "email", cfg.AdminEmail, "user_id", user.ID)
	default:
		return fmt.Errorf("looking up admin user: %w", err)
	}

	// The admin_users row is what actually grants admin access.
	if _, err := pool.Exec(ctx,
		`INSERT INTO admin_users (user_id, role) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET role = excluded.role`,
		user.ID, auth.RoleSuperAdmin,
	); err != nil {
		return fmt.Errorf("granting admin role: %w", err)
	}

	if cfg.IsProduction() {
		logger.Info("seed: done (sample data skipped in production)")
		return nil
	}

	clients := client.NewStore(pool)
	demo, err := clients.GetActiveByDomain(ctx, "localhost")
	switch {
	case err == nil:
		logger.Info("seed: sample client already exists", "client_id", demo.ID)
	case errors.Is(err, pgx.ErrNoRows):
		demo, err = clients.Create(ctx, client.CreateParams{
			Name:   "Demo Client",
			Email:  cfg.AdminEmail,
			Status: client.StatusActive,
			Domain: "localhost",
		})
		if err != nil {
			return fmt.Errorf("creating sample client: %w", err)
		}
		logger.Info("seed: created sample client", "client_id", demo.ID, "domain", demo.Domain)
	default:
		return fmt.Errorf("looking up sample client: %w", err)
	}

	configs := formconfig.NewStore(pool)
	if _, err := configs.Upsert(ctx, formconfig.UpsertParams{
		ClientID:        demo.ID,
		FormType:        formconfig.TypeContact,
		RecipientEmails: []string{cfg.AdminEmail},
		SuccessMessage:  formconfig.DefaultSuccessMessage,
		IsActive:        true,
	}); err != nil {
		return fmt.Errorf("creating sample form config: %w", err)
	}

	logger.Info("seed: done")
	return nil
}
