// Package schema owns the database schema: versioned migrations and the
// seeded reference plans.
package schema

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pinwheelhq/atrium/pkg/observability"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all migrations in order
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create organizations table",
			SQL: `
				CREATE TABLE IF NOT EXISTS organizations (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE UNIQUE INDEX IF NOT EXISTS organizations_name_lower_key
					ON organizations (LOWER(name));
			`,
		},
		{
			Version:     2,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY,
					username VARCHAR(255) NOT NULL UNIQUE,
					email VARCHAR(255) NOT NULL,
					password_hash VARCHAR(255),
					role VARCHAR(20) NOT NULL,
					organization_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					invited_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					last_login_at TIMESTAMP
				);

				CREATE INDEX IF NOT EXISTS idx_users_organization_id ON users(organization_id);
			`,
		},
		{
			Version:     3,
			Description: "Create projects table",
			SQL: `
				CREATE TABLE IF NOT EXISTS projects (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					organization_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					created_by BIGINT NOT NULL REFERENCES users(id),
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_projects_organization_id ON projects(organization_id);
			`,
		},
		{
			Version:     4,
			Description: "Create plans and subscriptions tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS plans (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(50) NOT NULL UNIQUE,
					price_cents BIGINT NOT NULL DEFAULT 0,
					max_users INT NOT NULL,
					max_projects INT NOT NULL,
					is_active BOOLEAN NOT NULL DEFAULT TRUE
				);

				CREATE TABLE IF NOT EXISTS subscriptions (
					id BIGSERIAL PRIMARY KEY,
					organization_id BIGINT NOT NULL UNIQUE REFERENCES organizations(id) ON DELETE CASCADE,
					plan_id BIGINT NOT NULL REFERENCES plans(id),
					start_date TIMESTAMP NOT NULL DEFAULT NOW(),
					end_date TIMESTAMP,
					is_active BOOLEAN NOT NULL DEFAULT TRUE
				);
			`,
		},
		{
			Version:     5,
			Description: "Create api_tokens table",
			SQL: `
				CREATE TABLE IF NOT EXISTS api_tokens (
					id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					token_hash VARCHAR(64) NOT NULL UNIQUE,
					token_prefix VARCHAR(32) NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					expires_at TIMESTAMP,
					last_used_at TIMESTAMP,
					revoked_at TIMESTAMP
				);

				CREATE INDEX IF NOT EXISTS idx_api_tokens_user_id ON api_tokens(user_id);
			`,
		},
	}
}

// RunMigrations executes all pending migrations
func RunMigrations(ctx context.Context, db *sql.DB, logger *observability.Logger) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations() {
		if appliedVersions[migration.Version] {
			continue
		}

		logger.Infof("Running migration %d: %s", migration.Version, migration.Description)

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// SeedPlan is a reference plan inserted at startup.
type SeedPlan struct {
	Name        string
	PriceCents  int64
	MaxUsers    int
	MaxProjects int
}

// SeedPlans returns the built-in plans. FREE is the default every
// organization falls back to without a subscription.
func SeedPlans() []SeedPlan {
	return []SeedPlan{
		{Name: "FREE", PriceCents: 0, MaxUsers: 3, MaxProjects: 2},
		{Name: "PRO", PriceCents: 999, MaxUsers: 20, MaxProjects: 50},
	}
}

// InitializePlans seeds the built-in plans if missing. Existing rows keep
// their limits; the seed never overwrites operator changes.
func InitializePlans(ctx context.Context, db *sql.DB, logger *observability.Logger) error {
	for _, plan := range SeedPlans() {
		result, err := db.ExecContext(ctx, `
			INSERT INTO plans (name, price_cents, max_users, max_projects, is_active)
			VALUES ($1, $2, $3, $4, TRUE)
			ON CONFLICT (name) DO NOTHING`,
			plan.Name, plan.PriceCents, plan.MaxUsers, plan.MaxProjects,
		)
		if err != nil {
			return fmt.Errorf("failed to seed plan %s: %w", plan.Name, err)
		}

		if rows, err := result.RowsAffected(); err == nil && rows > 0 {
			logger.Infof("Seeded plan %s", plan.Name)
		}
	}

	return nil
}
