package subscriptions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pinwheelhq/atrium/pkg/errs"
	"github.com/pinwheelhq/atrium/pkg/pgdb"
)

// PostgresService implements plan and subscription persistence using
// PostgreSQL. The plan catalog is served from reader, which may point at a
// replica; everything on the quota path stays on the primary so a lagging
// replica cannot under-enforce limits.
type PostgresService struct {
	db     *sql.DB
	reader *sql.DB
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db, reader *sql.DB) *PostgresService {
	return &PostgresService{db: db, reader: reader}
}

// ListPlans returns all active plans
func (s *PostgresService) ListPlans(ctx context.Context) ([]*Plan, error) {
	rows, err := s.reader.QueryContext(ctx, `
		SELECT id, name, price_cents, max_users, max_projects, is_active
		FROM plans
		WHERE is_active = TRUE
		ORDER BY price_cents ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []*Plan
	for rows.Next() {
		plan := &Plan{}
		if err := rows.Scan(&plan.ID, &plan.Name, &plan.PriceCents, &plan.MaxUsers, &plan.MaxProjects, &plan.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, plan)
	}

	return plans, rows.Err()
}

// GetPlan returns a plan by ID
func (s *PostgresService) GetPlan(ctx context.Context, planID int64) (*Plan, error) {
	plan := &Plan{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, price_cents, max_users, max_projects, is_active
		FROM plans
		WHERE id = $1`,
		planID,
	).Scan(&plan.ID, &plan.Name, &plan.PriceCents, &plan.MaxUsers, &plan.MaxProjects, &plan.IsActive)
	if err == sql.ErrNoRows {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return plan, nil
}

// ActivePlan resolves the plan governing an organization. Organizations
// without an active subscription are on FREE; there is no unlimited state.
// The read retries once on transient failure; it sits on the quota path
// where a serialization blip would otherwise surface as a 503.
func (s *PostgresService) ActivePlan(ctx context.Context, orgID int64) (*Plan, error) {
	var plan *Plan
	err := pgdb.RetryRead(ctx, func() error {
		var innerErr error
		plan, innerErr = s.activePlan(ctx, orgID)
		return innerErr
	})
	return plan, err
}

func (s *PostgresService) activePlan(ctx context.Context, orgID int64) (*Plan, error) {
	plan := &Plan{}
	err := s.db.QueryRowContext(ctx, `
		SELECT p.id, p.name, p.price_cents, p.max_users, p.max_projects, p.is_active
		FROM subscriptions s
		JOIN plans p ON p.id = s.plan_id
		WHERE s.organization_id = $1 AND s.is_active = TRUE`,
		orgID,
	).Scan(&plan.ID, &plan.Name, &plan.PriceCents, &plan.MaxUsers, &plan.MaxProjects, &plan.IsActive)
	if err == sql.ErrNoRows {
		return s.freePlan(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve active plan: %w", err)
	}
	return plan, nil
}

func (s *PostgresService) freePlan(ctx context.Context) (*Plan, error) {
	plan := &Plan{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, price_cents, max_users, max_projects, is_active
		FROM plans
		WHERE name = $1`,
		FreePlanName,
	).Scan(&plan.ID, &plan.Name, &plan.PriceCents, &plan.MaxUsers, &plan.MaxProjects, &plan.IsActive)
	if err != nil {
		return nil, fmt.Errorf("failed to load default plan: %w", err)
	}
	return plan, nil
}

// Upgrade switches an organization onto a plan. The subscription row is
// upserted so repeated upgrades (including to the current plan) succeed
// idempotently. Returns the subscription and the target plan.
func (s *PostgresService) Upgrade(ctx context.Context, orgID, planID int64) (*Subscription, *Plan, error) {
	plan, err := s.GetPlan(ctx, planID)
	if err == errs.ErrNotFound {
		return nil, nil, errs.NewValidation("plan_id", "invalid plan")
	}
	if err != nil {
		return nil, nil, err
	}
	if !plan.IsActive {
		return nil, nil, errs.NewValidation("plan_id", "invalid plan")
	}

	sub := &Subscription{
		OrganizationID: orgID,
		PlanID:         plan.ID,
		IsActive:       true,
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO subscriptions (organization_id, plan_id, start_date, end_date, is_active)
		VALUES ($1, $2, NOW(), NULL, TRUE)
		ON CONFLICT (organization_id) DO UPDATE
		SET plan_id = EXCLUDED.plan_id,
		    start_date = EXCLUDED.start_date,
		    end_date = NULL,
		    is_active = TRUE
		RETURNING id, start_date`,
		orgID, plan.ID,
	).Scan(&sub.ID, &sub.StartDate)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to upsert subscription: %w", err)
	}

	return sub, plan, nil
}

// GetSubscription returns the subscription row for an organization
func (s *PostgresService) GetSubscription(ctx context.Context, orgID int64) (*Subscription, error) {
	sub := &Subscription{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, plan_id, start_date, end_date, is_active
		FROM subscriptions
		WHERE organization_id = $1`,
		orgID,
	).Scan(&sub.ID, &sub.OrganizationID, &sub.PlanID, &sub.StartDate, &sub.EndDate, &sub.IsActive)
	if err == sql.ErrNoRows {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

// DeactivateEnded marks subscriptions past their end date inactive. Run
// periodically; affected organizations fall back to FREE limits.
func (s *PostgresService) DeactivateEnded(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions SET is_active = FALSE
		WHERE is_active = TRUE AND end_date IS NOT NULL AND end_date < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate ended subscriptions: %w", err)
	}
	return result.RowsAffected()
}
