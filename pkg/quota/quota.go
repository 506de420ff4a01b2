// Package quota enforces plan limits on organization resources.
//
// The gate has two paths. Admit is a read-only check for advisory use.
// ReserveTx is the authoritative check: it runs inside the transaction that
// creates the resource and takes a row lock on the organization, so two
// concurrent creations against the last free slot serialize and the loser
// sees the winner's row in its count.
package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pinwheelhq/atrium/pkg/subscriptions"
)

// Resource identifies a countable resource kind
type Resource string

const (
	ResourceUser    Resource = "user"
	ResourceProject Resource = "project"
)

// QuotaExceededError indicates an organization has hit a plan limit
type QuotaExceededError struct {
	Resource Resource
	Current  int
	Limit    int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s: %d/%d used", e.Resource, e.Current, e.Limit)
}

// IsQuotaExceeded checks if an error is a quota exceeded error
func IsQuotaExceeded(err error) bool {
	var qe *QuotaExceededError
	return errors.As(err, &qe)
}

// Decision is the outcome of a read-only quota check
type Decision struct {
	Allowed bool `json:"allowed"`
	Current int  `json:"current"`
	Limit   int  `json:"limit"`
}

// PlanResolver resolves the plan governing an organization
type PlanResolver interface {
	ActivePlan(ctx context.Context, orgID int64) (*subscriptions.Plan, error)
}

// Gate checks resource counts against plan limits
type Gate struct {
	db    *sql.DB
	plans PlanResolver
}

// NewGate creates a quota gate
func NewGate(db *sql.DB, plans PlanResolver) *Gate {
	return &Gate{db: db, plans: plans}
}

func countQuery(resource Resource) (string, error) {
	switch resource {
	case ResourceUser:
		return `SELECT COUNT(*) FROM users WHERE organization_id = $1`, nil
	case ResourceProject:
		return `SELECT COUNT(*) FROM projects WHERE organization_id = $1`, nil
	default:
		return "", fmt.Errorf("unknown quota resource: %s", resource)
	}
}

func limitFor(plan *subscriptions.Plan, resource Resource) int {
	if resource == ResourceUser {
		return plan.MaxUsers
	}
	return plan.MaxProjects
}

// Admit performs a read-only quota check. The answer can be stale by the
// time a creation runs; use ReserveTx for enforcement.
func (g *Gate) Admit(ctx context.Context, orgID int64, resource Resource) (*Decision, error) {
	query, err := countQuery(resource)
	if err != nil {
		return nil, err
	}

	plan, err := g.plans.ActivePlan(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve plan: %w", err)
	}

	var current int
	if err := g.db.QueryRowContext(ctx, query, orgID).Scan(&current); err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", resource, err)
	}

	limit := limitFor(plan, resource)
	return &Decision{
		Allowed: current < limit,
		Current: current,
		Limit:   limit,
	}, nil
}

// ReserveTx reserves one slot of the resource inside the creating
// transaction. It locks the organization row, recounts under the lock and
// compares against the plan limit. Callers insert the new row in the same
// transaction after a nil return.
func (g *Gate) ReserveTx(ctx context.Context, tx *sql.Tx, orgID int64, resource Resource) error {
	query, err := countQuery(resource)
	if err != nil {
		return err
	}

	var lockedID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM organizations WHERE id = $1 FOR UPDATE`, orgID).Scan(&lockedID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("organization %d not found", orgID)
	}
	if err != nil {
		return fmt.Errorf("failed to lock organization: %w", err)
	}

	plan, err := g.plans.ActivePlan(ctx, orgID)
	if err != nil {
		return fmt.Errorf("failed to resolve plan: %w", err)
	}

	var current int
	if err := tx.QueryRowContext(ctx, query, orgID).Scan(&current); err != nil {
		return fmt.Errorf("failed to count %s: %w", resource, err)
	}

	limit := limitFor(plan, resource)
	if current >= limit {
		return &QuotaExceededError{
			Resource: resource,
			Current:  current,
			Limit:    limit,
		}
	}

	return nil
}
