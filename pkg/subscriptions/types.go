// Package subscriptions manages plans and the organization subscription
// lifecycle.
package subscriptions

import "time"

// Plan represents a billing plan with its resource limits
type Plan struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	PriceCents  int64  `json:"price_cents"`
	MaxUsers    int    `json:"max_users"`
	MaxProjects int    `json:"max_projects"`
	IsActive    bool   `json:"is_active"`
}

// Subscription links an organization to a plan. One per organization.
type Subscription struct {
	ID             int64      `json:"id"`
	OrganizationID int64      `json:"organization_id"`
	PlanID         int64      `json:"plan_id"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	IsActive       bool       `json:"is_active"`
}

// FreePlanName is the plan every organization falls back to when it has no
// active subscription.
const FreePlanName = "FREE"
