package audit

import (
	"context"
	"time"

	"github.com/pinwheelhq/atrium/pkg/contextkeys"
)

// EventType represents the category of audit event
type EventType string

const (
	// Account lifecycle events
	EventTypeSignup      EventType = "account.signup"
	EventTypeUserInvited EventType = "account.user_invited"

	// Authentication events
	EventTypeLogin        EventType = "auth.login"
	EventTypeTokenRevoked EventType = "auth.token_revoked"

	// Authorization events
	EventTypeAccessDenied EventType = "authz.access_denied"
	EventTypeQuotaDenied  EventType = "quota.denied"

	// Data mutation events
	EventTypeProjectCreated EventType = "project.created"
	EventTypeProjectUpdated EventType = "project.updated"
	EventTypeProjectDeleted EventType = "project.deleted"

	// Billing events
	EventTypeSubscriptionUpgraded EventType = "subscription.upgraded"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// Event represents a single audit log entry
type Event struct {
	ID        int64       `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor information
	ActorID        *int64 `json:"actor_id,omitempty"`
	Username       string `json:"username,omitempty"`
	OrganizationID *int64 `json:"organization_id,omitempty"`

	// Resource information
	Resource   string `json:"resource,omitempty"`
	ResourceID string `json:"resource_id,omitempty"`

	// Request context
	RequestID string `json:"request_id,omitempty"`

	// Additional details
	Message  string                 `json:"message,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// NewEvent builds an event stamped with the current time and the request ID
// from the context when present.
func NewEvent(ctx context.Context, eventType EventType, status EventStatus) *Event {
	return &Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    status,
		RequestID: contextkeys.GetRequestID(ctx),
		Metadata:  make(map[string]interface{}),
	}
}

// SearchFilter represents filters for searching audit logs
type SearchFilter struct {
	StartTime *time.Time
	EndTime   *time.Time

	OrganizationID *int64
	ActorID        *int64

	EventTypes []EventType
	Status     *EventStatus

	Limit  int
	Offset int
}
