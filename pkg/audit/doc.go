// Package audit provides a persistent trail of security-relevant events.
//
// # Overview
//
// Every signup, invite, subscription change, project mutation, and denied
// access attempt is recorded as an Event in the audit_logs table. Events are
// written asynchronously off the request path; a failed audit write is
// logged and counted but never fails the request that produced it.
//
// # Usage
//
//	event := audit.NewEvent(ctx, audit.EventTypeProjectCreated, audit.EventStatusSuccess)
//	event.ActorID = &identity.UserID
//	event.OrganizationID = &identity.OrganizationID
//	event.Resource = "project"
//	event.ResourceID = strconv.FormatInt(project.ID, 10)
//	auditLog.LogAsync(event)
//
// # Retention
//
// DeleteOlderThan prunes events past the configured retention window. The
// server runs it on a daily schedule.
package audit
