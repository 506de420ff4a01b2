// Package projects implements org-scoped project storage. Every read,
// update and delete takes the caller's organization ID; a project belonging
// to another organization is indistinguishable from one that does not exist.
package projects

import "time"

// Project represents a project owned by an organization
type Project struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	OrganizationID int64     `json:"organization_id"`
	CreatedBy      int64     `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CreateProjectRequest creates a project in the caller's organization
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateProjectRequest updates mutable project fields
type UpdateProjectRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}
