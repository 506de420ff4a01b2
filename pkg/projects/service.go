package projects

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pinwheelhq/atrium/pkg/auth"
	"github.com/pinwheelhq/atrium/pkg/errs"
	"github.com/pinwheelhq/atrium/pkg/pgdb"
	"github.com/pinwheelhq/atrium/pkg/quota"
)

// PostgresService implements project persistence using PostgreSQL
type PostgresService struct {
	db   *sql.DB
	gate *quota.Gate
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db *sql.DB, gate *quota.Gate) *PostgresService {
	return &PostgresService{db: db, gate: gate}
}

// Create creates a project in the caller's organization. The organization
// and creator are stamped from the identity; the project slot is reserved
// against the plan limit inside the same transaction as the insert.
func (s *PostgresService) Create(ctx context.Context, identity *auth.Identity, req *CreateProjectRequest) (*Project, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, errs.NewValidation("name", "is required")
	}

	project := &Project{
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		OrganizationID: identity.OrganizationID,
		CreatedBy:      identity.UserID,
	}

	err := pgdb.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.gate.ReserveTx(ctx, tx, identity.OrganizationID, quota.ResourceProject); err != nil {
			return err
		}

		err := tx.QueryRowContext(ctx, `
			INSERT INTO projects (name, description, organization_id, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, NOW(), NOW())
			RETURNING id, created_at, updated_at`,
			project.Name, project.Description, project.OrganizationID, project.CreatedBy,
		).Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return project, nil
}

// Get returns a project by ID within an organization
func (s *PostgresService) Get(ctx context.Context, orgID, projectID int64) (*Project, error) {
	project := &Project{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, organization_id, created_by, created_at, updated_at
		FROM projects
		WHERE organization_id = $1 AND id = $2`,
		orgID, projectID,
	).Scan(&project.ID, &project.Name, &project.Description, &project.OrganizationID,
		&project.CreatedBy, &project.CreatedAt, &project.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}

// List returns an organization's projects, newest first
func (s *PostgresService) List(ctx context.Context, orgID int64) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, organization_id, created_by, created_at, updated_at
		FROM projects
		WHERE organization_id = $1
		ORDER BY created_at DESC, id DESC`,
		orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		project := &Project{}
		if err := rows.Scan(&project.ID, &project.Name, &project.Description, &project.OrganizationID,
			&project.CreatedBy, &project.CreatedAt, &project.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}

	return projects, rows.Err()
}

// Update updates a project within an organization
func (s *PostgresService) Update(ctx context.Context, orgID, projectID int64, req *UpdateProjectRequest) (*Project, error) {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, errs.NewValidation("name", "cannot be empty")
	}

	project := &Project{}
	err := s.db.QueryRowContext(ctx, `
		UPDATE projects
		SET name = COALESCE($3, name),
		    description = COALESCE($4, description),
		    updated_at = NOW()
		WHERE organization_id = $1 AND id = $2
		RETURNING id, name, description, organization_id, created_by, created_at, updated_at`,
		orgID, projectID, req.Name, req.Description,
	).Scan(&project.ID, &project.Name, &project.Description, &project.OrganizationID,
		&project.CreatedBy, &project.CreatedAt, &project.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return project, nil
}

// Delete removes a project within an organization
func (s *PostgresService) Delete(ctx context.Context, orgID, projectID int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM projects
		WHERE organization_id = $1 AND id = $2`,
		orgID, projectID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deletion: %w", err)
	}
	if rows == 0 {
		return errs.ErrNotFound
	}

	return nil
}
