package accounts

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pinwheelhq/atrium/pkg/auth"
	"github.com/pinwheelhq/atrium/pkg/errs"
	"github.com/pinwheelhq/atrium/pkg/pgdb"
	"github.com/pinwheelhq/atrium/pkg/policy"
	"github.com/pinwheelhq/atrium/pkg/quota"
)

// PostgresService implements account operations using PostgreSQL. Writes
// and credential checks go to the primary; reader serves the member listing
// and may point at a replica.
type PostgresService struct {
	db     *sql.DB
	reader *sql.DB
	gate   *quota.Gate
	tokens *auth.TokenManager
	policy *policy.Policy
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db, reader *sql.DB, gate *quota.Gate, tokens *auth.TokenManager, pol *policy.Policy) *PostgresService {
	return &PostgresService{
		db:     db,
		reader: reader,
		gate:   gate,
		tokens: tokens,
		policy: pol,
	}
}

func validateSignup(req *SignupRequest) error {
	if strings.TrimSpace(req.OrganizationName) == "" {
		return errs.NewValidation("organization_name", "is required")
	}
	if strings.TrimSpace(req.Username) == "" {
		return errs.NewValidation("username", "is required")
	}
	if !strings.Contains(req.Email, "@") {
		return errs.NewValidation("email", "is invalid")
	}
	if len(req.Password) < auth.MinPasswordLength {
		return errs.NewValidation("password", "must be at least %d characters", auth.MinPasswordLength)
	}
	return nil
}

// Signup creates an organization and its OWNER user in one transaction,
// then issues the user's first API token. Organization names are unique
// case-insensitively.
func (s *PostgresService) Signup(ctx context.Context, req *SignupRequest) (*SignupResult, error) {
	if err := validateSignup(req); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	org := &auth.Organization{Name: strings.TrimSpace(req.OrganizationName)}
	user := &auth.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        req.Email,
		PasswordHash: &passwordHash,
		Role:         auth.RoleOwner,
	}

	err = pgdb.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO organizations (name, created_at)
			VALUES ($1, NOW())
			RETURNING id, created_at`,
			org.Name,
		).Scan(&org.ID, &org.CreatedAt)
		if errs.IsUniqueViolation(err, "organizations_name_lower_key") {
			return errs.NewValidation("organization_name", "is already taken")
		}
		if err != nil {
			return fmt.Errorf("failed to create organization: %w", err)
		}

		user.OrganizationID = org.ID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO users (username, email, password_hash, role, organization_id, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			RETURNING id, created_at`,
			user.Username, user.Email, passwordHash, user.Role, org.ID,
		).Scan(&user.ID, &user.CreatedAt)
		if errs.IsUniqueViolation(err, "users_username_key") {
			return errs.NewValidation("username", "is already taken")
		}
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	_, token, err := s.tokens.IssueToken(ctx, user.ID, nil)
	if err != nil {
		return nil, err
	}

	return &SignupResult{User: user, Organization: org, Token: token}, nil
}

// Login verifies a username and password and issues a fresh API token.
// Unknown usernames, wrong passwords and invited users who never set a
// password all fail the same way, so responses reveal nothing about which
// usernames exist. The lookup goes to the primary; a stale replica read
// here could accept a password that was just rotated.
func (s *PostgresService) Login(ctx context.Context, req *LoginRequest) (*LoginResult, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, errs.ErrUnauthenticated
	}

	user := &auth.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, role, organization_id, invited_by, created_at, last_login_at
		FROM users
		WHERE username = $1`,
		username,
	).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Role,
		&user.OrganizationID, &user.InvitedBy, &user.CreatedAt, &user.LastLoginAt)
	if err == sql.ErrNoRows {
		return nil, errs.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, errs.ErrUnauthenticated
	}

	_, token, err := s.tokens.IssueToken(ctx, user.ID, nil)
	if err != nil {
		return nil, err
	}

	// Best effort; a failed stamp must not fail the login
	if _, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = NOW() WHERE id = $1`, user.ID); err == nil {
		now := time.Now().UTC()
		user.LastLoginAt = &now
	}

	return &LoginResult{User: user, Token: token}, nil
}

// Me returns the caller's identity projection
func (s *PostgresService) Me(ctx context.Context, identity *auth.Identity) (*Profile, error) {
	profile := &Profile{}
	err := s.db.QueryRowContext(ctx, `
		SELECT u.username, u.email, u.role, o.name
		FROM users u
		JOIN organizations o ON o.id = u.organization_id
		WHERE u.id = $1 AND u.organization_id = $2`,
		identity.UserID, identity.OrganizationID,
	).Scan(&profile.Username, &profile.Email, &profile.Role, &profile.OrganizationName)
	if err == sql.ErrNoRows {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return profile, nil
}

// Invite creates a user in the inviter's organization with no usable
// credential. The new user's organization and invited_by are stamped from
// the inviter's identity; the request cannot place a user elsewhere. The
// member slot is reserved against the plan's user limit inside the creating
// transaction.
func (s *PostgresService) Invite(ctx context.Context, inviter *auth.Identity, req *InviteRequest) (*auth.User, error) {
	if !s.policy.CanInvite(inviter.Role) {
		return nil, errs.ErrForbidden
	}
	if !s.policy.ValidInviteRole(req.Role) {
		return nil, errs.NewValidation("role", "must be ADMIN or MEMBER")
	}
	if strings.TrimSpace(req.Username) == "" {
		return nil, errs.NewValidation("username", "is required")
	}
	if !strings.Contains(req.Email, "@") {
		return nil, errs.NewValidation("email", "is invalid")
	}

	user := &auth.User{
		Username:       strings.TrimSpace(req.Username),
		Email:          req.Email,
		Role:           req.Role,
		OrganizationID: inviter.OrganizationID,
		InvitedBy:      &inviter.UserID,
	}

	err := pgdb.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.gate.ReserveTx(ctx, tx, inviter.OrganizationID, quota.ResourceUser); err != nil {
			return err
		}

		err := tx.QueryRowContext(ctx, `
			INSERT INTO users (username, email, password_hash, role, organization_id, invited_by, created_at)
			VALUES ($1, $2, NULL, $3, $4, $5, NOW())
			RETURNING id, created_at`,
			user.Username, user.Email, user.Role, user.OrganizationID, inviter.UserID,
		).Scan(&user.ID, &user.CreatedAt)
		if errs.IsUniqueViolation(err, "users_username_key") {
			return errs.NewValidation("username", "is already taken")
		}
		if err != nil {
			return fmt.Errorf("failed to create invited user: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// ListUsers returns the members of an organization, newest first. Served
// from the reader; the roster tolerates replica lag.
func (s *PostgresService) ListUsers(ctx context.Context, orgID int64) ([]*auth.User, error) {
	rows, err := s.reader.QueryContext(ctx, `
		SELECT id, username, email, role, organization_id, invited_by, created_at, last_login_at
		FROM users
		WHERE organization_id = $1
		ORDER BY created_at DESC, id DESC`,
		orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*auth.User
	for rows.Next() {
		user := &auth.User{}
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.OrganizationID, &user.InvitedBy, &user.CreatedAt, &user.LastLoginAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// RevokeToken revokes one of the caller's API tokens. Tokens belonging to
// other users are indistinguishable from absent ones.
func (s *PostgresService) RevokeToken(ctx context.Context, identity *auth.Identity, tokenID int64) error {
	return s.tokens.RevokeToken(ctx, tokenID, identity.UserID)
}
