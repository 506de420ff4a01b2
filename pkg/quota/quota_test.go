package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinwheelhq/atrium/pkg/subscriptions"
)

type stubPlans struct {
	plan *subscriptions.Plan
	err  error
}

func (s *stubPlans) ActivePlan(ctx context.Context, orgID int64) (*subscriptions.Plan, error) {
	return s.plan, s.err
}

func freePlan() *subscriptions.Plan {
	return &subscriptions.Plan{ID: 1, Name: "FREE", MaxUsers: 3, MaxProjects: 2, IsActive: true}
}

func TestQuotaExceededError(t *testing.T) {
	err := &QuotaExceededError{Resource: ResourceProject, Current: 2, Limit: 2}
	assert.Contains(t, err.Error(), "project")
	assert.Contains(t, err.Error(), "2/2")
	assert.True(t, IsQuotaExceeded(err))
	assert.True(t, IsQuotaExceeded(fmt.Errorf("create failed: %w", err)))
	assert.False(t, IsQuotaExceeded(errors.New("boom")))
}

func TestAdmitUnderLimit(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM projects").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	gate := NewGate(db, &stubPlans{plan: freePlan()})
	decision, err := gate.Admit(context.Background(), 42, ResourceProject)
	require.NoError(t, err)

	assert.True(t, decision.Allowed)
	assert.Equal(t, 1, decision.Current)
	assert.Equal(t, 2, decision.Limit)
}

func TestAdmitAtLimit(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM users").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	gate := NewGate(db, &stubPlans{plan: freePlan()})
	decision, err := gate.Admit(context.Background(), 42, ResourceUser)
	require.NoError(t, err)

	assert.False(t, decision.Allowed)
	assert.Equal(t, 3, decision.Current)
	assert.Equal(t, 3, decision.Limit)
}

func TestAdmitUnknownResource(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	gate := NewGate(db, &stubPlans{plan: freePlan()})
	_, err = gate.Admit(context.Background(), 42, Resource("widget"))
	assert.Error(t, err)
}

func reserveTx(t *testing.T, gate *Gate, db *sql.DB, orgID int64, resource Resource) error {
	t.Helper()
	tx, err := db.Begin()
	require.NoError(t, err)
	reserveErr := gate.ReserveTx(context.Background(), tx, orgID, resource)
	if reserveErr != nil {
		tx.Rollback()
	} else {
		require.NoError(t, tx.Commit())
	}
	return reserveErr
}

func TestReserveTxLocksOrgBeforeCounting(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	// the organization row lock must precede the count
	mock.ExpectQuery("SELECT id FROM organizations WHERE id = \\$1 FOR UPDATE").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM projects").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectCommit()

	gate := NewGate(db, &stubPlans{plan: freePlan()})
	err = reserveTx(t, gate, db, 42, ResourceProject)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveTxDeniesAtLimit(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM organizations WHERE id = \\$1 FOR UPDATE").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM users").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectRollback()

	gate := NewGate(db, &stubPlans{plan: freePlan()})
	err = reserveTx(t, gate, db, 42, ResourceUser)

	require.Error(t, err)
	assert.True(t, IsQuotaExceeded(err))

	var qe *QuotaExceededError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, ResourceUser, qe.Resource)
	assert.Equal(t, 3, qe.Current)
	assert.Equal(t, 3, qe.Limit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveTxMissingOrganization(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM organizations WHERE id = \\$1 FOR UPDATE").
		WithArgs(int64(999)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	gate := NewGate(db, &stubPlans{plan: freePlan()})
	err = reserveTx(t, gate, db, 999, ResourceProject)
	assert.Error(t, err)
}

func TestReserveTxPlanResolutionFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM organizations WHERE id = \\$1 FOR UPDATE").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectRollback()

	gate := NewGate(db, &stubPlans{err: errors.New("plans unavailable")})
	err = reserveTx(t, gate, db, 42, ResourceProject)
	require.Error(t, err)
	assert.False(t, IsQuotaExceeded(err))
}
