package subscriptions

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinwheelhq/atrium/pkg/errs"
)

func newMock(t *testing.T) (*PostgresService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresService(db, db), mock
}

func planRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "price_cents", "max_users", "max_projects", "is_active"})
}

func TestListPlans(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM plans").
		WillReturnRows(planRows().
			AddRow(int64(1), "FREE", int64(0), 3, 2, true).
			AddRow(int64(2), "PRO", int64(999), 20, 50, true))

	plans, err := svc.ListPlans(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "FREE", plans[0].Name)
	assert.Equal(t, 50, plans[1].MaxProjects)
}

func TestActivePlanWithSubscription(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM subscriptions s").
		WithArgs(int64(42)).
		WillReturnRows(planRows().AddRow(int64(2), "PRO", int64(999), 20, 50, true))

	plan, err := svc.ActivePlan(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "PRO", plan.Name)
	assert.Equal(t, 20, plan.MaxUsers)
}

func TestActivePlanDefaultsToFree(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM subscriptions s").
		WithArgs(int64(42)).
		WillReturnRows(planRows())
	mock.ExpectQuery("SELECT (.+) FROM plans").
		WithArgs("FREE").
		WillReturnRows(planRows().AddRow(int64(1), "FREE", int64(0), 3, 2, true))

	plan, err := svc.ActivePlan(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "FREE", plan.Name)
	assert.Equal(t, 2, plan.MaxProjects)
}

func TestUpgradeUpsertsSubscription(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM plans").
		WithArgs(int64(2)).
		WillReturnRows(planRows().AddRow(int64(2), "PRO", int64(999), 20, 50, true))
	mock.ExpectQuery("INSERT INTO subscriptions (.+) ON CONFLICT \\(organization_id\\) DO UPDATE").
		WithArgs(int64(42), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "start_date"}).AddRow(int64(7), time.Now()))

	sub, plan, err := svc.Upgrade(context.Background(), 42, 2)
	require.NoError(t, err)
	assert.Equal(t, "PRO", plan.Name)
	assert.Equal(t, int64(42), sub.OrganizationID)
	assert.True(t, sub.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpgradeInvalidPlan(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM plans").
		WithArgs(int64(99)).
		WillReturnRows(planRows())

	_, _, err := svc.Upgrade(context.Background(), 42, 99)
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
	assert.Contains(t, err.Error(), "invalid plan")
}

func TestUpgradeInactivePlanRejected(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM plans").
		WithArgs(int64(3)).
		WillReturnRows(planRows().AddRow(int64(3), "LEGACY", int64(500), 10, 10, false))

	_, _, err := svc.Upgrade(context.Background(), 42, 3)
	assert.True(t, errs.IsValidation(err))
}

func TestGetSubscriptionNotFound(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM subscriptions").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "plan_id", "start_date", "end_date", "is_active"}))

	_, err := svc.GetSubscription(context.Background(), 42)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDeactivateEnded(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectExec("UPDATE subscriptions SET is_active = FALSE").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := svc.DeactivateEnded(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
