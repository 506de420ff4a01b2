package schema

import (
	"bytes"
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinwheelhq/atrium/pkg/observability"
)

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{})
}

func TestMigrationsAreOrdered(t *testing.T) {
	migrations := GetMigrations()
	require.NotEmpty(t, migrations)

	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version, "migration versions must be sequential")
		assert.NotEmpty(t, m.Description)
		assert.NotEmpty(t, m.SQL)
	}
}

func TestRunMigrationsAppliesPending(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	// versions 1 and 2 already applied
	mock.ExpectQuery("SELECT version FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1).AddRow(2))

	for version := 3; version <= len(GetMigrations()); version++ {
		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO schema_migrations").
			WithArgs(version, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}

	err = RunMigrations(context.Background(), db, testLogger())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrationsNoopWhenApplied(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rows := sqlmock.NewRows([]string{"version"})
	for _, m := range GetMigrations() {
		rows.AddRow(m.Version)
	}
	mock.ExpectQuery("SELECT version FROM schema_migrations").WillReturnRows(rows)

	err = RunMigrations(context.Background(), db, testLogger())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedPlans(t *testing.T) {
	plans := SeedPlans()
	require.Len(t, plans, 2)

	assert.Equal(t, "FREE", plans[0].Name)
	assert.Equal(t, int64(0), plans[0].PriceCents)
	assert.Equal(t, 3, plans[0].MaxUsers)
	assert.Equal(t, 2, plans[0].MaxProjects)

	assert.Equal(t, "PRO", plans[1].Name)
	assert.Equal(t, int64(999), plans[1].PriceCents)
	assert.Equal(t, 20, plans[1].MaxUsers)
	assert.Equal(t, 50, plans[1].MaxProjects)
}

func TestInitializePlansIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO plans").
		WithArgs("FREE", int64(0), 3, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// already present, conflict does nothing
	mock.ExpectExec("INSERT INTO plans").
		WithArgs("PRO", int64(999), 20, 50).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = InitializePlans(context.Background(), db, testLogger())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
