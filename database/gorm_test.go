package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
)

func TestPostgresDialectorDriver(t *testing.T) {
	dsn := "host=localhost user=projenitor dbname=projenitor sslmode=disable"

	pq, ok := PostgresDialector("pq", dsn).(*postgres.Dialector)
	require.True(t, ok)
	assert.Equal(t, "postgres", pq.Config.DriverName)
	assert.Equal(t, dsn, pq.Config.DSN)

	pgx, ok := PostgresDialector("postgres", dsn).(*postgres.Dialector)
	require.True(t, ok)
	assert.Empty(t, pgx.Config.DriverName, "pgx stdlib is the dialect default")
}

func TestOpenSQLiteMigrates(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "store_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Init())
	require.NoError(t, store.HealthCheck())

	for _, table := range []string{"countries", "divisions", "districts", "upazilas", "villages", "homes", "members", "cascade_logs", "cron_job_logs"} {
		assert.True(t, store.GetDB().Migrator().HasTable(table), table)
	}
}
