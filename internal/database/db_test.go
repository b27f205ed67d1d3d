package database

import (
	"testing"

	"requestflow/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewConnection_SQLiteMigratesEveryDomain(t *testing.T) {
	db, err := NewConnection(Options{Driver: DriverSQLite, DSN: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, table := range []string{"users", "departments", "teams", "team_members", "roster_entries", "submission_runs", "audit_logs"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	for _, d := range model.Domains {
		for _, c := range []string{model.CollectionRequests, model.CollectionApprovals, model.CollectionDiscussions, model.CollectionAttachments} {
			name := d.Table(c)
			assert.True(t, db.Migrator().HasTable(name), name)
		}
	}
}

func TestNewConnection_UnknownDriver(t *testing.T) {
	_, err := NewConnection(Options{Driver: "mysql"}, zap.NewNop())
	assert.Error(t, err)
}
