// Package testutil wires a throwaway database into the global config for tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/mmdatafocus/production_backend/config"
	"github.com/mmdatafocus/production_backend/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SetupTestDB opens a migrated SQLite database in t's temp dir and installs it as the global DB.
// The previous connection is restored on cleanup.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "production.db")
	conn, err := config.OpenDatabase(sqlite.Open(path + "?_busy_timeout=5000"))
	require.NoError(t, err)

	previous := config.GetDB()
	config.SetDB(conn)
	t.Cleanup(func() {
		config.SetDB(previous)
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	require.NoError(t, models.MigrateTable())
	return conn
}
