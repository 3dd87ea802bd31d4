package v1

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestNewDatabaseConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		config := NewDatabaseConfig()
		assert.Equal(t, "localhost", config.Host)
		assert.Equal(t, "5432", config.Port)
		assert.Equal(t, "maintenance", config.Database)
		assert.Equal(t, "require", config.SSLMode)
		assert.Equal(t, 25, config.MaxOpenConns)
		assert.Equal(t, 5, config.MaxIdleConns)
		assert.Equal(t, time.Hour, config.ConnMaxLifetime)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("DB_HOSTNAME", "db.internal")
		t.Setenv("DB_PORT", "5433")
		t.Setenv("DB_DATABASENAME", "workorders")
		t.Setenv("DB_SSLMODE", "disable")

		config := NewDatabaseConfig()
		assert.Equal(t, "db.internal", config.Host)
		assert.Equal(t, "5433", config.Port)
		assert.Equal(t, "workorders", config.Database)
		assert.Equal(t, "disable", config.SSLMode)
	})
}

func TestMigrateModels(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, MigrateModels(db))

	for _, table := range []string{
		"identities", "property_managers", "service_companies", "technicians",
		"occupants", "manager_company_links", "tickets", "ticket_company_accesses",
		"missions", "invoices", "invoice_lines", "status_histories", "notifications",
	} {
		assert.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}

	// Migration is idempotent
	assert.NoError(t, MigrateModels(db))
}
