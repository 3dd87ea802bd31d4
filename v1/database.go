package v1

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/v1/models"
)

// DatabaseConfig holds the connection settings for the workflow store
type DatabaseConfig struct {
	Host            string
	Port            string
	Username        string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// NewDatabaseConfig builds a config from environment variables with defaults
func NewDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Host:            getEnvOrDefault("DB_HOSTNAME", "localhost"),
		Port:            getEnvOrDefault("DB_PORT", "5432"),
		Username:        getEnvOrDefault("DB_USERNAME", "postgres"),
		Password:        getEnvOrDefault("DB_PASSWORD", "password"),
		Database:        getEnvOrDefault("DB_DATABASENAME", "maintenance"),
		SSLMode:         getEnvOrDefault("DB_SSLMODE", "require"),
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
	}
}

// ConnectGormDB opens the postgres connection, configures the pool, and
// migrates the workflow schema
func ConnectGormDB(config *DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.Username, config.Password, config.Database, config.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := MigrateModels(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	slog.Info("Database connection established", "host", config.Host, "database", config.Database)
	return db, nil
}

// MigrateModels runs the schema migration for every workflow table
func MigrateModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Identity{},
		&models.PropertyManager{},
		&models.ServiceCompany{},
		&models.Technician{},
		&models.Occupant{},
		&models.ManagerCompanyLink{},
		&models.Ticket{},
		&models.TicketCompanyAccess{},
		&models.Mission{},
		&models.Invoice{},
		&models.InvoiceLine{},
		&models.StatusHistory{},
		&models.Notification{},
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
