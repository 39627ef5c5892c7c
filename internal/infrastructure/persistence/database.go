package persistence

import (
	"fmt"
	"time"

	"github.com/storefront/cart/internal/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Database holds a gorm connection used by GormSlotStore
type Database struct {
	DB *gorm.DB
}

// OpenSQLite opens (or creates) a SQLite database file.
// Pass ":memory:" for a throwaway database.
func OpenSQLite(path string, zapLogger *zap.Logger, logLevel string) (*Database, error) {
	db, err := open(sqlite.Open(path), zapLogger, logLevel)
	if err != nil {
		return nil, err
	}

	// Each connection to ":memory:" is its own database.
	sqlDB, err := db.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// OpenPostgres connects to PostgreSQL using a DSN
func OpenPostgres(dsn string, zapLogger *zap.Logger, logLevel string) (*Database, error) {
	db, err := open(postgres.Open(dsn), zapLogger, logLevel)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func open(dialector gorm.Dialector, zapLogger *zap.Logger, logLevel string) (*Database, error) {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.NewGormLogger(zapLogger, logger.MapGormLogLevel(logLevel)),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	d := &Database{DB: db}
	if err := d.Ping(); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return d, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}
