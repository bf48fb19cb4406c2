package persistence

import (
	"fmt"
	"time"

	"github.com/travelops/backoffice/internal/infrastructure/config"
	"github.com/travelops/backoffice/internal/infrastructure/logger"
	"github.com/travelops/backoffice/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// slowQueryThreshold is the duration above which the gorm logger warns
const slowQueryThreshold = 200 * time.Millisecond

// Database wraps the gorm connection pool
type Database struct {
	DB *gorm.DB
}

// NewDatabase opens the PostgreSQL pool described by cfg and logs queries through zapLogger
func NewDatabase(cfg *config.DatabaseConfig, zapLogger *zap.Logger) (*Database, error) {
	db, err := Open(postgres.Open(cfg.DSN()), zapLogger, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Open creates a Database over any gorm dialector. Each write runs in an
// explicit transaction scope, so gorm's implicit per-statement transaction is off.
func Open(dialector gorm.Dialector, zapLogger *zap.Logger, logLevel string) (*Database, error) {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.NewGormLogger(zapLogger, logger.MapGormLogLevel(logLevel), slowQueryThreshold),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}
	return &Database{DB: db}, nil
}

// AutoMigrate creates or updates the ledger tables from the gorm models.
// Production schemas come from the SQL migrations; this is for tests and local runs.
func (d *Database) AutoMigrate() error {
	return d.DB.AutoMigrate(models.LedgerModels()...)
}

// Close closes the connection pool
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks that the database is reachable
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}

// PoolStats is a snapshot of the connection pool
type PoolStats struct {
	OpenConnections int
	InUse           int
	Idle            int
	WaitCount       int64
	WaitDuration    time.Duration
}

// Stats returns connection pool statistics
func (d *Database) Stats() (PoolStats, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return PoolStats{}, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	s := sqlDB.Stats()
	return PoolStats{
		OpenConnections: s.OpenConnections,
		InUse:           s.InUse,
		Idle:            s.Idle,
		WaitCount:       s.WaitCount,
		WaitDuration:    s.WaitDuration,
	}, nil
}
