package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/leak-analysis/pkg/config"
	"github.com/leak-analysis/pkg/telemetry"
)

// Dialect names a supported snapshot database.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

// ParseDialect accepts sqlite, postgres (or postgresql) and mysql in any
// case. Empty means sqlite.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	}
	return "", fmt.Errorf("unsupported database type: %s", s)
}

// DSN builds the driver connection string. File backed sqlite databases
// get a busy timeout and WAL so a snapshot can be read while another
// command writes one.
func (d Dialect) DSN(cfg *config.DatabaseConfig) string {
	switch d {
	case Postgres:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database)
	case MySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=Local",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
	}
	if cfg.Path == ":memory:" || strings.Contains(cfg.Path, "?") {
		return cfg.Path
	}
	return cfg.Path + "?_busy_timeout=5000&_journal_mode=WAL"
}

// Dialector returns the gorm dialector for cfg.
func (d Dialect) Dialector(cfg *config.DatabaseConfig) gorm.Dialector {
	dsn := d.DSN(cfg)
	switch d {
	case Postgres:
		return postgres.Open(dsn)
	case MySQL:
		return mysql.Open(dsn)
	}
	return sqlite.Open(dsn)
}

// Open connects to the configured database, migrates the snapshot tables
// and returns the repositories over it.
func Open(cfg *config.DatabaseConfig) (*Repositories, error) {
	d, err := ParseDialect(cfg.Type)
	if err != nil {
		return nil, err
	}
	db, err := OpenGormDB(d.Dialector(cfg), cfg.MaxConns)
	if err != nil {
		return nil, err
	}
	repos, err := NewRepositories(db, d)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, err
	}
	return repos, nil
}

// OpenGormDB opens dialector, sizes the pool, pings and migrates.
func OpenGormDB(dialector gorm.Dialector, maxConns int) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if telemetry.Enabled() {
		if err := db.Use(tracing.NewPlugin()); err != nil {
			return nil, fmt.Errorf("failed to enable telemetry: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sizePool(sqlDB, maxConns)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate snapshot tables: %w", err)
	}
	return db, nil
}

// sizePool keeps at least one idle connection: an in-memory sqlite
// database disappears with its last connection.
func sizePool(db *sql.DB, maxConns int) {
	if maxConns <= 0 {
		maxConns = 10
	}
	idle := maxConns / 2
	if idle < 1 {
		idle = 1
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(idle)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)
}

// Repositories holds the snapshot store and its matching leak reporter.
type Repositories struct {
	Snapshots SnapshotRepository
	Leaks     LeakReporter
	Dialect   Dialect
	gormDB    *gorm.DB
}

// NewRepositories wires the repositories for d over db. The leak reporter
// gets the placeholder style of d; sqlite shares MySQL's.
func NewRepositories(db *gorm.DB, d Dialect) (*Repositories, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	repos := &Repositories{
		Snapshots: NewGormSnapshotRepository(db),
		Dialect:   d,
		gormDB:    db,
	}
	switch d {
	case Postgres:
		repos.Leaks = NewPostgresLeakReporter(sqlDB)
	case MySQL, SQLite:
		repos.Leaks = NewMySQLLeakReporter(sqlDB)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", d)
	}
	return repos, nil
}

// Close closes the database connection.
func (r *Repositories) Close() error {
	if r.gormDB == nil {
		return nil
	}
	sqlDB, err := r.gormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
