package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rl1809/shopping-list/internal/core/domain"
)

const (
	DriverSQLite = "sqlite3"
	DriverMySQL  = "mysql"
)

var sqlitePragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// Open connects to the configured database and applies the schema.
func Open(ctx context.Context, driver, dsn string, maxOpenConns int) (*SQLAdapter, error) {
	switch driver {
	case DriverSQLite, "sqlite", "":
		return OpenSQLite(ctx, dsn)
	case DriverMySQL:
		return OpenMySQL(ctx, dsn, maxOpenConns)
	default:
		return nil, fmt.Errorf("%w: unsupported database driver %q", domain.ErrConfiguration, driver)
	}
}

// OpenSQLite opens (creating if needed) a SQLite database file.
// SQLite has a single writer, so the pool is limited to one connection.
func OpenSQLite(ctx context.Context, path string) (*SQLAdapter, error) {
	db, err := sql.Open(DriverSQLite, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping sqlite %s: %v", domain.ErrStorageUnavailable, path, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range sqlitePragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	adapter := NewSQLiteAdapter(db)
	if err := adapter.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return adapter, nil
}

// OpenMySQL connects to MySQL. The DSN should carry parseTime=true.
func OpenMySQL(ctx context.Context, dsn string, maxOpenConns int) (*SQLAdapter, error) {
	db, err := sql.Open(DriverMySQL, dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	if maxOpenConns <= 0 {
		maxOpenConns = 50
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns / 2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping mysql: %v", domain.ErrStorageUnavailable, err)
	}

	adapter := NewMySQLAdapter(db)
	if err := adapter.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return adapter, nil
}
