package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Supported DATABASE_DRIVER values.
const (
	DriverPgx    = "pgx"
	DriverSQLite = "sqlite"
)

// Handle is an open relational database. Pool is set only for the pgx driver.
type Handle struct {
	DB      *sql.DB
	Pool    *pgxpool.Pool
	Dialect string
}

// Close releases the database and its pool.
func (h *Handle) Close() {
	if h == nil {
		return
	}
	h.DB.Close()
	if h.Pool != nil {
		h.Pool.Close()
	}
}

func NewPool(ctx context.Context, databaseURL string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	cfg.MaxConns = maxConns
	cfg.MinConns = minConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Open connects to the database at databaseURL with the given driver and
// returns a database/sql handle plus the goqu dialect name to query it with.
// For pgx the handle is backed by a pgxpool.
func Open(ctx context.Context, driver, databaseURL string, maxConns, minConns int32) (*Handle, error) {
	switch driver {
	case DriverPgx, "":
		pool, err := NewPool(ctx, databaseURL, maxConns, minConns)
		if err != nil {
			return nil, err
		}
		return &Handle{DB: stdlib.OpenDBFromPool(pool), Pool: pool, Dialect: "postgres"}, nil

	case DriverSQLite:
		sqlDB, err := sql.Open("sqlite", databaseURL)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// One writer at a time; SQLite serialises writes anyway and this keeps
		// in-memory databases on a single connection.
		sqlDB.SetMaxOpenConns(1)
		if err := sqlDB.PingContext(ctx); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		return &Handle{DB: sqlDB, Dialect: "sqlite3"}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
