// Package database wraps the sqlx handle behind the interface the
// repositories consume, and owns connection setup for the reference
// database.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// DB is the subset of sqlx the repositories use.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	PingContext(ctx context.Context) error
	Close() error
}

type DatabaseInstance struct {
	*sqlx.DB
	logger ectologger.Logger
}

func NewDatabaseInstance(db *sqlx.DB, logger ectologger.Logger) DB {
	return &DatabaseInstance{
		DB:     db,
		logger: logger,
	}
}

// Connect opens the reference database and verifies it is reachable. The
// reference corpora are read-only from this service's point of view, so a
// single connection is enough for sqlite.
func Connect(ctx context.Context, logger ectologger.Logger, path string) (DB, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference database %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping reference database %s: %w", path, err)
	}

	logger.WithField("path", path).Info("Connected to reference database")
	return NewDatabaseInstance(db, logger), nil
}
