// Package postgres opens the shared database handle and owns the schema.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff"
	_ "github.com/jackc/pgx/v5/stdlib"

	"semaforo/internal/platform/config"
)

//go:embed schema.sql
var schema string

// Open connects through the pgx database/sql driver and retries the initial
// ping with exponential backoff until cfg.ConnectTimeout elapses.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = cfg.ConnectTimeout

	err = backoff.RetryNotify(func() error {
		return db.PingContext(ctx)
	}, backoff.WithContext(bo, ctx), func(err error, wait time.Duration) {
		if logger != nil {
			logger.WarnContext(ctx, "database not ready, retrying", "error", err, "wait", wait)
		}
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// ApplySchema creates the tables and indexes if they do not exist.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
