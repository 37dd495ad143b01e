package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/locvowork/attendance_bot/internal/logger"
)

// Config holds the connection pool settings.
type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectRetries  int
	ConnectDelay    time.Duration
}

//go:embed schema.sql
var schemaSQL string

// NewPostgresDB opens the pool and pings it, retrying with a doubling delay.
// It gives up after ConnectRetries attempts or when ctx is done.
func NewPostgresDB(ctx context.Context, cfg Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := pingWithRetry(ctx, db, cfg.ConnectRetries, cfg.ConnectDelay); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

type pinger interface {
	PingContext(ctx context.Context) error
}

func pingWithRetry(ctx context.Context, db pinger, attempts int, delay time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			logger.InfoLog(ctx, "Database connection established on attempt %d", attempt)
			return nil
		}
		if attempt == attempts {
			break
		}
		logger.WarnLog(ctx, "Database ping failed (attempt %d/%d), retrying in %v: %v", attempt, attempts, delay, err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("connect to database: %w", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("connect to database after %d attempts: %w", attempts, err)
}

// Migrate creates the tables and indexes if they do not exist and patches
// databases created by older releases. It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	logger.InfoLog(ctx, "Database schema is up to date")
	return nil
}
