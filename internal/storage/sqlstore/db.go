package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

var (
	// ErrNotFound is returned when a record lookup matches nothing.
	ErrNotFound = errors.New("record not found")
	// ErrDecode is returned when a stored row cannot be decoded.
	ErrDecode = errors.New("decode record")
)

// Config selects the database. The caller registers the driver with a blank import.
type Config struct {
	Driver string
	DSN    string
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS favorites (
		id               TEXT PRIMARY KEY,
		source_game_id   BIGINT,
		slug             TEXT NOT NULL,
		name             TEXT NOT NULL,
		released         TEXT,
		background_image TEXT,
		rating           DOUBLE PRECISION NOT NULL DEFAULT 0,
		reviews_count    INTEGER NOT NULL DEFAULT 0,
		metacritic       INTEGER,
		platforms        TEXT NOT NULL DEFAULT '[]',
		created_at       BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_favorites_source_game_id ON favorites (source_game_id)`,
	`CREATE TABLE IF NOT EXISTS saved_searches (
		id         TEXT PRIMARY KEY,
		query      TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
}

// Open connects to the store and creates the schema. Any error here means the
// store cannot serve the application.
func Open(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}

	db, err := sqlx.ConnectContext(ctx, driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect to %s store: %w", driver, err)
	}

	if driver == DriverSQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return db, nil
}

func initSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
