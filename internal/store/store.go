// Package store persists players, link codes and connection history in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/antredesloutres/otternel/internal/retry"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// ErrPlayerNotFound is returned when a player id does not exist
var ErrPlayerNotFound = errors.New("player not found")

// DB is the player registry
type DB struct {
	sql      *sql.DB
	retryCfg retry.Config
}

// Open opens (and creates if needed) the SQLite database at path
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer
	sqlDB.SetMaxOpenConns(1)

	db := &DB{sql: sqlDB, retryCfg: retry.DefaultConfig()}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info().
		Str("path", path).
		Msg("Player registry opened")

	return db, nil
}

// Close closes the database
func (d *DB) Close() error {
	return d.sql.Close()
}

// Ping checks the database connection
func (d *DB) Ping(ctx context.Context) error {
	return d.sql.PingContext(ctx)
}

func (d *DB) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS players (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			game       TEXT NOT NULL,
			playername TEXT NOT NULL,
			user_id    INTEGER,
			first_seen INTEGER NOT NULL,
			last_seen  INTEGER NOT NULL,
			UNIQUE(game, playername)
		);`,
		`CREATE TABLE IF NOT EXISTS link_codes (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			player_id  INTEGER NOT NULL REFERENCES players(id) ON DELETE CASCADE,
			code       TEXT NOT NULL UNIQUE,
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS ix_link_codes_player ON link_codes(player_id, expires_at);`,
		`CREATE TABLE IF NOT EXISTS connection_log (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			server_id INTEGER NOT NULL,
			player_id INTEGER NOT NULL REFERENCES players(id) ON DELETE CASCADE,
			kind      TEXT NOT NULL,
			at        INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS ix_connection_log_player ON connection_log(player_id, at);`,
	}
	for _, s := range stmts {
		if _, err := d.sql.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// exec runs a write statement, retrying while the database is busy
func (d *DB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return retry.DoWithResult(ctx, d.retryCfg, func() (sql.Result, error) {
		return d.sql.ExecContext(ctx, query, args...)
	})
}
