package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/antredesloutres/otternel/internal/domain"
)

// Player is a game account seen in a server log
type Player struct {
	ID        int64
	Game      string
	Name      string
	UserID    sql.NullInt64
	FirstSeen time.Time
	LastSeen  time.Time
}

// EnsurePlayer returns the id of the player (game, name), creating the row on
// first sight. last_seen is refreshed either way.
func (d *DB) EnsurePlayer(ctx context.Context, game, name string, at time.Time) (int64, error) {
	ts := at.UnixMilli()
	if _, err := d.exec(ctx, `
		INSERT INTO players(game, playername, first_seen, last_seen)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(game, playername) DO UPDATE SET last_seen = excluded.last_seen`,
		game, name, ts, ts); err != nil {
		return 0, fmt.Errorf("failed to upsert player %s: %w", name, err)
	}

	var id int64
	if err := d.sql.QueryRowContext(ctx,
		`SELECT id FROM players WHERE game = ? AND playername = ?`, game, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to fetch player %s: %w", name, err)
	}
	return id, nil
}

// GetPlayer returns a player by id
func (d *DB) GetPlayer(ctx context.Context, id int64) (Player, error) {
	var p Player
	var first, last int64
	err := d.sql.QueryRowContext(ctx, `
		SELECT id, game, playername, user_id, first_seen, last_seen
		FROM players WHERE id = ?`, id).
		Scan(&p.ID, &p.Game, &p.Name, &p.UserID, &first, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrPlayerNotFound
	}
	if err != nil {
		return p, err
	}
	p.FirstSeen = time.UnixMilli(first)
	p.LastSeen = time.UnixMilli(last)
	return p, nil
}

// IsLinked reports whether the player account is linked to a site user.
// Unknown players are not linked.
func (d *DB) IsLinked(ctx context.Context, playerID int64) (bool, error) {
	var count int64
	if err := d.sql.QueryRowContext(ctx,
		`SELECT COUNT(user_id) FROM players WHERE id = ?`, playerID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// LinkPlayer attaches a site user to a player account
func (d *DB) LinkPlayer(ctx context.Context, playerID, userID int64) error {
	res, err := d.exec(ctx, `UPDATE players SET user_id = ? WHERE id = ?`, userID, playerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// HasActiveLinkCode reports whether the player has a code that has not expired at the given time
func (d *DB) HasActiveLinkCode(ctx context.Context, playerID int64, at time.Time) (bool, error) {
	var exists int
	if err := d.sql.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM link_codes
			WHERE player_id = ? AND expires_at > ?
		)`, playerID, at.UnixMilli()).Scan(&exists); err != nil {
		return false, err
	}
	return exists == 1, nil
}

// CreateLinkCode stores a link code valid from createdAt for ttl
func (d *DB) CreateLinkCode(ctx context.Context, playerID int64, code string, createdAt time.Time, ttl time.Duration) error {
	_, err := d.exec(ctx, `
		INSERT INTO link_codes(player_id, code, created_at, expires_at)
		VALUES(?, ?, ?, ?)`,
		playerID, code, createdAt.UnixMilli(), createdAt.Add(ttl).UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save link code: %w", err)
	}
	return nil
}

// PurgeExpiredLinkCodes deletes codes expired at the given time and returns how many were removed
func (d *DB) PurgeExpiredLinkCodes(ctx context.Context, at time.Time) (int64, error) {
	res, err := d.exec(ctx, `DELETE FROM link_codes WHERE expires_at <= ?`, at.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge link codes: %w", err)
	}
	return res.RowsAffected()
}

// InsertConnection records a player joining or leaving a server
func (d *DB) InsertConnection(ctx context.Context, c domain.ConnectionLog) error {
	_, err := d.exec(ctx, `
		INSERT INTO connection_log(server_id, player_id, kind, at)
		VALUES(?, ?, ?, ?)`,
		uint32(c.ServerID), c.PlayerID, string(c.Kind), c.At.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert connection log: %w", err)
	}
	return nil
}

// RecentConnections returns the latest connection records of a player, newest first
func (d *DB) RecentConnections(ctx context.Context, playerID int64, limit int) ([]domain.ConnectionLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := d.sql.QueryContext(ctx, `
		SELECT server_id, player_id, kind, at
		FROM connection_log
		WHERE player_id = ?
		ORDER BY at DESC, id DESC
		LIMIT ?`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ConnectionLog, 0)
	for rows.Next() {
		var c domain.ConnectionLog
		var server uint32
		var kind string
		var at int64
		if err := rows.Scan(&server, &c.PlayerID, &kind, &at); err != nil {
			return nil, err
		}
		c.ServerID = domain.SourceID(server)
		c.Kind = domain.ConnectionKind(kind)
		c.At = time.UnixMilli(at)
		out = append(out, c)
	}
	return out, rows.Err()
}
