// Package db backs the score-persistence half of the billing client
// (spec.md §4.7 "Score persistence" / "Score-reset") with a Postgres
// store, following the teacher's pgxpool wrapper and transactional
// save pattern from internal/db/persistence.go.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a pgx connection pool for score-persistence operations.
type DB struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and returns a DB handle.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{pool: pool}, nil
}

// Close closes the database connection pool.
func (d *DB) Close() {
	d.pool.Close()
}

// Pool returns the underlying pgx pool, for migrations and tests.
func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}

// PlayerScore is one player's standing within an arena group, the unit
// the billing client snapshots on arena-leave and forwards upstream.
type PlayerScore struct {
	PlayerID   string
	ArenaGroup string
	Kills      int32
	Deaths     int32
	Flags      int32
	KillPoints int32
	FlagPoints int32
}

// SavePlayerScore upserts one player's score snapshot for an arena
// group, in a single transaction the way the teacher's
// PlayerPersistenceService.SavePlayer wraps a multi-table player save.
func (d *DB) SavePlayerScore(ctx context.Context, s PlayerScore) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning score save transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO player_scores (player_id, arena_group, kills, deaths, flags, kill_points, flag_points)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (player_id, arena_group) DO UPDATE SET
			kills = EXCLUDED.kills,
			deaths = EXCLUDED.deaths,
			flags = EXCLUDED.flags,
			kill_points = EXCLUDED.kill_points,
			flag_points = EXCLUDED.flag_points,
			updated_at = now()`,
		s.PlayerID, s.ArenaGroup, s.Kills, s.Deaths, s.Flags, s.KillPoints, s.FlagPoints,
	)
	if err != nil {
		return fmt.Errorf("saving score for %q/%q: %w", s.PlayerID, s.ArenaGroup, err)
	}
	return tx.Commit(ctx)
}

// LoadPlayerScore retrieves a player's score for an arena group.
// Returns nil, nil if no row exists.
func (d *DB) LoadPlayerScore(ctx context.Context, playerID, arenaGroup string) (*PlayerScore, error) {
	var s PlayerScore
	err := d.pool.QueryRow(ctx, `
		SELECT player_id, arena_group, kills, deaths, flags, kill_points, flag_points
		FROM player_scores WHERE player_id = $1 AND arena_group = $2`,
		playerID, arenaGroup,
	).Scan(&s.PlayerID, &s.ArenaGroup, &s.Kills, &s.Deaths, &s.Flags, &s.KillPoints, &s.FlagPoints)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading score for %q/%q: %w", playerID, arenaGroup, err)
	}
	return &s, nil
}

// ResetArenaGroup deletes every score row for an arena group, backing
// EndInterval(Reset, arenaGroup).
func (d *DB) ResetArenaGroup(ctx context.Context, arenaGroup string) error {
	_, err := d.pool.Exec(ctx, `DELETE FROM player_scores WHERE arena_group = $1`, arenaGroup)
	if err != nil {
		return fmt.Errorf("resetting arena group %q: %w", arenaGroup, err)
	}
	return nil
}
