/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package history archives finished games in Postgres.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Seednode/partyrooms/engine"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS finished_games (
	id          UUID PRIMARY KEY,
	room        TEXT NOT NULL,
	game        TEXT NOT NULL,
	roster      JSONB NOT NULL,
	standings   JSONB NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS finished_games_game_finished_at
	ON finished_games (game, finished_at DESC);
`

// Entry is one finished game.
type Entry struct {
	ID        uuid.UUID         `json:"id"`
	Room      string            `json:"room"`
	Game      string            `json:"game"`
	Roster    []engine.Player   `json:"roster"`
	Standings []engine.Standing `json:"standings"`
	Finished  time.Time         `json:"finished"`
}

type Archive struct {
	db *pgxpool.Pool
}

// Open connects to url and verifies the connection.
func Open(ctx context.Context, url string) (*Archive, error) {
	db, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to history database: %w", err)
	}

	return &Archive{db: db}, nil
}

// Migrate creates the archive table if it does not exist yet.
func (a *Archive) Migrate(ctx context.Context) error {
	if _, err := a.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrating history database: %w", err)
	}

	return nil
}

func (a *Archive) Record(ctx context.Context, e Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Finished.IsZero() {
		e.Finished = time.Now()
	}

	roster, err := json.Marshal(e.Roster)
	if err != nil {
		return err
	}
	standings, err := json.Marshal(e.Standings)
	if err != nil {
		return err
	}

	_, err = a.db.Exec(ctx, `
		INSERT INTO finished_games (id, room, game, roster, standings, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, e.ID.String(), e.Room, e.Game, roster, standings, e.Finished)
	if err != nil {
		return fmt.Errorf("recording %s game in room %s: %w", e.Game, e.Room, err)
	}

	return nil
}

// Recent returns up to n of the latest games named game, newest first.
func (a *Archive) Recent(ctx context.Context, game string, n int) ([]Entry, error) {
	rows, err := a.db.Query(ctx, `
		SELECT id::text, room, game, roster, standings, finished_at
		FROM finished_games
		WHERE game = $1
		ORDER BY finished_at DESC
		LIMIT $2
	`, game, n)
	if err != nil {
		return nil, fmt.Errorf("listing %s history: %w", game, err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	out := []Entry{}
	for rows.Next() {
		var (
			e                 Entry
			id                string
			roster, standings []byte
		)
		if err := rows.Scan(&id, &e.Room, &e.Game, &roster, &standings, &e.Finished); err != nil {
			return nil, err
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		e.ID = parsed
		if err := json.Unmarshal(roster, &e.Roster); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(standings, &e.Standings); err != nil {
			return nil, err
		}
		out = append(out, e)
	}

	return out, rows.Err()
}

func (a *Archive) Close() {
	a.db.Close()
}
