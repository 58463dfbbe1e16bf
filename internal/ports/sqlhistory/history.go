// Package sqlhistory stores finished arena events in the Nakama database.
package sqlhistory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/cenkalti/backoff/v4"
	"github.com/lib/pq"

	"lastarena/internal/ports"
)

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Entry is one history row as returned to players.
type Entry struct {
	EventID    string         `json:"event_id"`
	MatchID    string         `json:"match_id"`
	StartedAt  int64          `json:"started_at"`
	EndedAt    int64          `json:"ended_at"`
	Outcome    string         `json:"outcome"`
	WinnerID   string         `json:"winner_id,omitempty"`
	WinnerTeam int            `json:"winner_team,omitempty"`
	Survivors  []string       `json:"survivors"`
	Roster     []string       `json:"roster"`
	Placements []string       `json:"placements"`
	Kills      map[string]int `json:"kills"`
	Reason     string         `json:"reason,omitempty"`
}

// Store writes and lists match history rows.
type Store struct {
	db    *sql.DB
	table string
}

func New(db *sql.DB, table string) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlhistory: nil database")
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("sqlhistory: invalid table name %q", table)
	}
	return &Store{db: db, table: table}, nil
}

func (s *Store) Name() string { return "sql_history" }

// EnsureSchema creates the history table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    event_id    TEXT PRIMARY KEY,
    match_id    TEXT NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    ended_at    TIMESTAMPTZ NOT NULL,
    outcome     TEXT NOT NULL,
    winner_id   TEXT NOT NULL DEFAULT '',
    winner_team INT NOT NULL DEFAULT 0,
    survivors   TEXT[] NOT NULL,
    roster      TEXT[] NOT NULL,
    placements  TEXT[] NOT NULL,
    kills       JSONB NOT NULL,
    reason      TEXT NOT NULL DEFAULT ''
)`, s.table))
	if err != nil {
		return fmt.Errorf("sqlhistory: create table %s: %w", s.table, err)
	}
	return nil
}

// Write inserts result. Replays of the same event are ignored.
func (s *Store) Write(ctx context.Context, result ports.MatchResult) error {
	args, err := insertArgs(result)
	if err != nil {
		return backoff.Permanent(err)
	}
	query := fmt.Sprintf(`INSERT INTO %s
    (event_id, match_id, started_at, ended_at, outcome, winner_id, winner_team, survivors, roster, placements, kills, reason)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    ON CONFLICT (event_id) DO NOTHING`, s.table)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlhistory: insert %s: %w", result.EventID, err)
	}
	return nil
}

// Recent lists the latest events userID took part in, newest first.
func (s *Store) Recent(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT event_id, match_id, started_at, ended_at, outcome, winner_id, winner_team, survivors, roster, placements, kills, reason
    FROM %s WHERE $1 = ANY(roster) ORDER BY ended_at DESC LIMIT $2`, s.table)
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlhistory: list for %s: %w", userID, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			started sql.NullTime
			ended   sql.NullTime
			kills   []byte
		)
		err := rows.Scan(&e.EventID, &e.MatchID, &started, &ended, &e.Outcome, &e.WinnerID, &e.WinnerTeam,
			pq.Array(&e.Survivors), pq.Array(&e.Roster), pq.Array(&e.Placements), &kills, &e.Reason)
		if err != nil {
			return nil, err
		}
		if started.Valid {
			e.StartedAt = started.Time.UnixMilli()
		}
		if ended.Valid {
			e.EndedAt = ended.Time.UnixMilli()
		}
		if len(kills) > 0 {
			if err := json.Unmarshal(kills, &e.Kills); err != nil {
				return nil, fmt.Errorf("sqlhistory: kills for %s: %w", e.EventID, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func insertArgs(result ports.MatchResult) ([]interface{}, error) {
	if result.EventID == "" {
		return nil, fmt.Errorf("sqlhistory: result has no event id")
	}
	kills := result.Kills
	if kills == nil {
		kills = map[string]int{}
	}
	killsJSON, err := json.Marshal(kills)
	if err != nil {
		return nil, err
	}
	return []interface{}{
		result.EventID,
		result.MatchID,
		result.StartedAt.UTC(),
		result.EndedAt.UTC(),
		result.Outcome,
		result.WinnerID,
		result.WinnerTeam,
		pq.Array(nonNil(result.Survivors)),
		pq.Array(nonNil(result.Roster)),
		pq.Array(nonNil(result.Placements)),
		killsJSON,
		result.Reason,
	}, nil
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

var _ ports.ResultSink = (*Store)(nil)
