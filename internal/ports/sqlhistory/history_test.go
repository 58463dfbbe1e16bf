package sqlhistory

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cenkalti/backoff/v4"

	"lastarena/internal/ports"
)

var historyColumns = []string{"event_id", "match_id", "started_at", "ended_at", "outcome", "winner_id", "winner_team",
	"survivors", "roster", "placements", "kills", "reason"}

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	store, err := New(db, "arena_match_history")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return store, mock
}

func TestNewRejectsUnsafeTableNames(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()
	for _, name := range []string{"", "History", "x; DROP TABLE users", "1abc"} {
		if _, err := New(db, name); err == nil {
			t.Fatalf("New(%q) should fail", name)
		}
	}
	if _, err := New(nil, "ok"); err == nil {
		t.Fatalf("New(nil) should fail")
	}
}

func TestEnsureSchemaCreatesTable(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS arena_match_history")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
}

func TestWriteEncodesArraysAndKills(t *testing.T) {
	store, mock := newTestStore(t)
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	result := ports.MatchResult{
		EventID:    "e1",
		MatchID:    "m1",
		StartedAt:  start,
		EndedAt:    start.Add(5 * time.Minute),
		Outcome:    "winner",
		WinnerID:   "a",
		Survivors:  []string{"a"},
		Roster:     []string{"a", "b"},
		Placements: []string{"b"},
		Kills:      map[string]int{"a": 1},
	}
	mock.ExpectExec(`INSERT INTO arena_match_history .* ON CONFLICT \(event_id\) DO NOTHING`).
		WithArgs("e1", "m1", start, start.Add(5*time.Minute), "winner", "a", 0,
			`{"a"}`, `{"a","b"}`, `{"b"}`, []byte(`{"a":1}`), "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Write(context.Background(), result); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
}

func TestWriteWithoutEventIDIsPermanent(t *testing.T) {
	store, _ := newTestStore(t)
	err := store.Write(context.Background(), ports.MatchResult{})
	var permanent *backoff.PermanentError
	if !errors.As(err, &permanent) {
		t.Fatalf("Write() error = %v, want permanent", err)
	}
}

func TestWriteEmptySlicesAreNotNull(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectExec("INSERT INTO arena_match_history").
		WithArgs("e1", "", sqlmock.AnyArg(), sqlmock.AnyArg(), "draw", "", 0,
			"{}", "{}", "{}", []byte("{}"), "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Write(context.Background(), ports.MatchResult{EventID: "e1", Outcome: "draw"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
}

func TestWritePropagatesDatabaseErrors(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectExec("INSERT INTO arena_match_history").WillReturnError(errors.New("connection reset"))

	if err := store.Write(context.Background(), ports.MatchResult{EventID: "e1"}); err == nil {
		t.Fatalf("expected database error")
	}
}

func TestRecentDecodesRows(t *testing.T) {
	store, mock := newTestStore(t)
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(historyColumns).AddRow(
		"e1", "m1", start, start.Add(time.Minute), "team_winner", "", int64(2),
		[]byte(`{c,d}`), []byte(`{a,b,c,d}`), []byte(`{a,b}`), []byte(`{"c":2}`), "resolved",
	)
	mock.ExpectQuery(`SELECT .* FROM arena_match_history WHERE \$1 = ANY\(roster\)`).
		WithArgs("c", 20).
		WillReturnRows(rows)

	entries, err := store.Recent(context.Background(), "c", 0)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.WinnerTeam != 2 || len(e.Survivors) != 2 || len(e.Roster) != 4 || e.Kills["c"] != 2 {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.EndedAt-e.StartedAt != time.Minute.Milliseconds() {
		t.Fatalf("timestamps not decoded: %+v", e)
	}
}

func TestRecentPropagatesQueryErrors(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectQuery("SELECT").WithArgs("c", 5).WillReturnError(errors.New("relation does not exist"))

	if _, err := store.Recent(context.Background(), "c", 5); err == nil {
		t.Fatalf("expected query error")
	}
}
