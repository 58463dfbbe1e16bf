package ports

import (
	"context"
	"time"
)

// MatchResult summarizes one finished arena event.
type MatchResult struct {
	EventID   string
	MatchID   string
	StartedAt time.Time
	EndedAt   time.Time

	// Outcome is one of winner, team_winner or draw.
	Outcome    string
	WinnerID   string
	WinnerTeam int
	Survivors  []string
	Roster     []string
	// Placements lists eliminated participants, first out first.
	Placements []string
	Kills      map[string]int
	Reason     string
}

// ResultRecorder accepts finished match results. Record must not block.
type ResultRecorder interface {
	Record(result MatchResult)
}

// ResultSink persists a match result somewhere. Sinks may block and fail; the
// recorder retries them off the match loop.
type ResultSink interface {
	Name() string
	Write(ctx context.Context, result MatchResult) error
}

// NoopRecorder drops results.
type NoopRecorder struct{}

func (NoopRecorder) Record(MatchResult) {}
