// Package redisstats keeps per-player arena statistics in redis.
package redisstats

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"lastarena/internal/config"
	"lastarena/internal/ports"
)

const (
	fieldPlayed = "played"
	fieldWins   = "wins"
	fieldKills  = "kills"

	markerTTL = 7 * 24 * time.Hour
)

// PlayerStats are lifetime totals for one user.
type PlayerStats struct {
	Played int64 `json:"played"`
	Wins   int64 `json:"wins"`
	Kills  int64 `json:"kills"`
}

// Ranked is a leaderboard row.
type Ranked struct {
	UserID string `json:"user_id"`
	Score  int64  `json:"score"`
}

// Connect dials redis and pings it with exponential backoff.
func Connect(ctx context.Context, cfg config.RedisConfig, log logrus.FieldLogger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	err := backoff.Retry(
		func() error {
			if _, err := client.Ping(ctx).Result(); err != nil {
				log.Warnf("Redis connection failed: %v, retrying...", err)
				return err
			}
			return nil
		},
		backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx),
	)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	log.WithField("addr", cfg.Addr).Info("Redis client initialized")
	return client, nil
}

// Sink writes match results as stats counters and leaderboards.
type Sink struct {
	client redis.UniversalClient
	prefix string
}

func NewSink(client redis.UniversalClient, prefix string) *Sink {
	if prefix == "" {
		prefix = "arena"
	}
	return &Sink{client: client, prefix: prefix}
}

func (s *Sink) Name() string { return "redis_stats" }

func (s *Sink) playerKey(userID string) string { return s.prefix + ":player:" + userID }
func (s *Sink) boardKey(field string) string   { return s.prefix + ":leaderboard:" + field }
func (s *Sink) markerKey(eventID string) string {
	return s.prefix + ":recorded:" + eventID
}

// Write applies result at most once per event id.
func (s *Sink) Write(ctx context.Context, result ports.MatchResult) error {
	if result.EventID == "" {
		return backoff.Permanent(fmt.Errorf("redisstats: result has no event id"))
	}
	marker := s.markerKey(result.EventID)
	fresh, err := s.client.SetNX(ctx, marker, result.Outcome, markerTTL).Result()
	if err != nil {
		return fmt.Errorf("redisstats: mark event: %w", err)
	}
	if !fresh {
		return nil
	}

	winners := winnersOf(result)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range result.Roster {
			pipe.HIncrBy(ctx, s.playerKey(id), fieldPlayed, 1)
		}
		for id, kills := range result.Kills {
			if kills <= 0 {
				continue
			}
			pipe.HIncrBy(ctx, s.playerKey(id), fieldKills, int64(kills))
			pipe.ZIncrBy(ctx, s.boardKey(fieldKills), float64(kills), id)
		}
		for _, id := range winners {
			pipe.HIncrBy(ctx, s.playerKey(id), fieldWins, 1)
			pipe.ZIncrBy(ctx, s.boardKey(fieldWins), 1, id)
		}
		return nil
	})
	if err != nil {
		s.client.Del(ctx, marker)
		return fmt.Errorf("redisstats: apply event %s: %w", result.EventID, err)
	}
	return nil
}

// Stats reads totals for userID. Unknown users have zero stats.
func (s *Sink) Stats(ctx context.Context, userID string) (PlayerStats, error) {
	values, err := s.client.HGetAll(ctx, s.playerKey(userID)).Result()
	if err != nil {
		return PlayerStats{}, err
	}
	var out PlayerStats
	for field, raw := range values {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return PlayerStats{}, fmt.Errorf("redisstats: field %s: %w", field, err)
		}
		switch field {
		case fieldPlayed:
			out.Played = n
		case fieldWins:
			out.Wins = n
		case fieldKills:
			out.Kills = n
		}
	}
	return out, nil
}

// Top returns the highest scores on the wins or kills board.
func (s *Sink) Top(ctx context.Context, board string, limit int) ([]Ranked, error) {
	if board != fieldWins && board != fieldKills {
		return nil, fmt.Errorf("redisstats: unknown leaderboard %q", board)
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.client.ZRevRangeWithScores(ctx, s.boardKey(board), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Ranked, 0, len(rows))
	for _, z := range rows {
		member, _ := z.Member.(string)
		out = append(out, Ranked{UserID: member, Score: int64(z.Score)})
	}
	return out, nil
}

func winnersOf(result ports.MatchResult) []string {
	switch result.Outcome {
	case "winner":
		if result.WinnerID != "" {
			return []string{result.WinnerID}
		}
	case "team_winner":
		return result.Survivors
	}
	return nil
}

var _ ports.ResultSink = (*Sink)(nil)
