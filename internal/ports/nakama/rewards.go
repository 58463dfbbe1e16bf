package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/cenkalti/backoff/v4"
	"github.com/heroiclabs/nakama-common/runtime"

	"lastarena/internal/config"
	"lastarena/internal/ports"
)

// RewardSink pays arena tokens when a match result is recorded. A payout
// marker keyed by event id is written in the same transaction as the wallet
// updates, so a result delivered twice is only paid once.
type RewardSink struct {
	nk  multiUpdater
	cfg config.RewardConfig
}

func NewRewardSink(nk multiUpdater, cfg config.RewardConfig) *RewardSink {
	return &RewardSink{nk: nk, cfg: cfg}
}

func (s *RewardSink) Name() string { return "wallet_rewards" }

func (s *RewardSink) Write(ctx context.Context, result ports.MatchResult) error {
	updates := rewardUpdates(result, s.cfg)
	if len(updates) == 0 {
		return nil
	}
	if result.EventID == "" {
		return backoff.Permanent(fmt.Errorf("rewards: result has no event id"))
	}

	marker, err := json.Marshal(map[string]interface{}{
		"match_id":   result.MatchID,
		"outcome":    result.Outcome,
		"recipients": len(updates),
	})
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to marshal reward marker: %w", err))
	}
	writes := []*runtime.StorageWrite{{
		Collection:      collectionRewards,
		Key:             result.EventID,
		Value:           string(marker),
		Version:         "*",
		PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
		PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
	}}

	wallets := make([]*runtime.WalletUpdate, 0, len(updates))
	for _, u := range updates {
		wallets = append(wallets, &runtime.WalletUpdate{
			UserID:    u.UserID,
			Changeset: map[string]int64{s.cfg.Currency: u.Amount},
			Metadata:  u.Metadata,
		})
	}

	if _, _, err := s.nk.MultiUpdate(ctx, nil, writes, nil, wallets, true); err != nil {
		if errors.Is(err, runtime.ErrStorageRejectedVersion) {
			// Already paid for this event.
			return nil
		}
		return fmt.Errorf("failed to pay arena rewards: %w", err)
	}
	return nil
}

// rewardUpdates folds participation, kill and win payouts into one update per user.
func rewardUpdates(result ports.MatchResult, cfg config.RewardConfig) []ports.WalletUpdate {
	totals := make(map[string]int64)
	for _, id := range result.Roster {
		totals[id] += cfg.ParticipateTokens
	}
	for id, kills := range result.Kills {
		if kills > 0 {
			totals[id] += int64(kills) * cfg.KillTokens
		}
	}
	switch result.Outcome {
	case "winner":
		if result.WinnerID != "" {
			totals[result.WinnerID] += cfg.WinnerTokens
		}
	case "team_winner":
		for _, id := range result.Survivors {
			totals[id] += cfg.WinnerTokens
		}
	}

	ids := make([]string, 0, len(totals))
	for id, amount := range totals {
		if amount > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	updates := make([]ports.WalletUpdate, 0, len(ids))
	for _, id := range ids {
		updates = append(updates, ports.WalletUpdate{
			UserID: id,
			Amount: totals[id],
			Metadata: map[string]interface{}{
				"reason":   "arena_reward",
				"event_id": result.EventID,
				"match_id": result.MatchID,
				"outcome":  result.Outcome,
			},
		})
	}
	return updates
}

var _ ports.ResultSink = (*RewardSink)(nil)
