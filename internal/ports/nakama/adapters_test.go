package nakama

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"

	"lastarena/internal/config"
	"lastarena/internal/ports"
)

type mockWallets struct {
	wallet string
}

func (m *mockWallets) AccountGetId(ctx context.Context, userID string) (*api.Account, error) {
	return &api.Account{Wallet: m.wallet}, nil
}

func TestEconomyAdapterUsesCurrency(t *testing.T) {
	nk := &mockWallets{wallet: `{"tokens":42,"gold":7}`}
	economy := NewNakamaEconomyAdapter(nk, "tokens")

	balance, err := economy.GetBalance(context.Background(), "a")
	if err != nil || balance != 42 {
		t.Fatalf("GetBalance() = %d/%v, want 42", balance, err)
	}
}

func TestRewardUpdates(t *testing.T) {
	cfg := config.RewardConfig{Currency: "tokens", WinnerTokens: 50, KillTokens: 5, ParticipateTokens: 1}

	tests := []struct {
		name   string
		result ports.MatchResult
		want   map[string]int64
	}{
		{
			name: "solo winner",
			result: ports.MatchResult{
				Outcome: "winner", WinnerID: "a", Roster: []string{"a", "b", "c"},
				Kills: map[string]int{"a": 2},
			},
			want: map[string]int64{"a": 61, "b": 1, "c": 1},
		},
		{
			name: "team winner pays survivors only",
			result: ports.MatchResult{
				Outcome: "team_winner", WinnerTeam: 1, Survivors: []string{"a"}, Roster: []string{"a", "b", "c", "d"},
				Kills: map[string]int{"c": 1},
			},
			want: map[string]int64{"a": 51, "b": 1, "c": 6, "d": 1},
		},
		{
			name:   "draw pays participation",
			result: ports.MatchResult{Outcome: "draw", Roster: []string{"a", "b"}},
			want:   map[string]int64{"a": 1, "b": 1},
		},
	}
	for _, tt := range tests {
		got := rewardUpdates(tt.result, cfg)
		if len(got) != len(tt.want) {
			t.Fatalf("%s: %d updates, want %d", tt.name, len(got), len(tt.want))
		}
		for _, u := range got {
			if u.Amount != tt.want[u.UserID] {
				t.Fatalf("%s: %s gets %d, want %d", tt.name, u.UserID, u.Amount, tt.want[u.UserID])
			}
			if u.Metadata["reason"] != "arena_reward" {
				t.Fatalf("%s: metadata = %v", tt.name, u.Metadata)
			}
		}
	}

	if got := rewardUpdates(ports.MatchResult{Roster: []string{"a"}}, config.RewardConfig{}); len(got) != 0 {
		t.Fatalf("zero rewards should produce no updates, got %v", got)
	}
}

func TestRewardSinkPaysOncePerEvent(t *testing.T) {
	nk := &mockMultiUpdate{}
	sink := NewRewardSink(nk, config.RewardConfig{Currency: "tokens", ParticipateTokens: 1, WinnerTokens: 10})
	result := ports.MatchResult{EventID: "ev-1", MatchID: "m1", Outcome: "winner", WinnerID: "b", Roster: []string{"a", "b"}}

	if err := sink.Write(context.Background(), result); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if len(nk.writes) != 1 {
		t.Fatalf("expected one payout marker, got %d writes", len(nk.writes))
	}
	marker := nk.writes[0]
	if marker.Collection != collectionRewards || marker.Key != "ev-1" || marker.Version != "*" || marker.UserID != "" {
		t.Fatalf("marker = %+v", marker)
	}
	if len(nk.wallets) != 2 || nk.wallets[0].UserID != "a" || nk.wallets[1].Changeset["tokens"] != 11 {
		t.Fatalf("wallet updates = %+v", nk.wallets)
	}

	paid := &mockMultiUpdate{err: fmt.Errorf("write: %w", runtime.ErrStorageRejectedVersion)}
	if err := NewRewardSink(paid, config.RewardConfig{ParticipateTokens: 1}).Write(context.Background(), result); err != nil {
		t.Fatalf("redelivered result should be a no-op, got %v", err)
	}
}

func TestRewardSinkErrors(t *testing.T) {
	sink := NewRewardSink(&mockMultiUpdate{err: errors.New("wallet locked")}, config.RewardConfig{ParticipateTokens: 1})
	if err := sink.Write(context.Background(), ports.MatchResult{EventID: "ev-1", Roster: []string{"a"}}); err == nil {
		t.Fatalf("expected wallet error")
	}

	nk := &mockMultiUpdate{}
	err := NewRewardSink(nk, config.RewardConfig{ParticipateTokens: 1}).Write(context.Background(), ports.MatchResult{Roster: []string{"a"}})
	var permanent *backoff.PermanentError
	if !errors.As(err, &permanent) {
		t.Fatalf("missing event id should be permanent, got %v", err)
	}
	if nk.writes != nil || nk.wallets != nil {
		t.Fatalf("nothing should be written without an event id")
	}

	if err := NewRewardSink(nk, config.RewardConfig{}).Write(context.Background(), ports.MatchResult{Roster: []string{"a"}}); err != nil {
		t.Fatalf("zero rewards should not touch storage, got %v", err)
	}
}

type mockMultiUpdate struct {
	writes  []*runtime.StorageWrite
	wallets []*runtime.WalletUpdate
	err     error
}

func (m *mockMultiUpdate) MultiUpdate(ctx context.Context, accountUpdates []*runtime.AccountUpdate, storageWrites []*runtime.StorageWrite, storageDeletes []*runtime.StorageDelete, walletUpdates []*runtime.WalletUpdate, updateLedger bool) ([]*api.StorageObjectAck, []*runtime.WalletUpdateResult, error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	m.writes = storageWrites
	m.wallets = walletUpdates
	return nil, nil, nil
}

func TestStarterKitAdapter(t *testing.T) {
	nk := &mockMultiUpdate{}
	adapter := NewNakamaStarterKitAdapter(nk, "tokens")
	adapter.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	granted, err := adapter.GrantStarterKitOnce(context.Background(), "u1", ports.Loadout{Kit: "starter", Items: []string{"sword"}}, 100, nil)
	if err != nil || !granted {
		t.Fatalf("GrantStarterKitOnce() = %v/%v", granted, err)
	}
	if len(nk.writes) != 2 {
		t.Fatalf("expected marker and loadout writes, got %d", len(nk.writes))
	}
	if nk.writes[0].Version != "*" || nk.writes[0].Key != keyStarterKit {
		t.Fatalf("marker must be create-only: %+v", nk.writes[0])
	}
	if nk.writes[1].Collection != collectionArena || nk.writes[1].Value != `{"kit":"starter","items":["sword"]}` {
		t.Fatalf("loadout write = %+v", nk.writes[1])
	}
	if len(nk.wallets) != 1 || nk.wallets[0].Changeset["tokens"] != 100 {
		t.Fatalf("wallet updates = %+v", nk.wallets)
	}

	if _, err := adapter.GrantStarterKitOnce(context.Background(), "u1", ports.Loadout{Kit: "starter"}, 0, nil); err != nil || len(nk.wallets) != 0 {
		t.Fatalf("zero tokens should skip the wallet, got %v/%v", nk.wallets, err)
	}
}

func TestStarterKitAdapterAlreadyGranted(t *testing.T) {
	adapter := NewNakamaStarterKitAdapter(&mockMultiUpdate{err: fmt.Errorf("write: %w", runtime.ErrStorageRejectedVersion)}, "tokens")
	granted, err := adapter.GrantStarterKitOnce(context.Background(), "u1", ports.Loadout{Kit: "starter"}, 10, nil)
	if err != nil || granted {
		t.Fatalf("rejected version should report already granted, got %v/%v", granted, err)
	}

	adapter = NewNakamaStarterKitAdapter(&mockMultiUpdate{err: errors.New("db down")}, "tokens")
	if _, err := adapter.GrantStarterKitOnce(context.Background(), "u1", ports.Loadout{}, 10, nil); err == nil {
		t.Fatalf("expected storage error")
	}
	if _, err := adapter.GrantStarterKitOnce(context.Background(), "", ports.Loadout{}, 10, nil); err == nil {
		t.Fatalf("expected error for empty user")
	}
}

type mockStorage struct {
	objects []*api.StorageObject
	reads   int
	err     error
}

func (m *mockStorage) StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error) {
	m.reads++
	if m.err != nil {
		return nil, m.err
	}
	wanted := make(map[string]bool, len(reads))
	for _, r := range reads {
		wanted[r.UserID] = true
	}
	var out []*api.StorageObject
	for _, obj := range m.objects {
		if wanted[obj.GetUserId()] {
			out = append(out, obj)
		}
	}
	return out, nil
}

func TestStorageLoadouts(t *testing.T) {
	store := &mockStorage{objects: []*api.StorageObject{
		{Collection: collectionArena, Key: keyLoadout, UserId: "a", Value: `{"kit":"archer","items":["bow"]}`},
		{Collection: collectionArena, Key: keyLoadout, UserId: "b", Value: `not json`},
	}}
	fallback := ports.Loadout{Kit: "starter"}
	loadouts := NewStorageLoadouts(store, fallback)

	if err := loadouts.Prefetch(context.Background(), []string{"a", "b", "c"}); err != nil {
		t.Fatalf("Prefetch() error = %v", err)
	}
	a, _ := loadouts.Loadout(context.Background(), "a")
	if a.Kit != "archer" || len(a.Items) != 1 {
		t.Fatalf("Loadout(a) = %+v", a)
	}
	for _, id := range []string{"b", "c"} {
		if got, _ := loadouts.Loadout(context.Background(), id); got.Kit != "starter" {
			t.Fatalf("Loadout(%s) = %+v, want fallback", id, got)
		}
	}
	if store.reads != 1 {
		t.Fatalf("cached loadouts should not be read again, %d reads", store.reads)
	}

	loadouts.Forget("a")
	if _, err := loadouts.Loadout(context.Background(), "a"); err != nil || store.reads != 2 {
		t.Fatalf("forgotten loadout should be read again")
	}

	store.err = errors.New("storage down")
	if _, err := loadouts.Loadout(context.Background(), "d"); err == nil {
		t.Fatalf("expected read error")
	}
}
