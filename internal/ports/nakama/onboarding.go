package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"

	"lastarena/internal/ports"
)

type accountUpdater interface {
	AccountUpdateId(ctx context.Context, userID, username string, metadata map[string]interface{}, displayName, timezone, location, langTag, avatarUrl string) error
}

// NakamaAccountAdapter implements ports.AccountPort using Nakama's account API.
type NakamaAccountAdapter struct {
	nk accountUpdater
}

func NewNakamaAccountAdapter(nk accountUpdater) *NakamaAccountAdapter {
	return &NakamaAccountAdapter{nk: nk}
}

// UpdateProfile sets the username and display name; empty values are left untouched by Nakama.
func (a *NakamaAccountAdapter) UpdateProfile(ctx context.Context, userID, username, displayName string) error {
	return a.nk.AccountUpdateId(ctx, userID, username, nil, displayName, "", "", "", "")
}

type multiUpdater interface {
	MultiUpdate(ctx context.Context, accountUpdates []*runtime.AccountUpdate, storageWrites []*runtime.StorageWrite, storageDeletes []*runtime.StorageDelete, walletUpdates []*runtime.WalletUpdate, updateLedger bool) ([]*api.StorageObjectAck, []*runtime.WalletUpdateResult, error)
}

// NakamaStarterKitAdapter stores the starter loadout, a grant marker and the
// starting tokens in one transaction.
type NakamaStarterKitAdapter struct {
	nk       multiUpdater
	currency string
	now      func() time.Time
}

func NewNakamaStarterKitAdapter(nk multiUpdater, currency string) *NakamaStarterKitAdapter {
	return &NakamaStarterKitAdapter{nk: nk, currency: currency, now: time.Now}
}

// GrantStarterKitOnce returns false without error when the marker already exists.
func (a *NakamaStarterKitAdapter) GrantStarterKitOnce(ctx context.Context, userID string, loadout ports.Loadout, tokens int64, metadata map[string]interface{}) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("userID is required")
	}
	if tokens < 0 {
		return false, fmt.Errorf("tokens must not be negative")
	}

	marker, err := json.Marshal(map[string]interface{}{
		"kit":        loadout.Kit,
		"tokens":     tokens,
		"granted_at": a.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return false, fmt.Errorf("failed to marshal starter kit marker: %w", err)
	}
	value, err := json.Marshal(loadout)
	if err != nil {
		return false, fmt.Errorf("failed to marshal loadout: %w", err)
	}

	storageWrites := []*runtime.StorageWrite{
		{
			Collection:      collectionOnboarding,
			Key:             keyStarterKit,
			UserID:          userID,
			Value:           string(marker),
			Version:         "*",
			PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
		{
			Collection:      collectionArena,
			Key:             keyLoadout,
			UserID:          userID,
			Value:           string(value),
			PermissionRead:  runtime.STORAGE_PERMISSION_OWNER_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	}

	var walletUpdates []*runtime.WalletUpdate
	if tokens > 0 {
		walletUpdates = append(walletUpdates, &runtime.WalletUpdate{
			UserID:    userID,
			Changeset: map[string]int64{a.currency: tokens},
			Metadata:  metadata,
		})
	}

	_, _, err = a.nk.MultiUpdate(ctx, nil, storageWrites, nil, walletUpdates, true)
	if err != nil {
		if errors.Is(err, runtime.ErrStorageRejectedVersion) {
			return false, nil
		}
		return false, fmt.Errorf("failed to grant starter kit: %w", err)
	}
	return true, nil
}

var (
	_ ports.AccountPort    = (*NakamaAccountAdapter)(nil)
	_ ports.StarterKitPort = (*NakamaStarterKitAdapter)(nil)
)
