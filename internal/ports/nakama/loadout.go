package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"

	"lastarena/internal/ports"
)

type storageReader interface {
	StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error)
}

// StorageLoadouts resolves loadouts from the arena/loadout storage object of
// each user, falling back to the configured default kit. Reads are cached for
// the lifetime of the match.
type StorageLoadouts struct {
	store    storageReader
	fallback ports.Loadout
	cache    map[string]ports.Loadout
}

func NewStorageLoadouts(store storageReader, fallback ports.Loadout) *StorageLoadouts {
	return &StorageLoadouts{
		store:    store,
		fallback: fallback,
		cache:    make(map[string]ports.Loadout),
	}
}

// Prefetch loads the loadouts of userIDs in one storage call. Users already
// cached are skipped.
func (l *StorageLoadouts) Prefetch(ctx context.Context, userIDs []string) error {
	reads := make([]*runtime.StorageRead, 0, len(userIDs))
	for _, id := range userIDs {
		if _, ok := l.cache[id]; ok || id == "" {
			continue
		}
		reads = append(reads, &runtime.StorageRead{Collection: collectionArena, Key: keyLoadout, UserID: id})
	}
	if len(reads) == 0 {
		return nil
	}
	objects, err := l.store.StorageRead(ctx, reads)
	if err != nil {
		return fmt.Errorf("failed to read loadouts: %w", err)
	}
	found := make(map[string]bool, len(objects))
	for _, obj := range objects {
		var loadout ports.Loadout
		if err := json.Unmarshal([]byte(obj.GetValue()), &loadout); err != nil || loadout.Kit == "" {
			continue
		}
		l.cache[obj.GetUserId()] = loadout
		found[obj.GetUserId()] = true
	}
	for _, r := range reads {
		if !found[r.UserID] {
			l.cache[r.UserID] = l.fallback
		}
	}
	return nil
}

// Loadout implements ports.LoadoutProvider.
func (l *StorageLoadouts) Loadout(ctx context.Context, userID string) (ports.Loadout, error) {
	if loadout, ok := l.cache[userID]; ok {
		return loadout, nil
	}
	if err := l.Prefetch(ctx, []string{userID}); err != nil {
		return ports.Loadout{}, err
	}
	return l.cache[userID], nil
}

// Forget drops a cached entry so the next match start reads it again.
func (l *StorageLoadouts) Forget(userID string) {
	delete(l.cache, userID)
}

var _ ports.LoadoutProvider = (*StorageLoadouts)(nil)
