package ports

import "context"

// Loadout is the equipment selection handed to a participant at match start.
// Its contents are opaque to the arena core.
type Loadout struct {
	Kit   string   `json:"kit"`
	Items []string `json:"items,omitempty"`
}

// LoadoutProvider resolves the loadout for a participant.
type LoadoutProvider interface {
	Loadout(ctx context.Context, userID string) (Loadout, error)
}

// NoopLoadout is used when loadouts are disabled; it returns an empty loadout.
type NoopLoadout struct{}

func (NoopLoadout) Loadout(context.Context, string) (Loadout, error) {
	return Loadout{}, nil
}

// StarterKitPort stores the default loadout and grants starting tokens at most once per user.
type StarterKitPort interface {
	// GrantStarterKitOnce returns granted=false when the kit was already granted.
	GrantStarterKitOnce(ctx context.Context, userID string, loadout Loadout, tokens int64, metadata map[string]interface{}) (bool, error)
}
