package bot

import (
	"encoding/json"
	"fmt"
	"os"
)

type BotIdentity struct {
	UserID      string   `json:"user_id"`
	DisplayName string   `json:"display_name"`
	Level       BotLevel `json:"level"`
}

// LoadIdentities loads the bot profiles from the given path.
func LoadIdentities(path string) ([]BotIdentity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bot identities: %w", err)
	}
	var identities []BotIdentity
	if err := json.Unmarshal(data, &identities); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bot identities: %w", err)
	}
	seen := make(map[string]bool, len(identities))
	for i, identity := range identities {
		if identity.UserID == "" {
			return nil, fmt.Errorf("bot identity %d has no user_id", i)
		}
		if seen[identity.UserID] {
			return nil, fmt.Errorf("duplicate bot identity %s", identity.UserID)
		}
		seen[identity.UserID] = true
	}
	return identities, nil
}

// GetBotIdentity returns an identity for a bot by index. Indexes past the pool
// get a generated identity so ids stay unique.
func GetBotIdentity(pool []BotIdentity, index int) BotIdentity {
	if index < len(pool) {
		identity := pool[index]
		if identity.Level == "" {
			identity.Level = Levels[index%len(Levels)]
		}
		if identity.DisplayName == "" {
			identity.DisplayName = identity.UserID
		}
		return identity
	}
	return BotIdentity{
		UserID:      fmt.Sprintf("bot-%d", index),
		DisplayName: fmt.Sprintf("AI Player %d", index),
		Level:       Levels[index%len(Levels)],
	}
}

// NewAgents builds count agents from the identity pool.
func NewAgents(pool []BotIdentity, count int, tuning Tuning) ([]*Agent, error) {
	agents := make([]*Agent, 0, count)
	for i := 0; i < count; i++ {
		identity := GetBotIdentity(pool, i)
		brain, err := NewBrain(identity.Level, tuning)
		if err != nil {
			return nil, fmt.Errorf("bot %s: %w", identity.UserID, err)
		}
		agents = append(agents, &Agent{ID: identity.UserID, Name: identity.DisplayName, Strategy: brain, Health: MaxHealth})
	}
	return agents, nil
}
