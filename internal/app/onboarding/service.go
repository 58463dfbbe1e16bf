package onboarding

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"lastarena/internal/ports"
)

// Result captures non-fatal onboarding outcomes.
type Result struct {
	DisplayName string
	// ProfileUpdateErr is set when the profile update failed but onboarding continued.
	ProfileUpdateErr error
	// StarterKitGranted is false when the kit had already been granted.
	StarterKitGranted bool
}

// StarterKit is what every new arena account receives.
type StarterKit struct {
	Loadout ports.Loadout
	Tokens  int64
}

// Service handles post-auth onboarding for new users.
type Service struct {
	accounts ports.AccountPort
	kits     ports.StarterKitPort
	kit      StarterKit
	rng      *rand.Rand
}

// NewService constructs an onboarding service with required ports.
// accounts/kits must be non-nil; rng may be nil to use a time-seeded default.
func NewService(accounts ports.AccountPort, kits ports.StarterKitPort, kit StarterKit, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		accounts: accounts,
		kits:     kits,
		kit:      kit,
		rng:      rng,
	}
}

// OnboardNewUser gives a new account a friendly name, its default loadout and
// starting tokens. The profile update is best-effort; the starter kit is not.
func (s *Service) OnboardNewUser(ctx context.Context, userID string) (Result, error) {
	if s.accounts == nil || s.kits == nil {
		return Result{}, fmt.Errorf("onboarding service not configured")
	}

	result := Result{DisplayName: s.generateFriendlyName()}
	if err := s.accounts.UpdateProfile(ctx, userID, result.DisplayName, result.DisplayName); err != nil {
		result.ProfileUpdateErr = err
	}

	metadata := map[string]interface{}{
		"reason": "arena_starter_kit",
		"kit":    s.kit.Loadout.Kit,
	}
	granted, err := s.kits.GrantStarterKitOnce(ctx, userID, s.kit.Loadout, s.kit.Tokens, metadata)
	if err != nil {
		return result, fmt.Errorf("failed to grant starter kit: %w", err)
	}
	result.StarterKitGranted = granted

	return result, nil
}

func (s *Service) generateFriendlyName() string {
	adjectives := []string{"Grim", "Swift", "Iron", "Lucky", "Silent", "Feral", "Bold", "Crimson", "Frosty", "Wild"}
	nouns := []string{"Gladiator", "Ranger", "Golem", "Viper", "Knight", "Raven", "Brute", "Archer", "Warden", "Lynx"}

	adj := adjectives[s.rng.Intn(len(adjectives))]
	noun := nouns[s.rng.Intn(len(nouns))]
	num := s.rng.Intn(9000) + 1000

	return fmt.Sprintf("%s%s%d", adj, noun, num)
}
