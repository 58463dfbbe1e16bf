package bot

import (
	"math/rand"

	"lastarena/internal/domain"
)

// MaxHealth is the health every agent starts a match with.
const MaxHealth = 20.0

// Agent represents an autonomous arena participant.
type Agent struct {
	ID       string
	Name     string
	Strategy Brain
	Position domain.Vec3
	Health   float64
}

// Play asks the agent for its move and applies the movement part of it.
func (a *Agent) Play(view View, rng *rand.Rand) Move {
	view.Self = a.Position
	move := a.Strategy.Decide(view, rng)
	a.Position = move.To
	return move
}

// Damage lowers health and reports whether the hit was fatal. Agents that are
// already down stay down.
func (a *Agent) Damage(amount float64) bool {
	if a.Health <= 0 {
		return false
	}
	a.Health -= amount
	return a.Health <= 0
}

// Respawn restores full health.
func (a *Agent) Respawn() {
	a.Health = MaxHealth
}
