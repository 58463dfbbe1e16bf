package bot

import (
	"math/rand"

	"lastarena/internal/domain"
)

// View is what a simulated combatant knows when it picks its next move.
type View struct {
	Self      domain.Vec3
	Center    domain.Vec3
	Radius    float64
	Opponents map[string]domain.Vec3
}

// Move is the decision made for one tick. Target is empty when the bot does
// not attack.
type Move struct {
	To     domain.Vec3
	Target string
	Cause  domain.Cause
}

// Brain is the interface that all bot strategies must implement.
type Brain interface {
	Decide(view View, rng *rand.Rand) Move
}
