package domain

import "math"

// EventState represents the lifecycle stage of an arena event.
type EventState string

const (
	// StateIdle means no event is running and a new countdown may be opened.
	StateIdle EventState = "idle"
	// StateCountdownOpen is the join window before the match locks.
	StateCountdownOpen EventState = "countdown"
	// StateActive is the running match.
	StateActive EventState = "active"
	// StateResolving holds the announced result until the reset delay elapses.
	StateResolving EventState = "resolving"
)

// Membership is a participant's position in the event.
type Membership string

const (
	MembershipNone      Membership = "none"
	MembershipQueued    Membership = "queued"
	MembershipAlive     Membership = "alive"
	MembershipSpectator Membership = "spectator"
)

// Cause tags the source of damage or of an elimination.
type Cause string

const (
	CauseMelee      Cause = "melee"
	CauseProjectile Cause = "projectile"
	CauseExplosion  Cause = "explosion"
	CauseFall       Cause = "fall"
	CauseLava       Cause = "lava"
	CauseVoid       Cause = "void"
	CauseZone       Cause = "zone"
	CauseBoundary   Cause = "boundary"
	CauseQuit       Cause = "quit"
	CauseAdmin      Cause = "admin"
	CauseUnknown    Cause = "unknown"
)

// IsDirect reports whether the cause always carries its own attacker.
func (c Cause) IsDirect() bool {
	return c == CauseMelee || c == CauseProjectile
}

// Vec3 is a world position. The safe zone is a vertical cylinder, so only X and Z
// take part in horizontal distance checks.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// HorizontalDistance returns the XZ-plane distance between two points.
func (v Vec3) HorizontalDistance(o Vec3) float64 {
	return math.Hypot(v.X-o.X, v.Z-o.Z)
}

// TowardsHorizontal returns the point at the given horizontal distance from origin
// along the direction of v, keeping v's height. A point sitting on origin stays put.
func (v Vec3) TowardsHorizontal(origin Vec3, distance float64) Vec3 {
	d := v.HorizontalDistance(origin)
	if d == 0 {
		return Vec3{X: origin.X, Y: v.Y, Z: origin.Z}
	}
	scale := distance / d
	return Vec3{
		X: origin.X + (v.X-origin.X)*scale,
		Y: v.Y,
		Z: origin.Z + (v.Z-origin.Z)*scale,
	}
}
