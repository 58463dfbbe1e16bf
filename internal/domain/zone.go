package domain

import (
	"math"
	"time"
)

// radiusEpsilon absorbs float drift so the final step lands exactly on the
// minimum radius.
const radiusEpsilon = 1e-6

// Boundary is the arena geometry oracle. DistanceFromEdge is signed: positive
// inside, negative outside.
type Boundary interface {
	Contains(p Vec3) bool
	DistanceFromEdge(p Vec3) float64
}

// ZoneSettings configures the shrinking safe zone.
type ZoneSettings struct {
	Center         Vec3
	Origin         Vec3
	IdleRadius     float64
	StartRadius    float64
	MinRadius      float64
	ShrinkInterval time.Duration
	Shrinks        int
	MinStep        float64
	DamageBand     float64
	MaxDamage      float64
	DamageFloor    float64
	EjectThreshold float64
	EjectInset     float64
}

// VerdictKind is the enforcement outcome for one position.
type VerdictKind int

const (
	VerdictSafe VerdictKind = iota
	VerdictDamage
	VerdictEject
	VerdictEliminate
)

// Verdict is what the zone decides for a participant's position.
type Verdict struct {
	Kind    VerdictKind
	Damage  float64
	EjectTo Vec3
	// Depth is the signed inward distance from the nearest edge.
	Depth float64
}

// ZoneChange describes one shrink step. The world border should move from From to
// To over Over rather than jumping.
type ZoneChange struct {
	Center Vec3
	From   float64
	To     float64
	Over   time.Duration
}

// SafeZone is the shrinking playable region.
type SafeZone struct {
	settings ZoneSettings
	boundary Boundary

	center Vec3
	radius float64
	step   float64
	active bool

	savedCenter Vec3
	savedRadius float64

	fromRadius  float64
	changeStart time.Time
	changeOver  time.Duration
}

// NewSafeZone builds an inactive zone at its idle geometry. A nil boundary means
// the arena is unbounded.
func NewSafeZone(settings ZoneSettings, boundary Boundary) *SafeZone {
	if settings.IdleRadius <= 0 {
		settings.IdleRadius = settings.StartRadius
	}
	z := &SafeZone{settings: settings, boundary: boundary}
	z.center = settings.Center
	z.radius = settings.IdleRadius
	z.fromRadius = z.radius
	return z
}

// ShrinkStep computes the per-interval step so the radius reaches minRadius in
// at most shrinks steps without overshooting.
func ShrinkStep(startRadius, minRadius float64, shrinks int, minStep float64) float64 {
	span := startRadius - minRadius
	if span <= 0 {
		return math.Max(minStep, 0)
	}
	if shrinks < 1 {
		shrinks = 1
	}
	return math.Max(minStep, span/float64(shrinks))
}

// Activate saves the current geometry and resets the zone to its start radius.
func (z *SafeZone) Activate(now time.Time) {
	if !z.active {
		z.savedCenter = z.center
		z.savedRadius = z.radius
	}
	z.active = true
	z.center = z.settings.Center
	z.radius = z.settings.StartRadius
	z.step = ShrinkStep(z.settings.StartRadius, z.settings.MinRadius, z.settings.Shrinks, z.settings.MinStep)
	z.fromRadius = z.radius
	z.changeStart = now
	z.changeOver = 0
}

// Active reports whether the zone is being enforced.
func (z *SafeZone) Active() bool {
	return z.active
}

// Radius returns the current target radius.
func (z *SafeZone) Radius() float64 {
	return z.radius
}

// Center returns the zone center.
func (z *SafeZone) Center() Vec3 {
	return z.center
}

// Step returns the shrink step computed at activation.
func (z *SafeZone) Step() float64 {
	return z.step
}

// StepCount returns how many shrinks take the zone from start to min radius.
func (z *SafeZone) StepCount() int {
	span := z.settings.StartRadius - z.settings.MinRadius
	if span <= 0 || z.step <= 0 {
		return 0
	}
	return int(math.Ceil(span/z.step - 1e-9))
}

// AtMinimum reports whether the zone has finished shrinking.
func (z *SafeZone) AtMinimum() bool {
	return z.radius <= z.settings.MinRadius
}

// Shrink applies one interval step. It returns false once the minimum radius is
// reached or when the zone is inactive.
func (z *SafeZone) Shrink(now time.Time) (ZoneChange, bool) {
	if !z.active || z.radius <= z.settings.MinRadius || z.step <= 0 {
		return ZoneChange{}, false
	}
	from := z.EffectiveRadius(now)
	next := z.radius - z.step
	if next-z.settings.MinRadius < radiusEpsilon {
		next = z.settings.MinRadius
	}
	z.fromRadius = from
	z.radius = next
	z.changeStart = now
	z.changeOver = z.settings.ShrinkInterval
	return ZoneChange{Center: z.center, From: from, To: next, Over: z.changeOver}, true
}

// EffectiveRadius interpolates the radius while a shrink transition is running.
func (z *SafeZone) EffectiveRadius(now time.Time) float64 {
	if z.changeOver <= 0 {
		return z.radius
	}
	elapsed := now.Sub(z.changeStart)
	if elapsed >= z.changeOver {
		return z.radius
	}
	if elapsed <= 0 {
		return z.fromRadius
	}
	frac := float64(elapsed) / float64(z.changeOver)
	return z.fromRadius + (z.radius-z.fromRadius)*frac
}

// Evaluate decides what happens to a participant standing at p.
func (z *SafeZone) Evaluate(p Vec3, now time.Time) Verdict {
	if !z.active {
		return Verdict{Kind: VerdictSafe, Depth: math.Inf(1)}
	}
	radius := z.EffectiveRadius(now)
	depth := radius - p.HorizontalDistance(z.center)
	if z.boundary != nil {
		depth = math.Min(depth, z.boundary.DistanceFromEdge(p))
	}

	s := z.settings
	switch {
	case depth < 0 && -depth > s.EjectThreshold:
		return Verdict{Kind: VerdictEliminate, Depth: depth}
	case depth < 0:
		return Verdict{Kind: VerdictEject, Depth: depth, EjectTo: z.ejectTarget(p, radius)}
	case s.DamageBand > 0 && depth < s.DamageBand:
		return Verdict{Kind: VerdictDamage, Depth: depth, Damage: z.bandDamage(depth)}
	}
	return Verdict{Kind: VerdictSafe, Depth: depth}
}

// ejectSamples is how many points are tried along each segment when the
// boundary is the edge that was crossed.
const ejectSamples = 64

// ejectTarget returns the point an ejected participant is moved to: EjectInset
// inside the zone along the ray to the center, pulled further in when that point
// is still outside the boundary. The spawn origin is the last resort.
func (z *SafeZone) ejectTarget(p Vec3, radius float64) Vec3 {
	inset := z.settings.EjectInset
	target := p
	if radius-p.HorizontalDistance(z.center) < inset {
		target = p.TowardsHorizontal(z.center, math.Max(0, radius-inset))
	}
	if z.boundary == nil || z.boundary.DistanceFromEdge(target) >= inset {
		return target
	}
	origin := z.settings.Origin
	axis := Vec3{X: z.center.X, Y: target.Y, Z: z.center.Z}
	for _, margin := range []float64{inset, 0} {
		if pt, ok := z.firstInside(target, axis, radius, margin); ok {
			return pt
		}
		if pt, ok := z.firstInside(axis, origin, radius, margin); ok {
			return pt
		}
	}
	return origin
}

// firstInside walks from a to b and returns the first point at least margin
// inside the boundary that is also inside the zone.
func (z *SafeZone) firstInside(a, b Vec3, radius, margin float64) (Vec3, bool) {
	for i := 0; i <= ejectSamples; i++ {
		f := float64(i) / ejectSamples
		pt := Vec3{X: a.X + (b.X-a.X)*f, Y: a.Y + (b.Y-a.Y)*f, Z: a.Z + (b.Z-a.Z)*f}
		if z.boundary.DistanceFromEdge(pt) >= margin && pt.HorizontalDistance(z.center) <= radius {
			return pt, true
		}
	}
	return Vec3{}, false
}

// bandDamage scales linearly from 0 at the band's inner edge to MaxDamage at the
// wall, never below DamageFloor.
func (z *SafeZone) bandDamage(depth float64) float64 {
	s := z.settings
	proximity := 1 - depth/s.DamageBand
	return math.Max(s.DamageFloor, s.MaxDamage*proximity)
}

// Reset stops enforcement and restores the geometry saved at activation.
func (z *SafeZone) Reset() {
	if z.active {
		z.center = z.savedCenter
		z.radius = z.savedRadius
	}
	z.active = false
	z.step = 0
	z.fromRadius = z.radius
	z.changeOver = 0
}
