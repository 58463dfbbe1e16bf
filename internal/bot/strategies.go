package bot

import (
	"math"
	"math/rand"
	"sort"

	"lastarena/internal/domain"
)

// BrawlerBot chases the nearest opponent and fights in melee.
type BrawlerBot struct {
	Tuning Tuning
}

func (b *BrawlerBot) Decide(view View, rng *rand.Rand) Move {
	move := Move{To: view.Self}
	target, pos, dist, ok := nearest(view)
	if !ok {
		move.To = keepInside(view, view.Self, b.Tuning)
		return move
	}
	if dist > b.Tuning.MeleeRange {
		move.To = keepInside(view, step(view.Self, pos, b.Tuning.Speed), b.Tuning)
		dist = move.To.HorizontalDistance(pos)
	}
	if dist <= b.Tuning.MeleeRange && rng.Float64() < b.Tuning.MeleeChance {
		move.Target = target
		move.Cause = domain.CauseMelee
	}
	return move
}

// ArcherBot keeps its distance and shoots when an opponent is in bow range.
type ArcherBot struct {
	Tuning Tuning
}

func (b *ArcherBot) Decide(view View, rng *rand.Rand) Move {
	move := Move{To: view.Self}
	target, pos, dist, ok := nearest(view)
	if !ok {
		move.To = keepInside(view, view.Self, b.Tuning)
		return move
	}
	switch {
	case dist < b.Tuning.BowRange/2:
		move.To = step(view.Self, pos, -b.Tuning.Speed)
	case dist > b.Tuning.BowRange:
		move.To = step(view.Self, pos, b.Tuning.Speed)
	}
	move.To = keepInside(view, move.To, b.Tuning)
	if move.To.HorizontalDistance(pos) <= b.Tuning.BowRange && rng.Float64() < b.Tuning.BowChance {
		move.Target = target
		move.Cause = domain.CauseProjectile
	}
	return move
}

// CamperBot heads for the zone center and only fights opponents that come close.
type CamperBot struct {
	Tuning Tuning
}

func (b *CamperBot) Decide(view View, rng *rand.Rand) Move {
	move := Move{To: view.Self}
	if view.Self.HorizontalDistance(view.Center) > b.Tuning.Speed {
		move.To = step(view.Self, view.Center, b.Tuning.Speed)
	}
	if target, pos, _, ok := nearest(view); ok && move.To.HorizontalDistance(pos) <= b.Tuning.MeleeRange && rng.Float64() < b.Tuning.MeleeChance {
		move.Target = target
		move.Cause = domain.CauseMelee
	}
	return move
}

// nearest returns the closest opponent. Ties break on id for determinism.
func nearest(view View) (string, domain.Vec3, float64, bool) {
	ids := make([]string, 0, len(view.Opponents))
	for id := range view.Opponents {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	best, bestDist := "", math.Inf(1)
	for _, id := range ids {
		if d := view.Self.HorizontalDistance(view.Opponents[id]); d < bestDist {
			best, bestDist = id, d
		}
	}
	if best == "" {
		return "", domain.Vec3{}, 0, false
	}
	return best, view.Opponents[best], bestDist, true
}

// step moves from towards to by distance; a negative distance moves away.
func step(from, to domain.Vec3, distance float64) domain.Vec3 {
	d := from.HorizontalDistance(to)
	if d == 0 {
		return from
	}
	if distance >= d {
		return domain.Vec3{X: to.X, Y: from.Y, Z: to.Z}
	}
	return domain.Vec3{
		X: from.X + (to.X-from.X)*distance/d,
		Y: from.Y,
		Z: from.Z + (to.Z-from.Z)*distance/d,
	}
}

// keepInside pulls p back inside the zone with a margin.
func keepInside(view View, p domain.Vec3, t Tuning) domain.Vec3 {
	limit := view.Radius - t.ZoneMargin
	if limit <= 0 {
		return domain.Vec3{X: view.Center.X, Y: p.Y, Z: view.Center.Z}
	}
	if p.HorizontalDistance(view.Center) <= limit {
		return p
	}
	return p.TowardsHorizontal(view.Center, limit)
}
