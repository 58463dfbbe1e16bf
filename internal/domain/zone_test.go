package domain

import (
	"math"
	"testing"
	"time"
)

type wallX struct{ limit float64 }

func (w wallX) Contains(p Vec3) bool            { return p.X <= w.limit }
func (w wallX) DistanceFromEdge(p Vec3) float64 { return w.limit - p.X }

func testZoneSettings() ZoneSettings {
	return ZoneSettings{
		IdleRadius:     100,
		StartRadius:    100,
		MinRadius:      20,
		ShrinkInterval: 30 * time.Second,
		Shrinks:        4,
		DamageBand:     10,
		MaxDamage:      4,
		DamageFloor:    0.5,
		EjectThreshold: 5,
		EjectInset:     2,
	}
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestShrinkSettlesExactlyAtMinimum(t *testing.T) {
	settings := ZoneSettings{
		StartRadius:    300,
		MinRadius:      50,
		ShrinkInterval: 30 * time.Second,
		Shrinks:        7,
		MinStep:        1,
	}
	z := NewSafeZone(settings, nil)
	z.Activate(epoch)

	limit := z.StepCount()
	if limit != 7 {
		t.Fatalf("StepCount() = %d, want 7", limit)
	}

	prev := z.Radius()
	steps := 0
	for i := 1; i <= limit+3; i++ {
		change, ok := z.Shrink(at(float64(30 * i)))
		if !ok {
			break
		}
		steps++
		if change.To >= prev {
			t.Fatalf("step %d: radius %v did not decrease from %v", i, change.To, prev)
		}
		if change.To < settings.MinRadius {
			t.Fatalf("step %d: radius %v overshot minimum", i, change.To)
		}
		if change.Over != settings.ShrinkInterval {
			t.Fatalf("step %d: transition %v, want %v", i, change.Over, settings.ShrinkInterval)
		}
		prev = change.To
	}
	if steps > limit {
		t.Fatalf("took %d steps, want at most %d", steps, limit)
	}
	if z.Radius() != settings.MinRadius || !z.AtMinimum() {
		t.Fatalf("final radius = %v, want exactly %v", z.Radius(), settings.MinRadius)
	}
}

func TestShrinkSequenceProperty(t *testing.T) {
	tests := []struct {
		start, min float64
		shrinks    int
		minStep    float64
	}{
		{start: 300, min: 50, shrinks: 3, minStep: 0},
		{start: 300, min: 50, shrinks: 100, minStep: 10},
		{start: 128.5, min: 16.25, shrinks: 9, minStep: 0.5},
		{start: 1000, min: 999, shrinks: 10, minStep: 5},
		{start: 500, min: 0, shrinks: 13, minStep: 0},
	}
	for _, tt := range tests {
		z := NewSafeZone(ZoneSettings{
			StartRadius:    tt.start,
			MinRadius:      tt.min,
			ShrinkInterval: time.Second,
			Shrinks:        tt.shrinks,
			MinStep:        tt.minStep,
		}, nil)
		z.Activate(epoch)
		limit := z.StepCount()
		prev := z.Radius()
		steps := 0
		for {
			change, ok := z.Shrink(at(float64(steps + 1)))
			if !ok {
				break
			}
			steps++
			if change.To > prev || change.To < tt.min {
				t.Fatalf("%+v: step %d went from %v to %v", tt, steps, prev, change.To)
			}
			prev = change.To
			if steps > limit+1 {
				t.Fatalf("%+v: runaway shrink", tt)
			}
		}
		if steps > limit {
			t.Fatalf("%+v: %d steps, StepCount %d", tt, steps, limit)
		}
		if z.Radius() != tt.min {
			t.Fatalf("%+v: final radius %v", tt, z.Radius())
		}
	}
}

func TestEffectiveRadiusInterpolates(t *testing.T) {
	z := NewSafeZone(ZoneSettings{StartRadius: 300, MinRadius: 50, ShrinkInterval: 30 * time.Second, Shrinks: 5}, nil)
	z.Activate(at(0))
	if _, ok := z.Shrink(at(0)); !ok {
		t.Fatalf("first shrink should apply")
	}

	tests := []struct {
		sec  float64
		want float64
	}{
		{sec: 0, want: 300},
		{sec: 15, want: 275},
		{sec: 30, want: 250},
		{sec: 45, want: 250},
	}
	for _, tt := range tests {
		if got := z.EffectiveRadius(at(tt.sec)); !near(got, tt.want) {
			t.Fatalf("EffectiveRadius(t=%v) = %v, want %v", tt.sec, got, tt.want)
		}
	}

	change, _ := z.Shrink(at(15))
	if !near(change.From, 275) || change.To != 200 {
		t.Fatalf("mid-transition shrink = %+v, want from 275 to 200", change)
	}
}

func TestEvaluateDamageBand(t *testing.T) {
	z := NewSafeZone(testZoneSettings(), nil)
	z.Activate(epoch)

	tests := []struct {
		name string
		x    float64
		kind VerdictKind
		dmg  float64
	}{
		{name: "deep inside", x: 0, kind: VerdictSafe},
		{name: "band inner edge", x: 90, kind: VerdictSafe},
		{name: "floor applies", x: 90.5, kind: VerdictDamage, dmg: 0.5},
		{name: "half band", x: 95, kind: VerdictDamage, dmg: 2},
		{name: "near wall", x: 99, kind: VerdictDamage, dmg: 3.6},
		{name: "on wall", x: 100, kind: VerdictDamage, dmg: 4},
	}
	for _, tt := range tests {
		v := z.Evaluate(Vec3{X: tt.x}, epoch)
		if v.Kind != tt.kind {
			t.Fatalf("%s: kind = %v, want %v", tt.name, v.Kind, tt.kind)
		}
		if tt.kind == VerdictDamage && !near(v.Damage, tt.dmg) {
			t.Fatalf("%s: damage = %v, want %v", tt.name, v.Damage, tt.dmg)
		}
	}
}

func TestEvaluateEjectVersusEliminate(t *testing.T) {
	z := NewSafeZone(testZoneSettings(), nil)
	z.Activate(epoch)

	v := z.Evaluate(Vec3{X: 103, Y: 7}, epoch)
	if v.Kind != VerdictEject {
		t.Fatalf("3 outside: kind = %v, want eject", v.Kind)
	}
	if !near(v.EjectTo.X, 98) || v.EjectTo.Y != 7 || v.EjectTo.Z != 0 {
		t.Fatalf("EjectTo = %+v, want (98,7,0)", v.EjectTo)
	}

	if v := z.Evaluate(Vec3{X: 105}, epoch); v.Kind != VerdictEject {
		t.Fatalf("exactly at threshold should still eject, got %v", v.Kind)
	}
	if v := z.Evaluate(Vec3{Z: -106}, epoch); v.Kind != VerdictEliminate {
		t.Fatalf("6 outside: kind = %v, want eliminate", v.Kind)
	}
}

func TestEvaluateUsesNearerBoundaryEdge(t *testing.T) {
	z := NewSafeZone(testZoneSettings(), wallX{limit: 50})
	z.Activate(epoch)

	if v := z.Evaluate(Vec3{X: 40}, epoch); v.Kind != VerdictSafe {
		t.Fatalf("inside both: kind = %v, want safe", v.Kind)
	}
	v := z.Evaluate(Vec3{X: 52}, epoch)
	if v.Kind != VerdictEject || !near(v.Depth, -2) {
		t.Fatalf("2 past wall: %+v, want eject at depth -2", v)
	}
	if v := z.Evaluate(Vec3{X: 60}, epoch); v.Kind != VerdictEliminate {
		t.Fatalf("10 past wall: kind = %v, want eliminate", v.Kind)
	}

	v = z.Evaluate(Vec3{X: 49}, epoch)
	if v.Kind != VerdictDamage || !near(v.Depth, 1) {
		t.Fatalf("1 inside wall, deep in zone: %+v, want damage at depth 1", v)
	}
}

func TestEjectTargetLandsInsideBoundary(t *testing.T) {
	tests := []struct {
		name     string
		boundary Boundary
		origin   Vec3
		from     Vec3
	}{
		{name: "wall crossed", boundary: wallX{limit: 50}, from: Vec3{X: 52}},
		{name: "wall crossed off axis", boundary: wallX{limit: 50}, from: Vec3{X: 53, Z: 30}},
		{name: "zone edge crossed near wall", boundary: wallX{limit: 95}, from: Vec3{X: 60, Z: 82}},
		{name: "center outside arena", boundary: wallX{limit: -10}, origin: Vec3{X: -40}, from: Vec3{X: -8}},
	}
	for _, tt := range tests {
		settings := testZoneSettings()
		settings.Origin = tt.origin
		z := NewSafeZone(settings, tt.boundary)
		z.Activate(epoch)

		v := z.Evaluate(tt.from, epoch)
		if v.Kind != VerdictEject {
			t.Fatalf("%s: kind = %v, want eject", tt.name, v.Kind)
		}
		if tt.boundary.DistanceFromEdge(v.EjectTo) < 0 {
			t.Fatalf("%s: EjectTo %+v is outside the boundary", tt.name, v.EjectTo)
		}
		if next := z.Evaluate(v.EjectTo, epoch); next.Kind == VerdictEject || next.Kind == VerdictEliminate {
			t.Fatalf("%s: EjectTo %+v evaluates to %v", tt.name, v.EjectTo, next.Kind)
		}
	}
}

func TestInactiveZoneIsSafe(t *testing.T) {
	z := NewSafeZone(testZoneSettings(), wallX{limit: 0})
	if v := z.Evaluate(Vec3{X: 5000}, epoch); v.Kind != VerdictSafe {
		t.Fatalf("inactive zone should not enforce, got %v", v.Kind)
	}
	if _, ok := z.Shrink(epoch); ok {
		t.Fatalf("inactive zone should not shrink")
	}
}

func TestResetRestoresSavedGeometry(t *testing.T) {
	settings := testZoneSettings()
	settings.IdleRadius = 1000
	z := NewSafeZone(settings, nil)

	z.Activate(epoch)
	if z.Radius() != settings.StartRadius {
		t.Fatalf("Radius() after activate = %v, want %v", z.Radius(), settings.StartRadius)
	}
	z.Shrink(at(30))
	z.Shrink(at(60))

	z.Reset()
	if z.Active() {
		t.Fatalf("zone still active after reset")
	}
	if z.Radius() != 1000 {
		t.Fatalf("Radius() after reset = %v, want 1000", z.Radius())
	}
	z.Reset()
	if z.Radius() != 1000 {
		t.Fatalf("second reset changed radius to %v", z.Radius())
	}
}
