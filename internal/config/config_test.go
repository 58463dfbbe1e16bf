package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lastarena/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arena.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CountdownSeconds != Default().CountdownSeconds {
		t.Fatalf("CountdownSeconds = %d, want default", cfg.CountdownSeconds)
	}
}

func TestLoadYAMLThenEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
countdown_seconds: 20
team_size: 2
resolve_delay: 3s
zone:
  start_radius: 300
  min_radius: 50
  shrink_interval: 30s
  shrinks: 5
arena:
  shape: cylinder
  radius: 400
  bottom: -10
  top: 200
`)
	cfg, err := Load(path, map[string]string{
		"arena_team_size":            "3",
		"arena_zone_min_radius":      "25",
		"arena_countdown_milestones": "10,5,1",
		"arena_admin_secret":         "s3cret",
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.CountdownSeconds != 20 {
		t.Fatalf("CountdownSeconds = %d, want 20 from yaml", cfg.CountdownSeconds)
	}
	if cfg.TeamSize != 3 {
		t.Fatalf("TeamSize = %d, want env override 3", cfg.TeamSize)
	}
	if cfg.ResolveDelay != 3*time.Second {
		t.Fatalf("ResolveDelay = %v, want 3s", cfg.ResolveDelay)
	}
	if cfg.Zone.MinRadius != 25 || cfg.Zone.StartRadius != 300 {
		t.Fatalf("zone = %+v", cfg.Zone)
	}
	if len(cfg.Milestones) != 3 || cfg.Milestones[0] != 10 {
		t.Fatalf("Milestones = %v", cfg.Milestones)
	}
	if cfg.Admin.Secret != "s3cret" {
		t.Fatalf("admin secret not read from env")
	}
	if cfg.Zone.DamageBand != Default().Zone.DamageBand {
		t.Fatalf("unset yaml keys should keep defaults, got band %v", cfg.Zone.DamageBand)
	}
	if _, ok := cfg.Boundary().(Cylinder); !ok {
		t.Fatalf("Boundary() = %T, want Cylinder", cfg.Boundary())
	}
	if !cfg.TeamMode() {
		t.Fatalf("team size 3 should enable team mode")
	}
}

func TestValidateRejectsBadGeometry(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ArenaConfig)
	}{
		{name: "min above start", mutate: func(c *ArenaConfig) { c.Zone.MinRadius = c.Zone.StartRadius + 1 }},
		{name: "zero interval", mutate: func(c *ArenaConfig) { c.Zone.ShrinkInterval = 0 }},
		{name: "no shrinks", mutate: func(c *ArenaConfig) { c.Zone.Shrinks = 0 }},
		{name: "floor above max", mutate: func(c *ArenaConfig) { c.Zone.DamageFloor = c.Zone.MaxDamage + 1 }},
		{name: "inverted box", mutate: func(c *ArenaConfig) {
			c.Arena = BoundsConfig{Shape: ShapeBox, Min: domain.Vec3{X: 10, Y: 10, Z: 10}}
		}},
		{name: "unknown shape", mutate: func(c *ArenaConfig) { c.Arena.Shape = "sphere" }},
		{name: "no countdown", mutate: func(c *ArenaConfig) { c.CountdownSeconds = 0 }},
		{name: "zero team size", mutate: func(c *ArenaConfig) { c.TeamSize = 0 }},
	}
	for _, tt := range tests {
		cfg := Default()
		tt.mutate(&cfg)
		err := cfg.Validate()
		if !errors.Is(err, domain.ErrConfiguration) {
			t.Fatalf("%s: Validate() = %v, want configuration error", tt.name, err)
		}
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "zone: [not, a, map")
	if _, err := Load(path, nil); err == nil {
		t.Fatalf("expected error for malformed yaml")
	}
}

func TestBoxDistanceFromEdge(t *testing.T) {
	box := Box{Min: domain.Vec3{X: -10, Y: 0, Z: -10}, Max: domain.Vec3{X: 10, Y: 20, Z: 10}}
	tests := []struct {
		p    domain.Vec3
		want float64
		in   bool
	}{
		{p: domain.Vec3{Y: 10}, want: 10, in: true},
		{p: domain.Vec3{X: 8, Y: 10}, want: 2, in: true},
		{p: domain.Vec3{X: 13, Y: 10}, want: -3, in: false},
		{p: domain.Vec3{Y: -1}, want: -1, in: false},
	}
	for _, tt := range tests {
		if got := box.DistanceFromEdge(tt.p); got != tt.want {
			t.Fatalf("DistanceFromEdge(%+v) = %v, want %v", tt.p, got, tt.want)
		}
		if got := box.Contains(tt.p); got != tt.in {
			t.Fatalf("Contains(%+v) = %v, want %v", tt.p, got, tt.in)
		}
	}
}

func TestCylinderDistanceFromEdge(t *testing.T) {
	c := Cylinder{Radius: 100, Bottom: 0, Top: 50}
	if got := c.DistanceFromEdge(domain.Vec3{X: 60, Y: 25}); got != 25 {
		t.Fatalf("got %v, want 25 (vertical margin)", got)
	}
	if got := c.DistanceFromEdge(domain.Vec3{Z: 104, Y: 25}); got != -4 {
		t.Fatalf("got %v, want -4", got)
	}
	if (ArenaConfig{}).Boundary() != nil {
		t.Fatalf("no shape should mean no boundary")
	}
}
