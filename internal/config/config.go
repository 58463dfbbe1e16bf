package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"lastarena/internal/domain"
)

// EnvConfigPath is the Nakama runtime env key holding the arena YAML path.
const EnvConfigPath = "arena_config_path"

// ArenaConfig is the arena configuration surface. YAML provides the base, runtime
// env keys override individual values.
type ArenaConfig struct {
	CountdownSeconds int   `yaml:"countdown_seconds" env:"arena_countdown_seconds"`
	Milestones       []int `yaml:"countdown_milestones" env:"arena_countdown_milestones" envSeparator:","`
	MinParticipants  int   `yaml:"min_participants" env:"arena_min_participants"`
	TeamSize         int   `yaml:"team_size" env:"arena_team_size"`

	TagDuration        time.Duration `yaml:"tag_duration" env:"arena_tag_duration"`
	ResolveDelay       time.Duration `yaml:"resolve_delay" env:"arena_resolve_delay"`
	SpectatorDelay     time.Duration `yaml:"spectator_delay" env:"arena_spectator_delay"`
	WinnerPollInterval time.Duration `yaml:"winner_poll_interval" env:"arena_winner_poll_interval"`
	SweepInterval      time.Duration `yaml:"sweep_interval" env:"arena_sweep_interval"`
	ZoneDamageInterval time.Duration `yaml:"zone_damage_interval" env:"arena_zone_damage_interval"`

	// Origin is where every participant is placed when the match starts.
	Origin domain.Vec3 `yaml:"origin"`

	Zone    ZoneConfig    `yaml:"zone" envPrefix:"arena_zone_"`
	Arena   BoundsConfig  `yaml:"arena"`
	Loadout LoadoutConfig `yaml:"loadout" envPrefix:"arena_loadout_"`
	Rewards RewardConfig  `yaml:"rewards" envPrefix:"arena_reward_"`
	Redis   RedisConfig   `yaml:"redis" envPrefix:"arena_redis_"`
	History HistoryConfig `yaml:"history" envPrefix:"arena_history_"`
	Admin   AdminConfig   `yaml:"admin" envPrefix:"arena_admin_"`
	Metrics MetricsConfig `yaml:"metrics" envPrefix:"arena_metrics_"`
}

// ZoneConfig configures the shrinking safe zone.
type ZoneConfig struct {
	Center         domain.Vec3   `yaml:"center"`
	IdleRadius     float64       `yaml:"idle_radius" env:"idle_radius"`
	StartRadius    float64       `yaml:"start_radius" env:"start_radius"`
	MinRadius      float64       `yaml:"min_radius" env:"min_radius"`
	ShrinkInterval time.Duration `yaml:"shrink_interval" env:"shrink_interval"`
	Shrinks        int           `yaml:"shrinks" env:"shrinks"`
	MinStep        float64       `yaml:"min_step" env:"min_step"`
	DamageBand     float64       `yaml:"damage_band" env:"damage_band"`
	MaxDamage      float64       `yaml:"max_damage" env:"max_damage"`
	DamageFloor    float64       `yaml:"damage_floor" env:"damage_floor"`
	EjectThreshold float64       `yaml:"eject_threshold" env:"eject_threshold"`
	EjectInset     float64       `yaml:"eject_inset" env:"eject_inset"`
}

// LoadoutConfig controls the loadout capability and the kit new accounts start with.
type LoadoutConfig struct {
	Enabled       bool     `yaml:"enabled" env:"enabled"`
	DefaultKit    string   `yaml:"default_kit" env:"default_kit"`
	DefaultItems  []string `yaml:"default_items" env:"default_items" envSeparator:","`
	StarterTokens int64    `yaml:"starter_tokens" env:"starter_tokens"`
}

// RewardConfig sets wallet payouts applied when a match resolves.
type RewardConfig struct {
	Currency          string `yaml:"currency" env:"currency"`
	WinnerTokens      int64  `yaml:"winner_tokens" env:"winner_tokens"`
	KillTokens        int64  `yaml:"kill_tokens" env:"kill_tokens"`
	ParticipateTokens int64  `yaml:"participate_tokens" env:"participate_tokens"`
}

// RedisConfig enables the redis stats sink.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" env:"enabled"`
	Addr     string `yaml:"addr" env:"addr"`
	Password string `yaml:"password" env:"password"`
	DB       int    `yaml:"db" env:"db"`
	Prefix   string `yaml:"prefix" env:"prefix"`
}

// HistoryConfig enables match history rows in the Nakama database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" env:"enabled"`
	Table   string `yaml:"table" env:"table"`
}

// AdminConfig controls admin token verification for the arena_admin RPC.
type AdminConfig struct {
	Secret string `yaml:"-" env:"secret"`
	Role   string `yaml:"role" env:"role"`
}

// MetricsConfig exposes prometheus metrics on a side listener when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr" env:"addr"`
}

// Default returns the built-in configuration.
func Default() ArenaConfig {
	return ArenaConfig{
		CountdownSeconds:   60,
		Milestones:         []int{60, 30, 10, 5, 4, 3, 2, 1},
		MinParticipants:    2,
		TeamSize:           1,
		TagDuration:        domain.DefaultTagDuration,
		ResolveDelay:       10 * time.Second,
		SpectatorDelay:     2 * time.Second,
		WinnerPollInterval: time.Second,
		SweepInterval:      5 * time.Second,
		ZoneDamageInterval: time.Second,
		Zone: ZoneConfig{
			IdleRadius:     500,
			StartRadius:    300,
			MinRadius:      50,
			ShrinkInterval: 30 * time.Second,
			Shrinks:        10,
			MinStep:        5,
			DamageBand:     10,
			MaxDamage:      4,
			DamageFloor:    0.5,
			EjectThreshold: 5,
			EjectInset:     2,
		},
		Arena: BoundsConfig{Shape: ShapeNone},
		Loadout: LoadoutConfig{
			DefaultKit:    "starter",
			DefaultItems:  []string{"sword", "bow", "arrows"},
			StarterTokens: 100,
		},
		Rewards: RewardConfig{
			Currency:          "tokens",
			WinnerTokens:      50,
			KillTokens:        5,
			ParticipateTokens: 1,
		},
		Redis:   RedisConfig{Prefix: "arena"},
		History: HistoryConfig{Table: "arena_match_history"},
		Admin:   AdminConfig{Role: "arena_admin"},
	}
}

// Load builds the configuration from defaults, the optional YAML file at path and
// the runtime env overrides. A missing file is not an error.
func Load(path string, environment map[string]string) (ArenaConfig, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("failed to read arena config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to unmarshal arena config: %w", err)
			}
		}
	}
	if err := ApplyEnv(&cfg, environment); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadRuntime resolves the config path from the runtime env and loads it.
func LoadRuntime(environment map[string]string) (ArenaConfig, error) {
	return Load(environment[EnvConfigPath], environment)
}

// ApplyEnv overrides cfg with keys present in environment.
func ApplyEnv(cfg *ArenaConfig, environment map[string]string) error {
	if len(environment) == 0 {
		return nil
	}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environment}); err != nil {
		return fmt.Errorf("parse arena env: %w", err)
	}
	return nil
}

// Validate checks timings and zone geometry.
func (c ArenaConfig) Validate() error {
	invalid := func(format string, args ...any) error {
		return domain.NewError(domain.CodeConfiguration, format, args...)
	}
	switch {
	case c.CountdownSeconds < 1:
		return invalid("countdown_seconds must be positive, got %d", c.CountdownSeconds)
	case c.MinParticipants < 1:
		return invalid("min_participants must be at least 1, got %d", c.MinParticipants)
	case c.TeamSize < 1:
		return invalid("team_size must be at least 1, got %d", c.TeamSize)
	case c.TagDuration <= 0:
		return invalid("tag_duration must be positive")
	case c.ResolveDelay < 0 || c.SpectatorDelay < 0:
		return invalid("resolve_delay and spectator_delay must not be negative")
	case c.WinnerPollInterval <= 0 || c.SweepInterval <= 0 || c.ZoneDamageInterval <= 0:
		return invalid("poll, sweep and zone damage intervals must be positive")
	}
	for _, m := range c.Milestones {
		if m < 1 {
			return invalid("countdown milestone %d must be positive", m)
		}
	}
	if err := c.Zone.validate(); err != nil {
		return err
	}
	return c.Arena.validate()
}

func (z ZoneConfig) validate() error {
	invalid := func(format string, args ...any) error {
		return domain.NewError(domain.CodeConfiguration, "zone: "+format, args...)
	}
	switch {
	case z.StartRadius <= 0:
		return invalid("start_radius must be positive")
	case z.MinRadius < 0 || z.MinRadius > z.StartRadius:
		return invalid("min_radius %.2f must be within [0, %.2f]", z.MinRadius, z.StartRadius)
	case z.ShrinkInterval <= 0:
		return invalid("shrink_interval must be positive")
	case z.Shrinks < 1:
		return invalid("shrinks must be at least 1")
	case z.MinStep < 0:
		return invalid("min_step must not be negative")
	case z.DamageBand < 0 || z.MaxDamage < 0 || z.DamageFloor < 0:
		return invalid("damage settings must not be negative")
	case z.DamageFloor > z.MaxDamage:
		return invalid("damage_floor %.2f exceeds max_damage %.2f", z.DamageFloor, z.MaxDamage)
	case z.EjectThreshold < 0 || z.EjectInset < 0:
		return invalid("eject settings must not be negative")
	}
	return nil
}

// ZoneSettings converts the zone section into domain settings.
func (c ArenaConfig) ZoneSettings() domain.ZoneSettings {
	z := c.Zone
	return domain.ZoneSettings{
		Center:         z.Center,
		Origin:         c.Origin,
		IdleRadius:     z.IdleRadius,
		StartRadius:    z.StartRadius,
		MinRadius:      z.MinRadius,
		ShrinkInterval: z.ShrinkInterval,
		Shrinks:        z.Shrinks,
		MinStep:        z.MinStep,
		DamageBand:     z.DamageBand,
		MaxDamage:      z.MaxDamage,
		DamageFloor:    z.DamageFloor,
		EjectThreshold: z.EjectThreshold,
		EjectInset:     z.EjectInset,
	}
}

// TeamMode reports whether participants are split into teams.
func (c ArenaConfig) TeamMode() bool {
	return c.TeamSize > 1
}
