package main

import (
	"bytes"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"lastarena/internal/bot"
	"lastarena/internal/config"
	"lastarena/internal/ports"
)

type captureRecorder struct {
	mu      sync.Mutex
	results []ports.MatchResult
}

func (c *captureRecorder) Record(result ports.MatchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)
}

func simConfig() config.ArenaConfig {
	cfg := config.Default()
	cfg.CountdownSeconds = 3
	cfg.Milestones = []int{3, 1}
	cfg.ResolveDelay = 2 * time.Second
	return cfg
}

func TestSimulationPlaysOneEvent(t *testing.T) {
	for _, teamSize := range []int{1, 2} {
		cfg := simConfig()
		cfg.TeamSize = teamSize
		agents, err := bot.NewAgents(nil, 6, bot.DefaultTuning)
		if err != nil {
			t.Fatalf("NewAgents() error = %v", err)
		}
		rec := &captureRecorder{}
		var out bytes.Buffer
		sim := newSimulation(cfg, agents, rand.New(rand.NewSource(42)), simOptions{
			Recorder:     rec,
			HazardChance: 0.01,
			Out:          &out,
		})

		if err := sim.run(2 * time.Hour); err != nil {
			t.Fatalf("team size %d: run() error = %v", teamSize, err)
		}
		if len(rec.results) != 1 {
			t.Fatalf("team size %d: recorded %d results, want 1", teamSize, len(rec.results))
		}
		result := rec.results[0]
		if len(result.Roster) != 6 {
			t.Fatalf("team size %d: roster = %v", teamSize, result.Roster)
		}
		if !strings.Contains(out.String(), "match_started") {
			t.Fatalf("event log is missing match_started:\n%s", out.String())
		}
	}
}

func TestSimulationAbortsWithoutEnoughBots(t *testing.T) {
	agents, err := bot.NewAgents(nil, 1, bot.DefaultTuning)
	if err != nil {
		t.Fatal(err)
	}
	sim := newSimulation(simConfig(), agents, rand.New(rand.NewSource(1)), simOptions{})
	if err := sim.run(time.Minute); err == nil {
		t.Fatalf("expected abort error with a single bot")
	}
}
