package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"lastarena/internal/app"
	"lastarena/internal/bot"
	"lastarena/internal/config"
	"lastarena/internal/domain"
	"lastarena/internal/ports"
)

// simulation drives one arena event with bot participants on a virtual clock.
type simulation struct {
	cfg    config.ArenaConfig
	svc    *app.Service
	agents map[string]*bot.Agent
	order  []string
	rng    *rand.Rand
	log    logrus.FieldLogger
	out    io.Writer

	start  time.Time
	now    time.Time
	tick   time.Duration
	center domain.Vec3

	// hazardChance is the per tick chance that an alive bot falls into lava.
	hazardChance float64

	started bool
	aborted bool
}

type simOptions struct {
	Tick         time.Duration
	HazardChance float64
	Recorder     ports.ResultRecorder
	Metrics      ports.Metrics
	Log          logrus.FieldLogger
	Out          io.Writer
}

func newSimulation(cfg config.ArenaConfig, agents []*bot.Agent, rng *rand.Rand, opts simOptions) *simulation {
	s := &simulation{
		cfg:          cfg,
		agents:       make(map[string]*bot.Agent, len(agents)),
		rng:          rng,
		log:          opts.Log,
		out:          opts.Out,
		start:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		tick:         opts.Tick,
		center:       cfg.Zone.Center,
		hazardChance: opts.HazardChance,
	}
	s.now = s.start
	if s.tick <= 0 {
		s.tick = 200 * time.Millisecond
	}
	if s.out == nil {
		s.out = io.Discard
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	for _, a := range agents {
		s.agents[a.ID] = a
		s.order = append(s.order, a.ID)
	}
	s.svc = app.NewService(app.Dependencies{
		Config:    cfg,
		Clock:     func() time.Time { return s.now },
		Directory: s,
		Boundary:  cfg.Boundary(),
		Recorder:  opts.Recorder,
		Metrics:   opts.Metrics,
		Logger:    s.log,
		Rng:       rng,
		MatchID:   "arenasim",
	})
	return s
}

func (s *simulation) IsOnline(userID string) bool {
	_, ok := s.agents[userID]
	return ok
}

func (s *simulation) Position(userID string) (domain.Vec3, bool) {
	a, ok := s.agents[userID]
	if !ok {
		return domain.Vec3{}, false
	}
	return a.Position, true
}

// run opens the countdown, queues every bot and plays until the event resets.
func (s *simulation) run(maxDuration time.Duration) error {
	if err := s.svc.StartCountdown(); err != nil {
		return fmt.Errorf("start countdown: %w", err)
	}
	for _, id := range s.order {
		if err := s.svc.Join(id); err != nil {
			return fmt.Errorf("join %s: %w", id, err)
		}
	}
	s.drain()

	deadline := s.now.Add(maxDuration)
	for s.now.Before(deadline) {
		s.now = s.now.Add(s.tick)
		s.svc.Advance(s.now)
		s.drain()
		if s.svc.IsActive() {
			s.fight()
			s.drain()
		}
		if s.aborted {
			return fmt.Errorf("match aborted before it started")
		}
		if s.started && s.svc.State() == domain.StateIdle {
			return nil
		}
	}
	return fmt.Errorf("match did not finish within %s", maxDuration)
}

// fight plays one tick for every alive bot.
func (s *simulation) fight() {
	for _, id := range s.order {
		if !s.svc.IsActive() {
			return
		}
		if !s.svc.IsAlive(id) {
			continue
		}
		if s.hazardChance > 0 && s.rng.Float64() < s.hazardChance {
			_ = s.svc.HandleFatalDamage(id, "", domain.CauseLava)
			continue
		}

		agent := s.agents[id]
		move := agent.Play(s.view(id), s.rng)
		if move.Target == "" || !s.svc.IsAlive(move.Target) {
			continue
		}
		s.svc.RecordDamage(move.Target, id, move.Cause)
		if s.agents[move.Target].Damage(s.hitDamage(move.Cause)) {
			_ = s.svc.HandleFatalDamage(move.Target, id, move.Cause)
		}
	}
}

func (s *simulation) view(id string) bot.View {
	view := bot.View{
		Center:    s.center,
		Radius:    s.svc.ZoneRadius(),
		Opponents: make(map[string]domain.Vec3),
	}
	myTeam, teamed := s.svc.TeamOf(id)
	for _, other := range s.order {
		if other == id || !s.svc.IsAlive(other) {
			continue
		}
		if team, ok := s.svc.TeamOf(other); teamed && ok && team == myTeam {
			continue
		}
		view.Opponents[other] = s.agents[other].Position
	}
	return view
}

func (s *simulation) hitDamage(cause domain.Cause) float64 {
	if cause == domain.CauseProjectile {
		return 3 + s.rng.Float64()*3
	}
	return 4 + s.rng.Float64()*4
}

// drain applies emitted events to the bots until the service goes quiet.
func (s *simulation) drain() {
	for events := s.svc.DrainEvents(); len(events) > 0; events = s.svc.DrainEvents() {
		for _, ev := range events {
			s.print(ev)
			s.apply(ev)
		}
	}
}

func (s *simulation) apply(ev app.Event) {
	switch p := ev.Payload.(type) {
	case app.MatchStartedPayload:
		s.started = true
		for _, id := range p.Participants {
			s.agents[id].Respawn()
		}
	case app.MatchAbortedPayload:
		s.aborted = true
	case app.TeleportPayload:
		s.agents[p.UserID].Position = s.spawnAround(p.To)
	case app.EjectedPayload:
		s.agents[p.UserID].Position = p.To
	case app.ZoneResizedPayload:
		s.center = p.Center
	case app.ZoneDamagePayload:
		if s.agents[p.UserID].Damage(p.Damage) {
			_ = s.svc.HandleFatalDamage(p.UserID, "", domain.CauseZone)
		}
	}
}

// spawnAround scatters a teleported bot around the spawn point.
func (s *simulation) spawnAround(origin domain.Vec3) domain.Vec3 {
	radius := s.cfg.Zone.StartRadius / 2
	angle := s.rng.Float64() * 2 * math.Pi
	dist := math.Sqrt(s.rng.Float64()) * radius
	return domain.Vec3{
		X: origin.X + dist*math.Cos(angle),
		Y: origin.Y,
		Z: origin.Z + dist*math.Sin(angle),
	}
}

func (s *simulation) print(ev app.Event) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		payload = []byte(fmt.Sprintf("%q", err.Error()))
	}
	fmt.Fprintf(s.out, "%9s  %-18s %s\n", s.now.Sub(s.start).Truncate(time.Millisecond), ev.Kind, payload)
}
