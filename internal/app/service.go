package app

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"lastarena/internal/config"
	"lastarena/internal/domain"
	"lastarena/internal/ports"
)

// Dependencies are the collaborators a Service is built with. Only Config is
// required; nil fields fall back to inert defaults.
type Dependencies struct {
	Config    config.ArenaConfig
	Context   context.Context
	Clock     func() time.Time
	Directory ports.Directory
	Boundary  ports.Boundary
	Loadouts  ports.LoadoutProvider
	Recorder  ports.ResultRecorder
	Metrics   ports.Metrics
	Logger    logrus.FieldLogger
	Rng       *rand.Rand
	MatchID   string
}

// Service runs the arena event lifecycle for one match. All methods must be
// called from the match loop.
type Service struct {
	cfg       config.ArenaConfig
	ctx       context.Context
	clock     func() time.Time
	directory ports.Directory
	boundary  ports.Boundary
	loadouts  ports.LoadoutProvider
	recorder  ports.ResultRecorder
	metrics   ports.Metrics
	log       logrus.FieldLogger
	rng       *rand.Rand
	matchID   string

	state    domain.EventState
	eventID  string
	teamMode bool

	registry *domain.Registry
	teams    *domain.Teams
	combat   *domain.CombatTracker
	zone     *domain.SafeZone
	sched    *Scheduler

	countdown      *Task
	shrink         *Task
	remaining      int
	milestones     map[int]bool
	spectatorTasks map[string]*Task

	startedAt  time.Time
	placements []string
	kills      map[string]int

	events []Event
}

// NewService builds an idle lifecycle.
func NewService(deps Dependencies) *Service {
	s := &Service{
		cfg:       deps.Config,
		ctx:       deps.Context,
		clock:     deps.Clock,
		directory: deps.Directory,
		boundary:  deps.Boundary,
		loadouts:  deps.Loadouts,
		recorder:  deps.Recorder,
		metrics:   deps.Metrics,
		log:       deps.Logger,
		rng:       deps.Rng,
		matchID:   deps.MatchID,
		state:     domain.StateIdle,
		registry:  domain.NewRegistry(),
		teams:     domain.NewTeams(),
		combat:    domain.NewCombatTracker(deps.Config.TagDuration),
		zone:      domain.NewSafeZone(deps.Config.ZoneSettings(), deps.Boundary),
		sched:     NewScheduler(),

		milestones:     make(map[int]bool, len(deps.Config.Milestones)),
		spectatorTasks: make(map[string]*Task),
		kills:          make(map[string]int),
	}
	if s.ctx == nil {
		s.ctx = context.Background()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.directory == nil {
		s.directory = everyoneOnline{}
	}
	if s.loadouts == nil {
		s.loadouts = ports.NoopLoadout{}
	}
	if s.recorder == nil {
		s.recorder = ports.NoopRecorder{}
	}
	if s.metrics == nil {
		s.metrics = ports.NoopMetrics{}
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	for _, m := range deps.Config.Milestones {
		s.milestones[m] = true
	}
	return s
}

type everyoneOnline struct{}

func (everyoneOnline) IsOnline(string) bool                { return true }
func (everyoneOnline) Position(string) (domain.Vec3, bool) { return domain.Vec3{}, false }

// StartCountdown opens the join window.
func (s *Service) StartCountdown() error {
	if s.state != domain.StateIdle {
		return domain.NewError(domain.CodeStateConflict, "an arena event is already %s", s.state)
	}
	if err := s.checkGeometry(); err != nil {
		s.logger().WithError(err).Error("refusing to start arena event")
		s.emit(Event{Kind: EventNotice, Payload: NoticePayload{Code: domain.CodeOf(err), Message: "arena is misconfigured"}})
		return err
	}

	now := s.clock()
	s.eventID = uuid.NewString()
	s.registry.ClearQueue()
	s.remaining = s.cfg.CountdownSeconds
	s.transition(domain.StateCountdownOpen)
	s.emit(Event{Kind: EventCountdownStarted, Payload: CountdownStartedPayload{EventID: s.eventID, Seconds: s.remaining}})
	s.announceMilestone()
	s.countdown = s.sched.Every(taskCountdown, now, countdownStep, s.countdownTick)
	s.logger().Infof("countdown opened for %d seconds", s.remaining)
	return nil
}

// Cancel closes the join window without starting a match.
func (s *Service) Cancel() error {
	if s.state != domain.StateCountdownOpen {
		return domain.NewError(domain.CodeStateConflict, "no countdown to cancel, event is %s", s.state)
	}
	s.abortCountdown(ReasonCancelled)
	return nil
}

// ForceStart skips the rest of the countdown.
func (s *Service) ForceStart() error {
	if s.state != domain.StateCountdownOpen {
		return domain.NewError(domain.CodeStateConflict, "no countdown to force, event is %s", s.state)
	}
	s.countdown.Cancel()
	s.beginMatch(s.clock())
	return nil
}

// Stop ends whatever is running and returns to Idle immediately.
func (s *Service) Stop() error {
	switch s.state {
	case domain.StateIdle:
		return domain.NewError(domain.CodeStateConflict, "nothing to stop")
	case domain.StateCountdownOpen:
		s.abortCountdown(ReasonStopped)
	default:
		s.sendToLobby(s.registry.Roster(), ReasonStopped)
		s.reset(ReasonStopped)
	}
	return nil
}

// Shutdown tears everything down; used when the hosting match terminates.
func (s *Service) Shutdown() {
	if s.state == domain.StateIdle {
		s.reset(ReasonShutdown)
		return
	}
	s.sendToLobby(append(s.registry.Queued(), s.registry.Roster()...), ReasonShutdown)
	s.reset(ReasonShutdown)
}

// Join queues id for the open event.
func (s *Service) Join(id string) error {
	if s.state != domain.StateCountdownOpen {
		return domain.NewError(domain.CodeNotJoinable, "no arena event is accepting players")
	}
	if !s.registry.Enqueue(id) {
		return domain.NewError(domain.CodeStateConflict, "%s is already queued", id)
	}
	s.emit(Event{Kind: EventQueueJoined, Payload: QueuePayload{UserID: id, Queued: s.registry.QueuedCount()}})
	return nil
}

// Leave removes id from the event voluntarily. Leaving while alive counts as an
// elimination. While resolving the roster is frozen until the reset.
func (s *Service) Leave(id string) error {
	if s.registry.State(id) == domain.MembershipNone && !s.pendingSpectator(id) {
		return domain.NewError(domain.CodeUnknownParticipant, "%s is not part of the arena event", id)
	}
	s.depart(id, s.clock())
	return nil
}

// Disconnect handles a lost presence. Queued participants keep their place and
// are skipped at start if still offline.
func (s *Service) Disconnect(id string) {
	if s.registry.IsQueued(id) {
		s.logger().WithField("user_id", id).Debug("queued participant disconnected")
		return
	}
	s.depart(id, s.clock())
}

// RecordDamage remembers who last hit victim for indirect kill credit.
func (s *Service) RecordDamage(victim, attacker string, cause domain.Cause) {
	if s.state != domain.StateActive || !s.registry.IsAlive(victim) || !s.registry.InRoster(attacker) {
		return
	}
	if s.sameTeam(victim, attacker) {
		return
	}
	s.combat.RecordHit(victim, attacker, cause, s.clock())
}

// HandleFatalDamage eliminates victim, crediting the direct attacker when the
// cause carries one and the most recent tagged attacker otherwise.
func (s *Service) HandleFatalDamage(victim, directAttacker string, cause domain.Cause) error {
	now := s.clock()
	attacker := ""
	if cause.IsDirect() && s.creditable(victim, directAttacker) {
		attacker = directAttacker
	} else if rec, ok := s.combat.ResolveAttacker(victim, now); ok {
		attacker = rec.Attacker
	}
	return s.eliminate(victim, attacker, cause, now)
}

// creditable reports whether attacker may be credited with eliminating victim.
func (s *Service) creditable(victim, attacker string) bool {
	return attacker != "" && attacker != victim && s.registry.InRoster(attacker) && !s.sameTeam(victim, attacker)
}

// Eliminate removes id from the alive set. Every elimination path ends here;
// repeated calls for the same participant are no-ops.
func (s *Service) Eliminate(id, attacker string, cause domain.Cause) error {
	return s.eliminate(id, attacker, cause, s.clock())
}

// Advance runs due timers.
func (s *Service) Advance(now time.Time) {
	s.sched.Advance(now)
}

// DrainEvents hands pending presentation events to the caller.
func (s *Service) DrainEvents() []Event {
	out := s.events
	s.events = nil
	return out
}

func (s *Service) IsActive() bool             { return s.state == domain.StateActive }
func (s *Service) IsCountdownOpen() bool      { return s.state == domain.StateCountdownOpen }
func (s *Service) IsAlive(id string) bool     { return s.registry.IsAlive(id) }
func (s *Service) IsSpectator(id string) bool { return s.registry.IsSpectator(id) }
func (s *Service) AliveCount() int            { return s.registry.AliveCount() }
func (s *Service) QueuedCount() int           { return s.registry.QueuedCount() }
func (s *Service) State() domain.EventState   { return s.state }
func (s *Service) EventID() string            { return s.eventID }
func (s *Service) Remaining() int             { return s.remaining }
func (s *Service) Kills(id string) int        { return s.kills[id] }

// ZoneRadius returns the interpolated safe zone radius.
func (s *Service) ZoneRadius() float64 {
	return s.zone.EffectiveRadius(s.clock())
}

// TeamOf returns the team of id while teams exist.
func (s *Service) TeamOf(id string) (int, bool) {
	return s.teams.TeamOf(id)
}

func (s *Service) countdownTick(now time.Time) {
	s.remaining--
	if s.remaining <= 0 {
		s.countdown.Cancel()
		s.beginMatch(now)
		return
	}
	s.announceMilestone()
}

func (s *Service) announceMilestone() {
	if s.milestones[s.remaining] {
		s.emit(Event{Kind: EventCountdownTick, Payload: CountdownTickPayload{Remaining: s.remaining, Queued: s.registry.QueuedCount()}})
	}
}

func (s *Service) abortCountdown(reason string) {
	s.sendToLobby(s.registry.Queued(), reason)
	s.logger().Infof("countdown closed: %s", reason)
	s.reset(reason)
}

func (s *Service) beginMatch(now time.Time) {
	queued := s.registry.Queued()
	participants := make([]string, 0, len(queued))
	for _, id := range queued {
		if !s.directory.IsOnline(id) {
			err := domain.NewError(domain.CodeTransientLookup, "queued participant %s is offline", id)
			s.logger().WithError(err).Warn("skipping participant")
			continue
		}
		participants = append(participants, id)
	}

	if len(participants) < s.cfg.MinParticipants {
		s.emit(Event{Kind: EventMatchAborted, Payload: MatchAbortedPayload{
			Reason: ReasonNotEnough,
			Queued: len(participants),
			Needed: s.cfg.MinParticipants,
		}})
		s.sendToLobby(queued, ReasonNotEnough)
		s.logger().Infof("not enough participants: %d of %d", len(participants), s.cfg.MinParticipants)
		s.reset(ReasonNotEnough)
		return
	}

	s.registry.Activate(participants)
	s.teamMode = s.cfg.TeamMode()
	if s.teamMode {
		for _, team := range s.teams.Assign(participants, s.cfg.TeamSize, s.rng) {
			s.emit(Event{Kind: EventTeamAssigned, Payload: TeamAssignedPayload{
				TeamID:  team.ID,
				Label:   team.Label,
				Color:   team.Color,
				Members: team.Members(),
			}})
		}
	} else {
		s.teams.Reset()
	}

	s.startedAt = now
	s.transition(domain.StateActive)
	s.emit(Event{Kind: EventMatchStarted, Payload: MatchStartedPayload{
		EventID:      s.eventID,
		Participants: s.registry.Roster(),
		TeamMode:     s.teamMode,
	}})

	for _, id := range participants {
		s.emit(Event{Kind: EventTeleport, Payload: TeleportPayload{UserID: id, To: s.cfg.Origin}, Recipients: []string{id}})
		loadout, err := s.loadouts.Loadout(s.ctx, id)
		if err != nil {
			s.logger().WithField("user_id", id).WithError(err).Warn("loadout unavailable")
			continue
		}
		if loadout.Kit == "" && len(loadout.Items) == 0 {
			continue
		}
		s.emit(Event{Kind: EventLoadout, Payload: LoadoutPayload{UserID: id, Kit: loadout.Kit, Items: loadout.Items}, Recipients: []string{id}})
	}

	s.zone.Activate(now)
	s.metrics.ZoneRadius(s.zone.Radius())
	s.emit(Event{Kind: EventZoneResized, Payload: ZoneResizedPayload{
		Center: s.zone.Center(),
		From:   s.zone.Radius(),
		To:     s.zone.Radius(),
	}})

	s.sched.Every(taskWinnerPoll, now, s.cfg.WinnerPollInterval, func(time.Time) { s.checkWinner() })
	s.sched.Every(taskTagSweep, now, s.cfg.SweepInterval, func(at time.Time) { s.combat.Sweep(at) })
	s.sched.Every(taskZoneDamage, now, s.cfg.ZoneDamageInterval, s.enforceZone)
	s.shrink = s.sched.Every(taskZoneShrink, now, s.cfg.Zone.ShrinkInterval, s.shrinkZone)

	s.logger().Infof("match started with %d participants (teams=%v)", len(participants), s.teamMode)
	s.checkWinner()
}

func (s *Service) shrinkZone(now time.Time) {
	if s.state != domain.StateActive {
		return
	}
	change, ok := s.zone.Shrink(now)
	if !ok {
		s.shrink.Cancel()
		return
	}
	s.metrics.ZoneRadius(change.To)
	s.emit(Event{Kind: EventZoneResized, Payload: ZoneResizedPayload{
		Center:    change.Center,
		From:      change.From,
		To:        change.To,
		OverMs:    change.Over.Milliseconds(),
		AtMinimum: s.zone.AtMinimum(),
	}})
}

func (s *Service) enforceZone(now time.Time) {
	for _, id := range s.registry.Alive() {
		if s.state != domain.StateActive {
			return
		}
		pos, ok := s.directory.Position(id)
		if !ok {
			continue
		}
		verdict := s.zone.Evaluate(pos, now)
		switch verdict.Kind {
		case domain.VerdictDamage:
			s.emit(Event{Kind: EventZoneDamage, Payload: ZoneDamagePayload{UserID: id, Damage: verdict.Damage, Depth: verdict.Depth}, Recipients: []string{id}})
		case domain.VerdictEject:
			s.emit(Event{Kind: EventEjected, Payload: EjectedPayload{UserID: id, To: verdict.EjectTo}, Recipients: []string{id}})
		case domain.VerdictEliminate:
			s.logger().WithField("user_id", id).Infof("outside the arena by %.2f", -verdict.Depth)
			_ = s.eliminate(id, "", domain.CauseBoundary, now)
		}
	}
}

func (s *Service) eliminate(id, attacker string, cause domain.Cause, now time.Time) error {
	switch s.state {
	case domain.StateActive:
	case domain.StateResolving:
		return nil
	default:
		return domain.NewError(domain.CodeStateConflict, "no active match")
	}
	if !s.registry.Eliminate(id) {
		return nil
	}
	s.combat.Clear(id)
	if !s.creditable(id, attacker) {
		attacker = ""
	}
	if attacker != "" {
		s.kills[attacker]++
	}
	s.placements = append(s.placements, id)
	s.metrics.Eliminated(string(cause))

	remaining := s.registry.AliveCount()
	s.emit(Event{Kind: EventEliminated, Payload: EliminatedPayload{
		UserID:     id,
		AttackerID: attacker,
		Cause:      cause,
		Placement:  remaining + 1,
		Remaining:  remaining,
	}})
	s.logger().WithFields(logrus.Fields{"user_id": id, "attacker": attacker, "cause": cause}).Info("participant eliminated")

	if cause != domain.CauseQuit {
		s.spectatorTasks[id] = s.sched.After(taskSpectator, now, s.cfg.SpectatorDelay, func(time.Time) {
			delete(s.spectatorTasks, id)
			if s.registry.PromoteToSpectator(id) {
				s.emit(Event{Kind: EventSpectator, Payload: SpectatorPayload{UserID: id}})
			}
		})
	}

	s.checkWinner()
	return nil
}

// depart handles a participant leaving the event for good.
func (s *Service) depart(id string, now time.Time) {
	if s.state == domain.StateResolving {
		return
	}
	switch s.registry.State(id) {
	case domain.MembershipQueued:
		s.registry.Leave(id)
		s.emit(Event{Kind: EventQueueLeft, Payload: QueuePayload{UserID: id, Queued: s.registry.QueuedCount()}})
		return
	case domain.MembershipAlive:
		if s.state == domain.StateActive {
			attacker := ""
			if rec, ok := s.combat.ResolveAttacker(id, now); ok {
				attacker = rec.Attacker
			}
			_ = s.eliminate(id, attacker, domain.CauseQuit, now)
		}
	}
	s.registry.Leave(id)
	s.cancelSpectator(id)
	s.combat.Forget(id)

	if s.state == domain.StateActive && s.teamMode {
		if _, ok := s.teams.RemoveParticipant(id); ok {
			s.rebalance()
		}
	}
}

func (s *Service) rebalance() {
	for _, move := range s.teams.Rebalance(s.registry.AliveSet()) {
		s.emit(Event{Kind: EventTeamMoved, Payload: TeamMovedPayload{
			UserID: move.UserID,
			From:   move.From,
			To:     move.To,
			Color:  domain.TeamColor(move.To),
		}})
		s.logger().WithField("user_id", move.UserID).Infof("rebalanced from team %d to %d", move.From, move.To)
	}
}

// checkWinner evaluates the terminal condition. The flip to Resolving happens
// before anything is announced so later triggers see a non-active event.
func (s *Service) checkWinner() {
	if s.state != domain.StateActive {
		return
	}
	outcome, err := domain.ResolveWinner(s.registry, s.teams, s.teamMode)
	if err != nil {
		s.metrics.InvariantViolation()
		s.logger().WithError(err).Error("arena state is inconsistent, forcing a reset")
		now := s.clock()
		s.transition(domain.StateResolving)
		s.emit(Event{Kind: EventDraw, Payload: DrawPayload{EventID: s.eventID, Reason: ReasonInvariantViolation}})
		s.record(outcome, ReasonInvariantViolation, now)
		s.sendToLobby(s.registry.Roster(), ReasonInvariantViolation)
		s.reset(ReasonInvariantViolation)
		return
	}
	if !outcome.Terminal() {
		return
	}

	now := s.clock()
	s.transition(domain.StateResolving)
	s.sched.CancelAll()
	s.spectatorTasks = make(map[string]*Task)

	reason := ReasonResolved
	switch outcome.Kind {
	case domain.OutcomeWinner:
		s.emit(Event{Kind: EventWinner, Payload: WinnerPayload{EventID: s.eventID, UserID: outcome.UserID, Kills: s.kills[outcome.UserID]}})
		s.logger().WithField("user_id", outcome.UserID).Info("winner decided")
	case domain.OutcomeTeamWin:
		payload := TeamWinnerPayload{EventID: s.eventID, TeamID: outcome.TeamID, Survivors: outcome.Survivors}
		if team, ok := s.teams.Team(outcome.TeamID); ok {
			payload.Label = team.Label
			payload.Color = team.Color
		}
		s.emit(Event{Kind: EventTeamWinner, Payload: payload})
		s.logger().Infof("team %d wins", outcome.TeamID)
	case domain.OutcomeDraw:
		reason = ReasonNoSurvivors
		s.emit(Event{Kind: EventDraw, Payload: DrawPayload{EventID: s.eventID, Reason: reason}})
		s.logger().Info("match ended in a draw")
	}
	s.record(outcome, reason, now)

	roster := s.registry.Roster()
	s.sched.After(taskResolve, now, s.cfg.ResolveDelay, func(time.Time) {
		s.sendToLobby(roster, ReasonResolved)
		s.reset(ReasonResolved)
	})
}

func (s *Service) record(outcome domain.Outcome, reason string, now time.Time) {
	kills := make(map[string]int, len(s.kills))
	for id, n := range s.kills {
		kills[id] = n
	}
	s.recorder.Record(ports.MatchResult{
		EventID:    s.eventID,
		MatchID:    s.matchID,
		StartedAt:  s.startedAt,
		EndedAt:    now,
		Outcome:    string(outcome.Kind),
		WinnerID:   outcome.UserID,
		WinnerTeam: outcome.TeamID,
		Survivors:  append([]string(nil), outcome.Survivors...),
		Roster:     s.registry.Roster(),
		Placements: append([]string(nil), s.placements...),
		Kills:      kills,
		Reason:     reason,
	})
}

// reset is the single teardown routine. It is idempotent.
func (s *Service) reset(reason string) {
	s.sched.CancelAll()
	s.countdown = nil
	s.shrink = nil
	s.spectatorTasks = make(map[string]*Task)
	s.registry.Reset()
	s.teams.Reset()
	s.combat.Reset()
	s.zone.Reset()
	s.teamMode = false
	s.remaining = 0
	s.placements = nil
	s.kills = make(map[string]int)
	s.startedAt = time.Time{}
	if s.state != domain.StateIdle {
		s.logger().Infof("arena reset: %s", reason)
	}
	s.transition(domain.StateIdle)
	s.eventID = ""
}

func (s *Service) transition(to domain.EventState) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	s.metrics.StateChanged(string(from), string(to))
	s.emit(Event{Kind: EventStateChanged, Payload: StateChangedPayload{EventID: s.eventID, From: from, To: to}})
}

func (s *Service) sendToLobby(ids []string, reason string) {
	if len(ids) == 0 {
		return
	}
	s.emit(Event{Kind: EventReturnToLobby, Payload: ReturnToLobbyPayload{Reason: reason}, Recipients: ids})
}

func (s *Service) cancelSpectator(id string) {
	if task, ok := s.spectatorTasks[id]; ok {
		task.Cancel()
		delete(s.spectatorTasks, id)
	}
}

func (s *Service) pendingSpectator(id string) bool {
	_, ok := s.spectatorTasks[id]
	return ok
}

func (s *Service) sameTeam(a, b string) bool {
	if !s.teamMode {
		return false
	}
	ta, okA := s.teams.TeamOf(a)
	tb, okB := s.teams.TeamOf(b)
	return okA && okB && ta == tb
}

func (s *Service) checkGeometry() error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	if s.boundary != nil && !s.boundary.Contains(s.cfg.Origin) {
		return domain.NewError(domain.CodeConfiguration, "arena origin %+v is outside the arena boundary", s.cfg.Origin)
	}
	return nil
}

func (s *Service) emit(ev Event) {
	s.events = append(s.events, ev)
}

func (s *Service) logger() logrus.FieldLogger {
	return s.log.WithFields(logrus.Fields{
		"match_id": s.matchID,
		"event_id": s.eventID,
		"state":    s.state,
	})
}
