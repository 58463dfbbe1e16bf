package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"lastarena/internal/app"
	"lastarena/internal/config"
	"lastarena/internal/domain"
	"lastarena/internal/ports"
)

const tickRate = 5

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Presences map[string]runtime.Presence // UserId -> Presence for targeted messaging
	Directory *presenceDirectory          // Online set and last reported positions
	Loadouts  *StorageLoadouts            // nil when loadouts are disabled
	App       *app.Service                // Arena lifecycle for this match
	Tick      int64
	matchID   string
	label     string
}

// matchHandler carries the process-wide collaborators shared by every match.
type matchHandler struct {
	cfg      config.ArenaConfig
	recorder ports.ResultRecorder
	metrics  ports.Metrics
	gate     *eventGate
	clock    func() time.Time
}

func newMatchHandler(cfg config.ArenaConfig, recorder ports.ResultRecorder, metrics ports.Metrics, gate *eventGate) *matchHandler {
	if gate == nil {
		gate = newEventGate()
	}
	return &matchHandler{cfg: cfg, recorder: recorder, metrics: metrics, gate: gate, clock: time.Now}
}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing arena match.")

	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	state := mh.newState(ctx, logger, nk, matchID)

	label, err := mh.buildLabel(state)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}
	state.label = label
	return state, tickRate, label
}

func (mh *matchHandler) newState(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, matchID string) *MatchState {
	state := &MatchState{
		Presences: make(map[string]runtime.Presence),
		Directory: newPresenceDirectory(),
		matchID:   matchID,
	}

	var loadouts ports.LoadoutProvider = ports.NoopLoadout{}
	if mh.cfg.Loadout.Enabled && nk != nil {
		state.Loadouts = NewStorageLoadouts(nk, ports.Loadout{Kit: mh.cfg.Loadout.DefaultKit, Items: mh.cfg.Loadout.DefaultItems})
		loadouts = state.Loadouts
	}

	state.App = app.NewService(app.Dependencies{
		Config:    mh.cfg,
		Context:   ctx,
		Clock:     mh.clock,
		Directory: state.Directory,
		Boundary:  mh.cfg.Boundary(),
		Loadouts:  loadouts,
		Recorder:  mh.recorder,
		Metrics:   mh.metrics,
		Logger:    newLogrusBridge(logger).WithField("match_id", matchID),
		MatchID:   matchID,
	})
	return state
}

// MatchJoinAttempt admits everyone; queueing is an explicit client message.
func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	if _, ok := state.(*MatchState); !ok {
		return state, false, "state not found"
	}
	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	joined := make([]string, 0, len(presences))
	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p
		matchState.Directory.connect(p.GetUserId())
		joined = append(joined, p.GetUserId())
		logger.Debug("MatchJoin: User %s connected.", p.GetUserId())
	}

	if matchState.Loadouts != nil {
		if err := matchState.Loadouts.Prefetch(ctx, joined); err != nil {
			logger.Warn("MatchJoin: Could not prefetch loadouts: %v", err)
		}
	}

	mh.sendSnapshot(matchState, dispatcher, logger, joined)
	mh.flush(matchState, dispatcher, logger)
	return matchState
}

// MatchLeave is called when one or more players leave the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		delete(matchState.Presences, userID)
		matchState.Directory.disconnect(userID)
		matchState.App.Disconnect(userID)
		if matchState.Loadouts != nil {
			matchState.Loadouts.Forget(userID)
		}
		logger.Debug("MatchLeave: User %s left.", userID)
	}

	mh.flush(matchState, dispatcher, logger)
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		mh.handleMessage(matchState, dispatcher, logger, msg)
	}

	matchState.App.Advance(mh.clock())
	mh.flush(matchState, dispatcher, logger)
	return matchState
}

func (mh *matchHandler) handleMessage(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	body, err := decodeMessage(msg.GetData())
	if err != nil {
		logger.Warn("MatchLoop: Invalid payload from %s for opcode %d: %v", senderID, msg.GetOpCode(), err)
		mh.sendError(state, dispatcher, logger, senderID, "invalid_payload", "message body must be a JSON object")
		return
	}

	switch msg.GetOpCode() {
	case OpJoinQueue:
		if err := state.App.Join(senderID); err != nil {
			mh.sendError(state, dispatcher, logger, senderID, string(domain.CodeOf(err)), err.Error())
		}
	case OpLeaveQueue:
		if err := state.App.Leave(senderID); err != nil {
			mh.sendError(state, dispatcher, logger, senderID, string(domain.CodeOf(err)), err.Error())
		}
	case OpPosition:
		pos, ok := vecField(body, "position")
		if !ok {
			logger.Warn("MatchLoop: Position report from %s without coordinates.", senderID)
			return
		}
		state.Directory.report(senderID, pos)
	case OpHit:
		// Damage is reported by the victim's client only.
		attacker := stringField(body, "attacker")
		state.App.RecordDamage(senderID, attacker, causeField(body, "cause", domain.CauseMelee))
	case OpFatalDamage:
		attacker := stringField(body, "attacker")
		if err := state.App.HandleFatalDamage(senderID, attacker, causeField(body, "cause", domain.CauseMelee)); err != nil {
			logger.Debug("MatchLoop: Fatal damage for %s ignored: %v", senderID, err)
		}
	case OpNaturalDeath:
		if err := state.App.HandleFatalDamage(senderID, "", causeField(body, "cause", domain.CauseVoid)); err != nil {
			logger.Debug("MatchLoop: Natural death for %s ignored: %v", senderID, err)
		}
	default:
		logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
	}
}

// MatchTerminate tears the arena down when Nakama stops the match.
func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminating with %d seconds grace", graceSeconds)
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}
	matchState.App.Shutdown()
	mh.flush(matchState, dispatcher, logger)
	return matchState
}

// signalRequest is the MatchSignal payload sent by arena_admin.
type signalRequest struct {
	Command string `json:"command"`
	By      string `json:"by"`
}

// signalReply reports the command outcome and the arena status afterwards.
type signalReply struct {
	OK        bool              `json:"ok"`
	Code      domain.Code       `json:"code,omitempty"`
	Error     string            `json:"error,omitempty"`
	State     domain.EventState `json:"state"`
	EventID   string            `json:"event_id,omitempty"`
	Queued    int               `json:"queued"`
	Alive     int               `json:"alive"`
	Remaining int               `json:"remaining"`
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, ""
	}

	var req signalRequest
	if err := json.Unmarshal([]byte(data), &req); err != nil {
		logger.Warn("MatchSignal: Invalid signal payload: %v", err)
		return matchState, mh.reply(matchState, fmt.Errorf("invalid signal payload: %w", err))
	}

	var err error
	if req.Command == CommandStart {
		if holder, ok := mh.gate.claim(matchState.matchID); !ok {
			err = domain.NewError(domain.CodeStateConflict, "an arena event is already running in match %s", holder)
		}
	}
	if err == nil {
		err = applyCommand(matchState.App, req.Command)
	}
	if err != nil {
		logger.Warn("MatchSignal: Command %q by %s failed: %v", req.Command, req.By, err)
	} else {
		logger.Info("MatchSignal: Command %q by %s applied.", req.Command, req.By)
	}
	mh.flush(matchState, dispatcher, logger)
	return matchState, mh.reply(matchState, err)
}

// applyCommand runs an admin command against the arena.
func applyCommand(svc *app.Service, command string) error {
	switch command {
	case CommandStart:
		return svc.StartCountdown()
	case CommandCancel:
		return svc.Cancel()
	case CommandForceStart:
		return svc.ForceStart()
	case CommandStop:
		return svc.Stop()
	case CommandStatus:
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func (mh *matchHandler) reply(state *MatchState, err error) string {
	r := signalReply{
		OK:        err == nil,
		State:     state.App.State(),
		EventID:   state.App.EventID(),
		Queued:    state.App.QueuedCount(),
		Alive:     state.App.AliveCount(),
		Remaining: state.App.Remaining(),
	}
	if err != nil {
		r.Code = domain.CodeOf(err)
		r.Error = err.Error()
	}
	b, _ := json.Marshal(r)
	return string(b)
}

// flush broadcasts pending app events and refreshes the label.
func (mh *matchHandler) flush(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	for _, ev := range state.App.DrainEvents() {
		mh.broadcastEvent(state, dispatcher, logger, ev)
	}
	if state.App.State() == domain.StateIdle {
		mh.gate.release(state.matchID)
	}
	mh.updateLabel(state, dispatcher, logger)
}

// broadcastEvent handles the conversion and dispatching of app events to Nakama.
func (mh *matchHandler) broadcastEvent(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	opCode, bytes, err := encodeEvent(ev)
	if err != nil {
		logger.Error("Failed to encode event %v: %v", ev.Kind, err)
		return
	}

	// Determine recipients (default to broadcast)
	var recipients []runtime.Presence
	if len(ev.Recipients) > 0 {
		for _, uid := range ev.Recipients {
			if p, ok := state.Presences[uid]; ok {
				recipients = append(recipients, p)
			}
		}

		// Targeted events never fall back to a broadcast.
		if len(recipients) == 0 {
			return
		}
	}

	if err := dispatcher.BroadcastMessage(opCode, bytes, recipients, nil, true); err != nil {
		logger.Error("Failed to broadcast event %v: %v", ev.Kind, err)
	}
}

// sendSnapshot tells newly connected users where the arena stands.
func (mh *matchHandler) sendSnapshot(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userIDs []string) {
	if len(userIDs) == 0 {
		return
	}
	mh.broadcastEvent(state, dispatcher, logger, app.Event{
		Kind:       app.EventStateChanged,
		Payload:    app.StateChangedPayload{EventID: state.App.EventID(), From: state.App.State(), To: state.App.State()},
		Recipients: userIDs,
	})
}

// sendError sends a notice with an error code to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID, code, message string) {
	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}
	payload, err := toStruct(map[string]string{"code": code, "message": message})
	if err != nil {
		logger.Error("Failed to encode error: %v", err)
		return
	}
	bytes, err := marshalOptions.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal error: %v", err)
		return
	}
	if err := dispatcher.BroadcastMessage(OpError, bytes, []runtime.Presence{presence}, nil, true); err != nil {
		logger.Error("Failed to send error to %s: %v", userID, err)
	}
}

func (mh *matchHandler) buildLabel(state *MatchState) (string, error) {
	return encodeLabel(matchLabel{
		State:    state.App.State(),
		Open:     state.App.IsCountdownOpen(),
		Queued:   state.App.QueuedCount(),
		Alive:    state.App.AliveCount(),
		TeamSize: mh.cfg.TeamSize,
		EventID:  state.App.EventID(),
	})
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := mh.buildLabel(state)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if label == state.label {
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
		return
	}
	state.label = label
}
