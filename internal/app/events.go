package app

import "lastarena/internal/domain"

// EventKind identifies emitted arena events for Nakama dispatch.
type EventKind string

const (
	EventStateChanged     EventKind = "state_changed"
	EventCountdownStarted EventKind = "countdown_started"
	EventCountdownTick    EventKind = "countdown_tick"
	EventQueueJoined      EventKind = "queue_joined"
	EventQueueLeft        EventKind = "queue_left"
	EventMatchStarted     EventKind = "match_started"
	EventMatchAborted     EventKind = "match_aborted"
	EventTeamAssigned     EventKind = "team_assigned"
	EventTeleport         EventKind = "teleport"
	EventLoadout          EventKind = "loadout"
	EventZoneResized      EventKind = "zone_resized"
	EventZoneDamage       EventKind = "zone_damage"
	EventEjected          EventKind = "ejected"
	EventEliminated       EventKind = "eliminated"
	EventSpectator        EventKind = "spectator"
	EventTeamMoved        EventKind = "team_moved"
	EventWinner           EventKind = "winner"
	EventTeamWinner       EventKind = "team_winner"
	EventDraw             EventKind = "draw"
	EventReturnToLobby    EventKind = "return_to_lobby"
	EventNotice           EventKind = "notice"
)

// Event is an arena event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // user IDs; empty means broadcast
}

type StateChangedPayload struct {
	EventID string            `json:"event_id"`
	From    domain.EventState `json:"from"`
	To      domain.EventState `json:"to"`
}

type CountdownStartedPayload struct {
	EventID string `json:"event_id"`
	Seconds int    `json:"seconds"`
}

type CountdownTickPayload struct {
	Remaining int `json:"remaining"`
	Queued    int `json:"queued"`
}

type QueuePayload struct {
	UserID string `json:"user_id"`
	Queued int    `json:"queued"`
}

type MatchStartedPayload struct {
	EventID      string   `json:"event_id"`
	Participants []string `json:"participants"`
	TeamMode     bool     `json:"team_mode"`
}

type MatchAbortedPayload struct {
	Reason string `json:"reason"`
	Queued int    `json:"queued"`
	Needed int    `json:"needed"`
}

type TeamAssignedPayload struct {
	TeamID  int      `json:"team_id"`
	Label   string   `json:"label"`
	Color   string   `json:"color"`
	Members []string `json:"members"`
}

type TeleportPayload struct {
	UserID string      `json:"user_id"`
	To     domain.Vec3 `json:"to"`
}

type LoadoutPayload struct {
	UserID string   `json:"user_id"`
	Kit    string   `json:"kit"`
	Items  []string `json:"items"`
}

type ZoneResizedPayload struct {
	Center    domain.Vec3 `json:"center"`
	From      float64     `json:"from"`
	To        float64     `json:"to"`
	OverMs    int64       `json:"over_ms"`
	AtMinimum bool        `json:"at_minimum"`
}

type ZoneDamagePayload struct {
	UserID string  `json:"user_id"`
	Damage float64 `json:"damage"`
	Depth  float64 `json:"depth"`
}

type EjectedPayload struct {
	UserID string      `json:"user_id"`
	To     domain.Vec3 `json:"to"`
}

type EliminatedPayload struct {
	UserID     string       `json:"user_id"`
	AttackerID string       `json:"attacker_id,omitempty"`
	Cause      domain.Cause `json:"cause"`
	Placement  int          `json:"placement"`
	Remaining  int          `json:"remaining"`
}

type SpectatorPayload struct {
	UserID string `json:"user_id"`
}

type TeamMovedPayload struct {
	UserID string `json:"user_id"`
	From   int    `json:"from"`
	To     int    `json:"to"`
	Color  string `json:"color"`
}

type WinnerPayload struct {
	EventID string `json:"event_id"`
	UserID  string `json:"user_id"`
	Kills   int    `json:"kills"`
}

type TeamWinnerPayload struct {
	EventID   string   `json:"event_id"`
	TeamID    int      `json:"team_id"`
	Label     string   `json:"label"`
	Color     string   `json:"color"`
	Survivors []string `json:"survivors"`
}

type DrawPayload struct {
	EventID string `json:"event_id"`
	Reason  string `json:"reason"`
}

type ReturnToLobbyPayload struct {
	Reason string `json:"reason"`
}

// NoticePayload is feedback for a rejected or failed request.
type NoticePayload struct {
	Code    domain.Code `json:"code,omitempty"`
	Message string      `json:"message"`
}
