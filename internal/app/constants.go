package app

import "time"

// countdownStep is the countdown task period; milestones are expressed in these units.
const countdownStep = time.Second

// Task names, used in logs.
const (
	taskCountdown  = "countdown"
	taskWinnerPoll = "winner_poll"
	taskTagSweep   = "combat_tag_sweep"
	taskZoneShrink = "zone_shrink"
	taskZoneDamage = "zone_damage"
	taskResolve    = "resolve_delay"
	taskSpectator  = "spectator"
)

// Reasons attached to resets, notices and recorded results.
const (
	ReasonCancelled          = "cancelled"
	ReasonStopped            = "stopped"
	ReasonShutdown           = "shutdown"
	ReasonNotEnough          = "not_enough_participants"
	ReasonResolved           = "resolved"
	ReasonInvariantViolation = "invariant_violation"
	ReasonNoSurvivors        = "no_survivors"
)
