package nakama

const (
	// MatchNameArena is the authoritative match handler name registered with Nakama.
	MatchNameArena = "lastarena_match"

	// RPC ids.
	RpcFindArena = "arena_find"
	RpcAdmin     = "arena_admin"
	RpcStats     = "arena_stats"
	RpcHistory   = "arena_history"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpJoinQueue    int64 = 1
	OpLeaveQueue   int64 = 2
	OpPosition     int64 = 3
	OpHit          int64 = 4
	OpFatalDamage  int64 = 5
	OpNaturalDeath int64 = 6

	// Server -> Client events
	OpStateChanged     int64 = 101
	OpCountdownStarted int64 = 102
	OpCountdownTick    int64 = 103
	OpQueueJoined      int64 = 104
	OpQueueLeft        int64 = 105
	OpMatchStarted     int64 = 106
	OpMatchAborted     int64 = 107
	OpTeamAssigned     int64 = 108
	OpTeleport         int64 = 109 // send privately
	OpLoadout          int64 = 110 // send privately
	OpZoneResized      int64 = 111
	OpZoneDamage       int64 = 112 // send privately
	OpEjected          int64 = 113 // send privately
	OpEliminated       int64 = 114
	OpSpectator        int64 = 115
	OpTeamMoved        int64 = 116
	OpWinner           int64 = 117
	OpTeamWinner       int64 = 118
	OpDraw             int64 = 119
	OpReturnToLobby    int64 = 120
	OpNotice           int64 = 121
	OpError            int64 = 199
)

// Admin commands accepted by arena_admin and MatchSignal.
const (
	CommandStart      = "start"
	CommandCancel     = "cancel"
	CommandForceStart = "force_start"
	CommandStop       = "stop"
	CommandStatus     = "status"
)

// Storage locations.
const (
	collectionArena      = "arena"
	keyLoadout           = "loadout"
	collectionOnboarding = "onboarding"
	keyStarterKit        = "starter_kit_v1"
	collectionRewards    = "arena_rewards"
)

// Match label keys used in list queries.
const (
	labelKeyMode  = "mode"
	labelKeyState = "state"
	labelKeyOpen  = "open"
	labelMode     = "arena"
)
