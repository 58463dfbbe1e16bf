package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
	"go.opentelemetry.io/otel/attribute"

	"lastarena/internal/config"
	"lastarena/internal/ports"
	"lastarena/internal/ports/redisstats"
	"lastarena/internal/ports/sqlhistory"
)

// gRPC status codes used by RPC errors.
const (
	codeInvalidArgument    = 3
	codePermissionDenied   = 7
	codeFailedPrecondition = 9
	codeInternal           = 13
	codeUnauthenticated    = 16
)

var (
	errNoUser        = runtime.NewError("no user in context", codeUnauthenticated)
	errBadPayload    = runtime.NewError("invalid payload", codeInvalidArgument)
	errNoArena       = runtime.NewError("no arena match is running", codeFailedPrecondition)
	errStatsDisabled = runtime.NewError("arena stats are disabled", codeFailedPrecondition)
	errNoHistory     = runtime.NewError("arena history is disabled", codeFailedPrecondition)
)

type matchLister interface {
	MatchList(ctx context.Context, limit int, authoritative bool, label string, minSize, maxSize *int, query string) ([]*api.Match, error)
	MatchCreate(ctx context.Context, module string, params map[string]interface{}) (string, error)
}

type matchSignaler interface {
	matchLister
	MatchSignal(ctx context.Context, id string, data string) (string, error)
}

type statsReader interface {
	Stats(ctx context.Context, userID string) (redisstats.PlayerStats, error)
	Top(ctx context.Context, board string, limit int) ([]redisstats.Ranked, error)
}

type historyReader interface {
	Recent(ctx context.Context, userID string, limit int) ([]sqlhistory.Entry, error)
}

// rpcHandlers serves the arena RPCs.
type rpcHandlers struct {
	cfg     config.ArenaConfig
	stats   statsReader
	history historyReader
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer, h *rpcHandlers) error {
	rpcs := map[string]func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error){
		RpcFindArena: h.rpcFindArena,
		RpcAdmin:     h.rpcAdmin,
		RpcStats:     h.rpcStats,
		RpcHistory:   h.rpcHistory,
	}
	for id, fn := range rpcs {
		if err := initializer.RegisterRpc(id, fn); err != nil {
			return fmt.Errorf("register rpc %s: %w", id, err)
		}
	}
	return nil
}

// FindArenaResponse is the payload returned to clients looking for the arena.
type FindArenaResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
	State   string `json:"state"`
	Open    bool   `json:"open"`
}

type labelView struct {
	State string `json:"state"`
	Open  bool   `json:"open"`
}

// findArena returns the running arena match, creating one when create is set
// and none exists.
func findArena(ctx context.Context, nk matchLister, create bool) (FindArenaResponse, error) {
	query := fmt.Sprintf("+label.%s:%s", labelKeyMode, labelMode)
	matches, err := nk.MatchList(ctx, 1, true, "", nil, nil, query)
	if err != nil {
		return FindArenaResponse{}, fmt.Errorf("failed to list matches: %w", err)
	}
	if len(matches) > 0 {
		resp := FindArenaResponse{MatchID: matches[0].GetMatchId()}
		var view labelView
		if raw := matches[0].GetLabel().GetValue(); raw != "" && json.Unmarshal([]byte(raw), &view) == nil {
			resp.State = view.State
			resp.Open = view.Open
		}
		return resp, nil
	}
	if !create {
		return FindArenaResponse{}, errNoArena
	}

	matchID, err := nk.MatchCreate(ctx, MatchNameArena, map[string]interface{}{})
	if err != nil {
		return FindArenaResponse{}, fmt.Errorf("failed to create match: %w", err)
	}
	return FindArenaResponse{MatchID: matchID, IsNew: true, State: "idle"}, nil
}

func (h *rpcHandlers) rpcFindArena(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	s := startScope(ctx, "rpc."+RpcFindArena, attribute.String("user_id", userID))
	defer s.Finish()

	resp, err := findArena(s.Ctx, nk, true)
	if err != nil {
		logger.Error("RpcFindArena [User:%s]: %v", userID, err)
		return "", s.Fail(runtime.NewError("could not find an arena", codeInternal))
	}
	if resp.IsNew {
		logger.Info("RpcFindArena [User:%s]: Created new match %s", userID, resp.MatchID)
	}
	b, _ := json.Marshal(resp)
	return string(b), nil
}

// AdminRequest is the arena_admin payload.
type AdminRequest struct {
	Token   string `json:"token"`
	Command string `json:"command"`
	MatchID string `json:"match_id,omitempty"`
}

func (h *rpcHandlers) rpcAdmin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	s := startScope(ctx, "rpc."+RpcAdmin)
	defer s.Finish()

	var req AdminRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", s.Fail(errBadPayload)
	}
	s.Tag("command", req.Command)

	reply, err := adminCommand(s.Ctx, nk, h.cfg.Admin, req)
	if err != nil {
		logger.Warn("RpcAdmin: Command %q rejected: %v", req.Command, err)
		return "", s.Fail(err)
	}
	return reply, nil
}

// adminCommand authorizes req and forwards it to the arena match.
func adminCommand(ctx context.Context, nk matchSignaler, cfg config.AdminConfig, req AdminRequest) (string, error) {
	subject, err := verifyAdminToken(req.Token, cfg.Secret, cfg.Role)
	if err != nil {
		return "", runtime.NewError(err.Error(), codePermissionDenied)
	}
	switch req.Command {
	case CommandStart, CommandCancel, CommandForceStart, CommandStop, CommandStatus:
	default:
		return "", runtime.NewError(fmt.Sprintf("unknown command %q", req.Command), codeInvalidArgument)
	}

	matchID := req.MatchID
	if matchID == "" {
		found, err := findArena(ctx, nk, req.Command == CommandStart)
		if errors.Is(err, errNoArena) {
			return "", errNoArena
		}
		if err != nil {
			return "", runtime.NewError(err.Error(), codeInternal)
		}
		matchID = found.MatchID
	}

	data, _ := json.Marshal(signalRequest{Command: req.Command, By: subject})
	reply, err := nk.MatchSignal(ctx, matchID, string(data))
	if err != nil {
		return "", runtime.NewError(fmt.Sprintf("signal match %s: %v", matchID, err), codeInternal)
	}
	return reply, nil
}

// StatsResponse is the arena_stats payload.
type StatsResponse struct {
	UserID   string                 `json:"user_id"`
	Stats    redisstats.PlayerStats `json:"stats"`
	Balance  int64                  `json:"balance"`
	TopWins  []redisstats.Ranked    `json:"top_wins"`
	TopKills []redisstats.Ranked    `json:"top_kills"`
}

func (h *rpcHandlers) rpcStats(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	s := startScope(ctx, "rpc."+RpcStats, attribute.String("user_id", userID))
	defer s.Finish()

	if userID == "" {
		return "", s.Fail(errNoUser)
	}
	resp, err := playerStats(s.Ctx, h.stats, NewNakamaEconomyAdapter(nk, h.cfg.Rewards.Currency), userID)
	if err != nil {
		logger.Error("RpcStats [User:%s]: %v", userID, err)
		return "", s.Fail(err)
	}
	b, _ := json.Marshal(resp)
	return string(b), nil
}

func playerStats(ctx context.Context, stats statsReader, economy ports.EconomyPort, userID string) (StatsResponse, error) {
	if stats == nil {
		return StatsResponse{}, errStatsDisabled
	}
	resp := StatsResponse{UserID: userID}
	var err error
	if resp.Stats, err = stats.Stats(ctx, userID); err != nil {
		return StatsResponse{}, runtime.NewError(err.Error(), codeInternal)
	}
	if resp.TopWins, err = stats.Top(ctx, "wins", 10); err != nil {
		return StatsResponse{}, runtime.NewError(err.Error(), codeInternal)
	}
	if resp.TopKills, err = stats.Top(ctx, "kills", 10); err != nil {
		return StatsResponse{}, runtime.NewError(err.Error(), codeInternal)
	}
	if resp.Balance, err = economy.GetBalance(ctx, userID); err != nil {
		return StatsResponse{}, runtime.NewError(err.Error(), codeInternal)
	}
	return resp, nil
}

type historyRequest struct {
	Limit int `json:"limit"`
}

func (h *rpcHandlers) rpcHistory(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	s := startScope(ctx, "rpc."+RpcHistory, attribute.String("user_id", userID))
	defer s.Finish()

	if userID == "" {
		return "", s.Fail(errNoUser)
	}
	if h.history == nil {
		return "", s.Fail(errNoHistory)
	}
	var req historyRequest
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", s.Fail(errBadPayload)
		}
	}
	entries, err := h.history.Recent(s.Ctx, userID, req.Limit)
	if err != nil {
		logger.Error("RpcHistory [User:%s]: %v", userID, err)
		return "", s.Fail(runtime.NewError("could not load history", codeInternal))
	}
	if entries == nil {
		entries = []sqlhistory.Entry{}
	}
	b, _ := json.Marshal(map[string]interface{}{"entries": entries})
	return string(b), nil
}
