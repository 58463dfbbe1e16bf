package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	jwt "github.com/form3tech-oss/jwt-go"
	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"lastarena/internal/config"
)

const testSecret = "arena-test-secret"

func TestVerifyAdminToken(t *testing.T) {
	now := time.Now()
	valid, err := SignAdminToken(testSecret, "ops", "arena_admin", now, time.Hour)
	if err != nil {
		t.Fatalf("SignAdminToken() error = %v", err)
	}
	wrongRole, _ := SignAdminToken(testSecret, "ops", "player", now, time.Hour)
	wrongKey, _ := SignAdminToken("other", "ops", "arena_admin", now, time.Hour)
	expired, _ := SignAdminToken(testSecret, "ops", "arena_admin", now.Add(-2*time.Hour), time.Hour)
	noSubject, _ := SignAdminToken(testSecret, "", "arena_admin", now, time.Hour)
	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, adminClaims{Role: "arena_admin"}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	if subject, err := verifyAdminToken(valid, testSecret, "arena_admin"); err != nil || subject != "ops" {
		t.Fatalf("valid token = %q/%v", subject, err)
	}

	for name, token := range map[string]string{
		"wrong role":  wrongRole,
		"wrong key":   wrongKey,
		"expired":     expired,
		"no subject":  noSubject,
		"unsigned":    unsigned,
		"not a token": "abc",
	} {
		if _, err := verifyAdminToken(token, testSecret, "arena_admin"); !errors.Is(err, errAdminForbidden) {
			t.Fatalf("%s: error = %v, want forbidden", name, err)
		}
	}

	if _, err := verifyAdminToken(valid, "", "arena_admin"); !errors.Is(err, errAdminDisabled) {
		t.Fatalf("empty secret should disable admin commands, got %v", err)
	}
}

// mockArenaNakama implements the match list, create and signal calls.
type mockArenaNakama struct {
	matches  []*api.Match
	created  []string
	signals  map[string][]string
	listErr  error
	response string
}

func (m *mockArenaNakama) MatchList(ctx context.Context, limit int, authoritative bool, label string, minSize, maxSize *int, query string) ([]*api.Match, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.matches, nil
}

func (m *mockArenaNakama) MatchCreate(ctx context.Context, module string, params map[string]interface{}) (string, error) {
	id := "created-" + module
	m.created = append(m.created, id)
	m.matches = append(m.matches, &api.Match{MatchId: id})
	return id, nil
}

func (m *mockArenaNakama) MatchSignal(ctx context.Context, id string, data string) (string, error) {
	if m.signals == nil {
		m.signals = make(map[string][]string)
	}
	m.signals[id] = append(m.signals[id], data)
	return m.response, nil
}

func runtimeCode(t *testing.T, err error) int {
	t.Helper()
	var rerr *runtime.Error
	if !errors.As(err, &rerr) {
		t.Fatalf("error %v is not a runtime.Error", err)
	}
	return rerr.Code
}

func TestAdminCommandForwardsSignal(t *testing.T) {
	cfg := config.AdminConfig{Secret: testSecret, Role: "arena_admin"}
	token, _ := SignAdminToken(testSecret, "ops", "arena_admin", time.Now(), time.Minute)
	nk := &mockArenaNakama{response: `{"ok":true}`}

	reply, err := adminCommand(context.Background(), nk, cfg, AdminRequest{Token: token, Command: CommandStart})
	if err != nil {
		t.Fatalf("adminCommand() error = %v", err)
	}
	if reply != `{"ok":true}` {
		t.Fatalf("reply = %s", reply)
	}
	if len(nk.created) != 1 {
		t.Fatalf("start should create the arena when none runs")
	}
	signals := nk.signals[nk.created[0]]
	if len(signals) != 1 {
		t.Fatalf("expected one signal, got %d", len(signals))
	}
	var req signalRequest
	if err := json.Unmarshal([]byte(signals[0]), &req); err != nil || req.Command != CommandStart || req.By != "ops" {
		t.Fatalf("signal payload = %s", signals[0])
	}

	if _, err := adminCommand(context.Background(), nk, cfg, AdminRequest{Token: token, Command: CommandStop}); err != nil {
		t.Fatalf("stop on the existing arena: %v", err)
	}
	if len(nk.created) != 1 {
		t.Fatalf("existing arena should be reused")
	}
}

func TestAdminCommandErrors(t *testing.T) {
	cfg := config.AdminConfig{Secret: testSecret, Role: "arena_admin"}
	token, _ := SignAdminToken(testSecret, "ops", "arena_admin", time.Now(), time.Minute)

	tests := []struct {
		name string
		nk   *mockArenaNakama
		req  AdminRequest
		code int
	}{
		{name: "bad token", nk: &mockArenaNakama{}, req: AdminRequest{Token: "x", Command: CommandStart}, code: codePermissionDenied},
		{name: "unknown command", nk: &mockArenaNakama{}, req: AdminRequest{Token: token, Command: "explode"}, code: codeInvalidArgument},
		{name: "no arena", nk: &mockArenaNakama{}, req: AdminRequest{Token: token, Command: CommandStatus}, code: codeFailedPrecondition},
		{name: "list failure", nk: &mockArenaNakama{listErr: errors.New("db down")}, req: AdminRequest{Token: token, Command: CommandCancel}, code: codeInternal},
	}
	for _, tt := range tests {
		_, err := adminCommand(context.Background(), tt.nk, cfg, tt.req)
		if err == nil {
			t.Fatalf("%s: expected error", tt.name)
		}
		if got := runtimeCode(t, err); got != tt.code {
			t.Fatalf("%s: code = %d, want %d", tt.name, got, tt.code)
		}
		if len(tt.nk.signals) != 0 {
			t.Fatalf("%s: nothing should be signalled", tt.name)
		}
	}
}

func TestFindArenaReadsLabel(t *testing.T) {
	label, _ := encodeLabel(matchLabel{State: "countdown", Open: true})
	nk := &mockArenaNakama{matches: []*api.Match{{MatchId: "m1"}}}
	nk.matches[0].Label = wrapperspb.String(label)

	resp, err := findArena(context.Background(), nk, false)
	if err != nil {
		t.Fatalf("findArena() error = %v", err)
	}
	if resp.MatchID != "m1" || resp.IsNew || resp.State != "countdown" || !resp.Open {
		t.Fatalf("findArena() = %+v", resp)
	}
}
