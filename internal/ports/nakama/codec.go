package nakama

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"lastarena/internal/app"
	"lastarena/internal/domain"
)

var eventOpCodes = map[app.EventKind]int64{
	app.EventStateChanged:     OpStateChanged,
	app.EventCountdownStarted: OpCountdownStarted,
	app.EventCountdownTick:    OpCountdownTick,
	app.EventQueueJoined:      OpQueueJoined,
	app.EventQueueLeft:        OpQueueLeft,
	app.EventMatchStarted:     OpMatchStarted,
	app.EventMatchAborted:     OpMatchAborted,
	app.EventTeamAssigned:     OpTeamAssigned,
	app.EventTeleport:         OpTeleport,
	app.EventLoadout:          OpLoadout,
	app.EventZoneResized:      OpZoneResized,
	app.EventZoneDamage:       OpZoneDamage,
	app.EventEjected:          OpEjected,
	app.EventEliminated:       OpEliminated,
	app.EventSpectator:        OpSpectator,
	app.EventTeamMoved:        OpTeamMoved,
	app.EventWinner:           OpWinner,
	app.EventTeamWinner:       OpTeamWinner,
	app.EventDraw:             OpDraw,
	app.EventReturnToLobby:    OpReturnToLobby,
	app.EventNotice:           OpNotice,
}

var marshalOptions = protojson.MarshalOptions{EmitUnpopulated: true}

// toStruct converts a json-tagged payload into a protobuf Struct.
func toStruct(payload interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("payload is not an object: %w", err)
	}
	return out, nil
}

// encodeEvent returns the op code and wire bytes for an app event.
func encodeEvent(ev app.Event) (int64, []byte, error) {
	opCode, ok := eventOpCodes[ev.Kind]
	if !ok {
		return 0, nil, fmt.Errorf("no op code for event %s", ev.Kind)
	}
	payload, err := toStruct(ev.Payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encode %s: %w", ev.Kind, err)
	}
	payload.Fields["kind"] = structpb.NewStringValue(string(ev.Kind))
	data, err := marshalOptions.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encode %s: %w", ev.Kind, err)
	}
	return opCode, data, nil
}

// decodeMessage parses a client message body. An empty body is an empty object.
func decodeMessage(data []byte) (*structpb.Struct, error) {
	msg := &structpb.Struct{Fields: map[string]*structpb.Value{}}
	if len(data) == 0 {
		return msg, nil
	}
	if err := protojson.Unmarshal(data, msg); err != nil {
		return nil, err
	}
	if msg.Fields == nil {
		msg.Fields = map[string]*structpb.Value{}
	}
	return msg, nil
}

func stringField(msg *structpb.Struct, key string) string {
	if v, ok := msg.GetFields()[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func vecField(msg *structpb.Struct, key string) (domain.Vec3, bool) {
	v, ok := msg.GetFields()[key]
	if !ok || v.GetStructValue() == nil {
		return domain.Vec3{}, false
	}
	f := v.GetStructValue().GetFields()
	x, okX := f["x"]
	z, okZ := f["z"]
	if !okX || !okZ {
		return domain.Vec3{}, false
	}
	return domain.Vec3{X: x.GetNumberValue(), Y: f["y"].GetNumberValue(), Z: z.GetNumberValue()}, true
}

// causeField maps a reported cause onto the known set.
func causeField(msg *structpb.Struct, key string, fallback domain.Cause) domain.Cause {
	switch c := domain.Cause(stringField(msg, key)); c {
	case domain.CauseMelee, domain.CauseProjectile, domain.CauseExplosion, domain.CauseFall,
		domain.CauseLava, domain.CauseVoid:
		return c
	case "":
		return fallback
	default:
		return domain.CauseUnknown
	}
}

// matchLabel is what arena_find and the console list on.
type matchLabel struct {
	State    domain.EventState
	Open     bool
	Queued   int
	Alive    int
	TeamSize int
	EventID  string
}

func encodeLabel(l matchLabel) (string, error) {
	s, err := structpb.NewStruct(map[string]interface{}{
		labelKeyMode:  labelMode,
		labelKeyState: string(l.State),
		labelKeyOpen:  l.Open,
		"queued":      l.Queued,
		"alive":       l.Alive,
		"team_size":   l.TeamSize,
		"event_id":    l.EventID,
	})
	if err != nil {
		return "", err
	}
	b, err := marshalOptions.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
