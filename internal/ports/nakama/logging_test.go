package nakama

import (
	"errors"
	"fmt"
	"testing"

	"github.com/heroiclabs/nakama-common/runtime"
)

type logLine struct {
	level   string
	message string
	fields  map[string]interface{}
}

type recordingLogger struct {
	fields map[string]interface{}
	lines  *[]logLine
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{lines: &[]logLine{}}
}

func (l *recordingLogger) log(level, format string, v ...interface{}) {
	*l.lines = append(*l.lines, logLine{level: level, message: fmt.Sprintf(format, v...), fields: l.fields})
}

func (l *recordingLogger) Debug(format string, v ...interface{}) { l.log("debug", format, v...) }
func (l *recordingLogger) Info(format string, v ...interface{})  { l.log("info", format, v...) }
func (l *recordingLogger) Warn(format string, v ...interface{})  { l.log("warn", format, v...) }
func (l *recordingLogger) Error(format string, v ...interface{}) { l.log("error", format, v...) }

func (l *recordingLogger) WithField(key string, v interface{}) runtime.Logger {
	return l.WithFields(map[string]interface{}{key: v})
}

func (l *recordingLogger) WithFields(fields map[string]interface{}) runtime.Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &recordingLogger{fields: merged, lines: l.lines}
}

func (l *recordingLogger) Fields() map[string]interface{} { return l.fields }

func TestLogrusBridgeForwardsLevelsAndFields(t *testing.T) {
	sink := newRecordingLogger()
	log := newLogrusBridge(sink)

	log.Debug("tick")
	log.WithField("match_id", "m1").Info("state changed")
	log.WithError(errors.New("boom")).Warn("sink failed")
	log.Error("gave up")

	lines := *sink.lines
	if len(lines) != 4 {
		t.Fatalf("forwarded %d lines, want 4", len(lines))
	}
	want := []string{"debug", "info", "warn", "error"}
	for i, line := range lines {
		if line.level != want[i] {
			t.Fatalf("line %d level = %s, want %s", i, line.level, want[i])
		}
	}
	if lines[1].message != "state changed" || lines[1].fields["match_id"] != "m1" {
		t.Fatalf("info line = %+v", lines[1])
	}
	if lines[2].fields["error"] != "boom" {
		t.Fatalf("error field should be stringified, got %#v", lines[2].fields["error"])
	}
	if lines[0].fields != nil {
		t.Fatalf("plain entries should not carry fields, got %v", lines[0].fields)
	}
}

func TestLogrusBridgeKeepsPercentSigns(t *testing.T) {
	sink := newRecordingLogger()
	newLogrusBridge(sink).Info("zone at 50%")
	if got := (*sink.lines)[0].message; got != "zone at 50%" {
		t.Fatalf("message = %q", got)
	}
}
