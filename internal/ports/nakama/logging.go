package nakama

import (
	"io"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/sirupsen/logrus"
)

// runtimeHook forwards logrus entries to the Nakama runtime logger.
type runtimeHook struct {
	logger runtime.Logger
}

func (h *runtimeHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *runtimeHook) Fire(entry *logrus.Entry) error {
	fields := make(map[string]interface{}, len(entry.Data))
	for k, v := range entry.Data {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		fields[k] = v
	}
	logger := h.logger
	if len(fields) > 0 {
		logger = logger.WithFields(fields)
	}
	switch entry.Level {
	case logrus.TraceLevel, logrus.DebugLevel:
		logger.Debug("%s", entry.Message)
	case logrus.InfoLevel:
		logger.Info("%s", entry.Message)
	case logrus.WarnLevel:
		logger.Warn("%s", entry.Message)
	default:
		logger.Error("%s", entry.Message)
	}
	return nil
}

// newLogrusBridge returns a logrus logger whose only sink is logger.
func newLogrusBridge(logger runtime.Logger) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.DebugLevel)
	l.AddHook(&runtimeHook{logger: logger})
	return l
}
