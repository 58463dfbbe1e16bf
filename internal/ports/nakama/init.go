package nakama

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"lastarena/internal/config"
	"lastarena/internal/ports"
	"lastarena/internal/ports/metrics"
	"lastarena/internal/ports/recorder"
	"lastarena/internal/ports/redisstats"
	"lastarena/internal/ports/sqlhistory"
)

// InitModule wires RPCs, hooks and the arena match handler for Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	cfg, err := config.LoadRuntime(env)
	if err != nil {
		logger.Error("InitModule: Invalid arena configuration: %v", err)
		return err
	}
	log := newLogrusBridge(logger)

	collector, err := setupMetrics(cfg.Metrics, log)
	if err != nil {
		return err
	}

	handlers := &rpcHandlers{cfg: cfg}
	sinks := []ports.ResultSink{NewRewardSink(nk, cfg.Rewards)}

	if cfg.Redis.Enabled {
		client, err := redisstats.Connect(ctx, cfg.Redis, log)
		if err != nil {
			logger.Warn("InitModule: Redis stats disabled, connection failed: %v", err)
		} else {
			sink := redisstats.NewSink(client, cfg.Redis.Prefix)
			sinks = append(sinks, sink)
			handlers.stats = sink
		}
	}

	if cfg.History.Enabled {
		store, err := sqlhistory.New(db, cfg.History.Table)
		if err != nil {
			return err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, store)
		handlers.history = store
	}

	rec := recorder.New(log.WithField("component", "recorder"), sinks)
	rec.Start(context.Background())

	if err := RegisterRPCs(initializer, handlers); err != nil {
		return err
	}

	gate := newEventGate()
	if err := initializer.RegisterMatch(MatchNameArena, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return newMatchHandler(cfg, rec, collector, gate), nil
	}); err != nil {
		return err
	}

	if err := initializer.RegisterAfterAuthenticateDevice(newAfterAuthenticateDevice(cfg)); err != nil {
		return err
	}

	logger.Info("Last Arena Go module loaded (team size %d, %d result sinks).", cfg.TeamSize, len(sinks))
	return nil
}

func setupMetrics(cfg config.MetricsConfig, log logrus.FieldLogger) (*metrics.Collector, error) {
	registry := prometheus.NewRegistry()
	collector, err := metrics.New(registry)
	if err != nil {
		return nil, fmt.Errorf("register arena metrics: %w", err)
	}
	if cfg.Addr != "" {
		server, err := metrics.NewServer(cfg.Addr, registry, log)
		if err != nil {
			return nil, err
		}
		server.Start()
	}
	return collector, nil
}
