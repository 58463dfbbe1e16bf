// Command arenasim plays arena events with bot participants on a virtual clock
// and prints every emitted event. It exercises the same lifecycle and result
// sinks as the Nakama module without a server.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"lastarena/internal/bot"
	"lastarena/internal/config"
	"lastarena/internal/ports"
	"lastarena/internal/ports/metrics"
	"lastarena/internal/ports/nakama"
	"lastarena/internal/ports/recorder"
	"lastarena/internal/ports/redisstats"
	"lastarena/internal/ports/sqlhistory"
)

func main() {
	var (
		configPath   string
		players      int
		teamSize     int
		seedVal      int64
		botsPath     string
		maxDuration  time.Duration
		tick         time.Duration
		hazard       float64
		historyDSN   string
		adminSubject string
		verbose      bool
		jsonLogs     bool
	)
	flag.StringVar(&configPath, "config", "", "arena config YAML file (default: $arena_config_path)")
	flag.IntVar(&players, "players", 8, "number of bots to queue")
	flag.IntVar(&teamSize, "team-size", 0, "override the configured team size (0 = config)")
	flag.Int64Var(&seedVal, "seed", 0, "random seed for reproducibility (0 = random)")
	flag.StringVar(&botsPath, "bots", "", "bot identities JSON file")
	flag.DurationVar(&maxDuration, "max", 30*time.Minute, "virtual time limit for one event")
	flag.DurationVar(&tick, "tick", 200*time.Millisecond, "virtual tick length")
	flag.Float64Var(&hazard, "hazard", 0.001, "per tick chance that a bot falls into lava")
	flag.StringVar(&historyDSN, "history-dsn", "", "postgres DSN for match history rows")
	flag.StringVar(&adminSubject, "admin-token", "", "print an arena_admin token for this subject and exit")
	flag.BoolVar(&verbose, "v", false, "verbose output")
	flag.BoolVar(&jsonLogs, "json", false, "log as JSON")
	flag.Parse()

	if jsonLogs {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file loaded: %v", err)
	}

	environment := environ()
	if configPath == "" {
		configPath = environment[config.EnvConfigPath]
	}
	cfg, err := config.Load(configPath, environment)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	if teamSize > 0 {
		cfg.TeamSize = teamSize
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("invalid team size: %v", err)
		}
	}

	if adminSubject != "" {
		token, err := nakama.SignAdminToken(cfg.Admin.Secret, adminSubject, cfg.Admin.Role, time.Now(), time.Hour)
		if err != nil {
			logrus.Fatalf("sign admin token: %v", err)
		}
		fmt.Println(token)
		return
	}

	if err := run(cfg, options{
		players:     players,
		seed:        seedVal,
		botsPath:    botsPath,
		maxDuration: maxDuration,
		tick:        tick,
		hazard:      hazard,
		historyDSN:  historyDSN,
	}); err != nil {
		logrus.Fatal(err)
	}
}

type options struct {
	players     int
	seed        int64
	botsPath    string
	maxDuration time.Duration
	tick        time.Duration
	hazard      float64
	historyDSN  string
}

func run(cfg config.ArenaConfig, opts options) error {
	ctx := context.Background()
	log := logrus.WithField("component", "arenasim")

	var pool []bot.BotIdentity
	if opts.botsPath != "" {
		loaded, err := bot.LoadIdentities(opts.botsPath)
		if err != nil {
			return err
		}
		pool = loaded
	}
	agents, err := bot.NewAgents(pool, opts.players, bot.DefaultTuning)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	collector, err := metrics.New(registry)
	if err != nil {
		return err
	}
	if cfg.Metrics.Addr != "" {
		server, err := metrics.NewServer(cfg.Metrics.Addr, registry, log)
		if err != nil {
			return err
		}
		server.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			_ = server.Stop(stopCtx)
		}()
	}

	sinks := []ports.ResultSink{&printSink{log: log}}
	var stats *redisstats.Sink
	if cfg.Redis.Enabled {
		client, err := redisstats.Connect(ctx, cfg.Redis, log)
		if err != nil {
			return err
		}
		defer client.Close()
		stats = redisstats.NewSink(client, cfg.Redis.Prefix)
		sinks = append(sinks, stats)
	}
	if opts.historyDSN != "" {
		db, err := sql.Open("postgres", opts.historyDSN)
		if err != nil {
			return fmt.Errorf("open history database: %w", err)
		}
		defer db.Close()
		store, err := sqlhistory.New(db, cfg.History.Table)
		if err != nil {
			return err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, store)
	}

	rec := recorder.New(log.WithField("component", "recorder"), sinks)
	rec.Start(ctx)

	seed := opts.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log.WithFields(logrus.Fields{"players": len(agents), "team_size": cfg.TeamSize, "seed": seed}).Info("starting simulation")

	sim := newSimulation(cfg, agents, rand.New(rand.NewSource(seed)), simOptions{
		Tick:         opts.tick,
		HazardChance: opts.hazard,
		Recorder:     rec,
		Metrics:      collector,
		Log:          log,
		Out:          os.Stdout,
	})
	runErr := sim.run(opts.maxDuration)
	rec.Close()
	if runErr != nil {
		return runErr
	}

	if stats != nil {
		top, err := stats.Top(ctx, "wins", 5)
		if err != nil {
			return err
		}
		for i, r := range top {
			fmt.Printf("#%d %s wins=%d\n", i+1, r.UserID, r.Score)
		}
	}
	return nil
}

// printSink logs each recorded result.
type printSink struct {
	log logrus.FieldLogger
}

func (p *printSink) Name() string { return "stdout" }

func (p *printSink) Write(ctx context.Context, result ports.MatchResult) error {
	kills, err := json.Marshal(result.Kills)
	if err != nil {
		return err
	}
	p.log.WithFields(logrus.Fields{
		"event_id":    result.EventID,
		"outcome":     result.Outcome,
		"winner":      result.WinnerID,
		"winner_team": result.WinnerTeam,
		"survivors":   strings.Join(result.Survivors, ","),
		"kills":       string(kills),
		"duration":    result.EndedAt.Sub(result.StartedAt),
	}).Info("match recorded")
	return nil
}

func environ() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out
}
