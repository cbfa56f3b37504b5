// Package main is the administrative CLI of the reward engine.
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"pabuk-rewards/internal/cache"
	"pabuk-rewards/internal/config"
	"pabuk-rewards/internal/pkg/db"
	"pabuk-rewards/internal/pkg/lock"
	"pabuk-rewards/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cliApp := &cli.App{
		Name:  "rewards",
		Usage: "points, streaks and badges for contributors",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config",
				Usage:   "directory containing config.yaml",
				EnvVars: []string{"REWARDS_CONFIG"},
			},
		},
		Commands: commands(),
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}

// engine is the wired reward engine for one CLI invocation.
type engine struct {
	pool  *db.Pool
	rdb   *redis.Client
	ranks *cache.RankStore

	ledger       *service.Ledger
	streaks      *service.StreakTracker
	achievements *service.AchievementEvaluator
	workflow     *service.Workflow
	leaderboard  *service.Leaderboard
}

func (e *engine) Close() {
	if e.rdb != nil {
		_ = e.rdb.Close()
	}
	e.pool.Close()
}

func openEngine(ctx context.Context, configDir string) (*engine, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, err
	}
	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	e := &engine{pool: pool}

	var sink service.BalanceSink
	if cfg.Redis.Enabled {
		rdb, err := cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			pool.Close()
			return nil, err
		}
		e.rdb = rdb
		e.ranks = cache.NewRankStore(rdb, cfg.Redis.KeyPrefix)
		sink = e.ranks
	}

	loc, err := cfg.Streak.Location()
	if err != nil {
		e.Close()
		return nil, err
	}

	uow := service.NewUnitOfWork(pool, lock.New(), service.UnitOfWorkOptions{
		MaxAttempts: cfg.Ledger.MaxRetries,
		LockTimeout: cfg.Ledger.LockTimeout,
		Sink:        sink,
	})
	e.ledger = service.NewLedger(uow, cfg.Ledger.RecentLimit)
	e.streaks = service.NewStreakTracker(uow, e.ledger, cfg.Streak.Grace(), loc)
	e.achievements = service.NewAchievementEvaluator(uow, e.ledger)
	e.workflow = service.NewWorkflow(uow, e.ledger, e.streaks, e.achievements, cfg.Geo.UnderrepresentedThreshold)
	if e.ranks != nil {
		e.leaderboard = service.NewLeaderboard(uow, e.ranks)
	} else {
		e.leaderboard = service.NewLeaderboard(uow, nil)
	}
	return e, nil
}

// withEngine opens the engine for the duration of one action.
func withEngine(fn func(ctx context.Context, e *engine, c *cli.Context) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		e, err := openEngine(c.Context, c.String("config"))
		if err != nil {
			return err
		}
		defer e.Close()
		return fn(c.Context, e, c)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
