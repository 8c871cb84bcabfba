// Package main provides the game backend binary: it wires the storage
// layer and workflow services and runs the background housekeeping loop.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/config"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/game/rng"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/game/roster"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/grailwar"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/observability"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/server"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/storage/postgres"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/storage/redisboard"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ros, err := roster.Load()
	if err != nil {
		logger.Fatal("loading servant roster", zap.Error(err))
	}
	counts := ros.Counts()
	total := 0
	for _, n := range counts {
		total += n
	}
	logger.Info("servant roster loaded", zap.Int("servants", total))

	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)

	db := pool.DB()
	stores := grailwar.Stores{
		Guilds:    postgres.NewGuildRepository(db),
		Members:   postgres.NewMemberRepository(db),
		Servants:  postgres.NewServantRepository(db),
		Items:     postgres.NewItemRepository(db),
		Inventory: postgres.NewInventoryRepository(db),
		Equipment: postgres.NewEquipmentRepository(db),
		Battles:   postgres.NewBattleRepository(db),
		Missions:  postgres.NewMissionRepository(db),
		Cooldowns: postgres.NewCooldownRepository(db),
		AdminLogs: postgres.NewAdminLogRepository(db),
	}

	var mirror grailwar.RatingMirror
	if cfg.Redis.Enabled {
		redisStart := time.Now()
		m, err := redisboard.New(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Fatal("connecting to redis", zap.Error(err))
		}
		defer m.Close()
		mirror = m
		logger.Info("leaderboard mirror connected",
			zap.String("addr", cfg.Redis.Addr),
			zap.Duration("elapsed", time.Since(redisStart)),
		)
	}

	services := grailwar.NewServices(stores, ros, mirror, rng.NewCryptoSource(), cfg.Game, logger)

	lifecycle := server.NewLifecycle(logger)

	lifecycle.Add("sweeper", services.Sweeper)

	lifecycle.Add("postgres", &server.FuncService{
		StartFn: func(runCtx context.Context) error {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-runCtx.Done():
					return nil
				case <-ticker.C:
					if err := pool.Health(runCtx, 5*time.Second); err != nil {
						logger.Warn("database health check failed", zap.Error(err))
					}
				}
			}
		},
		StopFn: pool.Close,
	})

	logger.Info("grail war backend initialized",
		zap.Duration("startup", time.Since(start)),
		zap.Bool("redis_mirror", cfg.Redis.Enabled),
		zap.Duration("battle_cooldown", cfg.Game.BattleCooldown),
		zap.Duration("challenge_ttl", cfg.Game.ChallengeTTL),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
