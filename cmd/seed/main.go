package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"luvrix-giveaway-engine/internal/common/config"
	"luvrix-giveaway-engine/internal/common/logger"
	"luvrix-giveaway-engine/internal/features/giveaway/repository/postgres"
	"luvrix-giveaway-engine/internal/features/giveaway/seed"
	"luvrix-giveaway-engine/internal/features/giveaway/service"
	pgplatform "luvrix-giveaway-engine/internal/platform/postgres"
)

// Command seed loads a YAML giveaway catalog into postgres.
func main() {
	path := flag.String("file", "seed.yaml", "path to the giveaway catalog")
	timeout := flag.Duration("timeout", time.Minute, "overall seed timeout")
	flag.Parse()

	cfg := config.Load()
	logger.Init(logger.Options{Service: cfg.ServiceName + "-seed", Level: cfg.LogLevel, Console: cfg.Debug})

	zlog, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	err = run(cfg, *path, *timeout, zlog)
	if err != nil {
		zlog.Error("Seeding failed", zap.String("file", *path), zap.Error(err))
	}
	_ = zlog.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run owns every resource so deferred cleanup completes before main exits.
func run(cfg *config.Config, path string, timeout time.Duration, zlog *zap.Logger) error {
	if cfg.StorageDriver != config.StorageDriverPostgres {
		return fmt.Errorf("seeding requires STORAGE_DRIVER=postgres, got %q", cfg.StorageDriver)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	catalog, err := seed.Parse(f)
	if err != nil {
		return fmt.Errorf("failed to parse catalog: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := pgplatform.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer client.Close()

	// the schema must exist before inserts, so always migrate
	if err := client.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	db := client.GetDB()
	svc := service.NewGiveawayService(service.Deps{
		Giveaways:    postgres.NewGiveawayRepository(db),
		Participants: postgres.NewParticipantRepository(db),
		Selections:   postgres.NewSelectionRepository(db),
		Config:       cfg,
		Logger:       zlog,
	})

	res, err := seed.Apply(ctx, svc, catalog, zlog)
	if err != nil {
		return fmt.Errorf("seeding stopped after %d giveaways: %w", len(res.Created), err)
	}
	zlog.Info("Seeding finished", zap.Int("created", len(res.Created)))
	return nil
}
