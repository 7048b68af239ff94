package bootstrap

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/target/extranet-gate/internal/devseed"
)

// Run wires the whole gateway together and blocks until SIGINT/SIGTERM
// or a fatal startup error.
func Run(ctx context.Context) error {
	logger := InitLogger()

	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbCfg := DatabaseConfig{DBConfig: cfg.Postgres, RedisConfig: cfg.Redis, Logger: logger}

	db, err := ConnectDB(dbCfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("close database", "error", closeErr)
		}
	}()

	if cfg.Postgres.RunMigrationsOnStart {
		if err := RunMigrations(ctx, db, logger); err != nil {
			return err
		}
	}

	redisClient, err := ConnectRedis(dbCfg)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if closeErr := redisClient.Close(); closeErr != nil {
			logger.Error("close redis", "error", closeErr)
		}
	}()

	adapters, err := BuildAdapters(AdapterDeps{Config: &cfg, RedisClient: redisClient, Logger: logger})
	if err != nil {
		return fmt.Errorf("build adapters: %w", err)
	}

	services, err := BuildServices(ServiceDeps{Config: &cfg, DB: db, Adapters: adapters, Logger: logger})
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}

	if cfg.IsDev {
		if err := devseed.Seed(ctx, db, services.Hasher, logger); err != nil {
			return fmt.Errorf("seed dev account: %w", err)
		}
	}

	server := StartHTTPServer(&HTTPServerConfig{Config: &cfg, Services: services, Logger: logger})

	group, groupCtx := errgroup.WithContext(ctx)

	if cfg.Policy.WatchEnabled {
		group.Go(func() error {
			services.Policy.Watch(groupCtx, cfg.Policy.ReloadInterval)
			return nil
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		// context.Background: the parent context is already done and the
		// shutdown deadline comes from the timeout.
		return ShutdownServer(context.Background(), server, cfg.HTTP.ShutdownTimeout, logger)
	})

	logger.Info("extranet gate running",
		"addr", cfg.HTTP.Addr,
		"protected_domain", cfg.Auth.ProtectedDomain,
		"rules", cfg.Policy.RulesPath,
	)

	return group.Wait()
}
