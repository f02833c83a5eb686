package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/satriojati/storymap/internal/agent"
	"github.com/satriojati/storymap/internal/agent/cache"
	"github.com/satriojati/storymap/internal/buildinfo"
	"github.com/satriojati/storymap/internal/client/repositories/metadata"
	"github.com/satriojati/storymap/internal/logging"
	"github.com/satriojati/storymap/internal/push"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	_ = godotenv.Load()

	logger, err := initLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()
	alog := logging.NewZapLogger(logger)

	cfg := agent.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := initStore(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to initialize cache store", "err", err)
	}
	defer cleanup()

	clientDB, err := sql.Open("sqlite", cfg.ClientDBPath)
	if err != nil {
		log.Fatalw("failed to open client database", "err", err)
	}
	defer clientDB.Close()
	keys := agent.NewMetadataKeySource(metadata.NewSQLiteRepository(clientDB))

	worker := agent.NewWorker(store, push.NewMemoryNotifier(), keys,
		cfg.CacheVersion, cfg.AppOrigin, alog)
	go worker.Run(ctx)
	worker.Activate(ctx)

	if cfg.PushSourceURL != "" {
		src := agent.NewWSSource(cfg.PushSourceURL, alog)
		go src.Run(ctx, worker.Deliver)
	}

	proxy := cache.NewHandler(cache.Routes(cfg.APIOrigin), store, cfg.CacheVersion, nil, alog)
	srv := agent.NewServer(cfg.ListenAddr, worker, proxy, alog)

	if err := srv.ListenAndServe(ctx); err != nil {
		log.Fatalw("agent failed", "err", err)
	}
	proxy.Wait()
	log.Infow("agent stopped")
}

func initLogger() (*zap.Logger, error) {
	if os.Getenv("ENV") == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func initStore(ctx context.Context, cfg *agent.Config) (cache.Store, func(), error) {
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("failed to reach redis: %w", err)
		}
		return cache.NewRedisStore(rdb), func() { _ = rdb.Close() }, nil
	}

	db, err := agent.InitCacheDB(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, nil, err
	}
	return cache.NewSQLiteStore(db), func() { _ = db.Close() }, nil
}
