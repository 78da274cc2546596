package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"dwello.app/dealroom/common/id"
	"dwello.app/dealroom/common/logger"
	"dwello.app/dealroom/core/config"
	"dwello.app/dealroom/core/db"
	"dwello.app/dealroom/internal/expirer"
	"dwello.app/dealroom/internal/service"
	"dwello.app/dealroom/internal/store"
	"dwello.app/dealroom/internal/stream"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeExpirer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", banner)
	logger.Setup(cfg)

	slog.InfoContext(ctx, "dealroom expirer starting",
		"env", cfg.Env,
		"ttl", cfg.Expirer.TTL,
		"interval", cfg.Expirer.Interval)

	// Use a different node ID than the server so snowflakes never collide.
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Stream.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "key_prefix", cfg.Stream.KeyPrefix)

	// Expiry messages reach live subscribers the same way user actions do.
	publisher := stream.NewPublisher(redisClient, cfg.Stream.KeyPrefix, cfg.Stream.MaxLen)
	defer publisher.Close()

	stores := store.NewStores(database.Queries())

	proposalService := service.NewProposalService(
		stores.Conversations(),
		stores.Proposals(),
		service.NewTxRunner(database),
		publisher,
		cfg.Retry,
	)

	e := expirer.New(stores.Proposals(), proposalService, cfg.Expirer)

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Run(ctx)
	}()

	slog.InfoContext(ctx, "expirer initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.InfoContext(ctx, "shutting down...")
		e.Stop()
	case err := <-errCh:
		if err != nil {
			slog.ErrorContext(ctx, "expirer error", "error", err)
			os.Exit(1)
		}
	}

	slog.InfoContext(ctx, "shutdown complete")
}

const banner = `
██████╗ ███████╗ █████╗ ██╗     ██████╗  ██████╗  ██████╗ ███╗   ███╗
██╔══██╗██╔════╝██╔══██╗██║     ██╔══██╗██╔═══██╗██╔═══██╗████╗ ████║
██║  ██║█████╗  ███████║██║     ██████╔╝██║   ██║██║   ██║██╔████╔██║
██║  ██║██╔══╝  ██╔══██║██║     ██╔══██╗██║   ██║██║   ██║██║╚██╔╝██║
██████╔╝███████╗██║  ██║███████╗██║  ██║╚██████╔╝╚██████╔╝██║ ╚═╝ ██║
╚═════╝ ╚══════╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝ ╚═════╝  ╚═════╝ ╚═╝     ╚═╝
                                                       e x p i r e r
`
