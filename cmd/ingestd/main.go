// Command ingestd runs the Consumer Orchestrator (spec §4.2): it streams
// blockchain updates, projects them into Postgres through the shared
// supersession/rollback algorithm, and keeps the two Redis cache tiers
// coherent, until the update source closes or the process is signaled.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	"github.com/wavesplatform/asset-catalog/internal/cache"
	"github.com/wavesplatform/asset-catalog/internal/config"
	"github.com/wavesplatform/asset-catalog/internal/ingest"
	"github.com/wavesplatform/asset-catalog/internal/projection"
	"github.com/wavesplatform/asset-catalog/internal/updatestream"
)

var (
	configFileFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "TOML configuration file",
		Required: true,
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=crit, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
		Value: 3,
	}
)

var app = &cli.App{
	Name:   "ingestd",
	Usage:  "project Waves blockchain updates into the asset catalog store",
	Flags:  []cli.Flag{configFileFlag, verbosityFlag},
	Action: run,
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cliCtx *cli.Context) error {
	glogHandler := log.NewGlogHandler(log.NewTerminalHandlerWithLevel(os.Stderr, log.LevelInfo, true))
	glogHandler.Verbosity(log.FromLegacyLevel(cliCtx.Int(verbosityFlag.Name)))
	log.SetDefault(log.NewLogger(glogHandler))

	cfg, err := config.Load(cliCtx.String(configFileFlag.Name))
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	consumer, closeFn, err := buildConsumer(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := consumer.Run(ctx); err != nil {
		if ctx.Err() != nil {
			log.Info("Shutting down", "reason", ctx.Err())
			return nil
		}
		return err
	}
	return nil
}

// buildConsumer wires spec §2's components together: the Postgres-backed
// projection store (migrated up first), the two Redis cache tiers, and the
// gRPC update source, resuming from the store's defensive-rollback height
// (spec §4.2.1).
func buildConsumer(ctx context.Context, cfg config.Config) (*ingest.Consumer, func(), error) {
	if err := projection.Migrate(cfg.Postgres.DSN); err != nil {
		return nil, nil, fmt.Errorf("ingestd: running migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("ingestd: connecting to postgres: %w", err)
	}
	store := projection.NewStore(pool)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	tiers := cache.NewTiers(redisClient, cfg.Redis.BlockchainDataPrefix, cfg.Redis.UserDefinedPrefix, cfg.Redis.KeySeparator)

	consumer := &ingest.Consumer{
		Store:         store,
		Caches:        tiers,
		OracleAddress: cfg.Ingest.OracleAddress,
		ChainID:       cfg.Ingest.ChainID,
	}

	resumeHeight, err := consumer.StartupResumeHeight(ctx, cfg.Source.StartingHeight)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ingestd: resolving resume height: %w", err)
	}

	conn, err := updatestream.Dial(ctx, cfg.Source.Target)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ingestd: dialing update source: %w", err)
	}
	source, err := updatestream.NewGRPCSource(ctx, conn, updatestream.SubscribeOptions{
		FromHeight:   resumeHeight,
		BatchMaxSize: cfg.Source.BatchMaxSize,
		BatchMaxTime: cfg.Source.BatchMaxTime(),
	})
	if err != nil {
		conn.Close()
		pool.Close()
		return nil, nil, fmt.Errorf("ingestd: subscribing to update source: %w", err)
	}
	consumer.Source = source

	closeFn := func() {
		source.Close()
		pool.Close()
		if err := redisClient.Close(); err != nil {
			log.Warn("Closing redis client", "err", err)
		}
	}
	return consumer, closeFn, nil
}
