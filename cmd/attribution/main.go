package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/sponsorworks/attribution/pkg/attribution"
	"github.com/sponsorworks/attribution/pkg/chain"
	"github.com/sponsorworks/attribution/pkg/logger"
	"github.com/sponsorworks/attribution/pkg/metrics"
	"github.com/sponsorworks/attribution/pkg/payout"
	"github.com/sponsorworks/attribution/pkg/server"
	"github.com/sponsorworks/attribution/pkg/store"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	onceFlag := flag.Bool("once", false, "run a single attribution pass and exit")
	listenAddrFlag := flag.String("listen-addr", ":8080", "ops http listen address")
	intervalFlag := flag.Duration("interval", time.Hour, "interval between attribution runs")

	postgresDSNFlag := flag.String("postgres-dsn", "", "Postgres DSN (or set POSTGRES_DSN env var)")
	migrateFlag := flag.Bool("migrate", false, "run database migrations on startup")

	chainEndpointFlag := flag.String("chain-endpoint", "", "chain JSON-RPC endpoint (or set CHAIN_ENDPOINT env var)")
	chainTimeoutFlag := flag.Duration("chain-timeout", 15*time.Second, "per-call timeout for chain requests")
	chainRateFlag := flag.Float64("chain-rate", attribution.DefaultChainRatePerSecond, "max chain requests per second")
	maxConcurrencyFlag := flag.Int("max-concurrency", attribution.DefaultMaxConcurrency, "max sponsor branches processed at once")

	platformAccountFlag := flag.String("platform-account", "", "platform receiving account (or set PLATFORM_ACCOUNT env var)")
	dedicatedPercentFlag := flag.Float64("dedicated-percent", attribution.DefaultDedicatedPercent, "percent of author rewards dedicated to sponsors")
	useCheckpointFlag := flag.Bool("use-checkpoint", false, "bound the reward window by the previous run's checkpoint")

	flag.Parse()

	// Optional .env for local development.
	_ = godotenv.Load()

	if env := os.Getenv("POSTGRES_DSN"); env != "" {
		*postgresDSNFlag = env
	}
	if env := os.Getenv("CHAIN_ENDPOINT"); env != "" {
		*chainEndpointFlag = env
	}
	if env := os.Getenv("PLATFORM_ACCOUNT"); env != "" {
		*platformAccountFlag = env
	}
	if env := os.Getenv("DEDICATED_PERCENT"); env != "" {
		parsed, err := strconv.ParseFloat(env, 64)
		if err != nil {
			return fmt.Errorf("invalid DEDICATED_PERCENT: %w", err)
		}
		*dedicatedPercentFlag = parsed
	}

	log := logger.New(*verboseFlag)
	metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := store.NewPool(ctx, store.Config{
		Logger:        log,
		DSN:           *postgresDSNFlag,
		RunMigrations: *migrateFlag,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()

	chainClient, err := chain.New(chain.Config{
		Logger:      log,
		Endpoint:    *chainEndpointFlag,
		CallTimeout: *chainTimeoutFlag,
	})
	if err != nil {
		return fmt.Errorf("failed to create chain client: %w", err)
	}

	runner, err := attribution.NewRunner(attribution.RunnerConfig{
		Logger:             log,
		Chain:              chainClient,
		Store:              store.New(log, pool),
		Payout:             payout.NewCalculator(),
		PlatformAccount:    *platformAccountFlag,
		DedicatedPercent:   *dedicatedPercentFlag,
		ChainRatePerSecond: *chainRateFlag,
		MaxConcurrency:     *maxConcurrencyFlag,
		UseCheckpoint:      *useCheckpointFlag,
		Interval:           *intervalFlag,
	})
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	if *onceFlag {
		summary, err := runner.Run(ctx)
		if err != nil {
			return err
		}
		log.Info("single run finished",
			"sponsors", summary.Sponsors,
			"processed", summary.Processed,
			"failed", summary.Failed,
			"newly_allocated", summary.NewlyAllocated,
		)
		return nil
	}

	srv, err := server.New(server.Config{
		Logger:     log,
		ListenAddr: *listenAddrFlag,
		Runner:     runner,
		VersionInfo: server.VersionInfo{
			Version: version,
			Commit:  commit,
			Date:    date,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Run(ctx)
}
