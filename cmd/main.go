package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

const appName = "ll-rollup-api"

// Version will be set at build time
var Version = "development"

const (
	flagDatabaseURI     = "database-uri"
	flagDatabaseName    = "database-name"
	flagStore           = "store"
	flagPort            = "port"
	flagEthereumRPC     = "ethereum-rpc"
	flagConfirmations   = "confirmations"
	flagBlockTime       = "block-time"
	flagClockGenesis    = "clock-genesis"
	flagKeeperInterval  = "keeper-interval"
	flagKafkaBrokers    = "kafka-brokers"
	flagKafkaTopic      = "kafka-topic"
	flagVerifierMode    = "verifier"
	flagVerifierCache   = "verifier-cache-size"
	flagOracleProvers   = "oracle-provers"
	flagMetrics         = "metrics"
	flagFaucet          = "faucet"
	flagLogLevel        = "log-level"
	storeMemory         = "memory"
	storeMongo          = "mongo"
	verifierOracle      = "oracle"
	verifierCommitment  = "commitment"
	defaultKafkaTopic   = "ll-rollup-events"
	defaultBlockTime    = 12 * time.Second
	defaultKeeperPeriod = 30 * time.Second
)

func main() {
	app := cli.NewApp()
	app.Name = appName
	app.Usage = "Optimistic rollup registry, batch pipeline, challenge arbiter and bridge ledger"
	app.Version = Version

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    flagStore,
			Usage:   "State backend: memory or mongo",
			Value:   storeMemory,
			EnvVars: []string{"STORE"},
		},
		&cli.StringFlag{
			Name:    flagDatabaseURI,
			Usage:   "MongoDB connection `URI` (replica set required)",
			EnvVars: []string{"DATABASE_URI"},
		},
		&cli.StringFlag{
			Name:    flagDatabaseName,
			Usage:   "MongoDB database name",
			Value:   "ll-rollup",
			EnvVars: []string{"DATABASE_NAME"},
		},
		&cli.StringFlag{
			Name:    flagPort,
			Usage:   "API server `PORT`",
			Value:   "8080",
			EnvVars: []string{"API_PORT"},
		},
		&cli.StringFlag{
			Name:    flagEthereumRPC,
			Usage:   "Ethereum RPC `URL` used as height source. Without it heights come from the wall clock",
			EnvVars: []string{"ETHEREUM_RPC_URL"},
		},
		&cli.Uint64Flag{
			Name:    flagConfirmations,
			Usage:   "Blocks subtracted from the Ethereum head",
			EnvVars: []string{"ETHEREUM_CONFIRMATIONS"},
		},
		&cli.DurationFlag{
			Name:    flagBlockTime,
			Usage:   "Duration of one height when no Ethereum RPC is configured",
			Value:   defaultBlockTime,
			EnvVars: []string{"CLOCK_BLOCK_TIME"},
		},
		&cli.StringFlag{
			Name:    flagClockGenesis,
			Usage:   "RFC3339 `TIME` of clock height 0. Defaults to the genesis stored in MongoDB, or the start time",
			EnvVars: []string{"CLOCK_GENESIS"},
		},
		&cli.DurationFlag{
			Name:    flagKeeperInterval,
			Usage:   "Interval between finalizer and resolver sweeps, 0 disables the keeper",
			Value:   defaultKeeperPeriod,
			EnvVars: []string{"KEEPER_INTERVAL"},
		},
		&cli.StringSliceFlag{
			Name:    flagKafkaBrokers,
			Usage:   "Kafka brokers to publish lifecycle events to",
			EnvVars: []string{"KAFKA_BROKERS"},
		},
		&cli.StringFlag{
			Name:    flagKafkaTopic,
			Usage:   "Kafka topic for lifecycle events",
			Value:   defaultKafkaTopic,
			EnvVars: []string{"KAFKA_TOPIC"},
		},
		&cli.StringFlag{
			Name:    flagVerifierMode,
			Usage:   "Fraud proof verifier: oracle or commitment",
			Value:   verifierOracle,
			EnvVars: []string{"VERIFIER_MODE"},
		},
		&cli.IntFlag{
			Name:    flagVerifierCache,
			Usage:   "Number of oracle verdicts kept in memory",
			Value:   4096,
			EnvVars: []string{"VERIFIER_CACHE_SIZE"},
		},
		&cli.StringSliceFlag{
			Name:    flagOracleProvers,
			Usage:   "Addresses allowed to sign oracle verdicts. Empty accepts any signer",
			EnvVars: []string{"ORACLE_PROVERS"},
		},
		&cli.BoolFlag{
			Name:    flagMetrics,
			Usage:   "Serve prometheus metrics on /metrics",
			Value:   true,
			EnvVars: []string{"METRICS_ENABLED"},
		},
		&cli.BoolFlag{
			Name:    flagFaucet,
			Usage:   "Enable the escrow faucet endpoint (development only)",
			EnvVars: []string{"FAUCET_ENABLED"},
		},
		&cli.StringFlag{
			Name:    flagLogLevel,
			Usage:   "Log level: debug, info, warn or error",
			Value:   "info",
			EnvVars: []string{"LOG_LEVEL"},
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:   "version",
			Usage:  "Application version and build",
			Action: versionCmd,
		},
		{
			Name:   "run",
			Usage:  "Run the rollup api and keeper",
			Action: start,
			Flags:  flags,
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Printf("\nError: %v\n", err)
		os.Exit(1)
	}
}
