package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/lightlink-network/ll-rollup-api/api"
	"github.com/lightlink-network/ll-rollup-api/database"
	"github.com/lightlink-network/ll-rollup-api/escrow"
	"github.com/lightlink-network/ll-rollup-api/ethereum"
	"github.com/lightlink-network/ll-rollup-api/events"
	"github.com/lightlink-network/ll-rollup-api/keeper"
	"github.com/lightlink-network/ll-rollup-api/memstore"
	"github.com/lightlink-network/ll-rollup-api/metrics"
	"github.com/lightlink-network/ll-rollup-api/rollup"
	"github.com/lightlink-network/ll-rollup-api/verifier"
	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v2"
)

// backend is the state and escrow a deployment runs on.
type backend struct {
	store       rollup.Store
	escrow      rollup.BondEscrow
	issuer      rollup.CredentialIssuer
	funder      api.Funder
	checkpoints keeper.Checkpoints
	genesis     ethereum.GenesisStore
	close       func(ctx context.Context) error
}

func start(c *cli.Context) error {
	// .env is optional, flags and the environment take over without it
	envErr := godotenv.Load()

	level := new(slog.LevelVar)
	if err := level.UnmarshalText([]byte(c.String(flagLogLevel))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting "+appName+" ("+Version+")",
		"Go Version", runtime.Version(),
		"Operating System", runtime.GOOS,
		"Architecture", runtime.GOARCH)
	if envErr != nil {
		logger.Debug("no .env file loaded", "error", envErr)
	}

	// Create context that will be canceled on SIGINT or SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := newBackend(ctx, c, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := b.close(closeCtx); err != nil {
			logger.Error("failed to close backend", "error", err)
		}
	}()

	heights, chainID, closeHeights, err := newHeightSource(ctx, c, b.genesis, logger)
	if err != nil {
		return err
	}
	defer closeHeights()

	oracle, proofVerifier, err := newVerifier(c)
	if err != nil {
		return err
	}

	var recorder *metrics.Recorder
	publishers := events.Multi{events.NewLog(logger)}
	if c.Bool(flagMetrics) {
		recorder = metrics.NewRecorder()
		publishers = append(publishers, recorder)
	}
	if brokers := c.StringSlice(flagKafkaBrokers); len(brokers) > 0 {
		kafka, err := events.NewKafka(events.KafkaOpts{
			Brokers: brokers,
			Topic:   c.String(flagKafkaTopic),
			Logger:  logger,
		})
		if err != nil {
			return err
		}
		defer kafka.Close()
		publishers = append(publishers, kafka)
	}

	engine, err := rollup.NewEngine(rollup.EngineOpts{
		Store:     b.store,
		Escrow:    b.escrow,
		Verifier:  proofVerifier,
		Issuer:    b.issuer,
		Heights:   heights,
		Publisher: publishers,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	provers, err := parseAddresses(c.StringSlice(flagOracleProvers))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", flagOracleProvers, err)
	}
	serverOpts := api.ServerOpts{
		Engine:  engine,
		Oracle:  oracle,
		Provers: provers,
		ChainID: chainID,
		Logger:  logger.With("component", "api-server"),
		Port:    c.String(flagPort),
	}
	if recorder != nil {
		serverOpts.Metrics = recorder
	}
	if c.Bool(flagFaucet) {
		logger.Warn("escrow faucet enabled, do not use in production")
		serverOpts.Funder = b.funder
	}
	server, err := api.NewServer(serverOpts)
	if err != nil {
		return fmt.Errorf("failed to create api server: %w", err)
	}

	errChan := make(chan error, 2)
	running := 1
	go func() {
		errChan <- server.StartServer(ctx)
	}()

	if interval := c.Duration(flagKeeperInterval); interval > 0 {
		keeperOpts := keeper.KeeperOpts{
			Engine:      engine,
			Checkpoints: b.checkpoints,
			Interval:    interval,
			Logger:      logger,
		}
		if recorder != nil {
			keeperOpts.Metrics = recorder
		}
		k, err := keeper.NewKeeper(keeperOpts)
		if err != nil {
			return err
		}
		running++
		go func() {
			errChan <- k.Run(ctx)
		}()
	}

	// Wait for the first component to stop, then shut the others down
	var runErr error
	for i := 0; i < running; i++ {
		err := <-errChan
		if err != nil && !errors.Is(err, context.Canceled) && runErr == nil {
			runErr = err
			logger.Error("component stopped", "error", err)
		}
		stop()
	}
	logger.Info("Shut down gracefully")
	return runErr
}

// newHeightSource returns the L1 client when an RPC is configured, with its
// chain id, and a wall clock anchored to a persisted genesis otherwise.
func newHeightSource(ctx context.Context, c *cli.Context, genesis ethereum.GenesisStore, logger *slog.Logger) (rollup.HeightSource, *big.Int, func(), error) {
	endpoint := c.String(flagEthereumRPC)
	if endpoint == "" {
		blockTime := c.Duration(flagBlockTime)
		if blockTime <= 0 {
			return nil, nil, nil, errors.New("block time must be positive")
		}
		var configured time.Time
		if v := c.String(flagClockGenesis); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("invalid %s: %w", flagClockGenesis, err)
			}
			configured = t
		}
		start, err := ethereum.LoadGenesis(ctx, genesis, configured, time.Now())
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("No Ethereum RPC configured, deriving heights from the clock",
			"blockTime", blockTime, "genesis", start.UTC().Format(time.RFC3339))
		return ethereum.NewClock(start, blockTime), nil, func() {}, nil
	}

	client, err := ethereum.NewClient(ethereum.ClientOpts{
		Endpoint:      endpoint,
		Confirmations: c.Uint64(flagConfirmations),
		Logger:        logger.With("component", "ethereum"),
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return client, client.ChainID(), client.Close, nil
}

func parseAddresses(values []string) ([]common.Address, error) {
	addrs := make([]common.Address, 0, len(values))
	for _, v := range values {
		if !common.IsHexAddress(v) {
			return nil, fmt.Errorf("%q is not an address", v)
		}
		addrs = append(addrs, common.HexToAddress(v))
	}
	return addrs, nil
}

func newBackend(ctx context.Context, c *cli.Context, logger *slog.Logger) (*backend, error) {
	switch c.String(flagStore) {
	case storeMemory:
		logger.Warn("Using in-memory store, state is lost on restart")
		ledger := escrow.NewLedger()
		return &backend{
			store:  memstore.New(),
			escrow: ledger,
			issuer: escrow.NewCredentials(),
			funder: api.FunderFunc(func(_ context.Context, account common.Address, amount uint64) error {
				return ledger.Fund(account, amount)
			}),
			close: func(context.Context) error { return nil },
		}, nil

	case storeMongo:
		db, err := database.NewDatabase(database.DatabaseOpts{
			URI:          c.String(flagDatabaseURI),
			DatabaseName: c.String(flagDatabaseName),
			Logger:       logger,
		})
		if err != nil {
			return nil, err
		}
		if err := db.CreateIndexes(ctx); err != nil {
			db.Close(ctx)
			return nil, err
		}
		esc := db.Escrow()
		return &backend{
			store:       db,
			escrow:      esc,
			issuer:      db.Credentials(),
			funder:      api.FunderFunc(esc.Fund),
			checkpoints: db,
			genesis:     db,
			close:       db.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store %q", c.String(flagStore))
	}
}

// newVerifier returns the oracle when verdicts are posted over the api.
func newVerifier(c *cli.Context) (*verifier.Oracle, rollup.ProofVerifier, error) {
	switch c.String(flagVerifierMode) {
	case verifierOracle:
		oracle, err := verifier.NewOracle(c.Int(flagVerifierCache))
		if err != nil {
			return nil, nil, err
		}
		return oracle, oracle, nil
	case verifierCommitment:
		v, err := verifier.NewCommitment(verifier.KeccakTransition)
		if err != nil {
			return nil, nil, err
		}
		return nil, v, nil
	default:
		return nil, nil, fmt.Errorf("unknown verifier %q", c.String(flagVerifierMode))
	}
}
