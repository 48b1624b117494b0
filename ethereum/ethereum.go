package ethereum

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/lightlink-network/ll-rollup-api/rollup"
)

// Client reports the settlement height from an L1 node. The height is the
// latest block number minus the configured confirmations.
type Client struct {
	client  *ethclient.Client
	chainId *big.Int
	logger  *slog.Logger
	Opts    *ClientOpts
}

type ClientOpts struct {
	Endpoint      string
	Confirmations uint64
	Logger        *slog.Logger
	Timeout       time.Duration
}

var _ rollup.HeightSource = &Client{}

// NewClient returns a new Ethereum client over HTTP.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}

	client, err := ethclient.Dial(opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	chainId, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chainId: %w", err)
	}

	opts.Logger.Info("Connected to Ethereum", "chainId", chainId, "confirmations", opts.Confirmations)

	return &Client{
		client:  client,
		chainId: chainId,
		logger:  opts.Logger,
		Opts:    &opts,
	}, nil
}

func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainId)
}

func (c *Client) Height(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Opts.Timeout)
	defer cancel()

	number, err := c.client.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get block number: %w", err)
	}
	if number < c.Opts.Confirmations {
		return 0, nil
	}
	return number - c.Opts.Confirmations, nil
}

func (c *Client) Close() {
	c.client.Close()
}
