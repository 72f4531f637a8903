package fetcher

import (
	"context"
	"math/big"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"paca-stakes/internal/metrics"
	"paca-stakes/internal/network"
	"paca-stakes/internal/stake"
)

// ClientOptions tune a ChainClient.
type ClientOptions struct {
	// RateLimit is the sustained requests per second; zero disables limiting.
	RateLimit float64
	Burst     int
}

// ChainClient wraps one chain's Contract. Stake, reward and pool-rate reads
// never return errors: failures are logged and reported as ok=false with an
// empty or zero value.
type ChainClient struct {
	chain    network.Config
	contract Contract
	limiter  *rate.Limiter
	logger   zerolog.Logger
}

// NewChainClient builds a fail-soft client over contract.
func NewChainClient(chain network.Config, contract Contract, opts ClientOptions, logger zerolog.Logger) *ChainClient {
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	return &ChainClient{
		chain:    chain,
		contract: contract,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger.With().Str("component", "chain_client").Str("chain", string(chain.ID)).Logger(),
	}
}

// Chain returns the descriptor of the wrapped chain.
func (c *ChainClient) Chain() network.Config {
	return c.chain
}

// FetchStakes returns owner's raw stakes; ok is false when the read failed.
func (c *ChainClient) FetchStakes(ctx context.Context, owner string) ([]stake.Raw, bool) {
	var out []stake.Raw
	err := c.do(ctx, "getStakes", func(ctx context.Context) error {
		var err error
		out, err = c.contract.GetStakes(ctx, owner)
		return err
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("address", owner).Msg("fetch stakes failed")
		return nil, false
	}
	return out, true
}

// FetchPendingRewards returns owner's unclaimed rewards. On failure the amount
// is zero and ok is false.
func (c *ChainClient) FetchPendingRewards(ctx context.Context, owner string) (*big.Int, bool) {
	var out *big.Int
	err := c.do(ctx, "viewRewards", func(ctx context.Context) error {
		var err error
		out, err = c.contract.GetPendingRewards(ctx, owner)
		return err
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("address", owner).Msg("fetch rewards failed")
		return new(big.Int), false
	}
	if out == nil {
		return new(big.Int), true
	}
	return out, true
}

// FetchPoolRate returns the pool daily rate; ok is false when the read failed.
func (c *ChainClient) FetchPoolRate(ctx context.Context) (uint64, bool) {
	var out uint64
	err := c.do(ctx, "pool", func(ctx context.Context) error {
		var err error
		out, err = c.contract.GetPoolRate(ctx)
		return err
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("fetch pool rate failed")
		return 0, false
	}
	return out, true
}

// Listings returns the marketplace listings.
func (c *ChainClient) Listings(ctx context.Context) ([]stake.Listing, error) {
	var out []stake.Listing
	err := c.do(ctx, "getAllSellStakesWithKeys", func(ctx context.Context) error {
		var err error
		out, err = c.contract.GetListings(ctx)
		return err
	})
	return out, err
}

// Withdrawals returns owner's withdrawal queue with completed entries
// reconciled against claim logs. A failed log scan leaves entries unreconciled.
func (c *ChainClient) Withdrawals(ctx context.Context, owner string) ([]stake.Withdrawal, error) {
	var ws []stake.Withdrawal
	err := c.do(ctx, "getAllWithdrawStakes", func(ctx context.Context) error {
		var err error
		ws, err = c.contract.GetWithdrawals(ctx, owner)
		return err
	})
	if err != nil {
		return nil, err
	}

	hasCompleted := false
	for _, w := range ws {
		if w.Completed() {
			hasCompleted = true
			break
		}
	}
	if !hasCompleted {
		return ws, nil
	}

	var events map[string]stake.WithdrawnEvent
	err = c.do(ctx, "getLogs", func(ctx context.Context) error {
		var err error
		events, err = c.contract.WithdrawnEvents(ctx, owner)
		return err
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("address", owner).Msg("withdrawal log scan failed")
		return ws, nil
	}
	return stake.Reconcile(ws, events), nil
}

func (c *ChainClient) do(ctx context.Context, method string, fn func(context.Context) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.ObserveRPC(string(c.chain.ID), method, time.Now(), err)
		return err
	}
	started := time.Now()
	err := fn(ctx)
	metrics.ObserveRPC(string(c.chain.ID), method, started, err)
	return err
}
