package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"paca-stakes/internal/network"
	"paca-stakes/internal/stake"
)

// EVMOptions parameterise the on-chain contract reader.
type EVMOptions struct {
	Chain   network.Config
	Timeout time.Duration
	// LogFromBlock bounds the withdrawal event scan; zero scans from genesis.
	LogFromBlock uint64
}

// EVMContract reads the staking contract over JSON-RPC.
type EVMContract struct {
	opts      EVMOptions
	logger    zerolog.Logger
	client    *ethclient.Client
	clientMux sync.Mutex
}

// NewEVMContract builds a contract reader for one chain.
func NewEVMContract(opts EVMOptions, logger zerolog.Logger) *EVMContract {
	return &EVMContract{
		opts:   opts,
		logger: logger.With().Str("component", "evm_contract").Str("chain", string(opts.Chain.ID)).Logger(),
	}
}

// GetStakes returns every stake slot of owner in contract order.
func (c *EVMContract) GetStakes(ctx context.Context, owner string) ([]stake.Raw, error) {
	outputs, err := c.call(ctx, methodGetStakes, common.HexToAddress(owner))
	if err != nil {
		return nil, err
	}
	if len(outputs) != 1 {
		return nil, errors.New("unexpected getStakes response")
	}
	tuples, ok := abi.ConvertType(outputs[0], new([]stakeTuple)).(*[]stakeTuple)
	if !ok {
		return nil, errors.New("failed to decode getStakes output")
	}

	out := make([]stake.Raw, 0, len(*tuples))
	for _, t := range *tuples {
		out = append(out, stake.Raw{
			Amount:          orZero(t.Amount),
			LastClaimed:     toInt64(t.LastClaimed),
			UnlockTime:      toInt64(t.UnlockTime),
			DailyRewardRate: toUint64(t.DailyRewardRate),
			Complete:        t.Complete,
		})
	}
	return out, nil
}

// GetPendingRewards returns the unclaimed reward balance of owner.
func (c *EVMContract) GetPendingRewards(ctx context.Context, owner string) (*big.Int, error) {
	outputs, err := c.call(ctx, methodViewRewards, common.HexToAddress(owner))
	if err != nil {
		return nil, err
	}
	if len(outputs) != 1 {
		return nil, errors.New("unexpected viewRewards response")
	}
	rewards, ok := outputs[0].(*big.Int)
	if !ok {
		return nil, errors.New("failed to decode viewRewards output")
	}
	return rewards, nil
}

// GetPoolRate returns the pool-wide daily reward rate in hundredths of a percent.
func (c *EVMContract) GetPoolRate(ctx context.Context) (uint64, error) {
	data, err := c.rawCall(ctx, methodPool)
	if err != nil {
		return 0, err
	}
	values := make(map[string]any)
	if err := stakingABI.UnpackIntoMap(values, methodPool, data); err != nil {
		return 0, err
	}
	rate, ok := values["dailyRewardRate"].(*big.Int)
	if !ok {
		return 0, errors.New("pool response has no dailyRewardRate")
	}
	return toUint64(rate), nil
}

// GetListings returns every marketplace listing. The four parallel arrays are zipped by index.
func (c *EVMContract) GetListings(ctx context.Context) ([]stake.Listing, error) {
	outputs, err := c.call(ctx, methodSellStakes)
	if err != nil {
		return nil, err
	}
	if len(outputs) != 4 {
		return nil, errors.New("unexpected getAllSellStakesWithKeys response")
	}
	sellers, ok := outputs[0].([]common.Address)
	if !ok {
		return nil, errors.New("failed to decode sellers")
	}
	ids, ok := outputs[1].([]*big.Int)
	if !ok {
		return nil, errors.New("failed to decode stake ids")
	}
	data, ok := abi.ConvertType(outputs[2], new([]sellStakeTuple)).(*[]sellStakeTuple)
	if !ok {
		return nil, errors.New("failed to decode sell stake data")
	}
	pending, ok := outputs[3].([]*big.Int)
	if !ok {
		return nil, errors.New("failed to decode pending rewards")
	}

	out := make([]stake.Listing, 0, len(*data))
	for i, d := range *data {
		l := stake.Listing{
			Price:           orZero(d.Price),
			BonusAmount:     orZero(d.BonusAmount),
			Amount:          orZero(d.Amount),
			PendingRewards:  new(big.Int),
			DailyRewardRate: toUint64(d.DailyRewardRate),
			LastClaimed:     toInt64(d.LastClaimed),
			OrigUnlockTime:  toInt64(d.OrigUnlockTime),
		}
		if i < len(sellers) {
			l.Seller = sellers[i].Hex()
		}
		if i < len(ids) && ids[i] != nil {
			l.StakeID = ids[i].String()
		}
		if i < len(pending) {
			l.PendingRewards = orZero(pending[i])
		}
		out = append(out, l)
	}
	return out, nil
}

// GetWithdrawals returns the withdrawal queue of owner.
func (c *EVMContract) GetWithdrawals(ctx context.Context, owner string) ([]stake.Withdrawal, error) {
	outputs, err := c.call(ctx, methodWithdrawStakes, common.HexToAddress(owner))
	if err != nil {
		return nil, err
	}
	if len(outputs) != 1 {
		return nil, errors.New("unexpected getAllWithdrawStakes response")
	}
	tuples, ok := abi.ConvertType(outputs[0], new([]withdrawTuple)).(*[]withdrawTuple)
	if !ok {
		return nil, errors.New("failed to decode getAllWithdrawStakes output")
	}
	out := make([]stake.Withdrawal, 0, len(*tuples))
	for _, t := range *tuples {
		out = append(out, stake.Withdrawal{
			StakeID:    orZero(t.StakeId).String(),
			Amount:     orZero(t.Amount),
			UnlockTime: toInt64(t.UnlockTime),
		})
	}
	return out, nil
}

// WithdrawnEvents scans claim logs for owner, keyed by stake id. Later logs win.
func (c *EVMContract) WithdrawnEvents(ctx context.Context, owner string) (map[string]stake.WithdrawnEvent, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	event := stakingABI.Events[eventWithdrawn]
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(c.opts.LogFromBlock),
		Addresses: []common.Address{common.HexToAddress(c.opts.Chain.Contract)},
		Topics: [][]common.Hash{
			{event.ID},
			{common.BytesToHash(common.HexToAddress(owner).Bytes())},
		},
	}
	logs, err := client.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("filter %s logs: %w", eventWithdrawn, err)
	}

	out := make(map[string]stake.WithdrawnEvent, len(logs))
	for _, lg := range logs {
		values, err := stakingABI.Unpack(eventWithdrawn, lg.Data)
		if err != nil || len(values) != 3 {
			c.logger.Debug().Err(err).Str("tx", lg.TxHash.Hex()).Msg("skip undecodable withdrawal log")
			continue
		}
		id, _ := values[0].(*big.Int)
		amount, _ := values[1].(*big.Int)
		ts, _ := values[2].(*big.Int)
		if id == nil {
			continue
		}
		out[id.String()] = stake.WithdrawnEvent{Amount: orZero(amount), Timestamp: toInt64(ts)}
	}
	return out, nil
}

func (c *EVMContract) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := c.rawCall(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	return stakingABI.Unpack(method, data)
}

func (c *EVMContract) rawCall(ctx context.Context, method string, args ...any) ([]byte, error) {
	if c.opts.Chain.Contract == "" {
		return nil, ErrNotConfigured
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := stakingABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	addr := common.HexToAddress(c.opts.Chain.Contract)
	res, err := client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: payload}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return res, nil
}

func (c *EVMContract) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

// getClient connects to the primary endpoint, then each fallback in order.
func (c *EVMContract) getClient(ctx context.Context) (*ethclient.Client, error) {
	c.clientMux.Lock()
	defer c.clientMux.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	urls := c.opts.Chain.RPCURLs()
	if len(urls) == 0 {
		return nil, ErrNotConfigured
	}

	var lastErr error
	for _, url := range urls {
		client, err := c.dial(ctx, url)
		if err == nil {
			c.client = client
			return client, nil
		}
		c.logger.Warn().Err(err).Str("rpc", url).Msg("rpc dial failed")
		lastErr = err
	}
	return nil, fmt.Errorf("all rpc endpoints failed: %w", lastErr)
}

// dial connects to url and checks it answers with the configured chain id.
// HTTP dials are lazy, so the chain id request is the first real contact.
func (c *EVMContract) dial(ctx context.Context, url string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	id, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("chain id: %w", err)
	}
	if want := c.opts.Chain.ChainID; want != 0 && (!id.IsUint64() || id.Uint64() != want) {
		client.Close()
		return nil, fmt.Errorf("chain id %s, want %d", id, want)
	}
	return client, nil
}

// Close releases the RPC connection, if any.
func (c *EVMContract) Close() {
	c.clientMux.Lock()
	defer c.clientMux.Unlock()
	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func toInt64(v *big.Int) int64 {
	if v == nil || !v.IsInt64() {
		return 0
	}
	return v.Int64()
}

func toUint64(v *big.Int) uint64 {
	if v == nil || !v.IsUint64() {
		return 0
	}
	return v.Uint64()
}

var _ Contract = (*EVMContract)(nil)
