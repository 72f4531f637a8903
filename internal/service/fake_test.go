package service

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"paca-stakes/internal/fetcher"
	"paca-stakes/internal/network"
	"paca-stakes/internal/stake"
)

const (
	addrX = "0x00000000000000000000000000000000000000aa"
	addrY = "0x00000000000000000000000000000000000000bb"
)

var errDown = errors.New("rpc down")

// fakeContract serves per-address data. Stakes and rewards can be swapped at
// runtime and calls can be held on a gate to control completion order.
type fakeContract struct {
	mu      sync.Mutex
	stakes  map[string][]stake.Raw
	rewards map[string]*big.Int
	gates   map[string]chan struct{}
	rate    uint64
	fail    bool
	panics  bool
	// stakesDown fails only GetStakes.
	stakesDown bool

	listings    []stake.Listing
	withdrawals []stake.Withdrawal

	stakeCalls  atomic.Int32
	rewardCalls atomic.Int32
	rateCalls   atomic.Int32
}

func newFake() *fakeContract {
	return &fakeContract{
		stakes:  map[string][]stake.Raw{},
		rewards: map[string]*big.Int{},
		gates:   map[string]chan struct{}{},
		rate:    33,
	}
}

func (f *fakeContract) set(owner string, rewards int64, amounts ...int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw := make([]stake.Raw, 0, len(amounts))
	for i, a := range amounts {
		raw = append(raw, stake.Raw{Amount: big.NewInt(a), DailyRewardRate: 33, UnlockTime: int64(1000 + i)})
	}
	f.stakes[strings.ToLower(owner)] = raw
	f.rewards[strings.ToLower(owner)] = big.NewInt(rewards)
}

// hold makes the next GetStakes for owner block until the returned func is called.
func (f *fakeContract) hold(owner string) func() {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[strings.ToLower(owner)] = ch
	f.mu.Unlock()
	return func() { close(ch) }
}

func (f *fakeContract) GetStakes(ctx context.Context, owner string) ([]stake.Raw, error) {
	f.stakeCalls.Add(1)
	key := strings.ToLower(owner)
	f.mu.Lock()
	gate := f.gates[key]
	delete(f.gates, key)
	raw := f.stakes[key]
	fail, panics := f.fail || f.stakesDown, f.panics
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if panics {
		panic("boom")
	}
	if fail {
		return nil, errDown
	}
	return raw, nil
}

func (f *fakeContract) GetPendingRewards(_ context.Context, owner string) (*big.Int, error) {
	f.rewardCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errDown
	}
	if v, ok := f.rewards[strings.ToLower(owner)]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

func (f *fakeContract) GetPoolRate(context.Context) (uint64, error) {
	f.rateCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return 0, errDown
	}
	return f.rate, nil
}

func (f *fakeContract) GetListings(context.Context) ([]stake.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errDown
	}
	return f.listings, nil
}

func (f *fakeContract) GetWithdrawals(context.Context, string) ([]stake.Withdrawal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.withdrawals, nil
}

func (f *fakeContract) WithdrawnEvents(context.Context, string) (map[string]stake.WithdrawnEvent, error) {
	return nil, nil
}

type testEnv struct {
	agg   *Aggregator
	fakes map[network.ID]*fakeContract
}

// newEnv wires an aggregator over the three built-in chains with zero decimals.
func newEnv() *testEnv {
	env := &testEnv{fakes: map[network.ID]*fakeContract{}}
	var clients []*fetcher.ChainClient
	for _, id := range []network.ID{network.BSC, network.Base, network.Sonic} {
		f := newFake()
		env.fakes[id] = f
		clients = append(clients, fetcher.NewChainClient(network.Config{ID: id, Decimals: 0}, f, fetcher.ClientOptions{}, zerolog.Nop()))
	}
	env.agg = New(fetcher.NewRegistry(clients...), zerolog.Nop())
	return env
}

func (e *testEnv) setAll(owner string, rewards int64, amounts ...int64) {
	for _, f := range e.fakes {
		f.set(owner, rewards, amounts...)
	}
}

func lowerAddr(addr string) string {
	return strings.ToLower(addr)
}
