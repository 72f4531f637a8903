package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"paca-stakes/internal/fetcher"
	"paca-stakes/internal/metrics"
	"paca-stakes/internal/network"
	"paca-stakes/internal/stake"
)

var (
	// ErrInvalidAddress is returned for a malformed wallet address. The cache is cleared.
	ErrInvalidAddress = errors.New("invalid wallet address")
	// ErrAggregation reports an unexpected failure while merging results. The stake lists are cleared.
	ErrAggregation = errors.New("failed to aggregate chain data")
)

type refreshOptions struct {
	guard func() bool
}

// RefreshOption adjusts a single refresh call.
type RefreshOption func(*refreshOptions)

// WithGuard drops the refresh result when guard returns false at commit time.
func WithGuard(guard func() bool) RefreshOption {
	return func(o *refreshOptions) { o.guard = guard }
}

// chainResult is one chain's fetched data before commit.
type chainResult struct {
	chain  network.ID
	stakes []stake.Normalized
	totals stake.Totals
}

// Aggregator owns the wallet snapshot and every mutation of it.
//
// Each refresh is stamped with the epoch of the address it was issued for and a
// global sequence number. A result is applied only while the epoch is unchanged
// and only to chains that do not already hold data from a later-started refresh.
type Aggregator struct {
	clients *fetcher.Registry
	logger  zerolog.Logger

	snap atomic.Pointer[Snapshot]
	seq  atomic.Uint64

	mu         sync.Mutex
	dataSeq    map[network.ID]uint64
	rewardsSeq map[network.ID]uint64
	hooks      []func(*Snapshot)
	published  uint64

	// notifyMu serializes hook delivery; notified is the last stamp delivered.
	notifyMu sync.Mutex
	notified uint64

	rates *rateCache
	now   func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the clock used to stamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithPoolRateTTL sets how long pool rates are cached.
func WithPoolRateTTL(ttl time.Duration) Option {
	return func(a *Aggregator) { a.rates = newRateCache(ttl) }
}

// New constructs an Aggregator over the given chain clients.
func New(clients *fetcher.Registry, logger zerolog.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		clients:    clients,
		logger:     logger.With().Str("component", "aggregator").Logger(),
		dataSeq:    map[network.ID]uint64{},
		rewardsSeq: map[network.ID]uint64{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rates == nil {
		a.rates = newRateCache(5 * time.Minute)
	}
	a.snap.Store(emptySnapshot("", 0))
	return a
}

// OnCommit registers fn to receive published snapshots in publication order.
// A snapshot overtaken by a newer one before delivery is skipped. A panicking
// hook is logged and does not affect other hooks.
func (a *Aggregator) OnCommit(fn func(*Snapshot)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, fn)
}

// Snapshot returns the current published view.
func (a *Aggregator) Snapshot() *Snapshot {
	return a.snap.Load()
}

// Stakes returns the cached stakes of chain, optionally without completed ones.
func (a *Aggregator) Stakes(chain network.ID, hideCompleted bool) []stake.Normalized {
	return stake.FilterCompleted(a.Snapshot().Stakes[chain], hideCompleted)
}

// Reset discards all cached data.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	snap := a.rebindLocked("")
	hooks, stamp := a.publishLocked()
	a.mu.Unlock()
	a.notify(hooks, stamp, snap)
}

// RefreshAll fetches stakes and rewards on every chain concurrently and
// publishes them in one step.
func (a *Aggregator) RefreshAll(ctx context.Context, address string, opts ...RefreshOption) (*Snapshot, error) {
	return a.refresh(ctx, metrics.KindFull, address, a.clients.IDs(), opts)
}

// RefreshChain fetches one chain and leaves the others untouched.
func (a *Aggregator) RefreshChain(ctx context.Context, chain network.ID, address string, opts ...RefreshOption) (*Snapshot, error) {
	if _, err := a.clients.Client(chain); err != nil {
		return a.Snapshot(), err
	}
	return a.refresh(ctx, metrics.KindChain, address, []network.ID{chain}, opts)
}

// SwitchChain serves chain from cache, refreshing only its rewards, or fetches it when not cached yet.
func (a *Aggregator) SwitchChain(ctx context.Context, chain network.ID, address string, opts ...RefreshOption) (*Snapshot, error) {
	addr, ok := canonical(address)
	snap := a.Snapshot()
	if ok && snap.Address == addr && snap.Has(chain) {
		return a.refreshRewards(ctx, snap, []network.ID{chain}, opts)
	}
	return a.RefreshChain(ctx, chain, address, opts...)
}

// RefreshRewards re-reads pending rewards for every cached chain and updates
// only the rewards field of their totals.
func (a *Aggregator) RefreshRewards(ctx context.Context, address string, opts ...RefreshOption) (*Snapshot, error) {
	addr, ok := canonical(address)
	if !ok {
		return a.invalid(metrics.KindRewards, address)
	}
	snap := a.Snapshot()
	if snap.Address != addr {
		// Nothing cached for this address; rewards alone cannot seed the cache.
		return snap, nil
	}
	var chains []network.ID
	for _, id := range a.clients.IDs() {
		if snap.Has(id) {
			chains = append(chains, id)
		}
	}
	return a.refreshRewards(ctx, snap, chains, opts)
}

func (a *Aggregator) refresh(ctx context.Context, kind, address string, chains []network.ID, opts []RefreshOption) (*Snapshot, error) {
	addr, ok := canonical(address)
	if !ok {
		return a.invalid(kind, address)
	}
	o := applyOptions(opts)

	epoch := a.bind(addr)
	seq := a.seq.Add(1)

	results := make([]chainResult, len(chains))
	var g errgroup.Group
	for i, id := range chains {
		g.Go(func() error {
			results[i] = a.fetchChain(ctx, id, addr)
			return nil
		})
	}
	_ = g.Wait()

	return a.commit(kind, epoch, seq, o, func(next *Snapshot) bool {
		applied := false
		for _, r := range results {
			if seq <= a.dataSeq[r.chain] {
				continue
			}
			a.dataSeq[r.chain] = seq
			totals := r.totals
			if seq > a.rewardsSeq[r.chain] {
				a.rewardsSeq[r.chain] = seq
			} else if prev, ok := next.Totals[r.chain]; ok {
				totals.Rewards = prev.Rewards
			}
			next.Stakes[r.chain] = r.stakes
			next.Totals[r.chain] = totals
			applied = true
		}
		return applied
	})
}

// refreshRewards reads rewards for chains on behalf of the address and epoch of base.
func (a *Aggregator) refreshRewards(ctx context.Context, base *Snapshot, chains []network.ID, opts []RefreshOption) (*Snapshot, error) {
	o := applyOptions(opts)
	addr, epoch := base.Address, base.Epoch
	seq := a.seq.Add(1)

	rewards := make([]decimal.Decimal, len(chains))
	var g errgroup.Group
	for i, id := range chains {
		g.Go(func() error {
			rewards[i] = a.fetchRewards(ctx, id, addr)
			return nil
		})
	}
	_ = g.Wait()

	return a.commit(metrics.KindRewards, epoch, seq, o, func(next *Snapshot) bool {
		applied := false
		for i, id := range chains {
			totals, ok := next.Totals[id]
			if !ok || seq <= a.rewardsSeq[id] {
				continue
			}
			a.rewardsSeq[id] = seq
			totals.Rewards = rewards[i]
			next.Totals[id] = totals
			applied = true
		}
		return applied
	})
}

// commit applies merge to a copy of the current snapshot and publishes it.
// merge runs under the commit lock and reports whether anything changed.
func (a *Aggregator) commit(kind string, epoch, seq uint64, o refreshOptions, merge func(*Snapshot) bool) (*Snapshot, error) {
	a.mu.Lock()
	current := a.snap.Load()
	if current.Epoch != epoch || (o.guard != nil && !o.guard()) {
		a.mu.Unlock()
		metrics.ObserveRefresh(kind, metrics.ResultStale)
		a.logger.Debug().Str("kind", kind).Uint64("seq", seq).Msg("discard stale refresh")
		return current, nil
	}

	next, applied, err := a.mergeLocked(current, merge)
	if err != nil {
		next = emptySnapshot(current.Address, current.Epoch)
		next.Totals = current.Totals
	} else if !applied {
		a.mu.Unlock()
		metrics.ObserveRefresh(kind, metrics.ResultStale)
		a.logger.Debug().Str("kind", kind).Uint64("seq", seq).Msg("refresh superseded on every chain")
		return current, nil
	}
	next.UpdatedAt = a.now()
	a.snap.Store(next)
	hooks, stamp := a.publishLocked()
	a.mu.Unlock()

	if err != nil {
		metrics.ObserveRefresh(kind, metrics.ResultFailed)
		a.logger.Error().Err(err).Str("kind", kind).Msg("aggregation failed")
	} else {
		metrics.ObserveRefresh(kind, metrics.ResultApplied)
		a.logger.Info().Str("kind", kind).Str("address", next.Address).Uint64("seq", seq).Msg("snapshot committed")
	}
	a.notify(hooks, stamp, next)
	return next, err
}

// mergeLocked runs merge on a clone of current. A panic in merge is returned
// as ErrAggregation. The caller holds a.mu.
func (a *Aggregator) mergeLocked(current *Snapshot, merge func(*Snapshot) bool) (next *Snapshot, applied bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			next, applied, err = nil, false, fmt.Errorf("%w: %v", ErrAggregation, r)
		}
	}()
	next = current.clone()
	return next, merge(next), nil
}

// publishLocked stamps the snapshot just stored for delivery. The caller holds a.mu.
func (a *Aggregator) publishLocked() ([]func(*Snapshot), uint64) {
	a.published++
	return a.hooks, a.published
}

// bind makes addr the session address, discarding the cache when it changes.
func (a *Aggregator) bind(addr string) uint64 {
	a.mu.Lock()
	current := a.snap.Load()
	if current.Address == addr {
		a.mu.Unlock()
		return current.Epoch
	}
	snap := a.rebindLocked(addr)
	hooks, stamp := a.publishLocked()
	a.mu.Unlock()
	a.notify(hooks, stamp, snap)
	return snap.Epoch
}

func (a *Aggregator) rebindLocked(addr string) *Snapshot {
	snap := emptySnapshot(addr, a.snap.Load().Epoch+1)
	snap.UpdatedAt = a.now()
	a.dataSeq = map[network.ID]uint64{}
	a.rewardsSeq = map[network.ID]uint64{}
	a.snap.Store(snap)
	return snap
}

func (a *Aggregator) invalid(kind, address string) (*Snapshot, error) {
	a.mu.Lock()
	snap := a.rebindLocked("")
	hooks, stamp := a.publishLocked()
	a.mu.Unlock()
	a.notify(hooks, stamp, snap)
	metrics.ObserveRefresh(kind, metrics.ResultInvalid)
	return snap, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
}

// fetchChain runs the stakes then rewards pair for one chain. A failure or
// panic in either call yields zero totals and no stakes for that chain only.
func (a *Aggregator) fetchChain(ctx context.Context, id network.ID, addr string) (res chainResult) {
	res = chainResult{chain: id, stakes: []stake.Normalized{}}
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().Interface("panic", r).Str("chain", string(id)).Str("address", addr).Msg("chain fetch panicked")
			res = chainResult{chain: id, stakes: []stake.Normalized{}}
		}
	}()

	client, err := a.clients.Client(id)
	if err != nil {
		return res
	}
	raw, ok := client.FetchStakes(ctx, addr)
	if !ok {
		return res
	}
	pending, ok := client.FetchPendingRewards(ctx, addr)
	if !ok {
		return res
	}
	decimals := client.Chain().Decimals
	stakes := stake.Normalize(raw, decimals)
	return chainResult{chain: id, stakes: stakes, totals: stake.ComputeTotals(stakes, stake.ToDecimal(pending, decimals))}
}

func (a *Aggregator) fetchRewards(ctx context.Context, id network.ID, addr string) (out decimal.Decimal) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().Interface("panic", r).Str("chain", string(id)).Msg("rewards fetch panicked")
			out = decimal.Zero
		}
	}()
	client, err := a.clients.Client(id)
	if err != nil {
		return decimal.Zero
	}
	pending, _ := client.FetchPendingRewards(ctx, addr)
	return stake.ToDecimal(pending, client.Chain().Decimals)
}

func applyOptions(opts []RefreshOption) refreshOptions {
	var o refreshOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// notify delivers snap to hooks unless a later publication was already delivered.
func (a *Aggregator) notify(hooks []func(*Snapshot), stamp uint64, snap *Snapshot) {
	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()
	if stamp <= a.notified {
		return
	}
	a.notified = stamp
	for _, fn := range hooks {
		a.runHook(fn, snap)
	}
}

func (a *Aggregator) runHook(fn func(*Snapshot), snap *Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().Interface("panic", r).Str("address", snap.Address).Msg("commit hook panicked")
		}
	}()
	fn(snap)
}

// canonical validates a wallet address and returns its checksummed form.
func canonical(address string) (string, bool) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return "", false
	}
	return common.HexToAddress(address).Hex(), true
}

// ValidAddress reports whether address is a well-formed account address.
func ValidAddress(address string) bool {
	_, ok := canonical(address)
	return ok
}
