package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"paca-stakes/internal/scheduler"
)

// PollerOptions configure the two refresh loops.
type PollerOptions struct {
	RewardsInterval time.Duration
	// FullEvery is the full refresh period in rewards intervals.
	FullEvery    int
	StartupDelay time.Duration
}

type session struct {
	address string
	cancel  context.CancelFunc
	done    sync.WaitGroup
}

// Poller keeps the aggregator current for one active address with a
// rewards-only loop and a slower full-refresh loop.
//
// Every session has a generation number; refreshes issued by a loop are
// committed only while their generation is still the current one, so ticks
// that resolve after Stop or a restart are discarded.
type Poller struct {
	agg    *Aggregator
	opts   PollerOptions
	logger zerolog.Logger

	gen     atomic.Uint64
	mu      sync.Mutex
	current *session
}

// NewPoller builds a poller over agg.
func NewPoller(agg *Aggregator, opts PollerOptions, logger zerolog.Logger) *Poller {
	if opts.RewardsInterval <= 0 {
		opts.RewardsInterval = time.Minute
	}
	if opts.FullEvery < 1 {
		opts.FullEvery = 5
	}
	return &Poller{agg: agg, opts: opts, logger: logger.With().Str("component", "poller").Logger()}
}

// OnCommit registers fn to receive every applied snapshot.
func (p *Poller) OnCommit(fn func(*Snapshot)) {
	p.agg.OnCommit(fn)
}

// Address returns the address being polled, or "" when idle.
func (p *Poller) Address() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return ""
	}
	return p.current.address
}

// Start stops any running session, performs a full refresh for address and
// then polls it until Stop, a later Start or ctx cancellation.
func (p *Poller) Start(ctx context.Context, address string) (*Snapshot, error) {
	p.Stop()
	gen := p.gen.Add(1)

	snap, err := p.agg.RefreshAll(ctx, address, WithGuard(p.guard(gen)))
	if err != nil {
		return snap, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen.Load() != gen || ctx.Err() != nil {
		// Superseded while the initial refresh was in flight.
		return snap, nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s := &session{address: snap.Address, cancel: cancel}
	p.current = s

	rewards := scheduler.New(scheduler.Options{
		Name:         "rewards",
		Interval:     p.opts.RewardsInterval,
		StartupDelay: p.opts.StartupDelay,
	}, p.logger)
	full := scheduler.New(scheduler.Options{
		Name:         "full",
		Interval:     p.opts.RewardsInterval * time.Duration(p.opts.FullEvery),
		StartupDelay: p.opts.StartupDelay,
	}, p.logger)

	s.done.Add(2)
	go func() {
		defer s.done.Done()
		_ = rewards.Run(loopCtx, func(ctx context.Context, _ time.Time) error {
			_, err := p.agg.RefreshRewards(ctx, s.address, WithGuard(p.guard(gen)))
			return err
		})
	}()
	go func() {
		defer s.done.Done()
		_ = full.Run(loopCtx, func(ctx context.Context, _ time.Time) error {
			_, err := p.agg.RefreshAll(ctx, s.address, WithGuard(p.guard(gen)))
			return err
		})
	}()

	p.logger.Info().Str("address", s.address).Uint64("generation", gen).
		Dur("rewards_interval", rewards.Interval()).Dur("full_interval", full.Interval()).
		Msg("polling started")
	return snap, nil
}

// Stop cancels the running session and waits for both loops to exit.
// In-flight refreshes started by the session are discarded when they resolve.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.gen.Add(1)
	s := p.current
	p.current = nil
	p.mu.Unlock()

	if s == nil {
		return
	}
	s.cancel()
	s.done.Wait()
	p.logger.Info().Str("address", s.address).Msg("polling stopped")
}

func (p *Poller) guard(gen uint64) func() bool {
	return func() bool { return p.gen.Load() == gen }
}
