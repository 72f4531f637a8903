package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"paca-stakes/internal/network"
	"paca-stakes/internal/service"
	"paca-stakes/internal/sorting"
	"paca-stakes/internal/stake"
	"paca-stakes/internal/storage"
)

var errNoAddress = errors.New("no address given and the address book has no current entry")

// StakesOptions configure the stakes command.
type StakesOptions struct {
	Address       string
	Chain         string
	Sort          string
	Desc          bool
	ShowCompleted bool
	Page          int
	PageSize      int
}

// Stakes refreshes every chain for the address and prints one chain's stakes.
func (a *App) Stakes(ctx context.Context, opts StakesOptions) error {
	address, err := a.resolveAddress(ctx, opts.Address)
	if err != nil {
		return err
	}
	c, err := a.newChain()
	if err != nil {
		return err
	}
	defer c.Close()

	cfg, err := chainOrDefault(c.networks, opts.Chain)
	if err != nil {
		return err
	}

	snap, err := c.agg.RefreshAll(ctx, address)
	if err != nil {
		return err
	}
	a.remember(ctx, snap.Address)

	stakes := stake.FilterCompleted(snap.Stakes[cfg.ID], !opts.ShowCompleted)
	stakes = sorting.SortStakes(stakes, sortConfig(opts.Sort, opts.Desc), cfg.Decimals)
	page := sorting.Paginate(len(stakes), opts.Page, opts.PageSize)

	renderSnapshot(a.Out, c.networks, snap)
	fmt.Fprintln(a.Out)
	renderStakes(a.Out, cfg, sorting.Slice(stakes, page), a.now())
	if page.Pages > 1 {
		fmt.Fprintf(a.Out, "page %d/%d (%d stakes)\n", page.Number, page.Pages, page.Total)
	}
	return nil
}

// Watch polls the address until interrupted, reprinting the summary on every commit.
func (a *App) Watch(ctx context.Context, address string) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	address, err := a.resolveAddress(ctx, address)
	if err != nil {
		return err
	}
	c, err := a.newChain()
	if err != nil {
		return err
	}
	defer c.Close()

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer a.closeStore(store)

	poller := service.NewPoller(c.agg, service.PollerOptions{
		RewardsInterval: a.Config.Polling.RewardsInterval,
		FullEvery:       a.Config.Polling.FullEvery,
		StartupDelay:    a.Config.Polling.StartupDelay,
	}, a.Logger)

	if a.Config.Alerting.Enabled {
		release, ok := a.lockAlerting(ctx, store)
		defer release()
		if ok {
			alerter := service.NewRewardsAlerter(a.newNotifier(), c.networks, a.Config.Alerting.Threshold(), a.Config.Alerting.Cooldown, a.Logger).
				RecordTo(store)
			poller.OnCommit(alerter.Observe)
		}
	}
	poller.OnCommit(func(snap *service.Snapshot) {
		renderSnapshot(a.Out, c.networks, snap)
		fmt.Fprintln(a.Out)
	})

	snap, err := poller.Start(ctx, address)
	if err != nil {
		return err
	}
	if err := store.SetCurrent(ctx, snap.Address); err != nil {
		a.Logger.Warn().Err(err).Str("address", snap.Address).Msg("remember address")
	}

	a.Logger.Info().Str("address", snap.Address).Msg("watching wallet")
	<-ctx.Done()
	poller.Stop()
	a.Logger.Info().Msg("watch stopped")
	return nil
}

// lockAlerting takes the Postgres advisory lock so only one watcher sends
// alerts. The bolt backend is single-process and always succeeds.
func (a *App) lockAlerting(ctx context.Context, store storage.Backend) (func(), bool) {
	locker, ok := store.(storage.AdvisoryLocker)
	if !ok {
		return func() {}, true
	}
	release, acquired, err := locker.TryAdvisoryLock(ctx, a.Config.Database.AdvisoryLockKey)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("advisory lock failed; alerting disabled")
		return func() {}, false
	}
	if !acquired {
		a.Logger.Warn().Int64("key", a.Config.Database.AdvisoryLockKey).Msg("another watcher holds the alert lock; alerting disabled")
		return func() {}, false
	}
	return release, true
}

func chainOrDefault(networks *network.Registry, raw string) (network.Config, error) {
	if raw == "" {
		return networks.All()[0], nil
	}
	return networks.Resolve(raw)
}

func sortConfig(key string, desc bool) sorting.Config {
	if key == "" {
		return sorting.Config{}
	}
	cfg := sorting.Config{Key: key, Direction: sorting.Asc}
	if desc {
		cfg.Direction = sorting.Desc
	}
	return cfg
}
