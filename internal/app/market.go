package app

import (
	"context"

	"paca-stakes/internal/sorting"
)

// MarketOptions configure the market command.
type MarketOptions struct {
	Chain string
	Sort  string
	Desc  bool
}

// Market prints the chain's marketplace listings.
func (a *App) Market(ctx context.Context, opts MarketOptions) error {
	c, err := a.newChain()
	if err != nil {
		return err
	}
	defer c.Close()

	cfg, err := chainOrDefault(c.networks, opts.Chain)
	if err != nil {
		return err
	}
	m, err := c.agg.Market(ctx, cfg.ID)
	if err != nil {
		return err
	}
	now := a.now()
	renderListings(a.Out, m.Chain, sorting.SortListings(m.Listings, sortConfig(opts.Sort, opts.Desc), m.Chain.Decimals, now), now)
	return nil
}

// WithdrawalsOptions configure the withdrawals command.
type WithdrawalsOptions struct {
	Address       string
	Chain         string
	Sort          string
	Desc          bool
	ShowCompleted bool
}

// Withdrawals prints the address's withdrawal queue on one chain.
func (a *App) Withdrawals(ctx context.Context, opts WithdrawalsOptions) error {
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
	w, err := c.agg.Withdrawals(ctx, cfg.ID, address, opts.ShowCompleted)
	if err != nil {
		return err
	}
	renderWithdrawals(a.Out, w.Chain, sorting.SortWithdrawals(w.Items, sortConfig(opts.Sort, opts.Desc), w.Chain.Decimals), a.now())
	return nil
}

// Rates prints the pool daily rate of every chain.
func (a *App) Rates(ctx context.Context) error {
	c, err := a.newChain()
	if err != nil {
		return err
	}
	defer c.Close()

	renderRates(a.Out, c.networks, c.agg.PoolRates(ctx))
	return nil
}
