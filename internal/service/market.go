package service

import (
	"context"
	"fmt"

	"paca-stakes/internal/network"
	"paca-stakes/internal/stake"
)

// Market is one chain's marketplace listings.
type Market struct {
	Chain    network.Config  `json:"chain"`
	Listings []stake.Listing `json:"listings"`
}

// Withdrawals is one wallet's withdrawal queue on a chain.
type Withdrawals struct {
	Chain   network.Config     `json:"chain"`
	Address string             `json:"address"`
	Items   []stake.Withdrawal `json:"items"`
}

// Market fetches the listings of chain. Unlike stake reads, errors are returned.
func (a *Aggregator) Market(ctx context.Context, chain network.ID) (Market, error) {
	client, err := a.clients.Client(chain)
	if err != nil {
		return Market{}, err
	}
	listings, err := client.Listings(ctx)
	if err != nil {
		return Market{}, fmt.Errorf("%s listings: %w", chain, err)
	}
	return Market{Chain: client.Chain(), Listings: listings}, nil
}

// Withdrawals fetches the withdrawal queue of address on chain, reconciled
// with claim logs. Completed entries are dropped unless showCompleted is set.
func (a *Aggregator) Withdrawals(ctx context.Context, chain network.ID, address string, showCompleted bool) (Withdrawals, error) {
	addr, ok := canonical(address)
	if !ok {
		return Withdrawals{}, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	client, err := a.clients.Client(chain)
	if err != nil {
		return Withdrawals{}, err
	}
	items, err := client.Withdrawals(ctx, addr)
	if err != nil {
		return Withdrawals{}, fmt.Errorf("%s withdrawals: %w", chain, err)
	}
	return Withdrawals{
		Chain:   client.Chain(),
		Address: addr,
		Items:   stake.FilterWithdrawals(items, showCompleted),
	}, nil
}
