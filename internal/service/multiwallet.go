package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"paca-stakes/internal/network"
	"paca-stakes/internal/stake"
)

// walletConcurrency caps how many wallets are fetched at once.
const walletConcurrency = 4

// WalletSummary is one wallet's totals across chains.
type WalletSummary struct {
	Address string                      `json:"address"`
	Chains  map[network.ID]stake.Totals `json:"chains"`
	Total   stake.Totals                `json:"total"`
}

// MultiWallet computes per-chain totals for each valid address without
// touching the session snapshot. Invalid addresses are skipped.
func (a *Aggregator) MultiWallet(ctx context.Context, addresses []string) []WalletSummary {
	valid := make([]string, 0, len(addresses))
	seen := make(map[string]bool, len(addresses))
	for _, raw := range addresses {
		addr, ok := canonical(raw)
		if !ok {
			a.logger.Debug().Str("address", raw).Msg("skip invalid address in summary")
			continue
		}
		if seen[addr] {
			continue
		}
		seen[addr] = true
		valid = append(valid, addr)
	}

	out := make([]WalletSummary, len(valid))
	var g errgroup.Group
	g.SetLimit(walletConcurrency)
	for i, addr := range valid {
		g.Go(func() error {
			out[i] = a.summarize(ctx, addr)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (a *Aggregator) summarize(ctx context.Context, addr string) WalletSummary {
	results := a.fetchAll(ctx, addr)
	ws := WalletSummary{Address: addr, Chains: make(map[network.ID]stake.Totals, len(results))}
	for _, r := range results {
		ws.Chains[r.chain] = r.totals
		ws.Total = ws.Total.Add(r.totals)
	}
	return ws
}

// Lookup aggregates address across every chain into a standalone snapshot.
// The session snapshot is left untouched.
func (a *Aggregator) Lookup(ctx context.Context, address string) (*Snapshot, error) {
	addr, ok := canonical(address)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	snap := emptySnapshot(addr, 0)
	for _, r := range a.fetchAll(ctx, addr) {
		snap.Stakes[r.chain] = r.stakes
		snap.Totals[r.chain] = r.totals
	}
	snap.UpdatedAt = a.now()
	return snap, nil
}

func (a *Aggregator) fetchAll(ctx context.Context, addr string) []chainResult {
	ids := a.clients.IDs()
	results := make([]chainResult, len(ids))
	var g errgroup.Group
	for i, id := range ids {
		g.Go(func() error {
			results[i] = a.fetchChain(ctx, id, addr)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
