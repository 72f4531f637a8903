package fetcher

import (
	"context"
	"errors"
	"math/big"

	"paca-stakes/internal/stake"
)

// ErrNotConfigured is returned when a chain has no RPC endpoint or contract.
var ErrNotConfigured = errors.New("chain rpc or contract not configured")

// Contract is the read-only capability set of one staking contract deployment.
type Contract interface {
	GetStakes(ctx context.Context, owner string) ([]stake.Raw, error)
	GetPendingRewards(ctx context.Context, owner string) (*big.Int, error)
	GetPoolRate(ctx context.Context) (uint64, error)
	GetListings(ctx context.Context) ([]stake.Listing, error)
	GetWithdrawals(ctx context.Context, owner string) ([]stake.Withdrawal, error)
	WithdrawnEvents(ctx context.Context, owner string) (map[string]stake.WithdrawnEvent, error)
}
