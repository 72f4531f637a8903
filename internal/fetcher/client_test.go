package fetcher

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"paca-stakes/internal/network"
	"paca-stakes/internal/stake"
)

var errRPC = errors.New("rpc down")

type failingContract struct{}

func (failingContract) GetStakes(context.Context, string) ([]stake.Raw, error) { return nil, errRPC }
func (failingContract) GetPendingRewards(context.Context, string) (*big.Int, error) {
	return nil, errRPC
}
func (failingContract) GetPoolRate(context.Context) (uint64, error)             { return 0, errRPC }
func (failingContract) GetListings(context.Context) ([]stake.Listing, error)    { return nil, errRPC }
func (failingContract) GetWithdrawals(context.Context, string) ([]stake.Withdrawal, error) {
	return nil, errRPC
}
func (failingContract) WithdrawnEvents(context.Context, string) (map[string]stake.WithdrawnEvent, error) {
	return nil, errRPC
}

type queueContract struct {
	failingContract
	queue []stake.Withdrawal
}

func (q queueContract) GetWithdrawals(context.Context, string) ([]stake.Withdrawal, error) {
	return q.queue, nil
}

func TestChainClientFailSoft(t *testing.T) {
	c := NewChainClient(network.Config{ID: network.Base}, failingContract{}, ClientOptions{RateLimit: 100, Burst: 10}, noopLogger())
	ctx := context.Background()

	if got, ok := c.FetchStakes(ctx, testOwner); ok || len(got) != 0 {
		t.Fatalf("failed fetch should be empty with ok=false, got %v (ok=%v)", got, ok)
	}
	if got, ok := c.FetchPendingRewards(ctx, testOwner); ok || got == nil || got.Sign() != 0 {
		t.Fatalf("failed rewards should be zero with ok=false, got %v (ok=%v)", got, ok)
	}
	if _, ok := c.FetchPoolRate(ctx); ok {
		t.Fatal("failed pool rate should report ok=false")
	}
	if _, err := c.Listings(ctx); !errors.Is(err, errRPC) {
		t.Fatalf("listings should surface the error, got %v", err)
	}
}

func TestChainClientCancelledContext(t *testing.T) {
	c := NewChainClient(network.Config{ID: network.Sonic}, failingContract{}, ClientOptions{RateLimit: 1, Burst: 1}, noopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got, ok := c.FetchPendingRewards(ctx, testOwner); ok || got.Sign() != 0 {
		t.Fatal("cancelled fetch should be zero with ok=false")
	}
}

func TestChainClientWithdrawalsWithoutLogs(t *testing.T) {
	contract := queueContract{queue: []stake.Withdrawal{{StakeID: "1", Amount: big.NewInt(0)}}}
	c := NewChainClient(network.Config{ID: network.BSC}, contract, ClientOptions{}, noopLogger())
	ws, err := c.Withdrawals(context.Background(), testOwner)
	if err != nil {
		t.Fatalf("log scan failure must not fail the queue: %v", err)
	}
	if len(ws) != 1 || ws[0].Withdrawn != nil {
		t.Fatalf("unexpected withdrawals %+v", ws)
	}
}

func TestRegistryOrder(t *testing.T) {
	a := NewChainClient(network.Config{ID: network.Sonic}, failingContract{}, ClientOptions{}, noopLogger())
	b := NewChainClient(network.Config{ID: network.BSC}, failingContract{}, ClientOptions{}, noopLogger())
	r := NewRegistry(a, b)
	ids := r.IDs()
	if len(ids) != 2 || ids[0] != network.Sonic || ids[1] != network.BSC {
		t.Fatalf("unexpected order %v", ids)
	}
	if _, err := r.Client(network.Base); err == nil {
		t.Fatal("missing chain should fail")
	}
}
