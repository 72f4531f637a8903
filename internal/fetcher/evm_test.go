package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"paca-stakes/internal/network"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

const testOwner = "0x00000000000000000000000000000000000000aa"

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// fakeNode answers eth_call by method selector and eth_getLogs with fixed logs.
type fakeNode struct {
	t       *testing.T
	returns map[string][]byte
	logs    []types.Log
	chainID uint64
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		n.t.Fatalf("decode rpc request: %v", err)
	}
	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}

	switch req.Method {
	case "eth_chainId":
		resp["result"] = hexutil.Uint64(n.chainID)
	case "eth_call":
		var arg struct {
			Input hexutil.Bytes `json:"input"`
			Data  hexutil.Bytes `json:"data"`
		}
		_ = json.Unmarshal(req.Params[0], &arg)
		input := arg.Input
		if len(input) == 0 {
			input = arg.Data
		}
		method, err := stakingABI.MethodById(input[:4])
		if err != nil {
			n.t.Fatalf("unknown selector: %v", err)
		}
		out, ok := n.returns[method.Name]
		if !ok {
			resp["error"] = map[string]any{"code": -32000, "message": "execution reverted"}
			break
		}
		resp["result"] = hexutil.Bytes(out)
	case "eth_getLogs":
		resp["result"] = n.logs
	default:
		resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func packOutputs(t *testing.T, method string, values ...any) []byte {
	t.Helper()
	out, err := stakingABI.Methods[method].Outputs.Pack(values...)
	if err != nil {
		t.Fatalf("pack %s: %v", method, err)
	}
	return out
}

func newTestContract(t *testing.T, node *fakeNode) *EVMContract {
	t.Helper()
	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)
	c := NewEVMContract(EVMOptions{
		Chain:   network.Config{ID: network.BSC, RPCURL: srv.URL, Contract: "0x00000000000000000000000000000000000000cc"},
		Timeout: time.Second,
	}, noopLogger())
	t.Cleanup(c.Close)
	return c
}

func TestEVMContractMissingConfig(t *testing.T) {
	c := NewEVMContract(EVMOptions{}, noopLogger())
	if _, err := c.GetStakes(context.Background(), testOwner); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("missing contract should fail with ErrNotConfigured, got %v", err)
	}

	c = NewEVMContract(EVMOptions{Chain: network.Config{Contract: "0x1"}}, noopLogger())
	if _, err := c.GetPendingRewards(context.Background(), testOwner); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("missing rpc should fail with ErrNotConfigured, got %v", err)
	}
}

func TestEVMContractReads(t *testing.T) {
	node := &fakeNode{t: t, returns: map[string][]byte{}}
	node.returns[methodGetStakes] = packOutputs(t, methodGetStakes, []stakeTuple{
		{Amount: big.NewInt(1_000_000), LastClaimed: big.NewInt(100), DailyRewardRate: big.NewInt(33), UnlockTime: big.NewInt(200), Complete: false},
		{Amount: big.NewInt(5), LastClaimed: big.NewInt(1), DailyRewardRate: big.NewInt(37), UnlockTime: big.NewInt(2), Complete: true},
	})
	node.returns[methodViewRewards] = packOutputs(t, methodViewRewards, big.NewInt(4242))
	node.returns[methodPool] = packOutputs(t, methodPool, big.NewInt(1), big.NewInt(33), big.NewInt(250))

	c := newTestContract(t, node)
	ctx := context.Background()

	stakes, err := c.GetStakes(ctx, testOwner)
	if err != nil {
		t.Fatalf("GetStakes: %v", err)
	}
	if len(stakes) != 2 || stakes[0].Amount.Int64() != 1_000_000 || stakes[0].DailyRewardRate != 33 || !stakes[1].Complete {
		t.Fatalf("unexpected stakes %+v", stakes)
	}
	if stakes[0].UnlockTime != 200 || stakes[0].LastClaimed != 100 {
		t.Fatalf("timestamps not decoded: %+v", stakes[0])
	}

	rewards, err := c.GetPendingRewards(ctx, testOwner)
	if err != nil || rewards.Int64() != 4242 {
		t.Fatalf("GetPendingRewards: %v %v", rewards, err)
	}

	rate, err := c.GetPoolRate(ctx)
	if err != nil || rate != 33 {
		t.Fatalf("GetPoolRate: %d %v", rate, err)
	}
}

func TestEVMContractListings(t *testing.T) {
	node := &fakeNode{t: t, returns: map[string][]byte{}}
	seller := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	node.returns[methodSellStakes] = packOutputs(t, methodSellStakes,
		[]common.Address{seller},
		[]*big.Int{big.NewInt(7)},
		[]sellStakeTuple{{
			Price: big.NewInt(90), BonusAmount: big.NewInt(8), Amount: big.NewInt(100),
			LastClaimed: big.NewInt(10), DailyRewardRate: big.NewInt(50), OrigUnlockTime: big.NewInt(20),
		}},
		[]*big.Int{big.NewInt(3)},
	)

	listings, err := newTestContract(t, node).GetListings(context.Background())
	if err != nil {
		t.Fatalf("GetListings: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("want 1 listing, got %d", len(listings))
	}
	l := listings[0]
	if l.Seller != seller.Hex() || l.StakeID != "7" || l.Price.Int64() != 90 || l.PendingRewards.Int64() != 3 || l.DailyRewardRate != 50 {
		t.Fatalf("unexpected listing %+v", l)
	}
}

func TestEVMContractWithdrawals(t *testing.T) {
	node := &fakeNode{t: t, returns: map[string][]byte{}}
	node.returns[methodWithdrawStakes] = packOutputs(t, methodWithdrawStakes, []withdrawTuple{
		{StakeId: big.NewInt(1), Amount: big.NewInt(0), UnlockTime: big.NewInt(50)},
		{StakeId: big.NewInt(2), Amount: big.NewInt(9), UnlockTime: big.NewInt(60)},
	})

	event := stakingABI.Events[eventWithdrawn]
	data, err := event.Inputs.NonIndexed().Pack(big.NewInt(1), big.NewInt(15), big.NewInt(1234))
	if err != nil {
		t.Fatalf("pack event: %v", err)
	}
	node.logs = []types.Log{{
		Address: common.HexToAddress("0x00000000000000000000000000000000000000cc"),
		Topics:  []common.Hash{event.ID, common.BytesToHash(common.HexToAddress(testOwner).Bytes())},
		Data:    data,
		TxHash:  common.HexToHash("0x01"),
	}}

	c := newTestContract(t, node)
	client := NewChainClient(network.Config{ID: network.BSC}, c, ClientOptions{}, noopLogger())

	ws, err := client.Withdrawals(context.Background(), testOwner)
	if err != nil {
		t.Fatalf("Withdrawals: %v", err)
	}
	if len(ws) != 2 {
		t.Fatalf("want 2 withdrawals, got %d", len(ws))
	}
	if ws[0].Withdrawn == nil || ws[0].Withdrawn.Amount.Int64() != 15 || ws[0].Withdrawn.Timestamp != 1234 {
		t.Fatalf("completed withdrawal not reconciled: %+v", ws[0])
	}
	if ws[1].Withdrawn != nil {
		t.Fatal("pending withdrawal must not be reconciled")
	}
}

func TestEVMContractRevert(t *testing.T) {
	node := &fakeNode{t: t, returns: map[string][]byte{}}
	if _, err := newTestContract(t, node).GetStakes(context.Background(), testOwner); err == nil {
		t.Fatal("reverted call should fail")
	}
}

func TestEVMContractFallsBackToNextEndpoint(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	t.Cleanup(dead.Close)
	wrongChain := httptest.NewServer(&fakeNode{t: t, returns: map[string][]byte{}, chainID: 1})
	t.Cleanup(wrongChain.Close)

	node := &fakeNode{t: t, returns: map[string][]byte{}, chainID: 56}
	node.returns[methodViewRewards] = packOutputs(t, methodViewRewards, big.NewInt(9))
	good := httptest.NewServer(node)
	t.Cleanup(good.Close)

	c := NewEVMContract(EVMOptions{
		Chain: network.Config{
			ID:              network.BSC,
			ChainID:         56,
			RPCURL:          dead.URL,
			FallbackRPCURLs: []string{wrongChain.URL, good.URL},
			Contract:        "0x00000000000000000000000000000000000000cc",
		},
		Timeout: time.Second,
	}, noopLogger())
	t.Cleanup(c.Close)

	got, err := c.GetPendingRewards(context.Background(), testOwner)
	if err != nil {
		t.Fatalf("healthy fallback should serve the call: %v", err)
	}
	if got.Int64() != 9 {
		t.Fatalf("rewards = %s, want 9", got)
	}
}

func TestEVMContractAllEndpointsDown(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	t.Cleanup(dead.Close)

	c := NewEVMContract(EVMOptions{
		Chain:   network.Config{ID: network.Base, RPCURL: dead.URL, Contract: "0x00000000000000000000000000000000000000cc"},
		Timeout: time.Second,
	}, noopLogger())
	t.Cleanup(c.Close)
	if _, err := c.GetStakes(context.Background(), testOwner); err == nil {
		t.Fatal("unreachable endpoints should fail the call")
	}
}
