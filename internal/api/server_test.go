package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"paca-stakes/internal/network"
	"paca-stakes/internal/service"
	"paca-stakes/internal/stake"
	"paca-stakes/internal/storage"
)

const wallet = "0x00000000000000000000000000000000000000Aa"

type fakeService struct {
	snap     *service.Snapshot
	listings []stake.Listing
	ws       []stake.Withdrawal
	marketFn func() error
}

func (f *fakeService) Lookup(_ context.Context, address string) (*service.Snapshot, error) {
	if !service.ValidAddress(address) {
		return nil, fmt.Errorf("%w: %q", service.ErrInvalidAddress, address)
	}
	return f.snap, nil
}

func (f *fakeService) Market(_ context.Context, chain network.ID) (service.Market, error) {
	if f.marketFn != nil {
		if err := f.marketFn(); err != nil {
			return service.Market{}, err
		}
	}
	return service.Market{Chain: network.Config{ID: chain}, Listings: f.listings}, nil
}

func (f *fakeService) Withdrawals(_ context.Context, chain network.ID, address string, showCompleted bool) (service.Withdrawals, error) {
	return service.Withdrawals{Address: address, Items: stake.FilterWithdrawals(f.ws, showCompleted)}, nil
}

func (f *fakeService) PoolRates(context.Context) []service.PoolRate {
	return []service.PoolRate{{Chain: network.BSC, RatePct: decimal.NewFromInt(1), OK: true}}
}

type staticAlerts struct{}

func (staticAlerts) InsertAlert(_ context.Context, rec storage.AlertRecord) (storage.AlertRecord, error) {
	return rec, nil
}

func (staticAlerts) ListRecentAlerts(context.Context, int) ([]storage.AlertRecord, error) {
	return []storage.AlertRecord{{ID: 1, Chain: "bsc"}}, nil
}

func fixture() *fakeService {
	stakes := stake.Normalize([]stake.Raw{
		{Amount: big.NewInt(100), UnlockTime: 2_000, DailyRewardRate: 100},
		{Amount: big.NewInt(300), UnlockTime: 1_000, DailyRewardRate: 100, Complete: true},
		{Amount: big.NewInt(200), UnlockTime: 3_000, DailyRewardRate: 100},
	}, 0)
	return &fakeService{
		snap: &service.Snapshot{
			Address: wallet,
			Stakes:  map[network.ID][]stake.Normalized{network.BSC: stakes},
			Totals:  map[network.ID]stake.Totals{network.BSC: stake.ComputeTotals(stakes, decimal.NewFromInt(5))},
		},
		listings: []stake.Listing{
			{StakeID: "1", Amount: big.NewInt(100), Price: big.NewInt(90), DailyRewardRate: 100},
			{StakeID: "2", Amount: big.NewInt(100), Price: big.NewInt(80), DailyRewardRate: 100},
		},
		ws: []stake.Withdrawal{
			{StakeID: "1", Amount: big.NewInt(0), UnlockTime: 10},
			{StakeID: "2", Amount: big.NewInt(7), UnlockTime: 20},
		},
	}
}

func newTestServer(svc Service) *Server {
	gin.SetMode(gin.TestMode)
	s := New(Options{DefaultRate: 0.33, DefaultDays: 250}, svc, network.MustDefault(), staticAlerts{}, zerolog.Nop())
	s.now = func() time.Time { return time.Unix(0, 0) }
	return s
}

func get(t *testing.T, s *Server, path string, into any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if into != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
			t.Fatalf("decode %s: %v (%s)", path, err, rec.Body.String())
		}
	}
	return rec.Code
}

func TestNetworks(t *testing.T) {
	var body struct {
		Networks []network.Config `json:"networks"`
	}
	if code := get(t, newTestServer(fixture()), "/api/v1/networks", &body); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(body.Networks) != 3 || body.Networks[0].ID != network.BSC {
		t.Fatalf("networks %+v", body.Networks)
	}
}

func TestWallet(t *testing.T) {
	var body struct {
		Address string `json:"address"`
		Chains  []struct {
			Chain       string          `json:"chain"`
			Stakes      int             `json:"stakes"`
			TotalStaked decimal.Decimal `json:"totalStaked"`
		} `json:"chains"`
		Total struct {
			Rewards decimal.Decimal `json:"rewards"`
		} `json:"total"`
	}
	if code := get(t, newTestServer(fixture()), "/api/v1/wallets/"+wallet, &body); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(body.Chains) != 1 || body.Chains[0].Stakes != 3 || !body.Chains[0].TotalStaked.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("chains %+v", body.Chains)
	}
	if !body.Total.Rewards.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("total %+v", body.Total)
	}
}

func TestWalletInvalidAddress(t *testing.T) {
	var body errorResponse
	if code := get(t, newTestServer(fixture()), "/api/v1/wallets/0x123", &body); code != http.StatusBadRequest {
		t.Fatalf("status %d", code)
	}
	if !strings.Contains(body.Error, "invalid") {
		t.Fatalf("error %q", body.Error)
	}
}

func TestStakesSortedAndPaged(t *testing.T) {
	type resp struct {
		Page struct {
			Pages int `json:"pages"`
		} `json:"page"`
		Stakes []struct {
			ID       int  `json:"id"`
			Complete bool `json:"complete"`
		} `json:"stakes"`
	}
	s := newTestServer(fixture())

	var body resp
	get(t, s, "/api/v1/wallets/"+wallet+"/stakes?chain=bsc&sort=daysLeft&dir=desc", &body)
	if len(body.Stakes) != 3 || body.Stakes[0].ID != 2 || body.Stakes[2].ID != 1 {
		t.Fatalf("daysLeft desc keeps completed last: %+v", body.Stakes)
	}

	body = resp{}
	get(t, s, "/api/v1/wallets/"+wallet+"/stakes?sort=amount&completed=false&size=1&page=2", &body)
	if body.Page.Pages != 2 || len(body.Stakes) != 1 || body.Stakes[0].ID != 2 {
		t.Fatalf("page 2 of active stakes: %+v", body)
	}
}

func TestStakesBadParams(t *testing.T) {
	s := newTestServer(fixture())
	for _, q := range []string{"?chain=eth", "?sort=amount&dir=sideways", "?page=x"} {
		if code := get(t, s, "/api/v1/wallets/"+wallet+"/stakes"+q, nil); code != http.StatusBadRequest {
			t.Fatalf("%s: status %d", q, code)
		}
	}
}

func TestMarket(t *testing.T) {
	var body struct {
		Listings []struct {
			StakeID     string          `json:"stakeId"`
			DiscountPct decimal.Decimal `json:"discountPct"`
		} `json:"listings"`
	}
	s := newTestServer(fixture())
	if code := get(t, s, "/api/v1/market/bsc?sort=discountPercentage&dir=desc", &body); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(body.Listings) != 2 || body.Listings[0].StakeID != "2" || !body.Listings[0].DiscountPct.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("listings %+v", body.Listings)
	}

	failing := fixture()
	failing.marketFn = func() error { return errors.New("rpc down") }
	if code := get(t, newTestServer(failing), "/api/v1/market/bsc", nil); code != http.StatusBadGateway {
		t.Fatalf("upstream failure status %d", code)
	}
}

func TestWithdrawals(t *testing.T) {
	var body struct {
		Withdrawals []withdrawalRow `json:"withdrawals"`
	}
	get(t, newTestServer(fixture()), "/api/v1/wallets/"+wallet+"/withdrawals?chain=sonic", &body)
	if len(body.Withdrawals) != 1 || body.Withdrawals[0].StakeID != "2" {
		t.Fatalf("pending only by default: %+v", body.Withdrawals)
	}
	body.Withdrawals = nil
	get(t, newTestServer(fixture()), "/api/v1/wallets/"+wallet+"/withdrawals?completed=true", &body)
	if len(body.Withdrawals) != 2 {
		t.Fatalf("with completed: %+v", body.Withdrawals)
	}
}

func TestCalc(t *testing.T) {
	var body struct {
		Mode   string `json:"mode"`
		Result struct {
			TotalReturn float64 `json:"totalReturn"`
			TotalValue  float64 `json:"totalValue"`
		} `json:"result"`
	}
	s := newTestServer(fixture())
	if code := get(t, s, "/api/v1/calc?amount=1000", &body); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if body.Mode != "simple" || body.Result.TotalValue < 1824.99 || body.Result.TotalValue > 1825.01 {
		t.Fatalf("simple defaults to 0.33%% over 250 days: %+v", body)
	}

	var cycle struct {
		Result struct {
			Cycles []any `json:"cycles"`
		} `json:"result"`
	}
	if code := get(t, s, "/api/v1/calc?amount=5000&rate=1&days=14&mode=cycle&cycle=4:3", &cycle); code != http.StatusOK {
		t.Fatalf("cycle status %d", code)
	}
	if len(cycle.Result.Cycles) != 2 {
		t.Fatalf("cycles %+v", cycle.Result.Cycles)
	}

	for _, q := range []string{"?amount=abc", "?mode=magic", "?mode=cycle&cycle=0:0", "?days=1.5"} {
		if code := get(t, s, "/api/v1/calc"+q, nil); code != http.StatusBadRequest {
			t.Fatalf("%s: status %d", q, code)
		}
	}
}

func TestRatesAlertsAndMetrics(t *testing.T) {
	s := newTestServer(fixture())
	var rates struct {
		Rates []service.PoolRate `json:"rates"`
	}
	if code := get(t, s, "/api/v1/rates", &rates); code != http.StatusOK || len(rates.Rates) != 1 {
		t.Fatalf("rates %d %+v", code, rates)
	}
	var alerts struct {
		Alerts []storage.AlertRecord `json:"alerts"`
	}
	if code := get(t, s, "/api/v1/alerts?limit=5", &alerts); code != http.StatusOK || len(alerts.Alerts) != 1 {
		t.Fatalf("alerts %d %+v", code, alerts)
	}
	if code := get(t, s, "/metrics", nil); code != http.StatusOK {
		t.Fatalf("metrics status %d", code)
	}
}

func TestAlertsRouteDisabledWithoutLog(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := New(Options{}, fixture(), network.MustDefault(), nil, zerolog.Nop())
	if code := get(t, s, "/api/v1/alerts", nil); code != http.StatusNotFound {
		t.Fatalf("status %d", code)
	}
}

func TestHealthz(t *testing.T) {
	var body struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	if code := get(t, newTestServer(fixture()), "/healthz", &body); code != http.StatusOK || body.Status != "ok" || body.Version == "" {
		t.Fatalf("healthz %d %+v", code, body)
	}
}
