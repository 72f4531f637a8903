package stake

import (
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func mustInt(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad int " + s)
	}
	return v
}

func TestNormalizeRoundTrip(t *testing.T) {
	amounts := []string{"0", "1", "999999", "1000000", "123456789012345678901234", "5000000000000000000"}
	for _, decimals := range []int32{0, 6, 18} {
		raw := make([]Raw, 0, len(amounts))
		for _, a := range amounts {
			raw = append(raw, Raw{Amount: mustInt(a), DailyRewardRate: 33})
		}
		got := Normalize(raw, decimals)
		if len(got) != len(raw) {
			t.Fatalf("decimals=%d: want %d stakes, got %d", decimals, len(raw), len(got))
		}
		for i, n := range got {
			back := n.AmountDecimal.Shift(decimals).BigInt()
			if back.Cmp(raw[i].Amount) != 0 {
				t.Fatalf("decimals=%d: round trip %s -> %s", decimals, raw[i].Amount, back)
			}
			if n.ID != i {
				t.Fatalf("id should be positional, got %d at %d", n.ID, i)
			}
		}
	}
}

func TestNormalizeEarnings(t *testing.T) {
	raw := []Raw{
		{Amount: mustInt("1000000000"), DailyRewardRate: 33, UnlockTime: 10, Complete: true},
	}
	got := Normalize(raw, 6)
	if !got[0].AmountDecimal.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("amount: %s", got[0].AmountDecimal)
	}
	if !got[0].DailyRatePct.Equal(decimal.RequireFromString("0.33")) {
		t.Fatalf("rate: %s", got[0].DailyRatePct)
	}
	if !got[0].DailyEarnings.Equal(decimal.RequireFromString("3.3")) {
		t.Fatalf("earnings: %s", got[0].DailyEarnings)
	}
	if !got[0].Complete {
		t.Fatal("complete flag lost")
	}
}

func TestNormalizeDoesNotAliasInput(t *testing.T) {
	raw := []Raw{{Amount: big.NewInt(10)}}
	got := Normalize(raw, 0)
	raw[0].Amount.SetInt64(99)
	if got[0].Amount.Int64() != 10 {
		t.Fatal("normalized amount must be a copy")
	}
}

func TestComputeTotalsMatchesPerStakeEarnings(t *testing.T) {
	raw := []Raw{
		{Amount: mustInt("1500000000000000000000"), DailyRewardRate: 33},
		{Amount: mustInt("250000000000000000"), DailyRewardRate: 37},
		{Amount: mustInt("7"), DailyRewardRate: 1},
		{Amount: mustInt("42000000000000000000"), DailyRewardRate: 50, Complete: true},
	}
	stakes := Normalize(raw, 18)
	totals := ComputeTotals(stakes, decimal.NewFromInt(2))

	sum := decimal.Zero
	staked := decimal.Zero
	for _, s := range stakes {
		sum = sum.Add(s.DailyEarnings)
		staked = staked.Add(s.AmountDecimal)
	}
	if !totals.DailyEarnings.Equal(sum) {
		t.Fatalf("daily earnings %s != %s", totals.DailyEarnings, sum)
	}
	if !totals.TotalStaked.Equal(staked) {
		t.Fatalf("total staked %s != %s", totals.TotalStaked, staked)
	}
	if !totals.Rewards.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("rewards %s", totals.Rewards)
	}
}

func TestTotalsAPR(t *testing.T) {
	tt := Totals{TotalStaked: decimal.NewFromInt(1000), DailyEarnings: decimal.RequireFromString("3.3")}
	if !tt.DailyAPR().Equal(decimal.RequireFromString("0.33")) {
		t.Fatalf("daily apr %s", tt.DailyAPR())
	}
	if !tt.AnnualAPR().Equal(decimal.RequireFromString("120.45")) {
		t.Fatalf("annual apr %s", tt.AnnualAPR())
	}
	if !(Totals{}).DailyAPR().IsZero() {
		t.Fatal("empty totals should report zero apr")
	}
}

func TestFilterCompleted(t *testing.T) {
	stakes := []Normalized{{ID: 0}, {ID: 1, Complete: true}, {ID: 2}}
	if got := FilterCompleted(stakes, true); len(got) != 2 || got[1].ID != 2 {
		t.Fatalf("unexpected filter result %+v", got)
	}
	if got := FilterCompleted(stakes, false); len(got) != 3 {
		t.Fatalf("nothing should be hidden, got %d", len(got))
	}
}

func TestEffectiveDailyRate(t *testing.T) {
	l := Listing{
		Price:           mustInt("90000000"),
		Amount:          mustInt("100000000"),
		BonusAmount:     mustInt("8000000"),
		DailyRewardRate: 50,
	}
	rate, ok := EffectiveDailyRate(l, 6)
	if !ok {
		t.Fatal("rate should be defined")
	}
	// 108 * 0.005 / 90 * 100
	if !rate.Equal(decimal.RequireFromString("0.6")) {
		t.Fatalf("effective rate %s", rate)
	}

	l.Price = big.NewInt(0)
	if _, ok := EffectiveDailyRate(l, 6); ok {
		t.Fatal("zero price must be undefined")
	}
	l.Price = nil
	if _, ok := EffectiveDailyRate(l, 6); ok {
		t.Fatal("missing price must be undefined")
	}
}

func TestBuyerReceivesAndDiscount(t *testing.T) {
	l := Listing{Price: mustInt("75"), Amount: mustInt("100"), BonusAmount: mustInt("5")}
	if BuyerReceives(l).Int64() != 105 {
		t.Fatalf("buyer receives %s", BuyerReceives(l))
	}
	d, ok := DiscountPct(l, 0)
	if !ok || !d.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("discount %s ok=%v", d, ok)
	}
	if _, ok := DiscountPct(Listing{Amount: mustInt("1")}, 0); ok {
		t.Fatal("missing price must be undefined")
	}
}

func TestDaysLeft(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	if DaysLeft(now.Add(-time.Hour).Unix(), now) != 0 {
		t.Fatal("past unlock is zero days")
	}
	if DaysLeft(now.Add(36*time.Hour).Unix(), now) != 1 {
		t.Fatal("36h should floor to one day")
	}
	if TimeLeft(now.Add(-time.Second).Unix(), now) != "Unlocked" {
		t.Fatal("expected Unlocked")
	}
	if got := TimeLeft(now.Add(50*time.Hour).Unix(), now); got != "2d 2h" {
		t.Fatalf("time left %q", got)
	}
}

func TestReconcileWithdrawals(t *testing.T) {
	ws := []Withdrawal{
		{StakeID: "1", Amount: big.NewInt(0)},
		{StakeID: "2", Amount: big.NewInt(5)},
		{StakeID: "3", Amount: big.NewInt(0)},
	}
	events := map[string]WithdrawnEvent{
		"1": {Amount: big.NewInt(7), Timestamp: 100},
		"2": {Amount: big.NewInt(9), Timestamp: 200},
	}
	got := Reconcile(ws, events)
	if got[0].Withdrawn == nil || got[0].Withdrawn.Amount.Int64() != 7 {
		t.Fatal("completed withdrawal should carry its event")
	}
	if got[1].Withdrawn != nil {
		t.Fatal("pending withdrawal must not be reconciled")
	}
	if got[2].Withdrawn != nil {
		t.Fatal("no event means no reconciliation")
	}
	if ws[0].Withdrawn != nil {
		t.Fatal("input must not be modified")
	}
	if n := len(FilterWithdrawals(got, false)); n != 1 {
		t.Fatalf("only pending should remain, got %d", n)
	}
}
