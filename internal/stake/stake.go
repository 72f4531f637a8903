package stake

import (
	"math/big"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Raw is one stake slot as returned by the contract.
type Raw struct {
	Amount          *big.Int
	LastClaimed     int64
	UnlockTime      int64
	DailyRewardRate uint64
	Complete        bool
}

// Normalized is a Raw record with its decimal view and daily earnings.
// ID is the position within the chain's stake array and is reassigned on every fetch.
type Normalized struct {
	ID              int             `json:"id"`
	Amount          *big.Int        `json:"amount"`
	LastClaimed     int64           `json:"lastClaimed"`
	UnlockTime      int64           `json:"unlockTime"`
	DailyRewardRate uint64          `json:"dailyRewardRate"`
	Complete        bool            `json:"complete"`
	AmountDecimal   decimal.Decimal `json:"amountDecimal"`
	DailyRatePct    decimal.Decimal `json:"dailyRatePct"`
	DailyEarnings   decimal.Decimal `json:"dailyEarnings"`
}

// Totals aggregates one chain (or several) for a wallet.
type Totals struct {
	TotalStaked   decimal.Decimal `json:"totalStaked"`
	Rewards       decimal.Decimal `json:"rewards"`
	DailyEarnings decimal.Decimal `json:"dailyEarnings"`
}

// DailyAPR is daily earnings as a percentage of the staked total.
func (t Totals) DailyAPR() decimal.Decimal {
	if !t.TotalStaked.IsPositive() {
		return decimal.Zero
	}
	return t.DailyEarnings.Div(t.TotalStaked).Mul(hundred)
}

// AnnualAPR is DailyAPR × 365.
func (t Totals) AnnualAPR() decimal.Decimal {
	return t.DailyAPR().Mul(decimal.NewFromInt(365))
}

// Add returns the field-wise sum of t and o.
func (t Totals) Add(o Totals) Totals {
	return Totals{
		TotalStaked:   t.TotalStaked.Add(o.TotalStaked),
		Rewards:       t.Rewards.Add(o.Rewards),
		DailyEarnings: t.DailyEarnings.Add(o.DailyEarnings),
	}
}

// Normalize converts raw contract records using the chain's decimal precision.
func Normalize(raw []Raw, decimals int32) []Normalized {
	out := make([]Normalized, 0, len(raw))
	for i, r := range raw {
		amount := ToDecimal(r.Amount, decimals)
		ratePct := RatePercent(r.DailyRewardRate)
		out = append(out, Normalized{
			ID:              i,
			Amount:          cloneInt(r.Amount),
			LastClaimed:     r.LastClaimed,
			UnlockTime:      r.UnlockTime,
			DailyRewardRate: r.DailyRewardRate,
			Complete:        r.Complete,
			AmountDecimal:   amount,
			DailyRatePct:    ratePct,
			DailyEarnings:   amount.Mul(ratePct).Div(hundred),
		})
	}
	return out
}

// ComputeTotals sums amounts and earnings over every stake, completed ones included.
func ComputeTotals(stakes []Normalized, rewards decimal.Decimal) Totals {
	t := Totals{Rewards: rewards}
	for _, s := range stakes {
		t.TotalStaked = t.TotalStaked.Add(s.AmountDecimal)
		t.DailyEarnings = t.DailyEarnings.Add(s.DailyEarnings)
	}
	return t
}

// FilterCompleted drops completed stakes when hide is set. The input is not modified.
func FilterCompleted(stakes []Normalized, hide bool) []Normalized {
	out := make([]Normalized, 0, len(stakes))
	for _, s := range stakes {
		if hide && s.Complete {
			continue
		}
		out = append(out, s)
	}
	return out
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
