package api

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"paca-stakes/internal/network"
	"paca-stakes/internal/service"
	"paca-stakes/internal/sorting"
	"paca-stakes/internal/stake"
)

type totalsView struct {
	stake.Totals
	DailyAPR  decimal.Decimal `json:"dailyApr"`
	AnnualAPR decimal.Decimal `json:"annualApr"`
}

func newTotalsView(t stake.Totals) totalsView {
	return totalsView{Totals: t, DailyAPR: t.DailyAPR(), AnnualAPR: t.AnnualAPR()}
}

type chainView struct {
	Chain  network.ID `json:"chain"`
	Name   string     `json:"name"`
	Token  string     `json:"token"`
	Stakes int        `json:"stakes"`
	totalsView
}

type walletResponse struct {
	Address   string      `json:"address"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Chains    []chainView `json:"chains"`
	Total     totalsView  `json:"total"`
}

func (s *Server) walletView(snap *service.Snapshot) walletResponse {
	resp := walletResponse{
		Address:   snap.Address,
		UpdatedAt: snap.UpdatedAt,
		Chains:    make([]chainView, 0, len(snap.Totals)),
		Total:     newTotalsView(snap.Summary()),
	}
	for _, cfg := range s.networks.All() {
		totals, ok := snap.Totals[cfg.ID]
		if !ok {
			continue
		}
		resp.Chains = append(resp.Chains, chainView{
			Chain:      cfg.ID,
			Name:       cfg.Name,
			Token:      cfg.Token,
			Stakes:     len(snap.Stakes[cfg.ID]),
			totalsView: newTotalsView(totals),
		})
	}
	return resp
}

type stakeRow struct {
	stake.Normalized
	DaysLeft int    `json:"daysLeft"`
	TimeLeft string `json:"timeLeft"`
}

func newStakeRow(s stake.Normalized, now time.Time) stakeRow {
	return stakeRow{
		Normalized: s,
		DaysLeft:   stake.DaysLeft(s.UnlockTime, now),
		TimeLeft:   stake.TimeLeft(s.UnlockTime, now),
	}
}

type stakesResponse struct {
	Address string       `json:"address"`
	Chain   network.ID   `json:"chain"`
	Token   string       `json:"token"`
	Totals  totalsView   `json:"totals"`
	Page    sorting.Page `json:"page"`
	Stakes  []stakeRow   `json:"stakes"`
}

type listingRow struct {
	stake.Listing
	BuyerReceives      decimal.Decimal  `json:"buyerReceives"`
	DailyRewards       decimal.Decimal  `json:"dailyRewards"`
	DiscountPct        *decimal.Decimal `json:"discountPct"`
	EffectiveDailyRate *decimal.Decimal `json:"effectiveDailyRate"`
	TimeLeft           string           `json:"timeLeft"`
}

func newListingRow(l stake.Listing, decimals int32, now time.Time) listingRow {
	row := listingRow{
		Listing:       l,
		BuyerReceives: stake.ToDecimal(stake.BuyerReceives(l), decimals),
		DailyRewards:  stake.ListingDailyRewards(l, decimals),
		TimeLeft:      stake.TimeLeft(l.OrigUnlockTime, now),
	}
	if d, ok := stake.DiscountPct(l, decimals); ok {
		row.DiscountPct = &d
	}
	if r, ok := stake.EffectiveDailyRate(l, decimals); ok {
		row.EffectiveDailyRate = &r
	}
	return row
}

type withdrawalRow struct {
	StakeID     string          `json:"stakeId"`
	Amount      decimal.Decimal `json:"amount"`
	UnlockTime  int64           `json:"unlockTime"`
	TimeLeft    string          `json:"timeLeft"`
	Completed   bool            `json:"completed"`
	WithdrawnAt *time.Time      `json:"withdrawnAt,omitempty"`
}

func newWithdrawalRow(w stake.Withdrawal, decimals int32, now time.Time) withdrawalRow {
	amount := w.Amount
	row := withdrawalRow{
		StakeID:    w.StakeID,
		UnlockTime: w.UnlockTime,
		TimeLeft:   stake.TimeLeft(w.UnlockTime, now),
		Completed:  w.Completed(),
	}
	if w.Withdrawn != nil {
		amount = orZero(w.Withdrawn.Amount)
		at := time.Unix(w.Withdrawn.Timestamp, 0).UTC()
		row.WithdrawnAt = &at
	}
	row.Amount = stake.ToDecimal(amount, decimals)
	return row
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
