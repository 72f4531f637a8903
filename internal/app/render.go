package app

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"paca-stakes/internal/network"
	"paca-stakes/internal/service"
	"paca-stakes/internal/stake"
	"paca-stakes/internal/storage"
)

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}

func formatTime(unix int64) string {
	if unix <= 0 {
		return "-"
	}
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}

// renderSnapshot prints one row per cached chain plus the cross-chain total.
func renderSnapshot(out io.Writer, networks *network.Registry, snap *service.Snapshot) {
	fmt.Fprintf(out, "Wallet %s (updated %s)\n", snap.Address, snap.UpdatedAt.UTC().Format(time.RFC3339))
	w := newTable(out)
	fmt.Fprintln(w, "Chain\tStakes\tStaked\tRewards\tDaily\tDaily APR%\tAnnual APR%")
	for _, cfg := range networks.All() {
		totals, ok := snap.Totals[cfg.ID]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%s %s\t%s\t%s\t%s\t%s\n",
			cfg.Name,
			len(snap.Stakes[cfg.ID]),
			formatDecimal(totals.TotalStaked, 2), cfg.Token,
			formatDecimal(totals.Rewards, 4),
			formatDecimal(totals.DailyEarnings, 4),
			formatDecimal(totals.DailyAPR(), 2),
			formatDecimal(totals.AnnualAPR(), 2),
		)
	}
	total := snap.Summary()
	fmt.Fprintf(w, "Total\t\t%s\t%s\t%s\t%s\t%s\n",
		formatDecimal(total.TotalStaked, 2),
		formatDecimal(total.Rewards, 4),
		formatDecimal(total.DailyEarnings, 4),
		formatDecimal(total.DailyAPR(), 2),
		formatDecimal(total.AnnualAPR(), 2),
	)
	w.Flush()
}

func renderStakes(out io.Writer, cfg network.Config, stakes []stake.Normalized, now time.Time) {
	if len(stakes) == 0 {
		fmt.Fprintf(out, "no stakes on %s\n", cfg.Name)
		return
	}
	w := newTable(out)
	fmt.Fprintln(w, "ID\tAmount\tRate%\tDaily\tLast Claimed (UTC)\tUnlock (UTC)\tTime Left\tStatus")
	for _, s := range stakes {
		status := "active"
		if s.Complete {
			status = "completed"
		}
		fmt.Fprintf(w, "%d\t%s %s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID,
			formatDecimal(s.AmountDecimal, 2), cfg.Token,
			formatDecimal(s.DailyRatePct, 2),
			formatDecimal(s.DailyEarnings, 4),
			formatTime(s.LastClaimed),
			formatTime(s.UnlockTime),
			stake.TimeLeft(s.UnlockTime, now),
			status,
		)
	}
	w.Flush()
}

func renderSummaries(out io.Writer, networks *network.Registry, summaries []service.WalletSummary) {
	if len(summaries) == 0 {
		fmt.Fprintln(out, "no valid addresses")
		return
	}
	w := newTable(out)
	header := []string{"Address"}
	for _, cfg := range networks.All() {
		header = append(header, cfg.Name+" Staked", cfg.Name+" Rewards")
	}
	header = append(header, "Total Staked", "Total Rewards", "Daily")
	fmt.Fprintln(w, strings.Join(header, "\t"))

	var grand stake.Totals
	for _, s := range summaries {
		cols := []string{s.Address}
		for _, cfg := range networks.All() {
			t := s.Chains[cfg.ID]
			cols = append(cols, formatDecimal(t.TotalStaked, 2), formatDecimal(t.Rewards, 4))
		}
		cols = append(cols, formatDecimal(s.Total.TotalStaked, 2), formatDecimal(s.Total.Rewards, 4), formatDecimal(s.Total.DailyEarnings, 4))
		fmt.Fprintln(w, strings.Join(cols, "\t"))
		grand = grand.Add(s.Total)
	}
	if len(summaries) > 1 {
		pad := strings.Repeat("\t", 2*len(networks.All()))
		fmt.Fprintf(w, "All wallets%s\t%s\t%s\t%s\n", pad,
			formatDecimal(grand.TotalStaked, 2), formatDecimal(grand.Rewards, 4), formatDecimal(grand.DailyEarnings, 4))
	}
	w.Flush()
}

func renderListings(out io.Writer, cfg network.Config, listings []stake.Listing, now time.Time) {
	if len(listings) == 0 {
		fmt.Fprintf(out, "no listings on %s\n", cfg.Name)
		return
	}
	w := newTable(out)
	fmt.Fprintln(w, "Stake\tSeller\tAmount\tBonus\tPrice\tBuyer Receives\tDiscount%\tRate%\tEff. Rate%\tDaily\tPending\tTime Left")
	for _, l := range listings {
		discount, effective := "-", "-"
		if d, ok := stake.DiscountPct(l, cfg.Decimals); ok {
			discount = formatDecimal(d, 2)
		}
		if r, ok := stake.EffectiveDailyRate(l, cfg.Decimals); ok {
			effective = formatDecimal(r, 3)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			l.StakeID,
			l.Seller,
			formatDecimal(stake.ToDecimal(l.Amount, cfg.Decimals), 2),
			formatDecimal(stake.ToDecimal(l.BonusAmount, cfg.Decimals), 2),
			formatDecimal(stake.ToDecimal(l.Price, cfg.Decimals), 2),
			formatDecimal(stake.ToDecimal(stake.BuyerReceives(l), cfg.Decimals), 2),
			discount,
			formatDecimal(stake.RatePercent(l.DailyRewardRate), 2),
			effective,
			formatDecimal(stake.ListingDailyRewards(l, cfg.Decimals), 4),
			formatDecimal(stake.ToDecimal(l.PendingRewards, cfg.Decimals), 4),
			stake.TimeLeft(l.OrigUnlockTime, now),
		)
	}
	w.Flush()
}

func renderWithdrawals(out io.Writer, cfg network.Config, ws []stake.Withdrawal, now time.Time) {
	if len(ws) == 0 {
		fmt.Fprintf(out, "no withdrawals on %s\n", cfg.Name)
		return
	}
	w := newTable(out)
	fmt.Fprintln(w, "Stake\tAmount\tUnlock (UTC)\tTime Left\tStatus\tWithdrawn (UTC)")
	for _, item := range ws {
		amount := item.Amount
		status, withdrawn := "pending", "-"
		if item.Completed() {
			status = "withdrawn"
			if item.Withdrawn != nil {
				amount = item.Withdrawn.Amount
				withdrawn = formatTime(item.Withdrawn.Timestamp)
			}
		}
		fmt.Fprintf(w, "%s\t%s %s\t%s\t%s\t%s\t%s\n",
			item.StakeID,
			formatDecimal(stake.ToDecimal(amount, cfg.Decimals), 2), cfg.Token,
			formatTime(item.UnlockTime),
			stake.TimeLeft(item.UnlockTime, now),
			status,
			withdrawn,
		)
	}
	w.Flush()
}

func renderRates(out io.Writer, networks *network.Registry, rates []service.PoolRate) {
	w := newTable(out)
	fmt.Fprintln(w, "Chain\tDaily Rate%\tStatus")
	for _, r := range rates {
		name := string(r.Chain)
		if cfg, ok := networks.Lookup(r.Chain); ok {
			name = cfg.Name
		}
		if !r.OK {
			fmt.Fprintf(w, "%s\t-\tunavailable\n", name)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\tok\n", name, formatDecimal(r.RatePct, 2))
	}
	w.Flush()
}

func renderAlerts(out io.Writer, alerts []storage.AlertRecord) {
	if len(alerts) == 0 {
		fmt.Fprintln(out, "no alerts recorded")
		return
	}
	w := newTable(out)
	fmt.Fprintln(w, "Time (UTC)\tChain\tWallet\tRewards\tThreshold")
	for _, rec := range alerts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			rec.CreatedAt.UTC().Format(time.RFC3339),
			strings.ToUpper(rec.Chain),
			sanitizeInline(rec.Address),
			formatDecimal(rec.Rewards, 4),
			formatDecimal(rec.Threshold, 2),
		)
	}
	w.Flush()
}

func renderAddresses(out io.Writer, current string, list []string) {
	if len(list) == 0 {
		fmt.Fprintln(out, "address book is empty")
		return
	}
	w := newTable(out)
	fmt.Fprintln(w, "#\tAddress\t")
	for i, addr := range list {
		marker := ""
		if strings.EqualFold(addr, current) {
			marker = "*"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, addr, marker)
	}
	w.Flush()
}
