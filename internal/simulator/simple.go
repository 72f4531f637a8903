// Package simulator models stake returns day by day. All functions are pure
// and deterministic; invalid inputs produce a zero-return result, never an error.
package simulator

// SimpleResult is the outcome of a non-compounding stake.
type SimpleResult struct {
	TotalReturn float64 `json:"totalReturn"`
	TotalValue  float64 `json:"totalValue"`
	DailyReturn float64 `json:"dailyReturn"`
}

// Simple computes flat interest: principal × rate% × days.
func Simple(principal, ratePct float64, days int) SimpleResult {
	if principal <= 0 || ratePct <= 0 || days <= 0 {
		return SimpleResult{TotalValue: nonNegative(principal)}
	}
	daily := principal * ratePct / 100
	total := daily * float64(days)
	return SimpleResult{
		TotalReturn: total,
		TotalValue:  principal + total,
		DailyReturn: daily,
	}
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
