package stake

import (
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// Derived fields shared by table rendering and sorting. Both must go through
// these helpers so what is shown and what is ordered never disagree.

var tenThousand = decimal.NewFromInt(10000)

// ToDecimal scales a fixed-point integer down by 10^decimals. Nil is zero.
func ToDecimal(v *big.Int, decimals int32) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -decimals)
}

// RatePercent converts a contract rate (hundredths of a percent) to percent.
func RatePercent(rate uint64) decimal.Decimal {
	return uintDecimal(rate).Div(hundred)
}

// BuyerReceives is amount + bonus, summed in integer space before scaling.
func BuyerReceives(l Listing) *big.Int {
	sum := new(big.Int)
	if l.Amount != nil {
		sum.Add(sum, l.Amount)
	}
	if l.BonusAmount != nil {
		sum.Add(sum, l.BonusAmount)
	}
	return sum
}

// EffectiveDailyRate is the daily yield on the purchase price, in percent.
// ok is false when price, amount or rate is missing or the price is zero.
func EffectiveDailyRate(l Listing, decimals int32) (decimal.Decimal, bool) {
	if isZero(l.Price) || isZero(l.Amount) || l.DailyRewardRate == 0 {
		return decimal.Zero, false
	}
	price := ToDecimal(l.Price, decimals)
	if price.IsZero() {
		return decimal.Zero, false
	}
	net := ToDecimal(BuyerReceives(l), decimals)
	rate := uintDecimal(l.DailyRewardRate).Div(tenThousand)
	return net.Mul(rate).Div(price).Mul(hundred), true
}

// DiscountPct is how far below the stake value the listing is priced, in percent.
// ok is false when price or amount is missing.
func DiscountPct(l Listing, decimals int32) (decimal.Decimal, bool) {
	if isZero(l.Price) || isZero(l.Amount) {
		return decimal.Zero, false
	}
	value := ToDecimal(l.Amount, decimals)
	price := ToDecimal(l.Price, decimals)
	return value.Sub(price).Div(value).Mul(hundred), true
}

// ListingDailyRewards is what the buyer's net stake earns per day.
func ListingDailyRewards(l Listing, decimals int32) decimal.Decimal {
	net := ToDecimal(BuyerReceives(l), decimals)
	return net.Mul(RatePercent(l.DailyRewardRate)).Div(hundred)
}

// DaysLeft is the number of whole days until unlock, floored at zero.
func DaysLeft(unlock int64, now time.Time) int {
	if unlock <= 0 {
		return 0
	}
	diff := time.Unix(unlock, 0).Sub(now)
	if diff <= 0 {
		return 0
	}
	return int(diff / (24 * time.Hour))
}

// TimeLeft renders the remaining lock time, or "Unlocked" once it has passed.
func TimeLeft(unlock int64, now time.Time) string {
	if unlock <= 0 || !time.Unix(unlock, 0).After(now) {
		return "Unlocked"
	}
	diff := time.Unix(unlock, 0).Sub(now)
	days := int(diff / (24 * time.Hour))
	hours := int((diff % (24 * time.Hour)) / time.Hour)
	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	minutes := int((diff % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func isZero(v *big.Int) bool {
	return v == nil || v.Sign() == 0
}

func uintDecimal(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
