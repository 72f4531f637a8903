// Package sorting orders stake, listing and withdrawal tables by column key.
package sorting

import (
	"cmp"
	"fmt"
	"math/big"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"paca-stakes/internal/stake"
)

// Direction is asc or desc.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Column keys.
const (
	KeyID                 = "id"
	KeyStakeID            = "stakeId"
	KeySeller             = "seller"
	KeyAmount             = "amount"
	KeyPrice              = "price"
	KeyBonusAmount        = "bonusAmount"
	KeyPendingRewards     = "pendingRewards"
	KeyDailyEarnings      = "dailyEarnings"
	KeyDailyRewardRate    = "dailyRewardRate"
	KeyLastClaimed        = "lastClaimed"
	KeyUnlockTime         = "unlockTime"
	KeyDaysLeft           = "daysLeft"
	KeyDailyRewards       = "dailyRewards"
	KeyBuyerReceives      = "buyerReceives"
	KeyDiscountPercentage = "discountPercentage"
	KeyEffectiveDailyRate = "effectiveDailyRate"
)

// Config selects the sort column and direction. An empty Key keeps input order.
type Config struct {
	Key       string    `json:"key"`
	Direction Direction `json:"direction"`
}

// ParseConfig reads "key" or "key:dir".
func ParseConfig(s string) (Config, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Config{}, nil
	}
	key, dir, found := strings.Cut(s, ":")
	cfg := Config{Key: key, Direction: Asc}
	if found {
		switch Direction(strings.ToLower(dir)) {
		case Asc:
		case Desc:
			cfg.Direction = Desc
		default:
			return Config{}, fmt.Errorf("sort %q: direction must be asc or desc", s)
		}
	}
	return cfg, nil
}

// Toggle is a header click: the same key flips asc to desc, anything else
// starts ascending.
func Toggle(cfg Config, key string) Config {
	if cfg.Key == key && cfg.Direction == Asc {
		return Config{Key: key, Direction: Desc}
	}
	return Config{Key: key, Direction: Asc}
}

func (c Config) apply(v int) int {
	if c.Direction == Desc {
		return -v
	}
	return v
}

// row is the sortable view of one record.
type row struct {
	done   bool
	unlock int64
	value  func(key string) (sortValue, bool)
}

type sortValue struct {
	num decimal.Decimal
	str string
}

func num(d decimal.Decimal) (sortValue, bool) { return sortValue{num: d}, true }

func intValue(v int64) (sortValue, bool) { return num(decimal.NewFromInt(v)) }

func bigValue(v *big.Int, decimals int32) (sortValue, bool) {
	return num(stake.ToDecimal(v, decimals))
}

func compareValues(a, b sortValue) int {
	if c := a.num.Cmp(b.num); c != 0 {
		return c
	}
	return strings.Compare(a.str, b.str)
}

// sortRows returns a stably sorted copy of items. Unknown keys keep input order.
func sortRows[T any](items []T, cfg Config, view func(T) row) []T {
	out := slices.Clone(items)
	if cfg.Key == "" || len(out) < 2 {
		return out
	}
	rows := make([]row, len(out))
	idx := make([]int, len(out))
	for i := range out {
		idx[i] = i
		rows[i] = view(out[i])
	}
	if _, ok := rows[0].value(cfg.Key); !ok && cfg.Key != KeyDaysLeft {
		return out
	}

	slices.SortStableFunc(idx, func(i, j int) int {
		a, b := rows[i], rows[j]
		if cfg.Key == KeyDaysLeft {
			return compareDaysLeft(a, b, cfg)
		}
		av, _ := a.value(cfg.Key)
		bv, _ := b.value(cfg.Key)
		return cfg.apply(compareValues(av, bv))
	})

	sorted := make([]T, len(out))
	for i, k := range idx {
		sorted[i] = out[k]
	}
	return sorted
}

// compareDaysLeft orders by unlock time. Completed entries stay after pending
// ones in either direction and are ordered among themselves by unlock time.
func compareDaysLeft(a, b row, cfg Config) int {
	switch {
	case a.done && !b.done:
		return 1
	case !a.done && b.done:
		return -1
	case a.done && b.done:
		return cmp.Compare(a.unlock, b.unlock)
	default:
		return cfg.apply(cmp.Compare(a.unlock, b.unlock))
	}
}

// SortStakes sorts a copy of stakes.
func SortStakes(stakes []stake.Normalized, cfg Config, decimals int32) []stake.Normalized {
	return sortRows(stakes, cfg, func(s stake.Normalized) row {
		return row{
			done:   s.Complete,
			unlock: s.UnlockTime,
			value: func(key string) (sortValue, bool) {
				switch key {
				case KeyID, KeyStakeID:
					return intValue(int64(s.ID))
				case KeyAmount:
					return bigValue(s.Amount, decimals)
				case KeyDailyEarnings, KeyDailyRewards:
					return num(s.DailyEarnings)
				case KeyDailyRewardRate:
					return num(stake.RatePercent(s.DailyRewardRate))
				case KeyLastClaimed:
					return intValue(s.LastClaimed)
				case KeyUnlockTime:
					return intValue(s.UnlockTime)
				}
				return sortValue{}, false
			},
		}
	})
}

// SortListings sorts a copy of marketplace listings. Listings whose original
// lock has passed count as completed for daysLeft.
func SortListings(listings []stake.Listing, cfg Config, decimals int32, now time.Time) []stake.Listing {
	return sortRows(listings, cfg, func(l stake.Listing) row {
		return row{
			done:   l.OrigUnlockTime > 0 && l.OrigUnlockTime <= now.Unix(),
			unlock: l.OrigUnlockTime,
			value: func(key string) (sortValue, bool) {
				switch key {
				case KeySeller:
					return sortValue{str: strings.ToLower(l.Seller)}, true
				case KeyStakeID:
					return stakeIDValue(l.StakeID)
				case KeyAmount:
					return bigValue(l.Amount, decimals)
				case KeyPrice:
					return bigValue(l.Price, decimals)
				case KeyBonusAmount:
					return bigValue(l.BonusAmount, decimals)
				case KeyPendingRewards:
					return bigValue(l.PendingRewards, decimals)
				case KeyDailyRewardRate:
					return num(stake.RatePercent(l.DailyRewardRate))
				case KeyLastClaimed:
					return intValue(l.LastClaimed)
				case KeyUnlockTime:
					return intValue(l.OrigUnlockTime)
				case KeyDailyRewards:
					return num(stake.ListingDailyRewards(l, decimals))
				case KeyBuyerReceives:
					return bigValue(stake.BuyerReceives(l), decimals)
				case KeyDiscountPercentage:
					d, _ := stake.DiscountPct(l, decimals)
					return num(d)
				case KeyEffectiveDailyRate:
					d, _ := stake.EffectiveDailyRate(l, decimals)
					return num(d)
				}
				return sortValue{}, false
			},
		}
	})
}

// SortWithdrawals sorts a copy of the withdrawal queue.
func SortWithdrawals(ws []stake.Withdrawal, cfg Config, decimals int32) []stake.Withdrawal {
	return sortRows(ws, cfg, func(w stake.Withdrawal) row {
		return row{
			done:   w.Completed(),
			unlock: w.UnlockTime,
			value: func(key string) (sortValue, bool) {
				switch key {
				case KeyStakeID, KeyID:
					return stakeIDValue(w.StakeID)
				case KeyAmount:
					if w.Completed() && w.Withdrawn != nil {
						return bigValue(w.Withdrawn.Amount, decimals)
					}
					return bigValue(w.Amount, decimals)
				case KeyUnlockTime:
					return intValue(w.UnlockTime)
				}
				return sortValue{}, false
			},
		}
	})
}

// stakeIDValue compares numeric ids numerically and anything else as text.
func stakeIDValue(id string) (sortValue, bool) {
	if d, err := decimal.NewFromString(id); err == nil {
		return num(d)
	}
	return sortValue{str: id}, true
}
