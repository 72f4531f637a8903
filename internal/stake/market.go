package stake

import "math/big"

// Listing is a stake offered for sale on the contract's marketplace.
type Listing struct {
	Seller          string   `json:"seller"`
	StakeID         string   `json:"stakeId"`
	Price           *big.Int `json:"price"`
	BonusAmount     *big.Int `json:"bonusAmount"`
	Amount          *big.Int `json:"amount"`
	PendingRewards  *big.Int `json:"pendingRewards"`
	DailyRewardRate uint64   `json:"dailyRewardRate"`
	LastClaimed     int64    `json:"lastClaimed"`
	OrigUnlockTime  int64    `json:"origUnlockTime"`
}

// Withdrawal is an entry in a wallet's withdrawal queue. A zero Amount
// means the withdrawal has been claimed; Withdrawn then carries the
// amount and time recovered from the claim event, when found.
type Withdrawal struct {
	StakeID    string          `json:"stakeId"`
	Amount     *big.Int        `json:"amount"`
	UnlockTime int64           `json:"unlockTime"`
	Withdrawn  *WithdrawnEvent `json:"withdrawn,omitempty"`
}

// Completed reports whether the queue entry has been paid out.
func (w Withdrawal) Completed() bool {
	return w.Amount == nil || w.Amount.Sign() == 0
}

// WithdrawnEvent is the realized payout of a withdrawal.
type WithdrawnEvent struct {
	Amount    *big.Int `json:"amount"`
	Timestamp int64    `json:"timestamp"`
}

// Reconcile attaches claim events to completed withdrawals by stake id.
func Reconcile(ws []Withdrawal, events map[string]WithdrawnEvent) []Withdrawal {
	out := make([]Withdrawal, len(ws))
	for i, w := range ws {
		out[i] = w
		if !w.Completed() {
			continue
		}
		if ev, ok := events[w.StakeID]; ok {
			ev := ev
			out[i].Withdrawn = &ev
		}
	}
	return out
}

// FilterWithdrawals drops completed entries unless showCompleted is set.
func FilterWithdrawals(ws []Withdrawal, showCompleted bool) []Withdrawal {
	out := make([]Withdrawal, 0, len(ws))
	for _, w := range ws {
		if !showCompleted && w.Completed() {
			continue
		}
		out = append(out, w)
	}
	return out
}
