package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultMaxEntries bounds the recent-address list.
const DefaultMaxEntries = 10

// AlertRecord captures an emitted rewards alert for auditing.
type AlertRecord struct {
	ID        int64           `json:"id"`
	Address   string          `json:"address"`
	Chain     string          `json:"chain"`
	Rewards   decimal.Decimal `json:"rewards"`
	Threshold decimal.Decimal `json:"threshold"`
	CreatedAt time.Time       `json:"createdAt"`
}

// AddressBook keeps the current wallet address and a bounded most-recent-first
// list of addresses that have been current.
type AddressBook interface {
	Current(ctx context.Context) (string, error)
	// SetCurrent makes address current and puts it at the front of the list
	// if it is not already there. An empty address clears current only.
	SetCurrent(ctx context.Context, address string) error
	List(ctx context.Context) ([]string, error)
	// Remove drops address from the list and clears current if it matches.
	Remove(ctx context.Context, address string) error
	Clear(ctx context.Context) error
	Close() error
}

// AlertLog persists emitted alerts.
type AlertLog interface {
	InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
}

// Backend is what the application opens: an address book plus an alert log.
type Backend interface {
	AddressBook
	AlertLog
}

// pushFront returns list with address prepended unless present, capped at max.
func pushFront(list []string, address string, max int) []string {
	for _, a := range list {
		if a == address {
			return list
		}
	}
	out := make([]string, 0, len(list)+1)
	out = append(out, address)
	out = append(out, list...)
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}

func without(list []string, address string) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		if a != address {
			out = append(out, a)
		}
	}
	return out
}
