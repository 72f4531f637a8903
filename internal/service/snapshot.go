package service

import (
	"time"

	"paca-stakes/internal/network"
	"paca-stakes/internal/stake"
)

// Snapshot is one published view of a wallet across chains. It is never
// modified after publication; every change produces a new Snapshot.
type Snapshot struct {
	Address   string                            `json:"address"`
	Epoch     uint64                            `json:"epoch"`
	Stakes    map[network.ID][]stake.Normalized `json:"stakes"`
	Totals    map[network.ID]stake.Totals       `json:"totals"`
	UpdatedAt time.Time                         `json:"updatedAt"`
}

func emptySnapshot(address string, epoch uint64) *Snapshot {
	return &Snapshot{
		Address: address,
		Epoch:   epoch,
		Stakes:  map[network.ID][]stake.Normalized{},
		Totals:  map[network.ID]stake.Totals{},
	}
}

// Has reports whether chain has been fetched for the current address.
func (s *Snapshot) Has(chain network.ID) bool {
	_, ok := s.Stakes[chain]
	return ok
}

// Summary sums totals across every cached chain.
func (s *Snapshot) Summary() stake.Totals {
	var total stake.Totals
	for _, t := range s.Totals {
		total = total.Add(t)
	}
	return total
}

// clone copies the maps, sharing the stake slices which are never mutated.
func (s *Snapshot) clone() *Snapshot {
	next := &Snapshot{
		Address:   s.Address,
		Epoch:     s.Epoch,
		Stakes:    make(map[network.ID][]stake.Normalized, len(s.Stakes)),
		Totals:    make(map[network.ID]stake.Totals, len(s.Totals)),
		UpdatedAt: s.UpdatedAt,
	}
	for k, v := range s.Stakes {
		next.Stakes[k] = v
	}
	for k, v := range s.Totals {
		next.Totals[k] = v
	}
	return next
}
