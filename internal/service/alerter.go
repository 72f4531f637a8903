package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"paca-stakes/internal/alerting"
	"paca-stakes/internal/network"
	"paca-stakes/internal/storage"
)

// RewardsAlerter notifies when a chain's pending rewards reach the threshold,
// at most once per chain per cooldown.
type RewardsAlerter struct {
	notifier  alerting.Notifier
	networks  *network.Registry
	threshold decimal.Decimal
	cooldown  time.Duration
	timeout   time.Duration
	logger    zerolog.Logger
	now       func() time.Time
	history   storage.AlertLog

	mu   sync.Mutex
	last map[string]time.Time
}

// NewRewardsAlerter builds an alerter. A non-positive threshold disables it.
func NewRewardsAlerter(notifier alerting.Notifier, networks *network.Registry, threshold decimal.Decimal, cooldown time.Duration, logger zerolog.Logger) *RewardsAlerter {
	return &RewardsAlerter{
		notifier:  notifier,
		networks:  networks,
		threshold: threshold,
		cooldown:  cooldown,
		timeout:   10 * time.Second,
		logger:    logger.With().Str("component", "rewards_alerter").Logger(),
		now:       time.Now,
		last:      map[string]time.Time{},
	}
}

// Observe checks snap and dispatches notifications. It is suitable as an OnCommit hook.
func (r *RewardsAlerter) Observe(snap *Snapshot) {
	if r.notifier == nil || !r.threshold.IsPositive() || snap == nil || snap.Address == "" {
		return
	}
	for _, id := range network.Sorted(keys(snap.Totals)) {
		totals := snap.Totals[id]
		if totals.Rewards.LessThan(r.threshold) {
			continue
		}
		if !r.claim(snap.Address, id) {
			continue
		}
		note := alerting.Notification{
			At:        r.now(),
			Address:   snap.Address,
			Chain:     string(id),
			Rewards:   totals.Rewards,
			Threshold: r.threshold,
		}
		if cfg, ok := r.networks.Lookup(id); ok {
			note.Token = cfg.Token
		}
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		if err := r.notifier.Notify(ctx, note); err != nil {
			r.logger.Error().Err(err).Str("chain", string(id)).Msg("failed to dispatch rewards alert")
			r.release(snap.Address, id)
		} else {
			r.record(ctx, note)
		}
		cancel()
	}
}

// claim records an alert for address on chain unless one fired within the cooldown.
func (r *RewardsAlerter) claim(address string, id network.ID) bool {
	key := address + "/" + string(id)
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if last, ok := r.last[key]; ok && now.Sub(last) < r.cooldown {
		return false
	}
	r.last[key] = now
	return true
}

func (r *RewardsAlerter) release(address string, id network.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.last, address+"/"+string(id))
}

// RecordTo persists every delivered alert to log.
func (r *RewardsAlerter) RecordTo(log storage.AlertLog) *RewardsAlerter {
	r.history = log
	return r
}

func (r *RewardsAlerter) record(ctx context.Context, note alerting.Notification) {
	if r.history == nil {
		return
	}
	_, err := r.history.InsertAlert(ctx, storage.AlertRecord{
		Address:   note.Address,
		Chain:     note.Chain,
		Rewards:   note.Rewards,
		Threshold: note.Threshold,
		CreatedAt: note.At.UTC(),
	})
	if err != nil {
		r.logger.Warn().Err(err).Str("chain", note.Chain).Msg("failed to record rewards alert")
	}
}

func keys[V any](m map[network.ID]V) []network.ID {
	out := make([]network.ID, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
