package service

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"paca-stakes/internal/network"
	"paca-stakes/internal/stake"
)

// PoolRate is the pool-wide daily reward rate of one chain.
type PoolRate struct {
	Chain   network.ID      `json:"chain"`
	RatePct decimal.Decimal `json:"ratePct"`
	OK      bool            `json:"ok"`
}

type rateCache struct {
	c *cache.Cache
}

func newRateCache(ttl time.Duration) *rateCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &rateCache{c: cache.New(ttl, 2*ttl)}
}

func (r *rateCache) get(id network.ID) (PoolRate, bool) {
	v, ok := r.c.Get(string(id))
	if !ok {
		return PoolRate{}, false
	}
	rate, ok := v.(PoolRate)
	return rate, ok
}

func (r *rateCache) set(rate PoolRate) {
	r.c.SetDefault(string(rate.Chain), rate)
}

// PoolRates returns the current pool daily rate of every chain, in percent.
// Successful reads are cached; failed ones report OK=false and are retried next call.
func (a *Aggregator) PoolRates(ctx context.Context) []PoolRate {
	ids := a.clients.IDs()
	out := make([]PoolRate, len(ids))
	var g errgroup.Group
	for i, id := range ids {
		if cached, ok := a.rates.get(id); ok {
			out[i] = cached
			continue
		}
		g.Go(func() error {
			rate := PoolRate{Chain: id}
			client, err := a.clients.Client(id)
			if err == nil {
				if raw, ok := client.FetchPoolRate(ctx); ok {
					rate.RatePct = stake.RatePercent(raw)
					rate.OK = true
					a.rates.set(rate)
				}
			}
			out[i] = rate
			return nil
		})
	}
	_ = g.Wait()
	return out
}
