package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Refresh kinds and outcomes used as label values.
const (
	KindFull    = "full"
	KindChain   = "chain"
	KindRewards = "rewards"

	ResultApplied = "applied"
	ResultStale   = "stale"
	ResultInvalid = "invalid"
	ResultFailed  = "failed"
)

var (
	rpcRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pacastakes",
		Name:      "rpc_requests_total",
		Help:      "Contract calls issued, by chain, method and result.",
	}, []string{"chain", "method", "result"})

	rpcDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pacastakes",
		Name:      "rpc_duration_seconds",
		Help:      "Latency of contract calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"chain", "method"})

	refreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pacastakes",
		Name:      "refresh_total",
		Help:      "Aggregator refreshes, by kind and outcome.",
	}, []string{"kind", "result"})

	registerOnce sync.Once
)

// MustRegister registers the collectors with the default registry. Safe to call twice.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(rpcRequests, rpcDuration, refreshes)
	})
}

// ObserveRPC records one contract call.
func ObserveRPC(chain, method string, started time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	rpcRequests.WithLabelValues(chain, method, result).Inc()
	rpcDuration.WithLabelValues(chain, method).Observe(time.Since(started).Seconds())
}

// ObserveRefresh records the outcome of an aggregator refresh.
func ObserveRefresh(kind, result string) {
	refreshes.WithLabelValues(kind, result).Inc()
}
