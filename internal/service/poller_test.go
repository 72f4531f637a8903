package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"paca-stakes/internal/alerting"
	"paca-stakes/internal/network"
	"paca-stakes/internal/stake"
	"paca-stakes/internal/storage"
)

func TestPollerStartStop(t *testing.T) {
	env := newEnv()
	env.setAll(addrX, 1, 100)

	p := NewPoller(env.agg, PollerOptions{RewardsInterval: 5 * time.Millisecond, FullEvery: 2}, zerolog.Nop())
	var commits atomic.Int32
	p.OnCommit(func(*Snapshot) { commits.Add(1) })

	snap, err := p.Start(context.Background(), addrX)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !snap.Has(network.BSC) {
		t.Fatal("initial full refresh should populate the cache")
	}
	if p.Address() != snapAddress(addrX) {
		t.Fatalf("poller address %q", p.Address())
	}

	waitFor(t, func() bool { return env.fakes[network.BSC].rewardCalls.Load() >= 4 })
	waitFor(t, func() bool { return env.fakes[network.BSC].stakeCalls.Load() >= 2 })

	p.Stop()
	if p.Address() != "" {
		t.Fatal("stopped poller should be idle")
	}
	calls := env.fakes[network.BSC].rewardCalls.Load()
	time.Sleep(30 * time.Millisecond)
	if env.fakes[network.BSC].rewardCalls.Load() != calls {
		t.Fatal("no ticks may run after Stop returns")
	}
}

func TestPollerDiscardsTickAfterStop(t *testing.T) {
	env := newEnv()
	env.setAll(addrX, 1, 100)

	p := NewPoller(env.agg, PollerOptions{RewardsInterval: time.Hour}, zerolog.Nop())
	release := env.fakes[network.BSC].hold(addrX)

	var mu sync.Mutex
	var startErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := p.Start(context.Background(), addrX)
		mu.Lock()
		startErr = err
		mu.Unlock()
	}()
	waitFor(t, func() bool { return env.fakes[network.BSC].stakeCalls.Load() >= 1 })

	p.Stop()
	release()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if startErr != nil {
		t.Fatalf("Start: %v", startErr)
	}
	if len(env.agg.Snapshot().Stakes) != 0 {
		t.Fatal("refresh resolving after Stop must be discarded")
	}
	if p.Address() != "" {
		t.Fatal("superseded Start must not launch loops")
	}
}

func TestPollerRestartNewAddress(t *testing.T) {
	env := newEnv()
	env.setAll(addrX, 1, 100)
	env.setAll(addrY, 2, 200)

	p := NewPoller(env.agg, PollerOptions{RewardsInterval: time.Hour}, zerolog.Nop())
	if _, err := p.Start(context.Background(), addrX); err != nil {
		t.Fatal(err)
	}
	snap, err := p.Start(context.Background(), addrY)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Stop()
	if snap.Address != snapAddress(addrY) || snap.Stakes[network.BSC][0].Amount.Int64() != 200 {
		t.Fatal("restart should serve the new address only")
	}
}

func TestPollerInvalidAddress(t *testing.T) {
	env := newEnv()
	p := NewPoller(env.agg, PollerOptions{}, zerolog.Nop())
	if _, err := p.Start(context.Background(), "nope"); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
	if p.Address() != "" {
		t.Fatal("invalid address must not start polling")
	}
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []alerting.Notification
	err   error
}

func (r *recordingNotifier) Notify(_ context.Context, n alerting.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
	return r.err
}

func TestRewardsAlerter(t *testing.T) {
	notifier := &recordingNotifier{}
	clock := time.Unix(1_700_000_000, 0)
	a := NewRewardsAlerter(notifier, network.MustDefault(), decimal.NewFromInt(25), time.Hour, zerolog.Nop())
	a.now = func() time.Time { return clock }

	snap := emptySnapshot(snapAddress(addrX), 1)
	snap.Totals[network.BSC] = totalsWithRewards(25)
	snap.Totals[network.Base] = totalsWithRewards(24)

	a.Observe(snap)
	if len(notifier.notes) != 1 || notifier.notes[0].Chain != "bsc" || notifier.notes[0].Token != "USDT" {
		t.Fatalf("threshold is inclusive and per chain: %+v", notifier.notes)
	}

	a.Observe(snap)
	if len(notifier.notes) != 1 {
		t.Fatal("cooldown should suppress repeats")
	}

	clock = clock.Add(2 * time.Hour)
	a.Observe(snap)
	if len(notifier.notes) != 2 {
		t.Fatal("alert should fire again after cooldown")
	}
}

type memoryAlertLog struct {
	mu      sync.Mutex
	records []storage.AlertRecord
}

func (m *memoryAlertLog) InsertAlert(_ context.Context, rec storage.AlertRecord) (storage.AlertRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = int64(len(m.records) + 1)
	m.records = append(m.records, rec)
	return rec, nil
}

func (m *memoryAlertLog) ListRecentAlerts(context.Context, int) ([]storage.AlertRecord, error) {
	return m.records, nil
}

func TestRewardsAlerterRecordsDelivered(t *testing.T) {
	history := &memoryAlertLog{}
	failing := &recordingNotifier{err: errors.New("down")}
	a := NewRewardsAlerter(failing, network.MustDefault(), decimal.NewFromInt(1), time.Hour, zerolog.Nop()).RecordTo(history)
	snap := emptySnapshot(snapAddress(addrX), 1)
	snap.Totals[network.BSC] = totalsWithRewards(3)

	a.Observe(snap)
	if len(history.records) != 0 {
		t.Fatal("failed deliveries are not recorded")
	}

	failing.err = nil
	a.Observe(snap)
	if len(history.records) != 1 || history.records[0].Chain != "bsc" || !history.records[0].Rewards.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("recorded %+v", history.records)
	}
}

func TestRewardsAlerterRetriesAfterFailure(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("down")}
	a := NewRewardsAlerter(notifier, network.MustDefault(), decimal.NewFromInt(1), time.Hour, zerolog.Nop())
	snap := emptySnapshot(snapAddress(addrX), 1)
	snap.Totals[network.Sonic] = totalsWithRewards(5)

	a.Observe(snap)
	a.Observe(snap)
	if len(notifier.notes) != 2 {
		t.Fatalf("failed delivery should not start the cooldown, got %d attempts", len(notifier.notes))
	}
}

func totalsWithRewards(v int64) stake.Totals {
	return stake.Totals{Rewards: decimal.NewFromInt(v)}
}
