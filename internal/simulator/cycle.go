package simulator

import (
	"fmt"
	"strconv"
	"strings"
)

// Strategy is a repeating run of compound days followed by claim days.
type Strategy struct {
	CompoundDays int `json:"compoundDays"`
	ClaimDays    int `json:"claimDays"`
}

// ParseStrategy reads "C:M", e.g. "4:3".
func ParseStrategy(s string) (Strategy, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return Strategy{}, fmt.Errorf("strategy %q: want compound:claim", s)
	}
	c, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || c < 0 {
		return Strategy{}, fmt.Errorf("strategy %q: bad compound days", s)
	}
	m, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || m < 0 {
		return Strategy{}, fmt.Errorf("strategy %q: bad claim days", s)
	}
	if c+m == 0 {
		return Strategy{}, fmt.Errorf("strategy %q: empty cycle", s)
	}
	return Strategy{CompoundDays: c, ClaimDays: m}, nil
}

func (s Strategy) String() string {
	return fmt.Sprintf("%d:%d", s.CompoundDays, s.ClaimDays)
}

func (s Strategy) length() int {
	return max(s.CompoundDays, 0) + max(s.ClaimDays, 0)
}

// compounding reports whether day (1-based) falls in the compound phase.
// An empty cycle compounds every day.
func (s Strategy) compounding(day int) bool {
	n := s.length()
	if n == 0 {
		return true
	}
	return (day-1)%n < max(s.CompoundDays, 0)
}

// CycleParams describe a cycle-strategy simulation.
type CycleParams struct {
	Params
	Strategy Strategy
}

// CycleStat counts actions within one strategy cycle.
type CycleStat struct {
	Cycle     int `json:"cycle"`
	Compounds int `json:"compounds"`
	Claims    int `json:"claims"`
}

// CycleResult extends CompoundResult with claim/compound accounting.
type CycleResult struct {
	CompoundResult
	TotalClaimed    float64 `json:"totalClaimed"`
	TotalCompounded float64 `json:"totalCompounded"`
	CompoundCount   int     `json:"compoundCount"`
	ClaimCount      int     `json:"claimCount"`
	// Unclaimed is the reward pool left below threshold at the end.
	Unclaimed float64     `json:"unclaimed"`
	Cycles    []CycleStat `json:"cycles"`
}

// Cycle accumulates rewards in a pool. On compound-phase days a pool of at
// least MinCompound becomes a new compound position; on claim-phase days a
// pool of at least MinClaim is withdrawn. Smaller pools carry over.
func Cycle(p CycleParams) CycleResult {
	return cycle(p, nil)
}

func cycle(p CycleParams, observe func(int, []position)) CycleResult {
	if p.degenerate() {
		return CycleResult{CompoundResult: degenerateResult(p.Principal), Cycles: []CycleStat{}}
	}

	e := newEngine(p.Principal, p.RatePct, p.Days, p.Restake)
	e.observe = observe
	out := CycleResult{}
	pool := 0.0
	n := p.Strategy.length()
	if n == 0 {
		n = 1
	}

	for day := 1; day <= p.Days; day++ {
		reward := e.accrue()
		pool += reward
		e.flushRestake()

		idx := (day - 1) / n
		if idx >= len(out.Cycles) {
			out.Cycles = append(out.Cycles, CycleStat{Cycle: idx + 1})
		}
		stat := &out.Cycles[idx]

		if p.Strategy.compounding(day) {
			if pool >= MinCompound {
				e.open(pool, CompoundRatePct, KindCompound)
				out.TotalCompounded += pool
				out.CompoundCount++
				stat.Compounds++
				pool = 0
			}
		} else if pool >= MinClaim {
			out.TotalClaimed += pool
			out.ClaimCount++
			stat.Claims++
			pool = 0
		}
		e.record(day, reward)
	}
	e.flushRestake()

	out.CompoundResult = e.result()
	out.Unclaimed = pool
	return out
}
