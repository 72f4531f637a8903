package simulator

// Params describe a compounding simulation.
type Params struct {
	Principal float64
	RatePct   float64
	Days      int
	// Restake re-deposits expired compound and restake positions at RestakeRatePct.
	Restake bool
}

func (p Params) degenerate() bool {
	return p.Principal <= 0 || p.RatePct <= 0 || p.Days <= 0
}

// CompoundResult is the outcome of a compounding simulation.
type CompoundResult struct {
	// TotalReturn is every reward accrued over the run.
	TotalReturn float64 `json:"totalReturn"`
	// TotalValue and TotalStakedValue are the amounts still staked at the end.
	TotalValue       float64 `json:"totalValue"`
	TotalStakedValue float64 `json:"totalStakedValue"`
	// DailyReturn and DailyRatePct are blended over the final active set.
	DailyReturn  float64 `json:"dailyReturn"`
	DailyRatePct float64 `json:"dailyRatePct"`
	ActiveStakes int     `json:"activeStakes"`
	// PendingRestake counts expired compound positions not yet restaked.
	PendingRestake int     `json:"pendingRestake"`
	RestakedTotal  float64 `json:"restakedTotal"`
	RestakeCount   int     `json:"restakeCount"`
	History        []Day   `json:"history"`
}

// Compound reinvests each day's rewards as a new position at the fixed
// compound rate. The initial position is never restaked.
func Compound(p Params) CompoundResult {
	return compound(p, nil)
}

func compound(p Params, observe func(int, []position)) CompoundResult {
	if p.degenerate() {
		return degenerateResult(p.Principal)
	}

	e := newEngine(p.Principal, p.RatePct, p.Days, p.Restake)
	e.observe = observe
	for day := 1; day <= p.Days; day++ {
		reward := e.accrue()
		e.flushRestake()
		if reward > 0 {
			e.open(reward, CompoundRatePct, KindCompound)
		}
		e.record(day, reward)
	}
	e.flushRestake()
	return e.result()
}

func (e *engine) result() CompoundResult {
	value := e.activeValue()
	daily := e.dailyReturn()
	ratePct := 0.0
	if value > 0 {
		ratePct = daily / value * 100
	}
	return CompoundResult{
		TotalReturn:      e.totalReturn,
		TotalValue:       value,
		TotalStakedValue: value,
		DailyReturn:      daily,
		DailyRatePct:     ratePct,
		ActiveStakes:     len(e.active),
		PendingRestake:   e.pendingCount,
		RestakedTotal:    e.restakedTotal,
		RestakeCount:     e.restakeCount,
		History:          e.history,
	}
}

func degenerateResult(principal float64) CompoundResult {
	v := nonNegative(principal)
	return CompoundResult{TotalValue: v, TotalStakedValue: v, History: []Day{}}
}
