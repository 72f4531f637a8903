package simulator

// Fixed re-investment policy. Positions opened by the simulation itself never
// use the caller's rate or duration.
const (
	CompoundRatePct = 0.33
	RestakeRatePct  = 0.37
	ReinvestDays    = 250

	// Minimum pool sizes for the cycle strategy.
	MinCompound = 20.0
	MinClaim    = 25.0
)

// Kind tags where a position came from.
type Kind int

const (
	KindInitial Kind = iota
	KindCompound
	KindRestake
)

func (k Kind) String() string {
	switch k {
	case KindInitial:
		return "initial"
	case KindCompound:
		return "compound"
	case KindRestake:
		return "restake"
	default:
		return "unknown"
	}
}

type position struct {
	amount   float64
	daysLeft int
	rate     float64 // fraction per day
	kind     Kind
}

// Day is one row of the simulated timeline.
type Day struct {
	Day               int     `json:"day"`
	ActiveStakes      int     `json:"activeStakes"`
	ActiveValue       float64 `json:"activeValue"`
	DailyRewards      float64 `json:"dailyRewards"`
	CumulativeRewards float64 `json:"cumulativeRewards"`
}

// engine holds the working set of one simulation run.
type engine struct {
	active  []position
	restake bool

	// expired compound/restake positions waiting to be restaked
	pendingAmount float64
	pendingCount  int

	totalReturn   float64
	restakedTotal float64
	restakeCount  int
	history       []Day

	// observe, when set, sees the active set at the end of every day.
	observe func(day int, active []position)
}

func newEngine(principal, ratePct float64, days int, restake bool) *engine {
	return &engine{
		active:  []position{{amount: principal, daysLeft: days, rate: ratePct / 100, kind: KindInitial}},
		restake: restake,
		history: make([]Day, 0, days),
	}
}

// accrue pays one day of rewards, ages every position and retires expired
// ones. It returns the rewards accrued that day.
func (e *engine) accrue() float64 {
	reward := 0.0
	kept := e.active[:0]
	for _, p := range e.active {
		if p.daysLeft > 0 {
			reward += p.amount * p.rate
			p.daysLeft--
		}
		if p.daysLeft > 0 {
			kept = append(kept, p)
			continue
		}
		if p.kind == KindCompound || p.kind == KindRestake {
			e.pendingAmount += p.amount
			e.pendingCount++
		}
	}
	e.active = kept
	e.totalReturn += reward
	return reward
}

// flushRestake folds the pending pool into one restake position when enabled.
func (e *engine) flushRestake() {
	if !e.restake || e.pendingCount == 0 {
		return
	}
	e.open(e.pendingAmount, RestakeRatePct, KindRestake)
	e.restakedTotal += e.pendingAmount
	e.restakeCount++
	e.pendingAmount = 0
	e.pendingCount = 0
}

func (e *engine) open(amount, ratePct float64, kind Kind) {
	e.active = append(e.active, position{amount: amount, daysLeft: ReinvestDays, rate: ratePct / 100, kind: kind})
}

func (e *engine) record(day int, reward float64) {
	e.history = append(e.history, Day{
		Day:               day,
		ActiveStakes:      len(e.active),
		ActiveValue:       e.activeValue(),
		DailyRewards:      reward,
		CumulativeRewards: e.totalReturn,
	})
	if e.observe != nil {
		e.observe(day, e.active)
	}
}

func (e *engine) activeValue() float64 {
	sum := 0.0
	for _, p := range e.active {
		sum += p.amount
	}
	return sum
}

func (e *engine) dailyReturn() float64 {
	sum := 0.0
	for _, p := range e.active {
		sum += p.amount * p.rate
	}
	return sum
}
