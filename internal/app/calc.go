package app

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	chart "github.com/wcharczuk/go-chart/v2"

	"paca-stakes/internal/simulator"
)

const defaultMaxPoints = 500

// CalcOptions configure the calc command. Cycle, when set, selects the
// cycle strategy and takes precedence over Compound.
type CalcOptions struct {
	Amount    float64
	Rate      float64
	Days      int
	Compound  bool
	Restake   bool
	Cycle     string
	CSVPath   string
	PNGPath   string
	MaxPoints int
}

// Calc runs the interest simulator and optionally exports its day-by-day timeline.
func (a *App) Calc(opts CalcOptions) error {
	params := simulator.Params{
		Principal: opts.Amount,
		RatePct:   opts.Rate,
		Days:      opts.Days,
		Restake:   opts.Restake,
	}

	var history []simulator.Day
	switch {
	case opts.Cycle != "":
		strategy, err := simulator.ParseStrategy(opts.Cycle)
		if err != nil {
			return err
		}
		res := simulator.Cycle(simulator.CycleParams{Params: params, Strategy: strategy})
		renderCycle(a, strategy, res)
		history = res.History
	case opts.Compound:
		res := simulator.Compound(params)
		renderCompound(a, res)
		history = res.History
	default:
		if opts.CSVPath != "" || opts.PNGPath != "" {
			return errors.New("--csv and --png need --compound or --cycle")
		}
		res := simulator.Simple(opts.Amount, opts.Rate, opts.Days)
		w := newTable(a.Out)
		fmt.Fprintln(w, "Daily Return\tTotal Return\tTotal Value")
		fmt.Fprintf(w, "%.2f\t%.2f\t%.2f\n", res.DailyReturn, res.TotalReturn, res.TotalValue)
		w.Flush()
		return nil
	}

	if len(history) == 0 {
		return nil
	}
	maxPoints := opts.MaxPoints
	if maxPoints <= 0 {
		maxPoints = defaultMaxPoints
	}
	points := downsampleDays(history, maxPoints)
	if opts.CSVPath != "" {
		if err := writeDaysCSV(opts.CSVPath, points); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.CSVPath).Int("rows", len(points)).Msg("timeline csv written")
	}
	if opts.PNGPath != "" {
		if err := writeDaysPNG(opts.PNGPath, points); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.PNGPath).Int("points", len(points)).Msg("timeline chart written")
	}
	return nil
}

func renderCompound(a *App, res simulator.CompoundResult) {
	w := newTable(a.Out)
	fmt.Fprintln(w, "Total Return\tTotal Value\tStaked Value\tDaily Return\tDaily Rate%\tActive Stakes\tRestaked\tRestakes\tPending Restake")
	fmt.Fprintf(w, "%.2f\t%.2f\t%.2f\t%.2f\t%.3f\t%d\t%.2f\t%d\t%d\n",
		res.TotalReturn, res.TotalValue, res.TotalStakedValue, res.DailyReturn, res.DailyRatePct,
		res.ActiveStakes, res.RestakedTotal, res.RestakeCount, res.PendingRestake)
	w.Flush()
}

func renderCycle(a *App, strategy simulator.Strategy, res simulator.CycleResult) {
	renderCompound(a, res.CompoundResult)
	fmt.Fprintln(a.Out)
	fmt.Fprintf(a.Out, "Strategy %s: claimed %.2f in %d claims, compounded %.2f in %d compounds, unclaimed %.2f\n",
		strategy, res.TotalClaimed, res.ClaimCount, res.TotalCompounded, res.CompoundCount, res.Unclaimed)
	if len(res.Cycles) == 0 {
		return
	}
	w := newTable(a.Out)
	fmt.Fprintln(w, "Cycle\tCompounds\tClaims")
	for _, c := range res.Cycles {
		fmt.Fprintf(w, "%d\t%d\t%d\n", c.Cycle, c.Compounds, c.Claims)
	}
	w.Flush()
}

// downsampleDays keeps max evenly spaced rows, always including the first and last.
func downsampleDays(days []simulator.Day, max int) []simulator.Day {
	if max <= 0 || len(days) <= max {
		return days
	}
	if max == 1 {
		return days[len(days)-1:]
	}

	result := make([]simulator.Day, 0, max)
	step := float64(len(days)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(days) {
			idx = len(days) - 1
		}
		result = append(result, days[idx])
	}
	return result
}

func writeDaysCSV(path string, days []simulator.Day) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"day", "active_stakes", "active_value", "daily_rewards", "cumulative_rewards"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, d := range days {
		record := []string{
			strconv.Itoa(d.Day),
			strconv.Itoa(d.ActiveStakes),
			strconv.FormatFloat(d.ActiveValue, 'f', 6, 64),
			strconv.FormatFloat(d.DailyRewards, 'f', 6, 64),
			strconv.FormatFloat(d.CumulativeRewards, 'f', 6, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeDaysPNG(path string, days []simulator.Day) error {
	if len(days) < 2 {
		return errors.New("need at least two days to draw a chart")
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]float64, len(days))
	active := make([]float64, len(days))
	cumulative := make([]float64, len(days))
	daily := make([]float64, len(days))
	for i, d := range days {
		x[i] = float64(d.Day)
		active[i] = d.ActiveValue
		cumulative[i] = d.CumulativeRewards
		daily[i] = d.DailyRewards
	}

	valueFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			Name: "Day",
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.0f")
			},
		},
		YAxis: chart.YAxis{
			Name:           "Value",
			ValueFormatter: valueFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Daily rewards",
			ValueFormatter: valueFormatter,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Active value",
				XValues: x,
				YValues: active,
			},
			chart.ContinuousSeries{
				Name:    "Cumulative rewards",
				XValues: x,
				YValues: cumulative,
			},
			chart.ContinuousSeries{
				Name:    "Daily rewards",
				XValues: x,
				YValues: daily,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
