package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"paca-stakes/internal/app"
)

var (
	calcAmount    float64
	calcRate      float64
	calcDays      int
	calcCompound  bool
	calcRestake   bool
	calcCycle     string
	calcCSVPath   string
	calcPNGPath   string
	calcMaxPoints int
)

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Simulate simple, compound or cycle staking returns",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := getApp()
		if !cmd.Flags().Changed("rate") {
			calcRate = a.Config.Calculator.DailyRate
		}
		if !cmd.Flags().Changed("days") {
			calcDays = a.Config.Calculator.Days
		}
		if calcRestake && !calcCompound && calcCycle == "" {
			return errors.New("--restake 需要配合 --compound 或 --cycle 使用")
		}
		return a.Calc(app.CalcOptions{
			Amount:    calcAmount,
			Rate:      calcRate,
			Days:      calcDays,
			Compound:  calcCompound,
			Restake:   calcRestake,
			Cycle:     calcCycle,
			CSVPath:   calcCSVPath,
			PNGPath:   calcPNGPath,
			MaxPoints: calcMaxPoints,
		})
	},
}

func init() {
	calcCmd.Flags().Float64Var(&calcAmount, "amount", 0, "Principal to stake")
	calcCmd.Flags().Float64Var(&calcRate, "rate", 0, "Daily rate in percent (defaults to config)")
	calcCmd.Flags().IntVar(&calcDays, "days", 0, "Simulation length in days (defaults to config)")
	calcCmd.Flags().BoolVar(&calcCompound, "compound", false, "Compound rewards into new positions every day")
	calcCmd.Flags().BoolVar(&calcRestake, "restake", false, "Restake expired compound positions at the restake rate")
	calcCmd.Flags().StringVar(&calcCycle, "cycle", "", "Compound:claim day strategy, e.g. 4:3")
	calcCmd.Flags().StringVar(&calcCSVPath, "csv", "", "Path to write the day-by-day timeline as CSV")
	calcCmd.Flags().StringVar(&calcPNGPath, "png", "", "Path to write the timeline chart")
	calcCmd.Flags().IntVar(&calcMaxPoints, "max-points", 0, "Maximum exported rows (default 500)")
}
