package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"paca-stakes/internal/app"
)

var (
	stakesChain         string
	stakesSort          string
	stakesDesc          bool
	stakesShowCompleted bool
	stakesPage          int
	stakesPageSize      int
)

var stakesCmd = &cobra.Command{
	Use:   "stakes [address]",
	Short: "Show a wallet's stakes on one chain with per-chain totals",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if stakesPage < 1 {
			return fmt.Errorf("--page must be at least 1")
		}
		if stakesPageSize < 0 {
			return fmt.Errorf("--page-size cannot be negative")
		}
		return getApp().Stakes(cmd.Context(), app.StakesOptions{
			Address:       optionalArg(args),
			Chain:         stakesChain,
			Sort:          stakesSort,
			Desc:          stakesDesc,
			ShowCompleted: stakesShowCompleted,
			Page:          stakesPage,
			PageSize:      stakesPageSize,
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [address]",
	Short: "Poll a wallet and reprint its summary on every refresh",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Watch(cmd.Context(), optionalArg(args))
	},
}

var (
	withdrawalsChain         string
	withdrawalsSort          string
	withdrawalsDesc          bool
	withdrawalsShowCompleted bool
)

var withdrawalsCmd = &cobra.Command{
	Use:   "withdrawals [address]",
	Short: "Show a wallet's withdrawal queue reconciled with claim logs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Withdrawals(cmd.Context(), app.WithdrawalsOptions{
			Address:       optionalArg(args),
			Chain:         withdrawalsChain,
			Sort:          withdrawalsSort,
			Desc:          withdrawalsDesc,
			ShowCompleted: withdrawalsShowCompleted,
		})
	},
}

func init() {
	stakesCmd.Flags().StringVar(&stakesChain, "chain", "", "Chain to list (defaults to the first configured chain)")
	stakesCmd.Flags().StringVar(&stakesSort, "sort", "", "Sort column, e.g. amount, daysLeft, dailyEarnings")
	stakesCmd.Flags().BoolVar(&stakesDesc, "desc", false, "Sort descending")
	stakesCmd.Flags().BoolVar(&stakesShowCompleted, "show-completed", true, "Include completed stakes")
	stakesCmd.Flags().IntVar(&stakesPage, "page", 1, "Page number")
	stakesCmd.Flags().IntVar(&stakesPageSize, "page-size", 0, "Rows per page (0 shows all)")

	withdrawalsCmd.Flags().StringVar(&withdrawalsChain, "chain", "", "Chain to list (defaults to the first configured chain)")
	withdrawalsCmd.Flags().StringVar(&withdrawalsSort, "sort", "", "Sort column: stakeId, amount, unlockTime, daysLeft")
	withdrawalsCmd.Flags().BoolVar(&withdrawalsDesc, "desc", false, "Sort descending")
	withdrawalsCmd.Flags().BoolVar(&withdrawalsShowCompleted, "show-completed", false, "Include withdrawn entries")
}
