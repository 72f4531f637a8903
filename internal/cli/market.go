package cli

import (
	"github.com/spf13/cobra"

	"paca-stakes/internal/app"
)

var (
	marketChain string
	marketSort  string
	marketDesc  bool
)

var marketCmd = &cobra.Command{
	Use:   "market",
	Short: "List marketplace stakes for sale with discount and effective rate",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Market(cmd.Context(), app.MarketOptions{
			Chain: marketChain,
			Sort:  marketSort,
			Desc:  marketDesc,
		})
	},
}

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Show the pool daily reward rate of every chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Rates(cmd.Context())
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary [address...]",
	Short: "Summarize several wallets across all chains (defaults to the address book)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Summary(cmd.Context(), args)
	},
}

func init() {
	marketCmd.Flags().StringVar(&marketChain, "chain", "", "Chain to list (defaults to the first configured chain)")
	marketCmd.Flags().StringVar(&marketSort, "sort", "", "Sort column, e.g. price, discountPercentage, effectiveDailyRate")
	marketCmd.Flags().BoolVar(&marketDesc, "desc", false, "Sort descending")
}
