package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var addressesCmd = &cobra.Command{
	Use:   "addresses",
	Short: "Manage the local address book",
}

var addressesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remembered addresses, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ListAddresses(cmd.Context())
	},
}

var addressesAddCmd = &cobra.Command{
	Use:   "add <address>",
	Short: "Remember an address and make it current",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().AddAddress(cmd.Context(), args[0])
	},
}

var addressesRemoveCmd = &cobra.Command{
	Use:   "remove <address>",
	Short: "Forget an address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().RemoveAddress(cmd.Context(), args[0])
	},
}

var addressesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every address",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ClearAddresses(cmd.Context())
	},
}

var alertsLimit int

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Display recently delivered reward alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if alertsLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}
		return getApp().Alerts(cmd.Context(), alertsLimit)
	},
}

func init() {
	addressesCmd.AddCommand(addressesListCmd, addressesAddCmd, addressesRemoveCmd, addressesClearCmd)

	alertsCmd.Flags().IntVar(&alertsLimit, "limit", 20, "Number of alerts to display")
}
