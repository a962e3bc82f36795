package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/vitwit/pipay"
)

var (
	configPath      string
	networkOverride string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pipay",
		Short:   "Send app-to-user payments from a held account",
		Version: pipay.Version,
		Long: `pipay drives the payment lifecycle against the payment API and the ledger:
create the payment, submit the signed transaction, then complete or cancel it.

Credentials come from a YAML config file and can be overridden with
PIPAY_API_KEY, PIPAY_WALLET_SEED and PIPAY_NETWORK.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")
	cmd.PersistentFlags().StringVar(&networkOverride, "network", "", `network name ("Pi Network" selects mainnet)`)

	cmd.AddCommand(
		newBalanceCmd(),
		newPayCmd(),
		newSubmitCmd(),
		newCompleteCmd(),
		newCancelCmd(),
		newIncompleteCmd(),
	)
	return cmd
}
