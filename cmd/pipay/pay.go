package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newPayCmd() *cobra.Command {
	var (
		flags      intentFlags
		identifier string
		noComplete bool
	)

	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Create, submit and complete a payment",
		Long: `Create a payment on the API, submit its ledger transaction and report
completion. If submission fails the payment is cancelled on the API.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			intent, err := flags.intent(identifier)
			if err != nil {
				return err
			}

			client, err := newClient(ctx)
			if err != nil {
				return err
			}
			if intent.Identifier == "" {
				intent.Identifier = newIdentifier()
			}

			id, err := client.CreatePayment(ctx, intent)
			if err != nil {
				return fmt.Errorf("failed to create payment: %w", err)
			}
			color.Green("✓ Created payment %s", id)

			txid, err := client.SubmitPayment(ctx, id, nil)
			if err != nil {
				if ok, cancelErr := client.CancelPayment(ctx, id); ok {
					color.Yellow("Cancelled payment %s", id)
				} else {
					color.Red("Failed to cancel payment %s: %v", id, cancelErr)
				}
				return fmt.Errorf("failed to submit payment: %w", err)
			}
			color.Green("✓ Submitted transaction %s", txid)

			if noComplete {
				return nil
			}
			if _, err := client.CompletePayment(ctx, id, txid); err != nil {
				return fmt.Errorf("failed to complete payment %s: %w", id, err)
			}
			color.Green("✓ Completed payment %s", id)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&identifier, "identifier", "", "payment identifier (generated when empty)")
	cmd.Flags().BoolVar(&noComplete, "no-complete", false, "stop after submission")
	return cmd
}

// newIdentifier returns a random identifier that fits a transaction text memo.
func newIdentifier() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}
