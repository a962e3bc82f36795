package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/vitwit/pipay/utils"
)

func newSubmitCmd() *cobra.Command {
	var flags intentFlags

	cmd := &cobra.Command{
		Use:   "submit <identifier>",
		Short: "Submit the ledger transaction for an existing payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			intent, err := flags.intent(args[0])
			if err != nil {
				return err
			}

			client, err := newClient(ctx)
			if err != nil {
				return err
			}

			txid, err := client.SubmitPayment(ctx, args[0], intent)
			if err != nil {
				return fmt.Errorf("failed to submit payment: %w", err)
			}
			color.Green("✓ Submitted transaction %s", txid)
			fmt.Println(txid)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newCompleteCmd() *cobra.Command {
	var txid string

	cmd := &cobra.Command{
		Use:   "complete <identifier>",
		Short: "Report a payment as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if txid != "" {
				if err := utils.ValidateTransactionHash(txid); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			client, err := newClient(ctx)
			if err != nil {
				return err
			}

			if _, err := client.CompletePayment(ctx, args[0], txid); err != nil {
				return fmt.Errorf("failed to complete payment: %w", err)
			}
			color.Green("✓ Completed payment %s", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&txid, "txid", "", "ledger transaction id")
	return cmd
}

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <identifier>",
		Short: "Cancel a payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := newClient(ctx)
			if err != nil {
				return err
			}

			if _, err := client.CancelPayment(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to cancel payment: %w", err)
			}
			color.Yellow("Cancelled payment %s", args[0])
			return nil
		},
	}
}

func newIncompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "incomplete",
		Short: "List server-side payments that are not yet completed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := newClient(ctx)
			if err != nil {
				return err
			}

			payments, err := client.ListIncompletePayments(ctx)
			if err != nil {
				return fmt.Errorf("failed to list incomplete payments: %w", err)
			}
			if len(payments) == 0 {
				color.Green("No incomplete payments")
				return nil
			}

			out, err := utils.NormalizeJSON(payments)
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}
