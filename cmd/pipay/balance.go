package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/vitwit/pipay/utils"
)

func newBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the held account's address, balance and base fee",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := newClient(ctx)
			if err != nil {
				return err
			}

			fee, err := client.RefreshBaseFee(ctx)
			if err != nil {
				return err
			}

			bold := color.New(color.Bold)
			bold.Print("Address:  ")
			fmt.Println(client.PublicAddress())
			bold.Print("Balance:  ")
			fmt.Println(client.GetBalance(ctx).String())
			bold.Print("Base fee: ")
			fmt.Printf("%d (%s)\n", fee, utils.ScaleFee(fee).String())
			return nil
		},
	}
}
