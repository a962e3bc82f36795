package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vitwit/pipay/types"
	"github.com/vitwit/pipay/utils"
)

// intentFlags holds the flags shared by commands that describe a payment.
type intentFlags struct {
	amount     string
	memo       string
	uid        string
	identifier string
	to         string
	metadata   []string
}

func (f *intentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.amount, "amount", "", "amount in the native asset")
	cmd.Flags().StringVar(&f.memo, "memo", "", "memo shown to the user")
	cmd.Flags().StringVar(&f.uid, "uid", "", "receiving user's uid")
	cmd.Flags().StringVar(&f.to, "to", "", "destination ledger address")
	cmd.Flags().StringArrayVar(&f.metadata, "metadata", nil, "metadata entry as key=value (repeatable)")

	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("memo")
	_ = cmd.MarkFlagRequired("uid")
	_ = cmd.MarkFlagRequired("to")
}

// intent builds a payment intent from the flags. identifier may be empty for
// payments whose identifier the API assigns.
func (f *intentFlags) intent(identifier string) (*types.PaymentIntent, error) {
	amount, err := utils.ValidateAmount(f.amount)
	if err != nil {
		return nil, err
	}

	metadata, err := parseMetadata(f.metadata)
	if err != nil {
		return nil, err
	}

	return &types.PaymentIntent{
		Amount:     *amount,
		Memo:       f.memo,
		Metadata:   metadata,
		UserUID:    f.uid,
		Identifier: identifier,
		ToAddress:  f.to,
	}, nil
}

func parseMetadata(entries []string) (map[string]any, error) {
	metadata := make(map[string]any, len(entries))
	for _, e := range entries {
		key, value, ok := strings.Cut(e, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid metadata entry %q, expected key=value", e)
		}
		metadata[key] = value
	}
	return metadata, nil
}
