package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/strkey"
)

const (
	// LedgerDecimals is the number of decimal places of the native asset.
	LedgerDecimals = 7

	// SeedLength is the length of an encoded secret seed.
	SeedLength = 56

	// MaxMemoTextBytes is the ledger limit for a text memo.
	MaxMemoTextBytes = 28
)

var hexPattern = regexp.MustCompile("^[0-9a-fA-F]+$")

// ValidateSeedFormat checks the shape of a secret seed: fixed length and an
// 'S' prefix. Checksum validation happens when the keypair is parsed.
func ValidateSeedFormat(seed string) error {
	if len(seed) != SeedLength {
		return fmt.Errorf("seed must be %d characters long", SeedLength)
	}
	if !strings.HasPrefix(strings.ToUpper(seed), "S") {
		return fmt.Errorf("seed must start with S")
	}
	return nil
}

// ValidateAmount checks if an amount string is a valid decimal
func ValidateAmount(amount string) (*decimal.Decimal, error) {
	if amount == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}

	if dec.IsNegative() {
		return nil, fmt.Errorf("amount cannot be negative")
	}

	return &dec, nil
}

// ValidateLedgerAmount ensures an amount is positive and representable with
// the ledger's fixed-point precision.
func ValidateLedgerAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be greater than zero")
	}
	if !amount.Equal(amount.Truncate(LedgerDecimals)) {
		return fmt.Errorf("amount %s has more than %d decimal places", amount, LedgerDecimals)
	}
	return nil
}

// ValidateAddress validates a ledger account address (G...).
func ValidateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}
	if !strkey.IsValidEd25519PublicKey(address) {
		return fmt.Errorf("invalid ledger address: %s", address)
	}
	return nil
}

// ValidateMemoText enforces the ledger text memo size.
func ValidateMemoText(text string) error {
	if len(text) > MaxMemoTextBytes {
		return fmt.Errorf("memo text is %d bytes, limit is %d", len(text), MaxMemoTextBytes)
	}
	return nil
}

// ValidateTransactionHash validates a ledger transaction hash: 64 hex characters.
func ValidateTransactionHash(hash string) error {
	if hash == "" {
		return fmt.Errorf("transaction hash cannot be empty")
	}
	if len(hash) != 64 {
		return fmt.Errorf("transaction hash must be 64 characters long")
	}
	if !hexPattern.MatchString(hash) {
		return fmt.Errorf("transaction hash must be valid hex")
	}
	return nil
}

// ScaleFee converts a fee in the ledger's smallest unit into native units.
func ScaleFee(fee int64) decimal.Decimal {
	return decimal.New(fee, -LedgerDecimals)
}

// TotalCost is the amount plus the scaled base fee.
func TotalCost(amount decimal.Decimal, fee int64) decimal.Decimal {
	return amount.Add(ScaleFee(fee))
}

// FormatLedgerAmount renders an amount as the ledger's fixed-point string.
func FormatLedgerAmount(amount decimal.Decimal) string {
	return amount.StringFixed(LedgerDecimals)
}
