package utils

import (
	"fmt"

	"github.com/stellar/go/keypair"
)

// ParseSigningSeed validates the seed shape and derives the full keypair.
func ParseSigningSeed(seed string) (*keypair.Full, error) {
	if err := ValidateSeedFormat(seed); err != nil {
		return nil, err
	}

	kp, err := keypair.ParseFull(seed)
	if err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}

	return kp, nil
}

// RedactAddress shortens an address for log output.
func RedactAddress(address string) string {
	if len(address) <= 12 {
		return address
	}
	return address[:6] + "..." + address[len(address)-6:]
}
