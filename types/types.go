package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentIntent is the caller-supplied description of an app-to-user payment
// before any remote or ledger action is taken.
type PaymentIntent struct {
	// Amount in the native asset. Up to 7 decimal places are meaningful on the ledger.
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`

	// Memo is app-defined text shown to the user.
	Memo string `json:"memo" validate:"required"`

	// Metadata is opaque app-defined data. It must be present but may be empty.
	Metadata map[string]any `json:"metadata" validate:"required"`

	// UserUID references the receiving user in the payment API.
	UserUID string `json:"user_uid" validate:"required"`

	// Identifier of the payment, assigned by the API or pre-generated.
	// It is written into the ledger transaction as a text memo.
	Identifier string `json:"identifier" validate:"required"`

	// ToAddress is the destination ledger address.
	ToAddress string `json:"to_address" validate:"required"`

	// FromAddress defaults to the session's public address when empty.
	FromAddress string `json:"from_address,omitempty"`

	Network string `json:"network,omitempty"`
}

// PaymentStatus mirrors the status flags of a payment on the API side.
type PaymentStatus struct {
	DeveloperApproved   bool `json:"developer_approved"`
	TransactionVerified bool `json:"transaction_verified"`
	DeveloperCompleted  bool `json:"developer_completed"`
	Cancelled           bool `json:"cancelled"`
	UserCancelled       bool `json:"user_cancelled"`
}

// PaymentTransaction is the ledger transaction linked to a payment, if any.
type PaymentTransaction struct {
	TxID     string `json:"txid"`
	Verified bool   `json:"verified"`
	Link     string `json:"_link"`
}

// PaymentSnapshot is the payment object as last returned by the payment API.
type PaymentSnapshot struct {
	Identifier  string              `json:"identifier"`
	UserUID     string              `json:"user_uid"`
	Amount      decimal.Decimal     `json:"amount"`
	Memo        string              `json:"memo"`
	Metadata    map[string]any      `json:"metadata"`
	FromAddress string              `json:"from_address"`
	ToAddress   string              `json:"to_address"`
	Direction   string              `json:"direction"`
	Network     string              `json:"network"`
	CreatedAt   string              `json:"created_at"`
	Status      PaymentStatus       `json:"status"`
	Transaction *PaymentTransaction `json:"transaction,omitempty"`
}

// Intent converts a snapshot back into a submittable intent.
func (s *PaymentSnapshot) Intent() *PaymentIntent {
	metadata := s.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &PaymentIntent{
		Amount:      s.Amount,
		Memo:        s.Memo,
		Metadata:    metadata,
		UserUID:     s.UserUID,
		Identifier:  s.Identifier,
		ToAddress:   s.ToAddress,
		FromAddress: s.FromAddress,
		Network:     s.Network,
	}
}

// IncompletePaymentsResponse is the body of the list-incomplete endpoint.
type IncompletePaymentsResponse struct {
	IncompleteServerPayments []PaymentSnapshot `json:"incomplete_server_payments"`
}

// Config contains global configuration for the payment client.
type Config struct {
	DefaultTimeout time.Duration `json:"defaultTimeout,omitempty" yaml:"timeout,omitempty"`
	RetryCount     int           `json:"retryCount,omitempty" yaml:"retry_count,omitempty"`
	LogLevel       string        `json:"logLevel,omitempty" yaml:"log_level,omitempty"`
	EnableMetrics  bool          `json:"enableMetrics,omitempty" yaml:"enable_metrics,omitempty"`

	// APIURL and HorizonURL override the hosts selected by network name.
	APIURL     string `json:"apiUrl,omitempty" yaml:"api_url,omitempty"`
	HorizonURL string `json:"horizonUrl,omitempty" yaml:"horizon_url,omitempty"`
}

// DefaultConfig returns the configuration used by NewWithDefaults.
func DefaultConfig() *Config {
	return &Config{
		DefaultTimeout: 30 * time.Second,
		RetryCount:     3,
		LogLevel:       "info",
		EnableMetrics:  false,
	}
}

// BalanceCheck is the outcome of a balance gate.
type BalanceCheck struct {
	Sufficient bool            `json:"sufficient"`
	Balance    decimal.Decimal `json:"balance"`
	Amount     decimal.Decimal `json:"amount"`
	Fee        decimal.Decimal `json:"fee"`
	TotalCost  decimal.Decimal `json:"totalCost"`
}
