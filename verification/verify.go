package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitwit/pipay/logger"
	"github.com/vitwit/pipay/types"
	"github.com/vitwit/pipay/utils"
)

// BalanceSource is the account view the balance gate needs.
type BalanceSource interface {
	NativeBalance(ctx context.Context) (decimal.Decimal, error)
	BaseFee() int64
}

// VerificationService checks affordability against the held account's balance.
type VerificationService struct {
	source  BalanceSource
	timeout time.Duration
	logger  logger.Logger
}

// NewVerificationService creates a new verification service
func NewVerificationService(source BalanceSource, timeout time.Duration, log logger.Logger) *VerificationService {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &VerificationService{
		source:  source,
		timeout: timeout,
		logger:  log,
	}
}

// GetBalance returns the native balance, or zero when the query fails. A
// failed query therefore makes every gated operation look under-funded.
func (s *VerificationService) GetBalance(ctx context.Context) decimal.Decimal {
	balanceCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	balance, err := s.source.NativeBalance(balanceCtx)
	if err != nil {
		s.logger.Error("failed to get balance", map[string]any{
			"error": err.Error(),
		})
		return decimal.Zero
	}
	return balance
}

// CheckAffordable gates an amount against the current balance. The base fee
// is scaled from the ledger's smallest unit before it is added to amount.
// It returns an INSUFFICIENT_BALANCE error when the total cost exceeds the
// balance; the check result is returned in both cases.
func (s *VerificationService) CheckAffordable(ctx context.Context, amount decimal.Decimal) (*types.BalanceCheck, error) {
	balance := s.GetBalance(ctx)
	fee := s.source.BaseFee()
	total := utils.TotalCost(amount, fee)

	check := &types.BalanceCheck{
		Sufficient: !total.GreaterThan(balance),
		Balance:    balance,
		Amount:     amount,
		Fee:        utils.ScaleFee(fee),
		TotalCost:  total,
	}

	if !check.Sufficient {
		return check, &types.PaymentError{
			Code:    types.CodeInsufficientBalance,
			Message: fmt.Sprintf("total cost %s exceeds balance %s", total, balance),
		}
	}

	return check, nil
}
