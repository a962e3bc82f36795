package settlement

import (
	"context"
	"time"

	"github.com/stellar/go/txnbuild"
	"github.com/vitwit/pipay/clients"
	"github.com/vitwit/pipay/types"
	"github.com/vitwit/pipay/utils"
)

// TransactionTimeout is the absolute submission deadline set on every
// payment transaction, counted from build time.
const TransactionTimeout = 180

// Signer signs a built transaction.
type Signer interface {
	Sign(tx *txnbuild.Transaction) (*txnbuild.Transaction, error)
}

// Settler interface defines the contract for payment settlement
type Settler interface {
	Settle(ctx context.Context, intent *types.PaymentIntent) (string, error)
}

var _ Settler = (*SettlementService)(nil)

// SettlementService builds, signs and submits payment transactions through
// the session's node connection.
type SettlementService struct {
	session *clients.Session
	timeout time.Duration
}

// NewSettlementService creates a new settlement service
func NewSettlementService(session *clients.Session, timeout time.Duration) *SettlementService {
	return &SettlementService{
		session: session,
		timeout: timeout,
	}
}

// Settle submits the payment described by intent and returns the ledger
// transaction id.
func (s *SettlementService) Settle(ctx context.Context, intent *types.PaymentIntent) (string, error) {
	settleCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.session.Submit(settleCtx, func(source txnbuild.Account, baseFee int64) (*txnbuild.Transaction, error) {
		return BuildTransaction(source, baseFee, s.session, intent)
	})
}

// BuildTransaction constructs and signs a single-payment transaction: the
// payment identifier as text memo, one native payment of the intent amount to
// the destination, and a 180 second timeout. Each call consumes a sequence
// number from source, so two builds of one intent are different transactions.
func BuildTransaction(source txnbuild.Account, baseFee int64, signer Signer, intent *types.PaymentIntent) (*txnbuild.Transaction, error) {
	if err := validateForLedger(intent); err != nil {
		return nil, err
	}

	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        source,
		IncrementSequenceNum: true,
		BaseFee:              baseFee,
		Memo:                 txnbuild.MemoText(intent.Identifier),
		Operations: []txnbuild.Operation{
			&txnbuild.Payment{
				Destination: intent.ToAddress,
				Amount:      utils.FormatLedgerAmount(intent.Amount),
				Asset:       txnbuild.NativeAsset{},
			},
		},
		Preconditions: txnbuild.Preconditions{
			TimeBounds: txnbuild.NewTimeout(TransactionTimeout),
		},
	})
	if err != nil {
		return nil, types.NewError(types.CodeInvalidPaymentData, err, "failed to build transaction")
	}

	return signer.Sign(tx)
}

func validateForLedger(intent *types.PaymentIntent) error {
	if err := utils.ValidatePaymentIntent(intent); err != nil {
		return err
	}
	if err := utils.ValidateLedgerAmount(intent.Amount); err != nil {
		return types.NewError(types.CodeInvalidPaymentData, err, "invalid amount")
	}
	if err := utils.ValidateAddress(intent.ToAddress); err != nil {
		return types.NewError(types.CodeInvalidPaymentData, err, "invalid destination")
	}
	if err := utils.ValidateMemoText(intent.Identifier); err != nil {
		return types.NewError(types.CodeInvalidPaymentData, err, "identifier does not fit the transaction memo")
	}
	return nil
}
