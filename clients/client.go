package clients

import (
	"context"

	"github.com/stellar/go/clients/horizonclient"
	hProtocol "github.com/stellar/go/protocols/horizon"
	"github.com/stellar/go/txnbuild"
	"github.com/vitwit/pipay/types"
)

// LedgerNode is the node connection used by a Session. HorizonNode adapts
// a horizon client to it.
type LedgerNode interface {
	AccountDetail(request horizonclient.AccountRequest) (hProtocol.Account, error)
	FetchBaseFee() (int64, error)
	SubmitTransaction(transaction *txnbuild.Transaction) (hProtocol.Transaction, error)
}

var _ LedgerNode = (*HorizonNode)(nil)

// Gateway is the typed interface to the remote payment API. Every failure is
// reported as a PAYMENT_NETWORK_ERROR.
type Gateway interface {
	CreatePayment(ctx context.Context, intent *types.PaymentIntent) (string, *types.PaymentSnapshot, error)
	CompletePayment(ctx context.Context, identifier string, txid string) error
	CancelPayment(ctx context.Context, identifier string) error
	IncompletePayments(ctx context.Context) ([]types.PaymentSnapshot, error)
}

var _ Gateway = (*HTTPGateway)(nil)
