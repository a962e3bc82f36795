package clients

import (
	"github.com/stellar/go/clients/horizonclient"
	hProtocol "github.com/stellar/go/protocols/horizon"
	"github.com/stellar/go/txnbuild"
)

// HorizonNode is a LedgerNode backed by a horizon server.
type HorizonNode struct {
	client *horizonclient.Client
}

// NewHorizonNode wraps client.
func NewHorizonNode(client *horizonclient.Client) *HorizonNode {
	return &HorizonNode{client: client}
}

func (h *HorizonNode) AccountDetail(request horizonclient.AccountRequest) (hProtocol.Account, error) {
	return h.client.AccountDetail(request)
}

// FetchBaseFee returns the base fee of the last closed ledger, or the
// protocol minimum when the server does not report one.
func (h *HorizonNode) FetchBaseFee() (int64, error) {
	stats, err := h.client.FeeStats()
	if err != nil {
		return 0, err
	}
	if stats.LastLedgerBaseFee <= 0 {
		return txnbuild.MinBaseFee, nil
	}
	return stats.LastLedgerBaseFee, nil
}

func (h *HorizonNode) SubmitTransaction(transaction *txnbuild.Transaction) (hProtocol.Transaction, error) {
	return h.client.SubmitTransaction(transaction)
}
