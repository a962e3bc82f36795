package clients

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
	hProtocol "github.com/stellar/go/protocols/horizon"
	"github.com/stellar/go/protocols/horizon/base"
	"github.com/stellar/go/support/render/problem"
	"github.com/stellar/go/txnbuild"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/pipay/types"
)

// fakeNode is an in-memory LedgerNode.
type fakeNode struct {
	mu sync.Mutex

	address  string
	sequence int64
	balance  string
	fee      int64

	accountErr error
	feeErr     error
	submitErr  error

	accountCalls int
	submitted    []*txnbuild.Transaction
}

func newFakeNode(address string) *fakeNode {
	return &fakeNode{
		address:  address,
		sequence: 100,
		balance:  "50.0000000",
		fee:      100,
	}
}

func (f *fakeNode) AccountDetail(req horizonclient.AccountRequest) (hProtocol.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.accountCalls++
	if f.accountErr != nil {
		return hProtocol.Account{}, f.accountErr
	}
	return hProtocol.Account{
		AccountID: req.AccountID,
		Sequence:  f.sequence,
		Balances: []hProtocol.Balance{
			{Balance: "9.0", Asset: base.Asset{Type: "credit_alphanum4", Code: "USD"}},
			{Balance: f.balance, Asset: base.Asset{Type: NativeAssetType}},
		},
	}, nil
}

func (f *fakeNode) FetchBaseFee() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.feeErr != nil {
		return 0, f.feeErr
	}
	return f.fee, nil
}

func (f *fakeNode) SubmitTransaction(tx *txnbuild.Transaction) (hProtocol.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.submitErr != nil {
		return hProtocol.Transaction{}, f.submitErr
	}
	f.submitted = append(f.submitted, tx)
	f.sequence = tx.SequenceNumber()

	hash, err := tx.HashHex(string(types.NetworkTestnet))
	if err != nil {
		return hProtocol.Transaction{}, err
	}
	return hProtocol.Transaction{ID: hash, Hash: hash}, nil
}

func testNetwork() types.NetworkConfig {
	return types.ResolveNetwork(string(types.NetworkTestnet), nil)
}

func newTestSession(t *testing.T) (*Session, *fakeNode) {
	t.Helper()
	kp := keypair.MustRandom()
	node := newFakeNode(kp.Address())

	s, err := NewSession(context.Background(), node, kp.Seed(), testNetwork(), 0)
	require.NoError(t, err)
	return s, node
}

func rejection(txCode string, opCodes ...string) error {
	return &horizonclient.Error{
		Problem: problem.P{
			Status: 400,
			Title:  "Transaction Failed",
			Extras: map[string]interface{}{
				"result_codes": map[string]interface{}{
					"transaction": txCode,
					"operations":  opCodes,
				},
			},
		},
	}
}

// buildNoop builds a minimal signed transaction that consumes a sequence number.
func buildNoop(s *Session) BuildFunc {
	return func(source txnbuild.Account, baseFee int64) (*txnbuild.Transaction, error) {
		tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
			SourceAccount:        source,
			IncrementSequenceNum: true,
			BaseFee:              baseFee,
			Operations: []txnbuild.Operation{
				&txnbuild.Payment{
					Destination: keypair.MustRandom().Address(),
					Amount:      "1",
					Asset:       txnbuild.NativeAsset{},
				},
			},
			Preconditions: txnbuild.Preconditions{TimeBounds: txnbuild.NewTimeout(180)},
		})
		if err != nil {
			return nil, err
		}
		return s.Sign(tx)
	}
}

func TestNewSession(t *testing.T) {
	s, node := newTestSession(t)

	assert.Equal(t, node.address, s.Address())
	assert.Equal(t, int64(100), s.BaseFee())
	assert.Equal(t, types.NetworkTestnet, s.Network().Network)
}

func TestNewSessionErrors(t *testing.T) {
	kp := keypair.MustRandom()

	t.Run("malformed seed", func(t *testing.T) {
		_, err := NewSession(context.Background(), newFakeNode(kp.Address()), "SHORT", testNetwork(), 0)
		assert.ErrorIs(t, err, types.ErrInvalidFormat)
	})

	t.Run("no node", func(t *testing.T) {
		_, err := NewSession(context.Background(), nil, kp.Seed(), testNetwork(), 0)
		assert.ErrorIs(t, err, types.ErrConfig)
	})

	t.Run("account load fails", func(t *testing.T) {
		node := newFakeNode(kp.Address())
		node.accountErr = errors.New("connection refused")

		_, err := NewSession(context.Background(), node, kp.Seed(), testNetwork(), 0)
		assert.ErrorIs(t, err, types.ErrLedger)
	})

	t.Run("base fee fails", func(t *testing.T) {
		node := newFakeNode(kp.Address())
		node.feeErr = errors.New("timeout")

		_, err := NewSession(context.Background(), node, kp.Seed(), testNetwork(), 1)
		assert.ErrorIs(t, err, types.ErrLedger)
	})
}

func TestNativeBalance(t *testing.T) {
	s, node := newTestSession(t)

	bal, err := s.NativeBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "50", bal.String())

	node.balance = "not-a-number"
	_, err = s.NativeBalance(context.Background())
	assert.ErrorIs(t, err, types.ErrLedger)

	node.accountErr = errors.New("down")
	_, err = s.NativeBalance(context.Background())
	assert.ErrorIs(t, err, types.ErrLedger)
}

func TestRefreshBaseFee(t *testing.T) {
	s, node := newTestSession(t)

	node.fee = 250
	fee, err := s.RefreshBaseFee(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(250), fee)
	assert.Equal(t, int64(250), s.BaseFee())

	node.feeErr = errors.New("down")
	_, err = s.RefreshBaseFee(context.Background())
	assert.ErrorIs(t, err, types.ErrLedger)
	assert.Equal(t, int64(250), s.BaseFee(), "cached fee survives a failed refresh")
}

func TestSubmitAdvancesSequence(t *testing.T) {
	s, node := newTestSession(t)

	txid, err := s.Submit(context.Background(), buildNoop(s))
	require.NoError(t, err)
	assert.Len(t, txid, 64)

	txid2, err := s.Submit(context.Background(), buildNoop(s))
	require.NoError(t, err)
	assert.NotEqual(t, txid, txid2)

	require.Len(t, node.submitted, 2)
	assert.Equal(t, int64(101), node.submitted[0].SequenceNumber())
	assert.Equal(t, int64(102), node.submitted[1].SequenceNumber())
}

func TestSubmitBuildFailureRestoresSequence(t *testing.T) {
	s, node := newTestSession(t)

	_, err := s.Submit(context.Background(), func(source txnbuild.Account, _ int64) (*txnbuild.Transaction, error) {
		_, _ = source.IncrementSequenceNumber()
		return nil, types.NewError(types.CodeInvalidPaymentData, nil, "bad")
	})
	assert.ErrorIs(t, err, types.ErrInvalidPaymentData)

	_, err = s.Submit(context.Background(), buildNoop(s))
	require.NoError(t, err)
	assert.Equal(t, int64(101), node.submitted[0].SequenceNumber())
}

func TestSubmitRejectionReloadsAccount(t *testing.T) {
	s, node := newTestSession(t)

	node.submitErr = rejection("tx_failed", "op_no_destination")
	_, err := s.Submit(context.Background(), buildNoop(s))
	assert.ErrorIs(t, err, types.ErrLedger)

	node.submitErr = nil
	_, err = s.Submit(context.Background(), buildNoop(s))
	require.NoError(t, err)
	assert.Equal(t, int64(101), node.submitted[0].SequenceNumber())
}

func TestSubmitInsufficientBalance(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"transaction code", rejection(ResultTxInsufficient)},
		{"operation code", rejection("tx_failed", ResultOpUnderfunded)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, node := newTestSession(t)
			node.submitErr = tt.err

			_, err := s.Submit(context.Background(), buildNoop(s))
			assert.ErrorIs(t, err, types.ErrInsufficientBalance)
		})
	}
}

func TestSubmitCancelledContext(t *testing.T) {
	s, node := newTestSession(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Submit(ctx, buildNoop(s))
	assert.ErrorIs(t, err, types.ErrLedger)
	assert.Empty(t, node.submitted)
}

func TestSubmitTransportError(t *testing.T) {
	s, node := newTestSession(t)
	node.submitErr = errors.New("connection reset")

	_, err := s.Submit(context.Background(), buildNoop(s))
	assert.ErrorIs(t, err, types.ErrLedger)
}
