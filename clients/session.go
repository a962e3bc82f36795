package clients

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
	hProtocol "github.com/stellar/go/protocols/horizon"
	"github.com/stellar/go/txnbuild"
	"github.com/vitwit/pipay/types"
	"github.com/vitwit/pipay/utils"
)

// BuildFunc constructs a signed transaction from the session's source account.
// The account's sequence number is consumed by the build.
type BuildFunc func(source txnbuild.Account, baseFee int64) (*txnbuild.Transaction, error)

// Session holds the signing keypair, the ledger node and the cached base fee
// for one account on one network.
type Session struct {
	node    LedgerNode
	kp      *keypair.Full
	network types.NetworkConfig
	retries int

	// mu serializes sequence-number consumers and guards account and baseFee.
	mu      sync.Mutex
	account *hProtocol.Account
	baseFee int64
}

// NewSession validates the seed, derives the keypair, loads the on-chain
// account and fetches the current base fee. Any failure leaves nothing usable.
func NewSession(ctx context.Context, node LedgerNode, seed string, network types.NetworkConfig, retryCount int) (*Session, error) {
	kp, err := utils.ParseSigningSeed(seed)
	if err != nil {
		return nil, types.NewError(types.CodeInvalidFormat, err, "invalid private seed format")
	}
	if node == nil {
		return nil, types.NewError(types.CodeConfig, nil, "no ledger node configured")
	}

	s := &Session{
		node:    node,
		kp:      kp,
		network: network,
		retries: retryCount,
	}

	account, err := s.loadAccount(ctx)
	if err != nil {
		return nil, err
	}
	s.account = account

	fee, err := s.fetchBaseFee(ctx)
	if err != nil {
		return nil, err
	}
	s.baseFee = fee

	return s, nil
}

// Address returns the public identity of the held account.
func (s *Session) Address() string {
	return s.kp.Address()
}

func (s *Session) Network() types.NetworkConfig {
	return s.network
}

// BaseFee returns the cached base fee in the ledger's smallest unit.
func (s *Session) BaseFee() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseFee
}

// RefreshBaseFee re-fetches the base fee from the node. The cached value is
// kept when the fetch fails.
func (s *Session) RefreshBaseFee(ctx context.Context) (int64, error) {
	fee, err := s.fetchBaseFee(ctx)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.baseFee = fee
	s.mu.Unlock()
	return fee, nil
}

// NativeBalance queries the node for the account's native balance.
func (s *Session) NativeBalance(ctx context.Context) (decimal.Decimal, error) {
	account, err := s.loadAccount(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	for _, b := range account.Balances {
		if b.Type != NativeAssetType {
			continue
		}
		bal, err := decimal.NewFromString(b.Balance)
		if err != nil {
			return decimal.Zero, types.NewError(types.CodeLedger, err, "invalid native balance %q", b.Balance)
		}
		return bal, nil
	}

	return decimal.Zero, nil
}

// Sign signs tx with the session key for the session's network.
func (s *Session) Sign(tx *txnbuild.Transaction) (*txnbuild.Transaction, error) {
	signed, err := tx.Sign(s.network.Network.Passphrase(), s.kp)
	if err != nil {
		return nil, types.NewError(types.CodeLedger, err, "failed to sign transaction")
	}
	return signed, nil
}

// Submit builds a transaction against the source account and submits it to
// the node, returning the ledger transaction id. Only one build/submit runs at
// a time. When the build or the submission fails the local sequence number is
// resynchronised so the next attempt does not drift.
func (s *Session) Submit(ctx context.Context, build BuildFunc) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", types.NewError(types.CodeLedger, err, "submission aborted")
	}

	seq := s.account.Sequence

	tx, err := build(s.account, s.baseFee)
	if err != nil {
		s.account.Sequence = seq
		return "", err
	}

	resp, err := s.node.SubmitTransaction(tx)
	if err != nil {
		if account, lerr := s.loadAccount(ctx); lerr == nil {
			s.account = account
		} else {
			s.account.Sequence = seq
		}
		return "", submissionError(err)
	}

	if resp.ID != "" {
		return resp.ID, nil
	}
	return resp.Hash, nil
}

func (s *Session) loadAccount(ctx context.Context) (*hProtocol.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.NewError(types.CodeLedger, err, "account load aborted")
	}

	account, err := s.node.AccountDetail(horizonclient.AccountRequest{AccountID: s.kp.Address()})
	if err != nil {
		if horizonclient.IsNotFoundError(err) {
			return nil, types.NewError(types.CodeLedger, err, "account %s not found", s.kp.Address())
		}
		return nil, types.NewError(types.CodeLedger, err, "failed to load account")
	}
	return &account, nil
}

func (s *Session) fetchBaseFee(ctx context.Context) (int64, error) {
	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(200*time.Millisecond),
		), uint64(max(s.retries, 0))),
		ctx,
	)

	var fee int64
	err := backoff.Retry(func() (err error) {
		fee, err = s.node.FetchBaseFee()
		return err
	}, bo)
	if err != nil {
		return 0, types.NewError(types.CodeLedger, err, "failed to fetch base fee")
	}
	return fee, nil
}

// submissionError maps a node rejection onto the error taxonomy, keeping the
// ledger result codes in the message.
func submissionError(err error) error {
	hErr := horizonclient.GetError(err)
	if hErr == nil {
		return types.NewError(types.CodeLedger, err, "failed to submit transaction")
	}

	codes, cerr := hErr.ResultCodes()
	if cerr != nil || codes == nil {
		return types.NewError(types.CodeLedger, err, "transaction rejected")
	}

	if codes.TransactionCode == ResultTxInsufficient || slices.Contains(codes.OperationCodes, ResultOpUnderfunded) {
		return types.NewError(types.CodeInsufficientBalance, err, "transaction rejected: %s %v", codes.TransactionCode, codes.OperationCodes)
	}

	return types.NewError(types.CodeLedger, err, "transaction rejected: %s %v", codes.TransactionCode, codes.OperationCodes)
}
