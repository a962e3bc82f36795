// Package pipay is a server-side client for app-to-user payments on a
// ledger-backed payment network. It creates payments through the payment API,
// gates them on the held account's balance, signs and submits the ledger
// transaction, and reports completion or cancellation back to the API.
package pipay

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/clients/horizonclient"
	"github.com/vitwit/pipay/clients"
	"github.com/vitwit/pipay/logger"
	"github.com/vitwit/pipay/metrics"
	"github.com/vitwit/pipay/registry"
	"github.com/vitwit/pipay/settlement"
	"github.com/vitwit/pipay/types"
	"github.com/vitwit/pipay/utils"
	"github.com/vitwit/pipay/verification"
)

// Client drives the payment lifecycle create -> submit -> complete/cancel for
// one signing account on one network.
//
// Every lifecycle method reports failure twice: as a sentinel value (empty
// string, false, empty slice) and as a *types.PaymentError carrying the cause.
// Failures are logged and never panic.
type Client struct {
	config     *types.Config
	logger     logger.Logger
	metrics    metrics.Recorder
	timeout    time.Duration
	httpClient *http.Client
	node       clients.LedgerNode
	gateway    clients.Gateway

	mu    sync.RWMutex
	state *sessionState

	// claimHook runs just before SubmitPayment claims an identifier.
	claimHook func(identifier string)
}

// sessionState is everything a successful Initialize produces.
type sessionState struct {
	session      *clients.Session
	gateway      clients.Gateway
	verification *verification.VerificationService
	settlement   *settlement.SettlementService
	registry     *registry.Registry
	metrics      metrics.Recorder
	labels       map[string]string
}

// New creates a client. Initialize must succeed before any lifecycle call.
func New(config *types.Config, opts ...Option) *Client {
	if config == nil {
		config = types.DefaultConfig()
	}

	timeout := 30 * time.Second
	if config.DefaultTimeout > 0 {
		timeout = config.DefaultTimeout
	}

	c := &Client{
		config:  config,
		logger:  logger.NoopLogger{},
		metrics: metrics.NoopRecorder{},
		timeout: timeout,
	}
	if config.LogLevel != "" {
		c.logger = logger.NewZapLogger(config.LogLevel)
	}
	if config.EnableMetrics {
		c.metrics = metrics.NewPrometheusRecorder(nil)
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c
}

// NewWithDefaults creates a client with the default configuration
func NewWithDefaults(opts ...Option) *Client {
	return New(types.DefaultConfig(), opts...)
}

// Initialize validates the seed, binds to the network named by network,
// loads the account and fetches the base fee. On failure the client stays
// unusable; a previous successful session is left untouched.
func (c *Client) Initialize(ctx context.Context, apiKey, walletSeed, network string) error {
	nc := types.ResolveNetwork(network, c.config)

	if err := utils.ValidateSeedFormat(walletSeed); err != nil {
		return c.fail("initialization failed", "", types.NewError(types.CodeInvalidFormat, err, "invalid private seed format"))
	}

	node := c.node
	if node == nil {
		node = clients.NewHorizonNode(&horizonclient.Client{
			HorizonURL: nc.HorizonURL,
			HTTP:       c.httpClient,
		})
	}

	initCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	session, err := clients.NewSession(initCtx, node, walletSeed, nc, c.config.RetryCount)
	if err != nil {
		return c.fail("initialization failed", "", err)
	}

	gateway := c.gateway
	if gateway == nil {
		gateway = clients.NewHTTPGateway(clients.GatewayConfig{
			BaseURL:    nc.APIURL,
			APIKey:     apiKey,
			Network:    nc.Network,
			HTTPClient: c.httpClient,
			RetryCount: c.config.RetryCount,
			Logger:     c.logger,
			Metrics:    c.metrics,
		})
	}

	state := &sessionState{
		session:      session,
		gateway:      gateway,
		verification: verification.NewVerificationService(session, c.timeout, c.logger),
		settlement:   settlement.NewSettlementService(session, c.timeout),
		registry:     registry.New(),
		metrics:      c.metrics,
		labels:       map[string]string{"network": nc.Network.String()},
	}

	c.mu.Lock()
	c.state = state
	c.mu.Unlock()

	c.logger.Info("client initialized", map[string]any{
		"network":  nc.Network.String(),
		"address":  utils.RedactAddress(session.Address()),
		"base_fee": session.BaseFee(),
	})
	return nil
}

// CreatePayment registers a payment on the API after checking that the
// account can afford it. It returns the payment identifier, or "" and the
// cause. An unaffordable payment never reaches the API.
func (c *Client) CreatePayment(ctx context.Context, intent *types.PaymentIntent) (string, error) {
	st, err := c.current()
	if err != nil {
		return "", c.fail("payment creation failed", "", err)
	}

	if err := utils.ValidatePaymentIntent(intent); err != nil {
		return "", c.fail("payment creation failed", "", err)
	}

	id := intent.Identifier
	if st.registry.InFlight(id) {
		return "", c.fail("payment creation failed", id,
			types.NewError(types.CodePaymentInFlight, nil, "payment %s is being submitted", id))
	}

	if _, err := st.verification.CheckAffordable(ctx, intent.Amount); err != nil {
		st.count("payment_create_rejected")
		return "", c.fail("payment creation failed", id, err)
	}

	req := *intent
	if req.FromAddress == "" {
		req.FromAddress = st.session.Address()
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	identifier, snapshot, err := st.gateway.CreatePayment(callCtx, &req)
	c.metrics.ObserveLatency("create_payment", time.Since(start), st.labels)
	if err != nil {
		st.count("payment_create_failed")
		return "", c.fail("payment creation failed", id, err)
	}

	if err := st.registry.Put(identifier, snapshot); err != nil {
		c.logger.Warn("remote payment created but not registered", map[string]any{
			"identifier": identifier,
			"code":       types.CodeOf(err),
		})
		return "", c.fail("payment creation failed", identifier, err)
	}

	st.count("payment_created")
	c.logger.Info("payment created", map[string]any{
		"identifier": identifier,
		"amount":     req.Amount.String(),
	})
	return identifier, nil
}

// SubmitPayment submits the ledger transaction for a payment and returns its
// transaction id. pending, when non-nil, is submitted instead of the
// registered snapshot. The balance is re-checked before building. The
// identifier leaves the registry only after the node accepts the transaction.
func (c *Client) SubmitPayment(ctx context.Context, identifier string, pending *types.PaymentIntent) (string, error) {
	st, err := c.current()
	if err != nil {
		return "", c.fail("payment submission failed", identifier, err)
	}

	if identifier == "" && pending != nil {
		identifier = pending.Identifier
	}

	if c.claimHook != nil {
		c.claimHook(identifier)
	}

	// The snapshot is resolved under the claim so that a concurrent
	// submission that already removed it is seen here.
	release, err := st.registry.Claim(identifier)
	if err != nil {
		return "", c.fail("payment submission failed", identifier, err)
	}
	defer release()

	intent := pending
	if intent == nil {
		snapshot, ok := st.registry.Get(identifier)
		if !ok {
			return "", c.fail("payment submission failed", identifier,
				types.NewError(types.CodePaymentNotFound, nil, "payment %s is not open", identifier))
		}
		intent = snapshot.Intent()
	}

	if err := utils.ValidatePaymentIntent(intent); err != nil {
		return "", c.fail("payment submission failed", identifier, err)
	}

	if _, err := st.verification.CheckAffordable(ctx, intent.Amount); err != nil {
		st.count("payment_submit_rejected")
		return "", c.fail("payment submission failed", identifier, err)
	}

	start := time.Now()
	txid, err := st.settlement.Settle(ctx, intent)
	c.metrics.ObserveLatency("submit_payment", time.Since(start), st.labels)
	if err != nil {
		st.count("payment_submit_failed")
		return "", c.fail("payment submission failed", identifier, err)
	}

	st.registry.Remove(identifier)

	st.count("payment_submitted")
	c.logger.Info("payment submitted", map[string]any{
		"identifier": identifier,
		"txid":       txid,
	})
	return txid, nil
}

// CompletePayment tells the API the payment is done, optionally with the
// ledger transaction id. The local registry is not touched.
func (c *Client) CompletePayment(ctx context.Context, identifier string, txid string) (bool, error) {
	st, err := c.current()
	if err != nil {
		return false, c.fail("payment completion failed", identifier, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := st.gateway.CompletePayment(callCtx, identifier, txid); err != nil {
		st.count("payment_complete_failed")
		return false, c.fail("payment completion failed", identifier, err)
	}

	st.count("payment_completed")
	return true, nil
}

// CancelPayment cancels the payment on the API. The local registry is not
// touched; reconcile with ListIncompletePayments and ForgetPayment.
func (c *Client) CancelPayment(ctx context.Context, identifier string) (bool, error) {
	st, err := c.current()
	if err != nil {
		return false, c.fail("payment cancellation failed", identifier, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := st.gateway.CancelPayment(callCtx, identifier); err != nil {
		st.count("payment_cancel_failed")
		return false, c.fail("payment cancellation failed", identifier, err)
	}

	st.count("payment_cancelled")
	return true, nil
}

// ListIncompletePayments returns the server-side payments the API still
// considers open. It returns an empty slice on failure.
func (c *Client) ListIncompletePayments(ctx context.Context) ([]types.PaymentSnapshot, error) {
	st, err := c.current()
	if err != nil {
		return []types.PaymentSnapshot{}, c.fail("listing incomplete payments failed", "", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payments, err := st.gateway.IncompletePayments(callCtx)
	if err != nil {
		return []types.PaymentSnapshot{}, c.fail("listing incomplete payments failed", "", err)
	}
	return payments, nil
}

// GetBalance returns the native balance of the held account, or zero when
// the client is not initialized or the query fails.
func (c *Client) GetBalance(ctx context.Context) decimal.Decimal {
	st, err := c.current()
	if err != nil {
		c.fail("failed to get balance", "", err)
		return decimal.Zero
	}
	return st.verification.GetBalance(ctx)
}

// RefreshBaseFee re-reads the base fee from the ledger node.
func (c *Client) RefreshBaseFee(ctx context.Context) (int64, error) {
	st, err := c.current()
	if err != nil {
		return 0, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	fee, err := st.session.RefreshBaseFee(callCtx)
	if err != nil {
		return 0, c.fail("failed to refresh base fee", "", err)
	}
	return fee, nil
}

// PublicAddress returns the held account's address, or "" before Initialize.
func (c *Client) PublicAddress() string {
	st, err := c.current()
	if err != nil {
		return ""
	}
	return st.session.Address()
}

// OpenPayment returns the registered snapshot for identifier.
func (c *Client) OpenPayment(identifier string) (*types.PaymentSnapshot, bool) {
	st, err := c.current()
	if err != nil {
		return nil, false
	}
	return st.registry.Get(identifier)
}

// OpenPayments lists payments created but not yet submitted.
func (c *Client) OpenPayments() []*types.PaymentSnapshot {
	st, err := c.current()
	if err != nil {
		return nil
	}
	return st.registry.List()
}

// ForgetPayment drops identifier from the registry. Callers use it to
// reconcile local state with the API's incomplete payments.
func (c *Client) ForgetPayment(identifier string) bool {
	st, err := c.current()
	if err != nil {
		return false
	}
	return st.registry.Remove(identifier)
}

func (c *Client) current() (*sessionState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state == nil {
		return nil, types.ErrNotInitialized
	}
	return c.state, nil
}

// fail logs err and returns it unchanged.
func (c *Client) fail(msg, identifier string, err error) error {
	fields := map[string]any{
		"code":  types.CodeOf(err),
		"error": err.Error(),
	}
	if identifier != "" {
		fields["identifier"] = identifier
	}
	c.logger.Error(msg, fields)
	return err
}

func (s *sessionState) count(name string) {
	s.metrics.IncCounter(name, s.labels)
}

// Version information
const (
	Version    = "1.0.0"
	APIVersion = "v2"
)
