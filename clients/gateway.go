package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/vitwit/pipay/logger"
	"github.com/vitwit/pipay/metrics"
	"github.com/vitwit/pipay/types"
)

// GatewayConfig configures an HTTPGateway.
type GatewayConfig struct {
	BaseURL    string
	APIKey     string
	Network    types.Network
	HTTPClient *http.Client
	// RetryCount bounds retries of idempotent reads. Writes are never retried.
	RetryCount int
	Logger     logger.Logger
	Metrics    metrics.Recorder
}

// HTTPGateway talks to the payment API over HTTP/JSON.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	network types.Network
	http    *http.Client
	retries int
	logger  logger.Logger
	metrics metrics.Recorder
}

// NewHTTPGateway creates a gateway for the given API host.
func NewHTTPGateway(cfg GatewayConfig) *HTTPGateway {
	g := &HTTPGateway{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		network: cfg.Network,
		http:    cfg.HTTPClient,
		retries: cfg.RetryCount,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
	if g.http == nil {
		g.http = &http.Client{Timeout: 30 * time.Second}
	}
	if g.logger == nil {
		g.logger = logger.NoopLogger{}
	}
	if g.metrics == nil {
		g.metrics = metrics.NoopRecorder{}
	}
	return g
}

// createPaymentRequest is the create body. Amount is sent as a JSON number.
type createPaymentRequest struct {
	Payment paymentFields `json:"payment"`
}

type paymentFields struct {
	Amount      json.Number    `json:"amount"`
	Memo        string         `json:"memo"`
	Metadata    map[string]any `json:"metadata"`
	UserUID     string         `json:"user_uid"`
	Identifier  string         `json:"identifier"`
	ToAddress   string         `json:"to_address"`
	FromAddress string         `json:"from_address,omitempty"`
	Network     string         `json:"network,omitempty"`
}

// createPaymentResponse covers both shapes the API returns: the payment
// object itself, or an envelope with identifier and payment.
type createPaymentResponse struct {
	Identifier string                 `json:"identifier"`
	Payment    *types.PaymentSnapshot `json:"payment"`
}

// CreatePayment implements Gateway.
func (g *HTTPGateway) CreatePayment(ctx context.Context, intent *types.PaymentIntent) (string, *types.PaymentSnapshot, error) {
	body := createPaymentRequest{
		Payment: paymentFields{
			Amount:      json.Number(intent.Amount.String()),
			Memo:        intent.Memo,
			Metadata:    intent.Metadata,
			UserUID:     intent.UserUID,
			Identifier:  intent.Identifier,
			ToAddress:   intent.ToAddress,
			FromAddress: intent.FromAddress,
			Network:     intent.Network,
		},
	}

	raw, err := g.do(ctx, "create", http.MethodPost, "/v2/payments", body)
	if err != nil {
		return "", nil, err
	}

	var envelope createPaymentResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", nil, types.NewError(types.CodePaymentNetwork, err, "invalid create response")
	}

	snapshot := envelope.Payment
	if snapshot == nil {
		snapshot = &types.PaymentSnapshot{}
		if err := json.Unmarshal(raw, snapshot); err != nil {
			return "", nil, types.NewError(types.CodePaymentNetwork, err, "invalid create response")
		}
	}

	identifier := envelope.Identifier
	if identifier == "" {
		identifier = snapshot.Identifier
	}
	if identifier == "" {
		return "", nil, types.NewError(types.CodePaymentNetwork, nil, "create response carried no identifier")
	}
	snapshot.Identifier = identifier
	fillFromIntent(snapshot, intent)

	return identifier, snapshot, nil
}

// fillFromIntent completes fields the API left out of its echo with what was
// sent, so the snapshot stays submittable.
func fillFromIntent(s *types.PaymentSnapshot, intent *types.PaymentIntent) {
	if s.Amount.IsZero() {
		s.Amount = intent.Amount
	}
	if s.Memo == "" {
		s.Memo = intent.Memo
	}
	if s.Metadata == nil {
		s.Metadata = intent.Metadata
	}
	if s.UserUID == "" {
		s.UserUID = intent.UserUID
	}
	if s.ToAddress == "" {
		s.ToAddress = intent.ToAddress
	}
	if s.FromAddress == "" {
		s.FromAddress = intent.FromAddress
	}
	if s.Network == "" {
		s.Network = intent.Network
	}
}

// CompletePayment implements Gateway. An empty txid sends an empty body.
func (g *HTTPGateway) CompletePayment(ctx context.Context, identifier string, txid string) error {
	body := map[string]string{}
	if txid != "" {
		body["txid"] = txid
	}

	_, err := g.do(ctx, "complete", http.MethodPost, "/v2/payments/"+url.PathEscape(identifier)+"/complete", body)
	return err
}

// CancelPayment implements Gateway.
func (g *HTTPGateway) CancelPayment(ctx context.Context, identifier string) error {
	_, err := g.do(ctx, "cancel", http.MethodPost, "/v2/payments/"+url.PathEscape(identifier)+"/cancel", map[string]string{})
	return err
}

// IncompletePayments implements Gateway.
func (g *HTTPGateway) IncompletePayments(ctx context.Context) ([]types.PaymentSnapshot, error) {
	raw, err := g.do(ctx, "incomplete", http.MethodGet, "/v2/payments/incomplete_server_payments", nil)
	if err != nil {
		return nil, err
	}

	var resp types.IncompletePaymentsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, types.NewError(types.CodePaymentNetwork, err, "invalid incomplete payments response")
	}
	if resp.IncompleteServerPayments == nil {
		return []types.PaymentSnapshot{}, nil
	}
	return resp.IncompleteServerPayments, nil
}

// statusError is a non-2xx response.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("api request failed with status %d: %s", e.status, e.body)
}

// do performs one API call and returns the raw response body. GET requests
// are retried on transport errors and 5xx responses.
func (g *HTTPGateway) do(ctx context.Context, op, method, path string, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, types.NewError(types.CodePaymentNetwork, err, "failed to encode %s request", op)
		}
	}

	retries := 0
	if method == http.MethodGet {
		retries = max(g.retries, 0)
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(retries)), ctx)

	requestID := uuid.NewString()
	labels := map[string]string{"network": g.network.String()}
	start := time.Now()

	var respBody []byte
	err := backoff.Retry(func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set(APIKeyHeader, "Key "+g.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(RequestIDHeader, requestID)

		resp, err := g.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			serr := &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(b))}
			if resp.StatusCode >= 500 {
				return serr
			}
			return backoff.Permanent(serr)
		}

		respBody = b
		return nil
	}, bo)

	g.metrics.ObserveLatency("gateway_"+op, time.Since(start), labels)

	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		g.metrics.IncCounter("gateway_error", labels)
		g.logger.Error("api request failed", map[string]any{
			"operation":  op,
			"method":     method,
			"path":       path,
			"request_id": requestID,
			"error":      err.Error(),
		})
		return nil, types.NewError(types.CodePaymentNetwork, err, "api request failed")
	}

	g.logger.Debug("api request succeeded", map[string]any{
		"operation":  op,
		"request_id": requestID,
	})
	return respBody, nil
}
