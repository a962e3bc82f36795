package clients

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/pipay/types"
)

type recordedRequest struct {
	method    string
	path      string
	auth      string
	requestID string
	body      map[string]any
}

type requestLog struct {
	mu   sync.Mutex
	reqs []recordedRequest
}

func (l *requestLog) all() []recordedRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]recordedRequest(nil), l.reqs...)
}

// apiServer records requests and answers with the given handler.
func apiServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*HTTPGateway, *requestLog) {
	t.Helper()
	log := &requestLog{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			method:    r.Method,
			path:      r.URL.Path,
			auth:      r.Header.Get(APIKeyHeader),
			requestID: r.Header.Get(RequestIDHeader),
		}
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			assert.NoError(t, json.Unmarshal(raw, &rec.body))
		}
		log.mu.Lock()
		log.reqs = append(log.reqs, rec)
		log.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	gw := NewHTTPGateway(GatewayConfig{
		BaseURL:    srv.URL + "/",
		APIKey:     "secret",
		Network:    types.NetworkTestnet,
		HTTPClient: srv.Client(),
		RetryCount: 2,
	})
	return gw, log
}

func respond(status int, body string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func testIntent() *types.PaymentIntent {
	return &types.PaymentIntent{
		Amount:      decimal.RequireFromString("10.5"),
		Memo:        "reward",
		Metadata:    map[string]any{"order": "42"},
		UserUID:     "user-1",
		Identifier:  "pay-1",
		ToAddress:   "GDEST",
		FromAddress: "GSRC",
	}
}

func TestCreatePaymentRequest(t *testing.T) {
	gw, reqs := apiServer(t, respond(http.StatusOK, `{"identifier":"srv-1","amount":10.5,"memo":"reward"}`))

	id, snap, err := gw.CreatePayment(context.Background(), testIntent())
	require.NoError(t, err)
	assert.Equal(t, "srv-1", id)
	assert.Equal(t, "srv-1", snap.Identifier)

	require.Len(t, reqs.all(), 1)
	req := reqs.all()[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/v2/payments", req.path)
	assert.Equal(t, "Key secret", req.auth)
	assert.NotEmpty(t, req.requestID)

	payment, ok := req.body["payment"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 10.5, payment["amount"])
	assert.Equal(t, "user-1", payment["user_uid"])
	assert.NotContains(t, payment, "uid")
	assert.Equal(t, "pay-1", payment["identifier"])
	assert.Equal(t, "GDEST", payment["to_address"])
	assert.Equal(t, "GSRC", payment["from_address"])
	assert.Equal(t, map[string]any{"order": "42"}, payment["metadata"])
}

func TestCreatePaymentResponseShapes(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantID   string
		wantMemo string
	}{
		{
			name:     "payment object",
			body:     `{"identifier":"srv-1","memo":"from server","amount":10.5}`,
			wantID:   "srv-1",
			wantMemo: "from server",
		},
		{
			name:     "envelope with payment",
			body:     `{"identifier":"srv-2","payment":{"identifier":"srv-2","memo":"enveloped","amount":10.5}}`,
			wantID:   "srv-2",
			wantMemo: "enveloped",
		},
		{
			name:     "identifier only",
			body:     `{"identifier":"srv-3"}`,
			wantID:   "srv-3",
			wantMemo: "reward",
		},
		{
			name:     "partial payment object",
			body:     `{"identifier":"srv-4","memo":"server memo"}`,
			wantID:   "srv-4",
			wantMemo: "server memo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw, _ := apiServer(t, respond(http.StatusOK, tt.body))

			id, snap, err := gw.CreatePayment(context.Background(), testIntent())
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantID, snap.Identifier)
			assert.Equal(t, tt.wantMemo, snap.Memo)
			assert.Equal(t, "GDEST", snap.ToAddress)
			assert.True(t, snap.Amount.Equal(decimal.RequireFromString("10.5")))
		})
	}
}

func TestCreatePaymentMissingIdentifier(t *testing.T) {
	gw, _ := apiServer(t, respond(http.StatusOK, `{"memo":"x"}`))

	_, _, err := gw.CreatePayment(context.Background(), testIntent())
	assert.ErrorIs(t, err, types.ErrPaymentNetwork)
}

func TestCreatePaymentNotRetried(t *testing.T) {
	gw, reqs := apiServer(t, respond(http.StatusBadGateway, `upstream down`))

	_, _, err := gw.CreatePayment(context.Background(), testIntent())
	require.ErrorIs(t, err, types.ErrPaymentNetwork)
	assert.Contains(t, err.Error(), "502")
	assert.Len(t, reqs.all(), 1)
}

func TestCompletePayment(t *testing.T) {
	t.Run("with txid", func(t *testing.T) {
		gw, reqs := apiServer(t, respond(http.StatusOK, `{}`))

		require.NoError(t, gw.CompletePayment(context.Background(), "pay-1", "abc123"))
		req := reqs.all()[0]
		assert.Equal(t, http.MethodPost, req.method)
		assert.Equal(t, "/v2/payments/pay-1/complete", req.path)
		assert.Equal(t, map[string]any{"txid": "abc123"}, req.body)
	})

	t.Run("without txid", func(t *testing.T) {
		gw, reqs := apiServer(t, respond(http.StatusOK, `{}`))

		require.NoError(t, gw.CompletePayment(context.Background(), "pay-1", ""))
		assert.Empty(t, reqs.all()[0].body)
	})

	t.Run("rejected", func(t *testing.T) {
		gw, _ := apiServer(t, respond(http.StatusBadRequest, `{"error":"already_completed"}`))

		err := gw.CompletePayment(context.Background(), "pay-1", "abc123")
		require.ErrorIs(t, err, types.ErrPaymentNetwork)
		assert.Contains(t, err.Error(), "already_completed")
	})
}

func TestCancelPayment(t *testing.T) {
	gw, reqs := apiServer(t, respond(http.StatusOK, `{}`))

	require.NoError(t, gw.CancelPayment(context.Background(), "pay-1"))
	req := reqs.all()[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/v2/payments/pay-1/cancel", req.path)
	assert.Equal(t, "Key secret", req.auth)

	gw, _ = apiServer(t, respond(http.StatusNotFound, `{"error":"payment_not_found"}`))
	assert.ErrorIs(t, gw.CancelPayment(context.Background(), "pay-1"), types.ErrPaymentNetwork)
}

func TestIncompletePayments(t *testing.T) {
	gw, reqs := apiServer(t, respond(http.StatusOK, `{"incomplete_server_payments":[
		{"identifier":"a","amount":1,"status":{"developer_approved":true}},
		{"identifier":"b","amount":2.5,"transaction":{"txid":"t1","verified":false,"_link":"http://x"}}
	]}`))

	payments, err := gw.IncompletePayments(context.Background())
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, "a", payments[0].Identifier)
	assert.True(t, payments[0].Status.DeveloperApproved)
	require.NotNil(t, payments[1].Transaction)
	assert.Equal(t, "t1", payments[1].Transaction.TxID)
	assert.True(t, payments[1].Amount.Equal(decimal.RequireFromString("2.5")))

	req := reqs.all()[0]
	assert.Equal(t, http.MethodGet, req.method)
	assert.Equal(t, "/v2/payments/incomplete_server_payments", req.path)
}

func TestIncompletePaymentsEmpty(t *testing.T) {
	gw, _ := apiServer(t, respond(http.StatusOK, `{}`))

	payments, err := gw.IncompletePayments(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, payments)
	assert.Empty(t, payments)
}

func TestIncompletePaymentsRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	gw, _ := apiServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			respond(http.StatusServiceUnavailable, `busy`)(w, r)
			return
		}
		respond(http.StatusOK, `{"incomplete_server_payments":[]}`)(w, r)
	})

	payments, err := gw.IncompletePayments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, payments)
	assert.Equal(t, int32(2), calls.Load())
}

func TestIncompletePaymentsClientErrorNotRetried(t *testing.T) {
	gw, reqs := apiServer(t, respond(http.StatusUnauthorized, `{"error":"invalid key"}`))

	_, err := gw.IncompletePayments(context.Background())
	assert.ErrorIs(t, err, types.ErrPaymentNetwork)
	assert.Len(t, reqs.all(), 1)
}

func TestGatewayTransportError(t *testing.T) {
	gw := NewHTTPGateway(GatewayConfig{BaseURL: "http://127.0.0.1:1", APIKey: "k"})

	err := gw.CancelPayment(context.Background(), "pay-1")
	assert.ErrorIs(t, err, types.ErrPaymentNetwork)
}
