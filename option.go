package pipay

import (
	"net/http"
	"time"

	"github.com/vitwit/pipay/clients"
	"github.com/vitwit/pipay/logger"
	"github.com/vitwit/pipay/metrics"
)

type Option func(*Client)

func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(c *Client) {
		c.metrics = r
	}
}

// WithTimeout bounds every gateway and ledger call.
func WithTimeout(t time.Duration) Option {
	return func(c *Client) {
		c.timeout = t
	}
}

// WithHTTPClient sets the HTTP client shared by the payment API and the
// ledger node connections.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// WithLedgerNode replaces the horizon connection made by Initialize.
func WithLedgerNode(n clients.LedgerNode) Option {
	return func(c *Client) {
		c.node = n
	}
}

// WithGateway replaces the HTTP payment API gateway made by Initialize.
func WithGateway(g clients.Gateway) Option {
	return func(c *Client) {
		c.gateway = g
	}
}
