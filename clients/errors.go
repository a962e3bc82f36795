package clients

// Ledger result codes worth recognising in submission failures.
const (
	ResultTxInsufficient = "tx_insufficient_balance"
	ResultOpUnderfunded  = "op_underfunded"
)

const (
	// NativeAssetType is the asset_type of the native balance line.
	NativeAssetType = "native"

	// APIKeyHeader carries the payment API key as "Key <api_key>".
	APIKeyHeader = "Authorization"

	// RequestIDHeader correlates a gateway call with log lines.
	RequestIDHeader = "X-Request-Id"
)
