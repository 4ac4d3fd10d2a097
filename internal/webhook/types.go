package webhook

import (
	"context"
	"time"

	"orderledger/internal/order"
)

// LedgerAppender appends a canonical order to the external ledger. Errors
// are classified by the ledger package as transient or permanent.
type LedgerAppender interface {
	Append(ctx context.Context, o order.Order) error
}

// DeliveryJournal records delivery outcomes locally. Implementations must be
// safe for concurrent use. The server treats journal failures as best-effort:
// they are logged and never fail the request.
type DeliveryJournal interface {
	Record(ctx context.Context, topic, orderID string, orderNumber int64, body []byte) (string, error)
	MarkDelivered(ctx context.Context, id string, attempts int) error
	MarkFailed(ctx context.Context, id string, attempts int, lastError string) error
}

// Config holds intake server configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string

	// Secret is the shared HMAC secret.
	Secret string

	// SignatureHeader carries the provider signature (Shopify:
	// "X-Shopify-Hmac-Sha256").
	SignatureHeader string

	// TopicHeader carries the event topic (Shopify: "X-Shopify-Topic").
	TopicHeader string

	// MaxBodySize is the maximum allowed request body size in bytes.
	MaxBodySize int64

	// WriteAttempts bounds ledger write attempts per request.
	WriteAttempts int

	// RetryBackoff is the initial delay before a retry; doubles per attempt.
	RetryBackoff time.Duration
}

// HealthResponse is the JSON body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse is the JSON body of error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Default values
const (
	DefaultMaxBodySize   = 1048576 // 1 MB
	DefaultWriteAttempts = 3
	DefaultRetryBackoff  = 500 * time.Millisecond

	DefaultSignatureHeader = "X-Shopify-Hmac-Sha256"
	DefaultTopicHeader     = "X-Shopify-Topic"

	// UnknownTopic is recorded when the provider omits the topic header.
	UnknownTopic = "unknown"
)
