// Package webhook implements the order webhook intake HTTP server.
//
// Each request walks a fixed pipeline: buffer the raw body, verify the
// Shopify HMAC-SHA256 signature over those exact bytes, normalize the
// payload into a canonical order, then append one row to the ledger with
// bounded retry on transient store failures.
//
// # Security Model
//
// - HMAC-SHA256 signatures verified with constant-time comparison
// - Verification runs over the untouched wire bytes, before any JSON parsing
// - Body size limits enforced to prevent DoS
// - No signature details leaked in error responses (generic 401)
//
// # Status Mapping
//
//   - 200 OK: row appended (body "OK")
//   - 401 Unauthorized: signature missing or invalid
//   - 400 Bad Request: body unparseable or missing the order id
//   - 413 Payload Too Large: body exceeds max_body_size
//   - 500 Internal Server Error: write retries exhausted or permanent
//     store failure; the provider's own redelivery takes over from here
//
// Requests are independent: no mutable state is shared between them, and
// retries for one request run sequentially while other requests proceed.
package webhook
