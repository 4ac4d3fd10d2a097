// Package journal keeps a local, best-effort record of every accepted
// webhook delivery and its outcome. The external sheet remains the source
// of truth for order data; the journal exists so operators can audit
// at-least-once delivery without touching the sheet.
package journal

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// Status of one recorded delivery.
type Status string

const (
	StatusReceived  Status = "received"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// Delivery is one journal row.
type Delivery struct {
	ID          string
	Topic       string
	OrderID     string
	OrderNumber int64
	// Digest is the hex BLAKE3 hash of the raw request body. Identical
	// redeliveries from the provider share a digest.
	Digest      string
	Status      Status
	Attempts    int
	LastError   string
	ReceivedAt  time.Time
	CompletedAt *time.Time
}

type Journal struct {
	db *sql.DB
}

func New(db *sql.DB) *Journal {
	return &Journal{db: db}
}

// Record inserts a delivery in the received state and returns its id.
func (j *Journal) Record(ctx context.Context, topic, orderID string, orderNumber int64, body []byte) (string, error) {
	if orderID == "" {
		return "", fmt.Errorf("order id is empty")
	}

	id := uuid.NewString()
	sum := blake3.Sum256(body)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := j.db.ExecContext(ctx, `
INSERT INTO webhook_deliveries(id, topic, order_id, order_number, digest, status, attempts, received_at)
VALUES(?, ?, ?, ?, ?, ?, 0, ?);
`, id, topic, orderID, orderNumber, hex.EncodeToString(sum[:]), StatusReceived, now)
	if err != nil {
		return "", fmt.Errorf("record delivery: %w", err)
	}
	return id, nil
}

// MarkDelivered records a successful ledger append.
func (j *Journal) MarkDelivered(ctx context.Context, id string, attempts int) error {
	return j.complete(ctx, id, StatusDelivered, attempts, "")
}

// MarkFailed records an exhausted or permanent write failure.
func (j *Journal) MarkFailed(ctx context.Context, id string, attempts int, lastError string) error {
	return j.complete(ctx, id, StatusFailed, attempts, lastError)
}

func (j *Journal) complete(ctx context.Context, id string, status Status, attempts int, lastError string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var lastErr any
	if lastError != "" {
		lastErr = lastError
	}

	res, err := j.db.ExecContext(ctx, `
UPDATE webhook_deliveries
SET status = ?, attempts = ?, last_error = ?, completed_at = ?
WHERE id = ?;
`, status, attempts, lastErr, now, id)
	if err != nil {
		return fmt.Errorf("complete delivery: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delivery %s not found", id)
	}
	return nil
}

// Recent returns the newest deliveries, most recent first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Delivery, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := j.db.QueryContext(ctx, `
SELECT id, topic, order_id, order_number, digest, status, attempts, last_error, received_at, completed_at
FROM webhook_deliveries
ORDER BY received_at DESC, rowid DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		var (
			d           Delivery
			statusS     string
			lastError   sql.NullString
			receivedS   string
			completedS  sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.Topic, &d.OrderID, &d.OrderNumber, &d.Digest, &statusS, &d.Attempts, &lastError, &receivedS, &completedS); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		d.Status = Status(statusS)
		if lastError.Valid {
			d.LastError = lastError.String
		}
		if t, err := time.Parse(time.RFC3339Nano, receivedS); err == nil {
			d.ReceivedAt = t
		}
		if completedS.Valid {
			if t, err := time.Parse(time.RFC3339Nano, completedS.String); err == nil {
				d.CompletedAt = &t
			}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
