package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"orderledger/internal/order"
)

// Headers is the fixed column sequence of the ledger. EnsureHeaders writes
// this row at A1 and Flatten produces cells in exactly this order; the two
// must never drift apart.
var Headers = []string{
	"Order ID",
	"Order Number",
	"Customer Email",
	"Customer Name",
	"Customer Phone",
	"Total Price",
	"Subtotal Price",
	"Total Tax",
	"Currency",
	"Financial Status",
	"Fulfillment Status",
	"Created At",
	"Updated At",
	"Line Items",
	"Shipping Address",
	"Billing Address",
	"Tags",
	"Note",
	"Source Name",
	"Received At",
	"Event Topic",
}

// Flatten maps one Order to exactly one ledger row. Nested structures are
// serialized as canonical JSON text ("[]" for no line items, "null" for an
// absent address), so re-flattening the same Order yields identical cells.
func Flatten(o order.Order) ([]any, error) {
	lineItems, err := json.Marshal(o.LineItems)
	if err != nil {
		return nil, fmt.Errorf("marshal line items: %w", err)
	}
	shipping, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return nil, fmt.Errorf("marshal shipping address: %w", err)
	}
	billing, err := json.Marshal(o.BillingAddress)
	if err != nil {
		return nil, fmt.Errorf("marshal billing address: %w", err)
	}

	row := []any{
		o.ID,
		o.Number,
		o.Customer.Email,
		o.Customer.Name,
		o.Customer.Phone,
		o.Financial.TotalPrice,
		o.Financial.SubtotalPrice,
		o.Financial.TotalTax,
		o.Financial.Currency,
		o.Financial.FinancialStatus,
		o.Financial.FulfillmentStatus,
		o.CreatedAt,
		o.UpdatedAt,
		string(lineItems),
		string(shipping),
		string(billing),
		o.Tags,
		o.Note,
		o.SourceName,
		o.ReceivedAt.UTC().Format(time.RFC3339),
		o.EventTopic,
	}
	return row, nil
}
