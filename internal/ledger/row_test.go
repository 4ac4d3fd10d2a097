package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderledger/internal/order"
)

func sampleOrder() order.Order {
	return order.Order{
		ID:     "5678901234",
		Number: 1042,
		Customer: order.Customer{
			Email: "jane@example.com",
			Name:  "Jane Doe",
			Phone: "+15551234567",
		},
		Financial: order.Financial{
			TotalPrice:        "149.95",
			SubtotalPrice:     "139.95",
			TotalTax:          "10.00",
			Currency:          "USD",
			FinancialStatus:   "paid",
			FulfillmentStatus: "fulfilled",
		},
		CreatedAt: "2025-06-01T10:00:00-04:00",
		UpdatedAt: "2025-06-01T11:30:00-04:00",
		LineItems: []order.LineItem{
			{Title: "Widget", Quantity: 2, Price: "49.95", SKU: "WID-1", VariantTitle: "Blue", Vendor: "Acme"},
		},
		ShippingAddress: &order.Address{Address1: "123 Main St", City: "Springfield", Province: "IL", Country: "US", Zip: "62701"},
		Tags:            "vip",
		Note:            "leave at door",
		SourceName:      "web",
		ReceivedAt:      time.Date(2025, 6, 1, 15, 35, 0, 0, time.UTC),
		EventTopic:      "orders/create",
	}
}

func TestFlatten_ColumnCount(t *testing.T) {
	row, err := Flatten(sampleOrder())
	require.NoError(t, err)
	assert.Len(t, row, len(Headers), "every row must match the header column count")
}

func TestFlatten_MinimalOrder(t *testing.T) {
	o := order.Order{
		ID:         "1",
		Customer:   order.Customer{Email: "Guest", Name: "Guest"},
		LineItems:  []order.LineItem{},
		ReceivedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EventTopic: "orders/create",
	}

	row, err := Flatten(o)
	require.NoError(t, err)
	require.Len(t, row, len(Headers))

	assert.Equal(t, "[]", row[13], "no line items serializes as empty JSON array")
	assert.Equal(t, "null", row[14], "absent shipping address serializes as JSON null")
	assert.Equal(t, "null", row[15], "absent billing address serializes as JSON null")
}

func TestFlatten_Cells(t *testing.T) {
	row, err := Flatten(sampleOrder())
	require.NoError(t, err)

	assert.Equal(t, "5678901234", row[0])
	assert.Equal(t, int64(1042), row[1])
	assert.Equal(t, "jane@example.com", row[2])
	assert.Equal(t, "Jane Doe", row[3])
	assert.Equal(t, "149.95", row[5])
	assert.Equal(t, "paid", row[9])
	assert.JSONEq(t, `[{"title":"Widget","quantity":2,"price":"49.95","sku":"WID-1","variantTitle":"Blue","vendor":"Acme"}]`, row[13].(string))
	assert.JSONEq(t, `{"address1":"123 Main St","address2":"","city":"Springfield","province":"IL","country":"US","zip":"62701","phone":""}`, row[14].(string))
	assert.Equal(t, "2025-06-01T15:35:00Z", row[19], "received at rendered as UTC RFC3339")
	assert.Equal(t, "orders/create", row[20])
}

func TestFlatten_Deterministic(t *testing.T) {
	o := sampleOrder()

	a, err := Flatten(o)
	require.NoError(t, err)
	b, err := Flatten(o)
	require.NoError(t, err)

	assert.Equal(t, a, b, "re-flattening the same order must yield identical rows")
}

func TestLastColumn(t *testing.T) {
	// 21 headers span A..U; the ranges in sheets.go depend on this.
	assert.Equal(t, 21, len(Headers))
	assert.Equal(t, "U", lastColumn())
}
