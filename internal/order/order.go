// Package order defines the canonical, provider-independent order record.
//
// An Order is built exactly once by the normalizer and treated as immutable
// afterwards. Every field that may be absent upstream resolves to an explicit
// default at construction time, so flattening an Order to a ledger row is
// total: it can never encounter an undefined value.
package order

import "time"

// Order is the canonical representation of one order event.
type Order struct {
	// ID is the provider-assigned order identifier. Never empty.
	ID string

	// Number is the human-facing order sequence number.
	Number int64

	Customer  Customer
	Financial Financial

	// CreatedAt and UpdatedAt are provider-supplied ISO-8601 timestamps,
	// carried verbatim.
	CreatedAt string
	UpdatedAt string

	// LineItems preserves the input order. Empty slice when the payload
	// carried none, never nil.
	LineItems []LineItem

	// ShippingAddress and BillingAddress are nil when absent upstream,
	// never partially filled.
	ShippingAddress *Address
	BillingAddress  *Address

	Tags       string
	Note       string
	SourceName string

	// ReceivedAt is set at ingestion time by the normalizer, not the provider.
	ReceivedAt time.Time

	// EventTopic is the webhook event name, e.g. "orders/create".
	EventTopic string
}

// Customer holds the buyer contact fields. Email and Name fall back to the
// "Guest" sentinel when the payload carries no customer object.
type Customer struct {
	Email string
	Name  string
	Phone string
}

// Financial holds monetary amounts as decimal strings (never floats) plus
// the provider's status enums.
type Financial struct {
	TotalPrice        string
	SubtotalPrice     string
	TotalTax          string
	Currency          string
	FinancialStatus   string
	FulfillmentStatus string
}

// LineItem is one ordered product line. JSON tags define the canonical
// serialization used inside ledger row cells.
type LineItem struct {
	Title        string `json:"title"`
	Quantity     int    `json:"quantity"`
	Price        string `json:"price"`
	SKU          string `json:"sku"`
	VariantTitle string `json:"variantTitle"`
	Vendor       string `json:"vendor"`
}

// Address is a structured shipping or billing address. JSON tags define the
// canonical serialization used inside ledger row cells.
type Address struct {
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Province string `json:"province"`
	Country  string `json:"country"`
	Zip      string `json:"zip"`
	Phone    string `json:"phone"`
}
