package shopify

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"orderledger/internal/order"
)

// ErrMalformedPayload marks payloads that cannot be normalized: not valid
// JSON, or missing the required order id. Callers match with errors.Is.
var ErrMalformedPayload = errors.New("malformed order payload")

// GuestSentinel is recorded when a payload carries no customer email.
const GuestSentinel = "Guest"

// rawOrder mirrors the loosely-typed Shopify order payload. All fields are
// optional on the wire; default resolution happens once, in Normalize.
type rawOrder struct {
	ID                json.Number    `json:"id"`
	OrderNumber       json.Number    `json:"order_number"`
	Customer          *rawCustomer   `json:"customer"`
	TotalPrice        string         `json:"total_price"`
	SubtotalPrice     string         `json:"subtotal_price"`
	TotalTax          string         `json:"total_tax"`
	Currency          string         `json:"currency"`
	FinancialStatus   string         `json:"financial_status"`
	FulfillmentStatus string         `json:"fulfillment_status"`
	CreatedAt         string         `json:"created_at"`
	UpdatedAt         string         `json:"updated_at"`
	LineItems         []rawLineItem  `json:"line_items"`
	ShippingAddress   *rawAddress    `json:"shipping_address"`
	BillingAddress    *rawAddress    `json:"billing_address"`
	Tags              string         `json:"tags"`
	Note              string         `json:"note"`
	SourceName        string         `json:"source_name"`
}

type rawCustomer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type rawLineItem struct {
	Title        string      `json:"title"`
	Quantity     json.Number `json:"quantity"`
	Price        string      `json:"price"`
	SKU          string      `json:"sku"`
	VariantTitle string      `json:"variant_title"`
	Vendor       string      `json:"vendor"`
}

type rawAddress struct {
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Province string `json:"province"`
	Country  string `json:"country"`
	Zip      string `json:"zip"`
	Phone    string `json:"phone"`
}

// Normalize maps a raw Shopify order payload to the canonical Order,
// applying every documented default. It is pure: same body, topic and
// receivedAt always yield an identical Order.
func Normalize(body []byte, topic string, receivedAt time.Time) (order.Order, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw rawOrder
	if err := dec.Decode(&raw); err != nil {
		return order.Order{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	id := strings.TrimSpace(raw.ID.String())
	if id == "" {
		return order.Order{}, fmt.Errorf("%w: missing order id", ErrMalformedPayload)
	}

	o := order.Order{
		ID:     id,
		Number: numberToInt64(raw.OrderNumber),
		Financial: order.Financial{
			TotalPrice:        raw.TotalPrice,
			SubtotalPrice:     raw.SubtotalPrice,
			TotalTax:          raw.TotalTax,
			Currency:          raw.Currency,
			FinancialStatus:   raw.FinancialStatus,
			FulfillmentStatus: raw.FulfillmentStatus,
		},
		CreatedAt:       raw.CreatedAt,
		UpdatedAt:       raw.UpdatedAt,
		LineItems:       normalizeLineItems(raw.LineItems),
		ShippingAddress: normalizeAddress(raw.ShippingAddress),
		BillingAddress:  normalizeAddress(raw.BillingAddress),
		Tags:            raw.Tags,
		Note:            raw.Note,
		SourceName:      raw.SourceName,
		ReceivedAt:      receivedAt,
		EventTopic:      topic,
	}

	if raw.Customer == nil {
		o.Customer = order.Customer{Email: GuestSentinel, Name: GuestSentinel}
	} else {
		email := raw.Customer.Email
		if email == "" {
			email = GuestSentinel
		}
		o.Customer = order.Customer{
			Email: email,
			Name:  strings.TrimSpace(raw.Customer.FirstName + " " + raw.Customer.LastName),
			Phone: raw.Customer.Phone,
		}
	}

	return o, nil
}

func normalizeLineItems(items []rawLineItem) []order.LineItem {
	// Absent collection yields an empty sequence, never nil.
	out := make([]order.LineItem, 0, len(items))
	for _, it := range items {
		sku := it.SKU
		if sku == "" {
			sku = "N/A"
		}
		out = append(out, order.LineItem{
			Title:        it.Title,
			Quantity:     int(numberToInt64(it.Quantity)),
			Price:        it.Price,
			SKU:          sku,
			VariantTitle: it.VariantTitle,
			Vendor:       it.Vendor,
		})
	}
	return out
}

func normalizeAddress(a *rawAddress) *order.Address {
	if a == nil {
		return nil
	}
	return &order.Address{
		Address1: a.Address1,
		Address2: a.Address2,
		City:     a.City,
		Province: a.Province,
		Country:  a.Country,
		Zip:      a.Zip,
		Phone:    a.Phone,
	}
}

func numberToInt64(n json.Number) int64 {
	v, err := n.Int64()
	if err != nil {
		return 0
	}
	return v
}
