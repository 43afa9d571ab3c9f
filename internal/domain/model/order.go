package model

import (
	"encoding/json"
	"strings"
	"time"
)

// OrderStatus tracks an order through the reconciliation protocol.
// Pending is initial; Captured and Failed are terminal. Capturing is a
// transient claim held while the storefront capture call is in flight.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCapturing OrderStatus = "capturing"
	OrderStatusCaptured  OrderStatus = "captured"
	OrderStatusFailed    OrderStatus = "failed"
)

// Terminal reports whether no further status transition is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCaptured || s == OrderStatusFailed
}

// LinkState tracks the payment link half of the record independently of
// the order status, so an intake retried after a transport failure can be
// told apart from a duplicate delivery of an already-handled order.
type LinkState string

const (
	// LinkRequesting: mapping exists, gateway create-order call in flight.
	LinkRequesting LinkState = "requesting"
	// LinkPending: the gateway call failed at the transport level; a
	// redelivered event may claim the mapping and retry with the same ref.
	LinkPending LinkState = "pending"
	// LinkStored: link received from the gateway, not yet fetched.
	LinkStored LinkState = "stored"
	// LinkConsumed: link handed to the client; the ref mapping survives.
	LinkConsumed LinkState = "consumed"
	// LinkRejected: gateway refused the order. Terminal.
	LinkRejected LinkState = "rejected"
)

// Settled reports whether a redelivered intake event has nothing left to do.
func (s LinkState) Settled() bool {
	return s == LinkStored || s == LinkConsumed || s == LinkRejected
}

// Order is the correlation record kept per storefront order.
type Order struct {
	OrderID   string
	Ref       string
	Link      string
	Status    OrderStatus
	LinkState LinkState
	CreatedAt time.Time
}

// orderAddress carries the only address field intake cares about.
type orderAddress struct {
	Phone string `json:"phone"`
}

// OrderEvent is the storefront's order-creation webhook payload, reduced
// to the fields intake acts on. The storefront sends numeric ids; decoding
// through json.Number keeps them lossless as strings.
type OrderEvent struct {
	ID              json.Number   `json:"id"`
	FinancialStatus string        `json:"financial_status"`
	TotalPrice      string        `json:"total_price"`
	Note            string        `json:"note"`
	OrderStatusURL  string        `json:"order_status_url"`
	BillingAddress  *orderAddress `json:"billing_address"`
	ShippingAddress *orderAddress `json:"shipping_address"`
}

// OrderID returns the storefront order id as a string.
func (e *OrderEvent) OrderID() string { return e.ID.String() }

// AwaitingPayment reports whether the order is actionable for intake.
func (e *OrderEvent) AwaitingPayment() bool {
	return e.FinancialStatus == "pending"
}

// Phone resolves a contact phone from the billing address first, then the
// shipping address. Empty when neither carries one.
func (e *OrderEvent) Phone() string {
	if e.BillingAddress != nil && e.BillingAddress.Phone != "" {
		return e.BillingAddress.Phone
	}
	if e.ShippingAddress != nil {
		return e.ShippingAddress.Phone
	}
	return ""
}

// PaymentResult is the gateway's payment-result webhook payload. OrderRef
// is the gateway's order identifier, i.e. our correlation ref.
type PaymentResult struct {
	OrderRef string `json:"order_id"`
	Status   string `json:"status"`
	Amount   string `json:"amount"`
	UTR      string `json:"utr"`
	Message  string `json:"message"`
}

// Succeeded reports a successful payment, case-insensitively.
func (r *PaymentResult) Succeeded() bool {
	return strings.EqualFold(r.Status, "success")
}

// Valid reports whether the result carries every field reconciliation
// needs. Amount is only required for successful results because only those
// lead to a capture.
func (r *PaymentResult) Valid() bool {
	if r.OrderRef == "" || r.Status == "" {
		return false
	}
	if r.Succeeded() && r.Amount == "" {
		return false
	}
	return true
}
