package payloads

import (
	"time"

	"github.com/google/uuid"
)

// OrderPaidEvent is emitted when a payment intent succeeds and the order
// transitions to paid.
type OrderPaidEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	CustomerEmail   string    `json:"customer_email"`
	CustomerName    *string   `json:"customer_name,omitempty"`
	PaymentIntentID string    `json:"payment_intent_id"`
	PaymentID       *string   `json:"payment_id,omitempty"`
	TotalCents      int64     `json:"total_cents"`
	Currency        string    `json:"currency"`
	Items           []LineItem `json:"items"`
	PaidAt          time.Time `json:"paid_at"`
}

// OrderPaymentFailedEvent records a failed payment attempt against an order.
type OrderPaymentFailedEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	CustomerEmail   string    `json:"customer_email"`
	PaymentIntentID string    `json:"payment_intent_id"`
	FailureMessage  string    `json:"failure_message,omitempty"`
	FailedAt        time.Time `json:"failed_at"`
}

// LineItem is the denormalized order line carried on events so consumers do
// not have to read the orders table.
type LineItem struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Qty            int       `json:"qty"`
	TotalCents     int64     `json:"total_cents"`
}
