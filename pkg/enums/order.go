package enums

import (
	"fmt"
	"strings"
)

// OrderStatus tracks an order through the payment reconciliation lifecycle.
type OrderStatus string

const (
	// OrderStatusPending is set when the order row is created alongside the
	// payment intent and holds until a verified webhook settles it.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaid is the terminal success state.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusFailed is the terminal failure state.
	OrderStatusFailed OrderStatus = "failed"
	// OrderStatusFulfilled is an administrative follow-up to paid; the
	// reconciliation state machine never produces it.
	OrderStatusFulfilled OrderStatus = "fulfilled"
)

func (s OrderStatus) String() string {
	return string(s)
}

// Terminal reports whether the reconciliation machine may still move the order.
func (s OrderStatus) Terminal() bool {
	return s != OrderStatusPending
}

// ParseOrderStatus validates a raw status string.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	switch OrderStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case OrderStatusPending:
		return OrderStatusPending, nil
	case OrderStatusPaid:
		return OrderStatusPaid, nil
	case OrderStatusFailed:
		return OrderStatusFailed, nil
	case OrderStatusFulfilled:
		return OrderStatusFulfilled, nil
	default:
		return "", fmt.Errorf("unknown order status %q", raw)
	}
}
