package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mljjcooking/storefront-backend/pkg/enums"
)

// Order is the durable ledger record for a checkout. The stripe payment intent
// id is the reconciliation join key: exactly one order exists per intent.
type Order struct {
	ID                    uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerEmail         string            `gorm:"column:customer_email;not null"`
	CustomerName          *string           `gorm:"column:customer_name"`
	Status                enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Currency              enums.Currency    `gorm:"column:currency;type:text;not null;default:'usd'"`
	TotalCents            int64             `gorm:"column:total_cents;not null"`
	StripePaymentIntentID string            `gorm:"column:stripe_payment_intent_id;not null;uniqueIndex:ux_orders_payment_intent"`
	StripePaymentID       *string           `gorm:"column:stripe_payment_id"`
	Items                 []OrderLineItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
