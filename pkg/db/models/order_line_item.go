package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLineItem is the immutable snapshot of a catalog item at order time.
// Later catalog price changes never touch a placed order.
type OrderLineItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Name           string    `gorm:"column:name;not null"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null"`
	Qty            int       `gorm:"column:qty;not null"`
	ImageURL       *string   `gorm:"column:image_url"`
	TotalCents     int64     `gorm:"column:total_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
