package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/mljjcooking/storefront-backend/pkg/db/models"
	"github.com/mljjcooking/storefront-backend/pkg/enums"
)

// OrderDTO is the admin-facing order representation.
type OrderDTO struct {
	ID              uuid.UUID         `json:"id"`
	CustomerEmail   string            `json:"customer_email"`
	CustomerName    *string           `json:"customer_name,omitempty"`
	Status          enums.OrderStatus `json:"status"`
	Currency        enums.Currency    `json:"currency"`
	TotalCents      int64             `json:"total_cents"`
	PaymentIntentID string            `json:"payment_intent_id"`
	PaymentID       *string           `json:"payment_id,omitempty"`
	Items           []LineItemDTO     `json:"items"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// LineItemDTO is a priced order line.
type LineItemDTO struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Qty            int       `json:"qty"`
	TotalCents     int64     `json:"total_cents"`
	ImageURL       *string   `json:"image_url,omitempty"`
}

// OrderListDTO pages the admin order listing.
type OrderListDTO struct {
	Orders []OrderDTO `json:"orders"`
	Total  int64      `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

func toOrderDTO(order models.Order) OrderDTO {
	items := make([]LineItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, LineItemDTO{
			ProductID:      item.ProductID,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Qty:            item.Qty,
			TotalCents:     item.TotalCents,
			ImageURL:       item.ImageURL,
		})
	}
	return OrderDTO{
		ID:              order.ID,
		CustomerEmail:   order.CustomerEmail,
		CustomerName:    order.CustomerName,
		Status:          order.Status,
		Currency:        order.Currency,
		TotalCents:      order.TotalCents,
		PaymentIntentID: order.StripePaymentIntentID,
		PaymentID:       order.StripePaymentID,
		Items:           items,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}
