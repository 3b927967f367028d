package notifications

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/mljjcooking/storefront-backend/pkg/config"
	"github.com/mljjcooking/storefront-backend/pkg/outbox/payloads"
)

func confirmationEvent() payloads.OrderPaidEvent {
	name := "Jane Doe"
	return payloads.OrderPaidEvent{
		OrderID:         uuid.MustParse("a1b2c3d4-0000-0000-0000-000000000000"),
		CustomerEmail:   "jane@example.com",
		CustomerName:    &name,
		PaymentIntentID: "pi_123",
		TotalCents:      4900,
		Currency:        "usd",
		Items: []payloads.LineItem{
			{ProductID: uuid.New(), Name: "Banana Bread", UnitPriceCents: 1200, Qty: 2, TotalCents: 2400},
			{ProductID: uuid.New(), Name: "Apple Pie", UnitPriceCents: 2500, Qty: 1, TotalCents: 2500},
		},
		PaidAt: time.Now().UTC(),
	}
}

func TestRenderOrderConfirmation(t *testing.T) {
	pickup := config.PickupConfig{
		Address: "123 Bakery Lane, New York, NY",
		Window:  "Saturday, 10:00 AM - 2:00 PM",
	}

	email := RenderOrderConfirmation(confirmationEvent(), pickup)

	assert.Equal(t, "jane@example.com", email.ToEmail)
	assert.Equal(t, "Jane Doe", email.ToName)
	assert.Equal(t, "Order Confirmation — #A1B2C3D4", email.Subject)

	assert.Contains(t, email.PlainText, "Hi Jane Doe,")
	assert.Contains(t, email.PlainText, "Banana Bread x2 — $24.00")
	assert.Contains(t, email.PlainText, "Apple Pie x1 — $25.00")
	assert.Contains(t, email.PlainText, "Total: $49.00")
	assert.Contains(t, email.PlainText, "123 Bakery Lane")
	assert.Contains(t, email.PlainText, "Saturday, 10:00 AM - 2:00 PM")

	assert.Contains(t, email.HTML, "Banana Bread")
	assert.Contains(t, email.HTML, "$49.00")
}

func TestRenderOrderConfirmationWithoutName(t *testing.T) {
	event := confirmationEvent()
	event.CustomerName = nil

	email := RenderOrderConfirmation(event, config.PickupConfig{})

	assert.Empty(t, email.ToName)
	assert.True(t, strings.HasPrefix(email.PlainText, "Hi,"))
}

func TestRenderEscapesHTML(t *testing.T) {
	event := confirmationEvent()
	event.Items[0].Name = "Bread <script>alert(1)</script>"

	email := RenderOrderConfirmation(event, config.PickupConfig{})
	assert.NotContains(t, email.HTML, "<script>")
	assert.Contains(t, email.HTML, "&lt;script&gt;")
}
