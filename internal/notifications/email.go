package notifications

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mljjcooking/storefront-backend/pkg/config"
	"github.com/mljjcooking/storefront-backend/pkg/outbox/payloads"
)

// Email is a rendered message ready for the transport.
type Email struct {
	ToEmail   string
	ToName    string
	Subject   string
	PlainText string
	HTML      string
}

// RenderOrderConfirmation builds the confirmation email for a paid order:
// items, totals, and the pickup details from config.
func RenderOrderConfirmation(event payloads.OrderPaidEvent, pickup config.PickupConfig) Email {
	shortID := shortOrderID(event.OrderID.String())
	subject := fmt.Sprintf("Order Confirmation — #%s", shortID)

	toName := ""
	greeting := "Hi,"
	if event.CustomerName != nil && strings.TrimSpace(*event.CustomerName) != "" {
		toName = strings.TrimSpace(*event.CustomerName)
		greeting = fmt.Sprintf("Hi %s,", toName)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "%s\n\nThank you for your order! Here is what you ordered:\n\n", greeting)
	var htmlRows strings.Builder
	for _, item := range event.Items {
		line := fmt.Sprintf("%s x%d — %s", item.Name, item.Qty, dollars(item.TotalCents))
		fmt.Fprintf(&text, "  - %s\n", line)
		fmt.Fprintf(&htmlRows,
			"<tr><td>%s</td><td>x%d</td><td align=\"right\">%s</td></tr>",
			html.EscapeString(item.Name), item.Qty, dollars(item.TotalCents))
	}
	total := dollars(event.TotalCents)
	fmt.Fprintf(&text, "\nTotal: %s\n\n", total)
	fmt.Fprintf(&text, "Pickup: %s\n%s\n\n", pickup.Address, pickup.Window)
	text.WriteString("See you soon!\nMLJJ Cooking\n")

	htmlBody := fmt.Sprintf(`<p>%s</p>
<p>Thank you for your order! Here is what you ordered:</p>
<table cellpadding="4">%s
<tr><td colspan="2"><strong>Total</strong></td><td align="right"><strong>%s</strong></td></tr>
</table>
<p>Pickup: %s<br>%s</p>
<p>See you soon!<br>MLJJ Cooking</p>`,
		html.EscapeString(greeting), htmlRows.String(), total,
		html.EscapeString(pickup.Address), html.EscapeString(pickup.Window))

	return Email{
		ToEmail:   event.CustomerEmail,
		ToName:    toName,
		Subject:   subject,
		PlainText: text.String(),
		HTML:      htmlBody,
	}
}

func dollars(cents int64) string {
	return "$" + decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).StringFixed(2)
}

func shortOrderID(id string) string {
	if len(id) >= 8 {
		return strings.ToUpper(id[:8])
	}
	return strings.ToUpper(id)
}
