package mailer

import (
	"fmt"
	"html"
	"strings"

	"estore/internal/queue"
)

// OrderConfirmationSubject builds the subject line for a placed order.
func OrderConfirmationSubject(orderNumber int64) string {
	return fmt.Sprintf("Order #%d confirmed", orderNumber)
}

// OrderConfirmationBody renders the confirmation email from the job's order
// snapshot. The snapshot is used as-is; prices may have changed since.
func OrderConfirmationBody(order *queue.EmailOrder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Thanks for your order #%d!</h2>", order.OrderNumber)
	b.WriteString("<table><tr><th align=\"left\">Item</th><th>Qty</th><th>Price</th></tr>")
	for _, item := range order.Items {
		fmt.Fprintf(&b, "<tr><td>%s</td><td align=\"center\">%d</td><td>%.2f</td></tr>",
			html.EscapeString(item.NameAtTime), item.Quantity, item.PriceAtTime)
	}
	b.WriteString("</table>")
	fmt.Fprintf(&b, "<p><strong>Total: %.2f</strong></p>", order.TotalAmount)
	if order.ShippingAddress.FullName != "" {
		fmt.Fprintf(&b, "<p>Shipping to %s, %s</p>",
			html.EscapeString(order.ShippingAddress.FullName), html.EscapeString(order.ShippingAddress.City))
	}
	return b.String()
}

// OrderStatusSubject builds the subject line for a status change email.
func OrderStatusSubject(orderNumber int64, status string) string {
	return fmt.Sprintf("Order #%d is now %s", orderNumber, status)
}

// OrderStatusBody renders the status update email.
func OrderStatusBody(order *queue.EmailOrder, status string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Order #%d update</h2>", order.OrderNumber)
	fmt.Fprintf(&b, "<p>Your order is now <strong>%s</strong>.</p>", html.EscapeString(status))
	return b.String()
}
