package mailer

import (
	"strings"
	"testing"

	"estore/internal/models"
	"estore/internal/queue"
)

func TestOrderConfirmationBody(t *testing.T) {
	order := &queue.EmailOrder{
		OrderNumber: 1042,
		Items: []models.OrderItem{
			{NameAtTime: "Linen Shirt <script>", Quantity: 2, PriceAtTime: 39.9},
		},
		TotalAmount:     79.8,
		ShippingAddress: models.ShippingAddress{FullName: "Sam Doe", City: "Lisbon"},
	}

	body := OrderConfirmationBody(order)

	for _, want := range []string{"#1042", "Linen Shirt", "79.80", "Sam Doe", "Lisbon"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Contains(body, "<script>") {
		t.Error("item names must be escaped")
	}
}

func TestOrderStatusSubject(t *testing.T) {
	got := OrderStatusSubject(7, "Shipped")
	if got != "Order #7 is now Shipped" {
		t.Errorf("subject = %q", got)
	}
}
