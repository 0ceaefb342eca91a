package models

import "testing"

func TestCartSubtotal(t *testing.T) {
	cart := Cart{Items: []CartItem{
		{PriceAtTime: 19.99, Quantity: 2},
		{PriceAtTime: 5.50, Quantity: 3},
	}}

	want := 19.99*2 + 5.50*3
	if got := cart.Subtotal(); got != want {
		t.Errorf("Subtotal = %v, want %v", got, want)
	}
	if got := cart.TotalItems(); got != 5 {
		t.Errorf("TotalItems = %d, want 5", got)
	}
}

func TestCartSubtotalEmpty(t *testing.T) {
	var cart Cart
	if got := cart.Subtotal(); got != 0 {
		t.Errorf("Subtotal of empty cart = %v", got)
	}
}
