package models

import "testing"

func TestOrderStatusValid(t *testing.T) {
	for _, status := range []OrderStatus{OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled} {
		if !status.Valid() {
			t.Errorf("%s should be valid", status)
		}
	}
	if OrderStatus("Refunded").Valid() {
		t.Error("unknown status should be invalid")
	}
	if OrderStatus("pending").Valid() {
		t.Error("status comparison is case-sensitive")
	}
}

func TestOrderStatusTransitionsArePermissive(t *testing.T) {
	all := []OrderStatus{OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled}
	for _, from := range all {
		for _, to := range all {
			if !from.CanTransitionTo(to) {
				t.Errorf("transition %s -> %s should be allowed", from, to)
			}
		}
	}
	if OrderPending.CanTransitionTo(OrderStatus("Refunded")) {
		t.Error("transition to unknown status should be rejected")
	}
}
