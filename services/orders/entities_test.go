package main

import (
	"strings"
	"testing"
)

func testItem(productID string, quantity int, unitPrice, discount, tax int64) OrderItem {
	item := OrderItem{
		ProductID:      productID,
		ProductName:    "Product " + productID,
		SKU:            "SKU-" + productID,
		Quantity:       quantity,
		UnitPrice:      unitPrice,
		DiscountAmount: discount,
		TaxAmount:      tax,
	}
	item.CalculateTotal()
	return item
}

func TestNewOrder(t *testing.T) {
	order := NewOrder("user-1", "USD")

	if order.Status != OrderStatusPending {
		t.Errorf("expected status %s, got %s", OrderStatusPending, order.Status)
	}
	if order.PaymentStatus != PaymentStatusPending {
		t.Errorf("expected payment status %s, got %s", PaymentStatusPending, order.PaymentStatus)
	}
	if !strings.HasPrefix(order.OrderNumber, "ORD-") || len(order.OrderNumber) != 12 {
		t.Errorf("unexpected order number format: %s", order.OrderNumber)
	}
	if order.TotalAmount != 0 {
		t.Errorf("empty order should have zero total, got %d", order.TotalAmount)
	}
}

func TestItemTotalCalculation(t *testing.T) {
	// total = unitPrice*quantity - discount + tax
	item := testItem("p1", 3, 1000, 200, 150)

	if item.TotalPrice != 2950 {
		t.Errorf("expected item total 2950, got %d", item.TotalPrice)
	}
}

func TestRecalculateTotal(t *testing.T) {
	order := NewOrder("user-1", "USD")
	order.AddItem(testItem("p1", 2, 1000, 0, 0))
	order.AddItem(testItem("p2", 1, 500, 100, 50))

	if order.TotalAmount != 2450 {
		t.Errorf("expected total 2450, got %d", order.TotalAmount)
	}

	if !order.RemoveItem("p1") {
		t.Fatal("expected p1 to be removed")
	}
	if order.TotalAmount != 450 {
		t.Errorf("expected total 450 after removal, got %d", order.TotalAmount)
	}
}

func TestRemoveItemAbsent(t *testing.T) {
	order := NewOrder("user-1", "USD")
	order.AddItem(testItem("p1", 1, 1000, 0, 0))

	if order.RemoveItem("p9") {
		t.Error("removing an absent product should return false")
	}
	if len(order.Items) != 1 || order.TotalAmount != 1000 {
		t.Error("failed removal should not mutate the order")
	}
}

func TestCanBeCancelled(t *testing.T) {
	order := NewOrder("user-1", "USD")

	cancellable := map[string]bool{
		OrderStatusPending:    true,
		OrderStatusConfirmed:  true,
		OrderStatusProcessing: false,
		OrderStatusShipped:    false,
		OrderStatusDelivered:  false,
		OrderStatusCancelled:  false,
		OrderStatusRefunded:   false,
	}

	for status, expected := range cancellable {
		order.UpdateStatus(status)
		if order.CanBeCancelled() != expected {
			t.Errorf("status %s: expected CanBeCancelled=%v", status, expected)
		}
	}
}

func TestFindItem(t *testing.T) {
	order := NewOrder("user-1", "USD")
	order.AddItem(testItem("p1", 1, 1000, 0, 0))

	if item := order.FindItem("p1"); item == nil || item.ProductID != "p1" {
		t.Error("expected to find item p1")
	}
	if order.FindItem("p9") != nil {
		t.Error("expected nil for absent product")
	}
}
