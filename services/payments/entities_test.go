package main

import (
	"strings"
	"testing"
	"time"
)

func TestNewPayment(t *testing.T) {
	payment := NewPayment("order-1", "user-1", "idem-1", "USD", 1000)

	if payment.Status != PaymentStatusPending {
		t.Errorf("expected status %s, got %s", PaymentStatusPending, payment.Status)
	}
	if payment.RefundStatus != RefundStatusNone {
		t.Errorf("expected refund status %s, got %s", RefundStatusNone, payment.RefundStatus)
	}
	if !strings.HasPrefix(payment.PaymentID, "PAY-") || len(payment.PaymentID) != 12 {
		t.Errorf("unexpected payment id format: %s", payment.PaymentID)
	}
	if payment.PaymentID != strings.ToUpper(payment.PaymentID) {
		t.Errorf("payment id should be upper case: %s", payment.PaymentID)
	}

	ttl := payment.ExpiresAt.Sub(payment.CreatedAt)
	if ttl != paymentTTL {
		t.Errorf("expected TTL of %v, got %v", paymentTTL, ttl)
	}
	if payment.ProcessedAt != nil {
		t.Error("new payment should not have a processed timestamp")
	}
}

func TestUpdateStatusStampsProcessedAt(t *testing.T) {
	payment := NewPayment("order-1", "user-1", "idem-1", "USD", 1000)

	payment.UpdateStatus(PaymentStatusProcessing)
	if payment.ProcessedAt != nil {
		t.Error("PROCESSING should not stamp processed_at")
	}

	payment.UpdateStatus(PaymentStatusCompleted)
	if payment.ProcessedAt == nil {
		t.Error("COMPLETED should stamp processed_at")
	}
}

func TestUpdateStatusWithReason(t *testing.T) {
	payment := NewPayment("order-1", "user-1", "idem-1", "USD", 1000)

	payment.UpdateStatusWithReason(PaymentStatusFailed, "card declined")

	if !payment.IsFailed() {
		t.Errorf("expected FAILED, got %s", payment.Status)
	}
	if payment.FailureReason != "card declined" {
		t.Errorf("expected failure reason to be recorded, got %q", payment.FailureReason)
	}
	if payment.ProcessedAt == nil {
		t.Error("FAILED should stamp processed_at")
	}
}

func TestIsExpired(t *testing.T) {
	payment := NewPayment("order-1", "user-1", "idem-1", "USD", 1000)
	if payment.IsExpired() {
		t.Error("fresh payment should not be expired")
	}

	payment.ExpiresAt = time.Now().Add(-1 * time.Minute)
	if !payment.IsExpired() {
		t.Error("payment past its deadline should be expired")
	}
}

func TestCanBeRefunded(t *testing.T) {
	payment := NewPayment("order-1", "user-1", "idem-1", "USD", 1000)

	if payment.CanBeRefunded() {
		t.Error("pending payment should not be refundable")
	}

	payment.UpdateStatus(PaymentStatusCompleted)
	if !payment.CanBeRefunded() {
		t.Error("completed payment without refund should be refundable")
	}

	payment.UpdateRefundStatus(RefundStatusPending, 500)
	if payment.CanBeRefunded() {
		t.Error("payment with refund in progress should not be refundable again")
	}
}

func TestIsFullyRefunded(t *testing.T) {
	payment := NewPayment("order-1", "user-1", "idem-1", "USD", 1000)
	payment.UpdateStatus(PaymentStatusCompleted)

	payment.UpdateRefundStatus(RefundStatusCompleted, 500)
	if payment.IsFullyRefunded() {
		t.Error("partial refund should not count as full")
	}

	payment.UpdateRefundStatus(RefundStatusCompleted, 1000)
	if !payment.IsFullyRefunded() {
		t.Error("refund of the full amount should count as full")
	}
}
