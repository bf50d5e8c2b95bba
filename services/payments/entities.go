package main

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus representa os possíveis status de um pagamento
const (
	PaymentStatusPending    = "PENDING"
	PaymentStatusProcessing = "PROCESSING"
	PaymentStatusCompleted  = "COMPLETED"
	PaymentStatusFailed     = "FAILED"
	PaymentStatusCancelled  = "CANCELLED"
	PaymentStatusExpired    = "EXPIRED"
)

// RefundStatus representa os possíveis status de reembolso
const (
	RefundStatusNone      = "NONE"
	RefundStatusPending   = "PENDING"
	RefundStatusCompleted = "COMPLETED"
	RefundStatusFailed    = "FAILED"
)

const paymentTTL = 24 * time.Hour

// Payment representa uma transação de pagamento ao longo do seu ciclo de vida
type Payment struct {
	ID                    string     `json:"id" db:"id"`
	PaymentID             string     `json:"payment_id" db:"payment_id"`
	OrderID               string     `json:"order_id" db:"order_id"`
	UserID                string     `json:"user_id" db:"user_id"`
	Status                string     `json:"status" db:"status"`
	Amount                int64      `json:"amount" db:"amount"`
	Currency              string     `json:"currency" db:"currency"`
	IdempotencyKey        string     `json:"idempotency_key" db:"idempotency_key"`
	ProviderTransactionID string     `json:"provider_transaction_id,omitempty" db:"provider_transaction_id"`
	ProviderResponse      string     `json:"provider_response,omitempty" db:"provider_response"`
	FailureReason         string     `json:"failure_reason,omitempty" db:"failure_reason"`
	RefundStatus          string     `json:"refund_status" db:"refund_status"`
	RefundAmount          int64      `json:"refund_amount" db:"refund_amount"`
	ProcessedAt           *time.Time `json:"processed_at,omitempty" db:"processed_at"`
	ExpiresAt             time.Time  `json:"expires_at" db:"expires_at"`
	CreatedAt             time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at" db:"updated_at"`
}

// NewPayment cria uma nova instância de Payment em estado PENDING
func NewPayment(orderID, userID, idempotencyKey, currency string, amount int64) *Payment {
	now := time.Now()
	return &Payment{
		ID:             uuid.New().String(),
		PaymentID:      generatePaymentID(),
		OrderID:        orderID,
		UserID:         userID,
		Status:         PaymentStatusPending,
		Amount:         amount,
		Currency:       currency,
		IdempotencyKey: idempotencyKey,
		RefundStatus:   RefundStatusNone,
		ExpiresAt:      now.Add(paymentTTL),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// generatePaymentID gera um identificador legível no formato PAY-XXXXXXXX
func generatePaymentID() string {
	return "PAY-" + strings.ToUpper(uuid.New().String()[:8])
}

// UpdateStatus transiciona o status do pagamento com toque de timestamp
func (p *Payment) UpdateStatus(newStatus string) {
	p.Status = newStatus
	now := time.Now()
	p.UpdatedAt = now

	if newStatus == PaymentStatusCompleted || newStatus == PaymentStatusFailed {
		p.ProcessedAt = &now
	}
}

// UpdateStatusWithReason transiciona o status registrando o motivo da falha
func (p *Payment) UpdateStatusWithReason(newStatus, failureReason string) {
	p.UpdateStatus(newStatus)
	p.FailureReason = failureReason
}

// UpdateRefundStatus atualiza o estado do reembolso
func (p *Payment) UpdateRefundStatus(newStatus string, refundAmount int64) {
	p.RefundStatus = newStatus
	p.RefundAmount = refundAmount
	p.UpdatedAt = time.Now()
}

func (p *Payment) IsPending() bool {
	return p.Status == PaymentStatusPending
}

func (p *Payment) IsCompleted() bool {
	return p.Status == PaymentStatusCompleted
}

func (p *Payment) IsFailed() bool {
	return p.Status == PaymentStatusFailed
}

// IsExpired verifica o prazo do pagamento (checado preguiçosamente no processamento)
func (p *Payment) IsExpired() bool {
	return time.Now().After(p.ExpiresAt)
}

// CanBeRefunded só vale para pagamentos completados sem reembolso em curso
func (p *Payment) CanBeRefunded() bool {
	return p.IsCompleted() && p.RefundStatus == RefundStatusNone
}

func (p *Payment) IsFullyRefunded() bool {
	return p.RefundStatus == RefundStatusCompleted && p.RefundAmount >= p.Amount
}
