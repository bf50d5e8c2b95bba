package main

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CreatePaymentRequest representa o payload de criação de pagamento
type CreatePaymentRequest struct {
	OrderID        string `json:"order_id" binding:"required"`
	UserID         string `json:"user_id" binding:"required"`
	Amount         int64  `json:"amount" binding:"required,gt=0"`
	Currency       string `json:"currency"`
	IdempotencyKey string `json:"idempotency_key" binding:"required"`
}

// RefundRequest representa o payload de reembolso
type RefundRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// PaymentHandler gerencia as requisições HTTP de pagamentos
type PaymentHandler struct {
	useCase *PaymentUseCase
	tracer  trace.Tracer
}

// NewPaymentHandler cria uma nova instância de PaymentHandler
func NewPaymentHandler(useCase *PaymentUseCase, tracer trace.Tracer) *PaymentHandler {
	return &PaymentHandler{
		useCase: useCase,
		tracer:  tracer,
	}
}

// CreatePayment processa POST /api/payments
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "CreatePayment")
	defer span.End()

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("❌ Invalid create payment request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(
		attribute.String("payment.order_id", req.OrderID),
		attribute.Int64("payment.amount", req.Amount),
	)

	payment, err := h.useCase.CreatePayment(ctx, req)
	if err != nil {
		span.RecordError(err)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, payment)
}

// ProcessPayment processa POST /api/payments/:paymentId/process.
// O header Idempotency-Key, quando presente, ativa o caminho idempotente.
func (h *PaymentHandler) ProcessPayment(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "ProcessPayment")
	defer span.End()

	paymentID := c.Param("paymentId")
	idempotencyKey := c.GetHeader("Idempotency-Key")

	span.SetAttributes(attribute.String("payment.id", paymentID))

	var payment *Payment
	var err error
	if idempotencyKey != "" {
		payment, err = h.useCase.ProcessPaymentWithIdempotency(ctx, paymentID, idempotencyKey)
	} else {
		payment, err = h.useCase.ProcessPayment(ctx, paymentID)
	}
	if err != nil {
		span.RecordError(err)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, payment)
}

// RefundPayment processa POST /api/payments/:paymentId/refund
func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "RefundPayment")
	defer span.End()

	paymentID := c.Param("paymentId")

	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("❌ Invalid refund request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(
		attribute.String("payment.id", paymentID),
		attribute.Int64("payment.refund_amount", req.Amount),
	)

	payment, err := h.useCase.RefundPayment(ctx, paymentID, req.Amount)
	if err != nil {
		span.RecordError(err)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, payment)
}

// CancelPayment processa POST /api/payments/:paymentId/cancel
func (h *PaymentHandler) CancelPayment(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "CancelPayment")
	defer span.End()

	paymentID := c.Param("paymentId")
	span.SetAttributes(attribute.String("payment.id", paymentID))

	payment, err := h.useCase.CancelPayment(ctx, paymentID)
	if err != nil {
		span.RecordError(err)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, payment)
}

// GetPayment processa GET /api/payments/:paymentId
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "GetPayment")
	defer span.End()

	paymentID := c.Param("paymentId")

	payment, err := h.useCase.GetPayment(ctx, paymentID)
	if err != nil {
		span.RecordError(err)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, payment)
}

// statusForError mapeia erros de domínio para códigos HTTP
func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrPaymentExpired):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
