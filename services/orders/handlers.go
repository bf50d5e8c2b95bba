package main

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OrderItemRequest representa um item no payload de criação/mutação
type OrderItemRequest struct {
	ProductID      string `json:"product_id" binding:"required"`
	ProductName    string `json:"product_name"`
	SKU            string `json:"sku"`
	Quantity       int    `json:"quantity" binding:"required,gt=0"`
	UnitPrice      int64  `json:"unit_price" binding:"required,gte=0"`
	DiscountAmount int64  `json:"discount_amount"`
	TaxAmount      int64  `json:"tax_amount"`
}

// CreateOrderRequest representa o payload de criação de pedido
type CreateOrderRequest struct {
	UserID   string             `json:"user_id" binding:"required"`
	Currency string             `json:"currency"`
	Items    []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// UpdateStatusRequest representa o payload de atualização de status
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdatePaymentStatusRequest representa o payload de atualização de status de pagamento
type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" binding:"required"`
}

// OrderHandler gerencia as requisições HTTP de pedidos
type OrderHandler struct {
	useCase *OrderUseCase
	tracer  trace.Tracer
}

// NewOrderHandler cria uma nova instância de OrderHandler
func NewOrderHandler(useCase *OrderUseCase, tracer trace.Tracer) *OrderHandler {
	return &OrderHandler{
		useCase: useCase,
		tracer:  tracer,
	}
}

// CreateOrder processa POST /api/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "CreateOrder")
	defer span.End()

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("❌ Invalid create order request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(
		attribute.String("order.user_id", req.UserID),
		attribute.Int("order.items", len(req.Items)),
	)

	order, err := h.useCase.CreateOrder(ctx, req)
	if err != nil {
		span.RecordError(err)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, order)
}

// GetOrder processa GET /api/orders/:orderNumber
func (h *OrderHandler) GetOrder(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "GetOrder")
	defer span.End()

	orderNumber := c.Param("orderNumber")

	order, err := h.useCase.GetOrder(ctx, orderNumber)
	if err != nil {
		span.RecordError(err)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, order)
}

// AddItem processa POST /api/orders/:orderNumber/items
func (h *OrderHandler) AddItem(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "AddItem")
	defer span.End()

	orderNumber := c.Param("orderNumber")

	var req OrderItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("❌ Invalid add item request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(
		attribute.String("order.number", orderNumber),
		attribute.String("order.product_id", req.ProductID),
	)

	order, err := h.useCase.AddItem(ctx, orderNumber, req)
	if err != nil {
		span.RecordError(err)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, order)
}

// RemoveItem processa DELETE /api/orders/:orderNumber/items/:productId
func (h *OrderHandler) RemoveItem(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "RemoveItem")
	defer span.End()

	orderNumber := c.Param("orderNumber")
	productID := c.Param("productId")

	span.SetAttributes(
		attribute.String("order.number", orderNumber),
		attribute.String("order.product_id", productID),
	)

	order, err := h.useCase.RemoveItem(ctx, orderNumber, productID)
	if err != nil {
		span.RecordError(err)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, order)
}

// CancelOrder processa POST /api/orders/:orderNumber/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "CancelOrder")
	defer span.End()

	orderNumber := c.Param("orderNumber")
	span.SetAttributes(attribute.String("order.number", orderNumber))

	order, err := h.useCase.CancelOrder(ctx, orderNumber)
	if err != nil {
		span.RecordError(err)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, order)
}

// UpdateStatus processa PUT /api/orders/:orderNumber/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "UpdateStatus")
	defer span.End()

	orderNumber := c.Param("orderNumber")

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(
		attribute.String("order.number", orderNumber),
		attribute.String("order.status", req.Status),
	)

	order, err := h.useCase.UpdateStatus(ctx, orderNumber, req.Status)
	if err != nil {
		span.RecordError(err)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, order)
}

// UpdatePaymentStatus processa PUT /api/orders/:orderNumber/payment-status
func (h *OrderHandler) UpdatePaymentStatus(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "UpdatePaymentStatus")
	defer span.End()

	orderNumber := c.Param("orderNumber")

	var req UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(
		attribute.String("order.number", orderNumber),
		attribute.String("order.payment_status", req.PaymentStatus),
	)

	order, err := h.useCase.UpdatePaymentStatus(ctx, orderNumber, req.PaymentStatus)
	if err != nil {
		span.RecordError(err)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, order)
}

// statusForError mapeia erros de domínio para códigos HTTP
func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
