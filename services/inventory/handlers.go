package main

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// StockRequest representa a requisição para operações de estoque
type StockRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	SKU       string `json:"sku"`
	Location  string `json:"location" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	OrderID   string `json:"order_id"`
}

// InventoryHandler contém os handlers HTTP para inventário
type InventoryHandler struct {
	useCase *InventoryUseCase
	tracer  trace.Tracer
}

// NewInventoryHandler cria uma nova instância de InventoryHandler
func NewInventoryHandler(useCase *InventoryUseCase, tracer trace.Tracer) *InventoryHandler {
	return &InventoryHandler{
		useCase: useCase,
		tracer:  tracer,
	}
}

// AddStock é o endpoint para adicionar estoque
func (h *InventoryHandler) AddStock(c *gin.Context) {
	h.handleStockOperation(c, "add_stock", h.useCase.AddStock)
}

// ReserveStock é o endpoint para reservar estoque
func (h *InventoryHandler) ReserveStock(c *gin.Context) {
	h.handleStockOperation(c, "reserve_stock", h.useCase.Reserve)
}

// ReleaseStock é o endpoint para liberar uma reserva
func (h *InventoryHandler) ReleaseStock(c *gin.Context) {
	h.handleStockOperation(c, "release_stock", h.useCase.Release)
}

// ConfirmStock é o endpoint para confirmar uma reserva
func (h *InventoryHandler) ConfirmStock(c *gin.Context) {
	h.handleStockOperation(c, "confirm_stock", h.useCase.Confirm)
}

// GetItem é o endpoint de consulta de estoque
func (h *InventoryHandler) GetItem(c *gin.Context) {
	productID := c.Param("productId")
	location := c.Param("location")

	item, err := h.useCase.GetItem(c.Request.Context(), productID, location)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, item)
}

// HealthCheck é o endpoint de health check
func (h *InventoryHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "inventory-service",
	})
}

func (h *InventoryHandler) handleStockOperation(
	c *gin.Context,
	operationName string,
	operation func(ctx context.Context, req StockRequest) (*InventoryItem, error),
) {
	var req StockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), operationName)
	defer span.End()

	span.SetAttributes(
		attribute.String("product_id", req.ProductID),
		attribute.String("location", req.Location),
		attribute.Int("quantity", req.Quantity),
		attribute.String("order_id", req.OrderID),
	)

	item, err := operation(ctx, req)
	if err != nil {
		span.RecordError(err)
		log.Printf("ℹ️ [%s] FAILED for ProductID=%s : %s", operationName, req.ProductID, err)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, item)
}

// statusForError mapeia os tipos de erro de negócio para códigos HTTP
func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrInvalidReservation):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
