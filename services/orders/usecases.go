package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNotFound     = errors.New("order not found")
	ErrInvalidState = errors.New("invalid order state")
	ErrValidation   = errors.New("validation error")
)

// OrderUseCase contém a lógica de negócio de pedidos
type OrderUseCase struct {
	repository     OrderRepository
	publisher      EventPublisher
	createdCounter metric.Int64Counter
}

// NewOrderUseCase cria uma nova instância de OrderUseCase
func NewOrderUseCase(repository OrderRepository, publisher EventPublisher, meter metric.Meter) *OrderUseCase {
	uc := &OrderUseCase{
		repository: repository,
		publisher:  publisher,
	}

	if meter != nil {
		uc.createdCounter, _ = meter.Int64Counter("orders.created")
	}

	return uc
}

// CreateOrder cria um pedido PENDING/PENDING com seus itens em uma transação
func (uc *OrderUseCase) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	log.Printf("➡️ [CREATE ORDER] UserID: %s | Items: %d", req.UserID, len(req.Items))

	// 1. Valida os itens antes de tocar no banco
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: order requires at least one item", ErrValidation)
	}
	for _, item := range req.Items {
		if err := validateItem(item); err != nil {
			return nil, err
		}
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	// 2. Monta o agregado com totais derivados
	order := NewOrder(req.UserID, currency)
	for _, item := range req.Items {
		order.AddItem(newOrderItem(item))
	}

	// 3. Persiste pedido e itens atomicamente
	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback()

	if err := uc.repository.CreateOrder(ctx, tx, order); err != nil {
		log.Printf("❌ Failed to create order for user %s: %v", req.UserID, err)
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("erro ao comitar criação: %w", err)
	}

	uc.publishEvent(ctx, order, EventOrderCreated)
	if uc.createdCounter != nil {
		uc.createdCounter.Add(ctx, 1)
	}

	log.Printf("✅ [CREATE ORDER] Success: OrderNumber=%s | Total=%d", order.OrderNumber, order.TotalAmount)
	return order, nil
}

func validateItem(item OrderItemRequest) error {
	if item.ProductID == "" {
		return fmt.Errorf("%w: product id is required", ErrValidation)
	}
	if item.Quantity <= 0 {
		return fmt.Errorf("%w: item quantity must be positive", ErrValidation)
	}
	if item.UnitPrice < 0 {
		return fmt.Errorf("%w: unit price cannot be negative", ErrValidation)
	}
	return nil
}

func newOrderItem(req OrderItemRequest) OrderItem {
	return OrderItem{
		ID:             uuid.New().String(),
		ProductID:      req.ProductID,
		ProductName:    req.ProductName,
		SKU:            req.SKU,
		Quantity:       req.Quantity,
		UnitPrice:      req.UnitPrice,
		DiscountAmount: req.DiscountAmount,
		TaxAmount:      req.TaxAmount,
		CreatedAt:      time.Now(),
	}
}

// GetOrder busca um pedido pelo seu número
func (uc *OrderUseCase) GetOrder(ctx context.Context, orderNumber string) (*Order, error) {
	order, err := uc.repository.GetOrder(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, ErrOrderRowNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, orderNumber)
		}
		return nil, err
	}
	return order, nil
}

// AddItem anexa um item a um pedido ainda mutável
func (uc *OrderUseCase) AddItem(ctx context.Context, orderNumber string, req OrderItemRequest) (*Order, error) {
	log.Printf("➡️ [ADD ITEM] OrderNumber: %s | ProductID: %s | Quantity: %d", orderNumber, req.ProductID, req.Quantity)

	if err := validateItem(req); err != nil {
		return nil, err
	}

	order, err := uc.mutateItems(ctx, orderNumber, func(order *Order) error {
		order.AddItem(newOrderItem(req))
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.publishEvent(ctx, order, EventOrderItemAdded)
	log.Printf("✅ [ADD ITEM] Success: OrderNumber=%s | Total=%d", orderNumber, order.TotalAmount)
	return order, nil
}

// RemoveItem retira um item de um pedido ainda mutável
func (uc *OrderUseCase) RemoveItem(ctx context.Context, orderNumber, productID string) (*Order, error) {
	log.Printf("➡️ [REMOVE ITEM] OrderNumber: %s | ProductID: %s", orderNumber, productID)

	order, err := uc.mutateItems(ctx, orderNumber, func(order *Order) error {
		if !order.RemoveItem(productID) {
			return fmt.Errorf("%w: product %s not in order", ErrNotFound, productID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.publishEvent(ctx, order, EventOrderItemRemoved)
	log.Printf("✅ [REMOVE ITEM] Success: OrderNumber=%s | Total=%d", orderNumber, order.TotalAmount)
	return order, nil
}

// mutateItems aplica uma mutação de itens sob lock, respeitando o gate de
// estado do pedido: pedido que não pode mais ser cancelado não muda de itens
func (uc *OrderUseCase) mutateItems(ctx context.Context, orderNumber string, mutate func(*Order) error) (*Order, error) {
	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback()

	order, err := uc.repository.GetOrderForUpdate(ctx, tx, orderNumber)
	if err != nil {
		if errors.Is(err, ErrOrderRowNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, orderNumber)
		}
		return nil, err
	}

	if !order.CanBeCancelled() {
		log.Printf("ℹ️ [ITEMS] Rejected in status %s: OrderNumber=%s", order.Status, orderNumber)
		return nil, fmt.Errorf("%w: cannot modify items of order in status %s", ErrInvalidState, order.Status)
	}

	if err := mutate(order); err != nil {
		return nil, err
	}

	if err := uc.repository.ReplaceItems(ctx, tx, order); err != nil {
		return nil, err
	}
	if err := uc.repository.SaveOrder(ctx, tx, order); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("erro ao comitar mutação de itens: %w", err)
	}

	return order, nil
}

// CancelOrder cancela um pedido ainda cancelável
func (uc *OrderUseCase) CancelOrder(ctx context.Context, orderNumber string) (*Order, error) {
	log.Printf("↩️ [CANCEL ORDER] OrderNumber: %s", orderNumber)

	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback()

	order, err := uc.repository.GetOrderForUpdate(ctx, tx, orderNumber)
	if err != nil {
		if errors.Is(err, ErrOrderRowNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, orderNumber)
		}
		return nil, err
	}

	if !order.CanBeCancelled() {
		log.Printf("ℹ️ [CANCEL ORDER] Rejected in status %s: OrderNumber=%s", order.Status, orderNumber)
		return nil, fmt.Errorf("%w: cannot cancel order in status %s", ErrInvalidState, order.Status)
	}

	order.UpdateStatus(OrderStatusCancelled)
	if err := uc.repository.SaveOrder(ctx, tx, order); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("erro ao comitar cancelamento: %w", err)
	}

	uc.publishEvent(ctx, order, EventOrderCancelled)

	log.Printf("✅ [CANCEL ORDER] Success: OrderNumber=%s", orderNumber)
	return order, nil
}

// UpdateStatus transiciona o status do pedido; o chamador sequencia as transições
func (uc *OrderUseCase) UpdateStatus(ctx context.Context, orderNumber, status string) (*Order, error) {
	log.Printf("➡️ [UPDATE STATUS] OrderNumber: %s | Status: %s", orderNumber, status)

	if !validOrderStatuses[status] {
		return nil, fmt.Errorf("%w: unknown order status %s", ErrValidation, status)
	}

	order, err := uc.updateOrder(ctx, orderNumber, func(order *Order) {
		order.UpdateStatus(status)
	})
	if err != nil {
		return nil, err
	}

	uc.publishEvent(ctx, order, EventOrderStatusUpdated)
	log.Printf("✅ [UPDATE STATUS] Success: OrderNumber=%s | Status=%s", orderNumber, status)
	return order, nil
}

// UpdatePaymentStatus transiciona o status de pagamento do pedido
func (uc *OrderUseCase) UpdatePaymentStatus(ctx context.Context, orderNumber, paymentStatus string) (*Order, error) {
	log.Printf("➡️ [UPDATE PAYMENT STATUS] OrderNumber: %s | PaymentStatus: %s", orderNumber, paymentStatus)

	if !validPaymentStatuses[paymentStatus] {
		return nil, fmt.Errorf("%w: unknown payment status %s", ErrValidation, paymentStatus)
	}

	order, err := uc.updateOrder(ctx, orderNumber, func(order *Order) {
		order.UpdatePaymentStatus(paymentStatus)
	})
	if err != nil {
		return nil, err
	}

	uc.publishEvent(ctx, order, EventOrderPaymentStatusUpdated)
	log.Printf("✅ [UPDATE PAYMENT STATUS] Success: OrderNumber=%s | PaymentStatus=%s", orderNumber, paymentStatus)
	return order, nil
}

func (uc *OrderUseCase) updateOrder(ctx context.Context, orderNumber string, apply func(*Order)) (*Order, error) {
	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback()

	order, err := uc.repository.GetOrderForUpdate(ctx, tx, orderNumber)
	if err != nil {
		if errors.Is(err, ErrOrderRowNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, orderNumber)
		}
		return nil, err
	}

	apply(order)

	if err := uc.repository.SaveOrder(ctx, tx, order); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("erro ao comitar atualização: %w", err)
	}

	return order, nil
}

// publishEvent publica o evento em melhor esforço: falha é logada e
// descartada, nunca reverte a transição já comitada
func (uc *OrderUseCase) publishEvent(ctx context.Context, order *Order, eventType string) {
	event := OrderEvent{
		EventType:     eventType,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		TotalAmount:   order.TotalAmount,
		Currency:      order.Currency,
		Timestamp:     order.UpdatedAt,
	}

	if err := uc.publisher.Publish(ctx, event); err != nil {
		log.Printf("❌ Failed to publish order event %s for order %s: %v",
			eventType, order.OrderNumber, err)
	}
}
