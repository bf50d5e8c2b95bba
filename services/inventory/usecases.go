package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNotFound           = errors.New("inventory item not found")
	ErrValidation         = errors.New("validation error")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidReservation = errors.New("invalid reservation")
)

// InventoryUseCase contém a lógica de negócio do inventário
type InventoryUseCase struct {
	repository      InventoryRepository
	publisher       EventPublisher
	reserveCounter  metric.Int64Counter
	rejectedCounter metric.Int64Counter
}

// NewInventoryUseCase cria uma nova instância de InventoryUseCase
func NewInventoryUseCase(
	repository InventoryRepository,
	publisher EventPublisher,
	meter metric.Meter,
) *InventoryUseCase {
	uc := &InventoryUseCase{
		repository: repository,
		publisher:  publisher,
	}

	if meter != nil {
		uc.reserveCounter, _ = meter.Int64Counter("inventory.reservations")
		uc.rejectedCounter, _ = meter.Int64Counter("inventory.rejected_operations")
	}

	return uc
}

// AddStock adiciona quantidade ao estoque, criando a linha no primeiro aporte
func (uc *InventoryUseCase) AddStock(ctx context.Context, req StockRequest) (*InventoryItem, error) {
	log.Printf("➡️ [ADD STOCK] ProductID: %s | Location: %s | Quantity: %d",
		req.ProductID, req.Location, req.Quantity)

	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}

	// 1. Inicia a transação
	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback()

	// 2. Obtém a linha com LOCK PESSIMISTA (SELECT FOR UPDATE) ou cria no primeiro aporte
	item, err := uc.repository.GetItemForUpdate(ctx, tx, req.ProductID, req.Location)
	created := false
	if err != nil {
		if !errors.Is(err, ErrItemRowNotFound) {
			log.Printf("❌ ADD FAILED: GetItemForUpdate | ProductID=%s | Error=%v", req.ProductID, err)
			return nil, err
		}
		item = NewInventoryItem(uuid.New().String(), req.ProductID, req.SKU, req.Location)
		created = true
	}

	// 3. Aplica a mutação na entidade
	if !item.AddQuantity(req.Quantity) {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}

	// 4. Persiste a linha e o registro de movimentação
	if created {
		err = uc.repository.CreateItem(ctx, tx, item)
	} else {
		err = uc.repository.SaveItem(ctx, tx, item)
	}
	if err != nil {
		log.Printf("❌ [ADD] | ProductID=%s Failed to persist: %v", req.ProductID, err)
		return nil, err
	}

	movement := NewStockMovement(uuid.New().String(), item.ID, req.OrderID, req.Quantity, MovementTypeAdded)
	if err := uc.repository.InsertMovement(ctx, tx, movement); err != nil {
		return nil, err
	}

	// 5. Commit da transação
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("erro ao comitar adição de estoque: %w", err)
	}

	uc.publishEvent(ctx, item, EventInventoryAdded, req.OrderID)

	log.Printf("✅ [ADD] Success: ProductID=%s | Available=%d", req.ProductID, item.AvailableQuantity)
	return item, nil
}

// Reserve reserva estoque para um pedido, baixando a disponibilidade
// sem baixar o estoque físico
func (uc *InventoryUseCase) Reserve(ctx context.Context, req StockRequest) (*InventoryItem, error) {
	log.Printf("➡️ [RESERVE] ProductID: %s | Location: %s | Quantity: %d | OrderID: %s",
		req.ProductID, req.Location, req.Quantity, req.OrderID)

	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}

	// 1. Inicia a transação
	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback()

	// 2. Obtém a linha com LOCK PESSIMISTA (SELECT FOR UPDATE)
	// Isso bloqueia a linha no banco até o Commit ou Rollback, impedindo
	// que duas reservas concorrentes passem pela checagem de disponibilidade
	item, err := uc.repository.GetItemForUpdate(ctx, tx, req.ProductID, req.Location)
	if err != nil {
		if errors.Is(err, ErrItemRowNotFound) {
			return nil, fmt.Errorf("%w: %s at %s", ErrNotFound, req.ProductID, req.Location)
		}
		log.Printf("❌ RESERVE FAILED: GetItemForUpdate | ProductID=%s | Error=%v", req.ProductID, err)
		return nil, err
	}

	// 3. Regra de Negócio: verifica disponibilidade
	if !item.ReserveQuantity(req.Quantity) {
		log.Printf("❌ RESERVE FAILED: Insufficient stock | ProductID=%s | Available=%d | Requested=%d",
			req.ProductID, item.AvailableQuantity, req.Quantity)
		uc.countRejected(ctx, "reserve")
		return nil, fmt.Errorf("%w: available %d, requested %d",
			ErrInsufficientStock, item.AvailableQuantity, req.Quantity)
	}

	// 4. Persiste a linha e o registro de movimentação
	if err := uc.repository.SaveItem(ctx, tx, item); err != nil {
		log.Printf("❌ [RESERVE] | ProductID=%s Failed to update: %v", req.ProductID, err)
		return nil, err
	}

	movement := NewStockMovement(uuid.New().String(), item.ID, req.OrderID, req.Quantity, MovementTypeReserved)
	if err := uc.repository.InsertMovement(ctx, tx, movement); err != nil {
		return nil, err
	}

	// 5. Commit da transação
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("erro ao comitar reserva: %w", err)
	}

	if uc.reserveCounter != nil {
		uc.reserveCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("location", req.Location)))
	}

	uc.publishEvent(ctx, item, EventInventoryReserved, req.OrderID)

	log.Printf("✅ [RESERVE] Success: ProductID=%s | Reserved=%d | Available=%d",
		req.ProductID, item.ReservedQuantity, item.AvailableQuantity)
	return item, nil
}

// Release desfaz uma reserva que não será cumprida (pedido cancelado,
// pagamento falhou), devolvendo a quantidade à disponibilidade
func (uc *InventoryUseCase) Release(ctx context.Context, req StockRequest) (*InventoryItem, error) {
	log.Printf("↩️ [RELEASE] ProductID: %s | Location: %s | Quantity: %d | OrderID: %s",
		req.ProductID, req.Location, req.Quantity, req.OrderID)

	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}

	// 1. Inicia a transação
	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback()

	// 2. Obtém a linha com LOCK PESSIMISTA (SELECT FOR UPDATE)
	item, err := uc.repository.GetItemForUpdate(ctx, tx, req.ProductID, req.Location)
	if err != nil {
		if errors.Is(err, ErrItemRowNotFound) {
			return nil, fmt.Errorf("%w: %s at %s", ErrNotFound, req.ProductID, req.Location)
		}
		log.Printf("❌ RELEASE FAILED: GetItemForUpdate | ProductID=%s | Error=%v", req.ProductID, err)
		return nil, err
	}

	// 3. Regra de Negócio: só libera o que está reservado
	if !item.ReleaseReservedQuantity(req.Quantity) {
		log.Printf("❌ RELEASE FAILED: Invalid reservation | ProductID=%s | Reserved=%d | Requested=%d",
			req.ProductID, item.ReservedQuantity, req.Quantity)
		uc.countRejected(ctx, "release")
		return nil, fmt.Errorf("%w: reserved %d, requested %d",
			ErrInvalidReservation, item.ReservedQuantity, req.Quantity)
	}

	// 4. Persiste a linha e o registro de movimentação
	if err := uc.repository.SaveItem(ctx, tx, item); err != nil {
		log.Printf("❌ [RELEASE] | ProductID=%s Failed to update: %v", req.ProductID, err)
		return nil, err
	}

	movement := NewStockMovement(uuid.New().String(), item.ID, req.OrderID, req.Quantity, MovementTypeReleased)
	if err := uc.repository.InsertMovement(ctx, tx, movement); err != nil {
		return nil, err
	}

	// 5. Commit da transação
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("erro ao comitar liberação: %w", err)
	}

	uc.publishEvent(ctx, item, EventInventoryReleased, req.OrderID)

	log.Printf("✅ [RELEASE] Success: ProductID=%s | Reserved=%d | Available=%d",
		req.ProductID, item.ReservedQuantity, item.AvailableQuantity)
	return item, nil
}

// Confirm confirma uma reserva, baixando o estoque físico em definitivo.
// Só deve ser chamado depois do pagamento ter sido confirmado.
func (uc *InventoryUseCase) Confirm(ctx context.Context, req StockRequest) (*InventoryItem, error) {
	log.Printf("➡️ [CONFIRM] ProductID: %s | Location: %s | Quantity: %d | OrderID: %s",
		req.ProductID, req.Location, req.Quantity, req.OrderID)

	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}

	// 1. Inicia a transação
	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback()

	// 2. Obtém a linha com LOCK PESSIMISTA (SELECT FOR UPDATE)
	item, err := uc.repository.GetItemForUpdate(ctx, tx, req.ProductID, req.Location)
	if err != nil {
		if errors.Is(err, ErrItemRowNotFound) {
			return nil, fmt.Errorf("%w: %s at %s", ErrNotFound, req.ProductID, req.Location)
		}
		log.Printf("❌ CONFIRM FAILED: GetItemForUpdate | ProductID=%s | Error=%v", req.ProductID, err)
		return nil, err
	}

	// 3. Regra de Negócio: só confirma o que está reservado
	if !item.ConfirmReservedQuantity(req.Quantity) {
		log.Printf("❌ CONFIRM FAILED: Invalid reservation | ProductID=%s | Reserved=%d | Requested=%d",
			req.ProductID, item.ReservedQuantity, req.Quantity)
		uc.countRejected(ctx, "confirm")
		return nil, fmt.Errorf("%w: reserved %d, requested %d",
			ErrInvalidReservation, item.ReservedQuantity, req.Quantity)
	}

	// 4. Persiste a linha e o registro de movimentação
	if err := uc.repository.SaveItem(ctx, tx, item); err != nil {
		log.Printf("❌ [CONFIRM] | ProductID=%s Failed to update: %v", req.ProductID, err)
		return nil, err
	}

	movement := NewStockMovement(uuid.New().String(), item.ID, req.OrderID, req.Quantity, MovementTypeSold)
	if err := uc.repository.InsertMovement(ctx, tx, movement); err != nil {
		return nil, err
	}

	// 5. Commit da transação
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("erro ao comitar confirmação: %w", err)
	}

	uc.publishEvent(ctx, item, EventInventoryConfirmed, req.OrderID)

	log.Printf("✅ [CONFIRM] Success: ProductID=%s | Quantity=%d | Available=%d",
		req.ProductID, item.Quantity, item.AvailableQuantity)
	return item, nil
}

// GetItem busca o estoque de um produto em uma localização
func (uc *InventoryUseCase) GetItem(ctx context.Context, productID, location string) (*InventoryItem, error) {
	item, err := uc.repository.GetItem(ctx, productID, location)
	if err != nil {
		if errors.Is(err, ErrItemRowNotFound) {
			return nil, fmt.Errorf("%w: %s at %s", ErrNotFound, productID, location)
		}
		return nil, err
	}
	return item, nil
}

// publishEvent publica o evento em melhor esforço: falha é logada e
// descartada, nunca reverte a transição já comitada
func (uc *InventoryUseCase) publishEvent(ctx context.Context, item *InventoryItem, eventType, orderID string) {
	event := InventoryEvent{
		EventType:         eventType,
		ProductID:         item.ProductID,
		SKU:               item.SKU,
		Location:          item.Location,
		OrderID:           orderID,
		Quantity:          item.Quantity,
		ReservedQuantity:  item.ReservedQuantity,
		AvailableQuantity: item.AvailableQuantity,
		Timestamp:         item.UpdatedAt,
	}

	if err := uc.publisher.Publish(ctx, event); err != nil {
		log.Printf("❌ Failed to publish inventory event %s for product %s: %v",
			eventType, item.ProductID, err)
	}
}

func (uc *InventoryUseCase) countRejected(ctx context.Context, operation string) {
	if uc.rejectedCounter != nil {
		uc.rejectedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
	}
}
