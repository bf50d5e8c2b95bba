package main

import (
	"time"
)

// InventoryItem representa o estoque de um produto em uma localização
type InventoryItem struct {
	ID                string     `json:"id" db:"id"`
	ProductID         string     `json:"product_id" db:"product_id"`
	SKU               string     `json:"sku" db:"sku"`
	Location          string     `json:"location" db:"location"`
	Quantity          int        `json:"quantity" db:"quantity"`
	ReservedQuantity  int        `json:"reserved_quantity" db:"reserved_quantity"`
	AvailableQuantity int        `json:"available_quantity" db:"available_quantity"`
	ReorderPoint      int        `json:"reorder_point" db:"reorder_point"`
	LastRestocked     *time.Time `json:"last_restocked,omitempty" db:"last_restocked"`
	LastSold          *time.Time `json:"last_sold,omitempty" db:"last_sold"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// NewInventoryItem cria uma nova instância de InventoryItem
func NewInventoryItem(id, productID, sku, location string) *InventoryItem {
	return &InventoryItem{
		ID:        id,
		ProductID: productID,
		SKU:       sku,
		Location:  location,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// UpdateAvailableQuantity recalcula a quantidade disponível
// Invariante: available = max(0, quantity - reserved), nunca negativo
func (i *InventoryItem) UpdateAvailableQuantity() {
	available := i.Quantity - i.ReservedQuantity
	if available < 0 {
		available = 0
	}
	i.AvailableQuantity = available
}

// AddQuantity adiciona quantidade ao estoque físico
func (i *InventoryItem) AddQuantity(quantity int) bool {
	if quantity <= 0 {
		return false
	}

	i.Quantity += quantity
	i.UpdateAvailableQuantity()
	now := time.Now()
	i.LastRestocked = &now
	i.UpdatedAt = now
	return true
}

// ReserveQuantity reserva quantidade do estoque disponível
func (i *InventoryItem) ReserveQuantity(quantity int) bool {
	if quantity <= 0 || quantity > i.AvailableQuantity {
		return false
	}

	i.ReservedQuantity += quantity
	i.UpdateAvailableQuantity()
	i.UpdatedAt = time.Now()
	return true
}

// ReleaseReservedQuantity libera uma reserva que não será cumprida
func (i *InventoryItem) ReleaseReservedQuantity(quantity int) bool {
	if quantity <= 0 || quantity > i.ReservedQuantity {
		return false
	}

	i.ReservedQuantity -= quantity
	i.UpdateAvailableQuantity()
	i.UpdatedAt = time.Now()
	return true
}

// ConfirmReservedQuantity confirma uma reserva, baixando o estoque físico.
// Só deve ser chamado depois do pagamento ter sido confirmado.
func (i *InventoryItem) ConfirmReservedQuantity(quantity int) bool {
	if quantity <= 0 || quantity > i.ReservedQuantity {
		return false
	}

	i.Quantity -= quantity
	i.ReservedQuantity -= quantity
	i.UpdateAvailableQuantity()
	now := time.Now()
	i.LastSold = &now
	i.UpdatedAt = now
	return true
}

// RemoveQuantity remove quantidade do estoque físico (ajuste manual)
func (i *InventoryItem) RemoveQuantity(quantity int) bool {
	if quantity <= 0 || quantity > i.AvailableQuantity {
		return false
	}

	i.Quantity -= quantity
	i.UpdateAvailableQuantity()
	i.UpdatedAt = time.Now()
	return true
}

func (i *InventoryItem) IsInStock() bool {
	return i.AvailableQuantity > 0
}

func (i *InventoryItem) IsOutOfStock() bool {
	return i.AvailableQuantity == 0
}

func (i *InventoryItem) IsLowStock() bool {
	return i.AvailableQuantity <= i.ReorderPoint
}

// StockLevelPercentage retorna o nível de estoque relativo ao ponto de reposição
func (i *InventoryItem) StockLevelPercentage() float64 {
	if i.ReorderPoint == 0 {
		return 100.0
	}
	pct := float64(i.AvailableQuantity) / float64(i.ReorderPoint) * 100
	if pct > 100.0 {
		return 100.0
	}
	return pct
}

// StockMovement representa uma movimentação de estoque (trilha de auditoria)
type StockMovement struct {
	ID             string    `json:"id" db:"id"`
	ItemID         string    `json:"item_id" db:"item_id"`
	OrderID        string    `json:"order_id,omitempty" db:"order_id"`
	ChangeQuantity int       `json:"change_quantity" db:"change_quantity"`
	MovementType   string    `json:"movement_type" db:"movement_type"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// NewStockMovement cria uma nova instância de StockMovement
func NewStockMovement(id, itemID, orderID string, changeQuantity int, movementType string) *StockMovement {
	return &StockMovement{
		ID:             id,
		ItemID:         itemID,
		OrderID:        orderID,
		ChangeQuantity: changeQuantity,
		MovementType:   movementType,
		CreatedAt:      time.Now(),
	}
}

// MovementType representa os tipos de movimentação de estoque
const (
	MovementTypeAdded    = "added"
	MovementTypeReserved = "reserved"
	MovementTypeReleased = "released"
	MovementTypeSold     = "sold"
)
