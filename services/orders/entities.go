package main

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderStatus representa os possíveis status de um pedido
const (
	OrderStatusPending    = "PENDING"
	OrderStatusConfirmed  = "CONFIRMED"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusShipped    = "SHIPPED"
	OrderStatusDelivered  = "DELIVERED"
	OrderStatusCancelled  = "CANCELLED"
	OrderStatusRefunded   = "REFUNDED"
)

// PaymentStatus representa o status de pagamento do pedido
const (
	PaymentStatusPending           = "PENDING"
	PaymentStatusPaid              = "PAID"
	PaymentStatusFailed            = "FAILED"
	PaymentStatusRefunded          = "REFUNDED"
	PaymentStatusPartiallyRefunded = "PARTIALLY_REFUNDED"
)

var validOrderStatuses = map[string]bool{
	OrderStatusPending:    true,
	OrderStatusConfirmed:  true,
	OrderStatusProcessing: true,
	OrderStatusShipped:    true,
	OrderStatusDelivered:  true,
	OrderStatusCancelled:  true,
	OrderStatusRefunded:   true,
}

var validPaymentStatuses = map[string]bool{
	PaymentStatusPending:           true,
	PaymentStatusPaid:              true,
	PaymentStatusFailed:            true,
	PaymentStatusRefunded:          true,
	PaymentStatusPartiallyRefunded: true,
}

// OrderItem representa um item dentro de um pedido
type OrderItem struct {
	ID             string    `json:"id" db:"id"`
	OrderID        string    `json:"order_id" db:"order_id"`
	ProductID      string    `json:"product_id" db:"product_id"`
	ProductName    string    `json:"product_name" db:"product_name"`
	SKU            string    `json:"sku" db:"sku"`
	Quantity       int       `json:"quantity" db:"quantity"`
	UnitPrice      int64     `json:"unit_price" db:"unit_price"`
	DiscountAmount int64     `json:"discount_amount" db:"discount_amount"`
	TaxAmount      int64     `json:"tax_amount" db:"tax_amount"`
	TotalPrice     int64     `json:"total_price" db:"total_price"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// CalculateTotal deriva o total do item: preço x quantidade, menos
// desconto, mais imposto
func (i *OrderItem) CalculateTotal() {
	i.TotalPrice = i.UnitPrice*int64(i.Quantity) - i.DiscountAmount + i.TaxAmount
}

// Order representa um pedido com seus itens
type Order struct {
	ID            string      `json:"id" db:"id"`
	OrderNumber   string      `json:"order_number" db:"order_number"`
	UserID        string      `json:"user_id" db:"user_id"`
	Status        string      `json:"status" db:"status"`
	PaymentStatus string      `json:"payment_status" db:"payment_status"`
	Currency      string      `json:"currency" db:"currency"`
	TotalAmount   int64       `json:"total_amount" db:"total_amount"`
	Items         []OrderItem `json:"items"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
}

// NewOrder cria uma nova instância de Order em estado PENDING/PENDING
func NewOrder(userID, currency string) *Order {
	now := time.Now()
	return &Order{
		ID:            uuid.New().String(),
		OrderNumber:   generateOrderNumber(),
		UserID:        userID,
		Status:        OrderStatusPending,
		PaymentStatus: PaymentStatusPending,
		Currency:      currency,
		Items:         []OrderItem{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// generateOrderNumber gera um identificador legível no formato ORD-XXXXXXXX
func generateOrderNumber() string {
	return "ORD-" + strings.ToUpper(uuid.New().String()[:8])
}

// RecalculateTotal mantém TotalAmount igual à soma dos totais dos itens
func (o *Order) RecalculateTotal() {
	var total int64
	for i := range o.Items {
		total += o.Items[i].TotalPrice
	}
	o.TotalAmount = total
	o.UpdatedAt = time.Now()
}

// AddItem anexa um item ao pedido e recalcula o total
func (o *Order) AddItem(item OrderItem) {
	item.OrderID = o.ID
	item.CalculateTotal()
	o.Items = append(o.Items, item)
	o.RecalculateTotal()
}

// RemoveItem retira o item do produto informado, devolvendo false se ausente
func (o *Order) RemoveItem(productID string) bool {
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			o.Items = append(o.Items[:i], o.Items[i+1:]...)
			o.RecalculateTotal()
			return true
		}
	}
	return false
}

// FindItem retorna o item do produto, ou nil
func (o *Order) FindItem(productID string) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			return &o.Items[i]
		}
	}
	return nil
}

// CanBeCancelled só vale antes do pedido entrar em processamento
func (o *Order) CanBeCancelled() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusConfirmed
}

// UpdateStatus transiciona o status do pedido com toque de timestamp
func (o *Order) UpdateStatus(newStatus string) {
	o.Status = newStatus
	o.UpdatedAt = time.Now()
}

// UpdatePaymentStatus transiciona o status de pagamento do pedido
func (o *Order) UpdatePaymentStatus(newStatus string) {
	o.PaymentStatus = newStatus
	o.UpdatedAt = time.Now()
}
