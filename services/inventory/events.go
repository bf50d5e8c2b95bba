package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// InventoryEvent é a notificação leve publicada após cada transição comitada
type InventoryEvent struct {
	EventType         string    `json:"event_type"`
	ProductID         string    `json:"product_id"`
	SKU               string    `json:"sku"`
	Location          string    `json:"location"`
	OrderID           string    `json:"order_id,omitempty"`
	Quantity          int       `json:"quantity"`
	ReservedQuantity  int       `json:"reserved_quantity"`
	AvailableQuantity int       `json:"available_quantity"`
	Timestamp         time.Time `json:"timestamp"`
}

// InventoryEventType representa os tipos de evento de inventário
const (
	EventInventoryAdded     = "INVENTORY_ADDED"
	EventInventoryReserved  = "INVENTORY_RESERVED"
	EventInventoryReleased  = "INVENTORY_RELEASED"
	EventInventoryConfirmed = "INVENTORY_CONFIRMED"
)

// EventPublisher abstrai a publicação de eventos de inventário
type EventPublisher interface {
	Publish(ctx context.Context, event InventoryEvent) error
}

// KafkaEventPublisher implementa EventPublisher usando Kafka
type KafkaEventPublisher struct {
	writer *kafka.Writer
}

// NewKafkaEventPublisher cria uma nova instância de KafkaEventPublisher
func NewKafkaEventPublisher(brokerAddr, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokerAddr),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 5 * time.Second,
		},
	}
}

// Publish serializa e envia o evento para o tópico
func (p *KafkaEventPublisher) Publish(ctx context.Context, event InventoryEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ProductID),
		Value: payload,
	})
}

// Close fecha o writer Kafka
func (p *KafkaEventPublisher) Close() error {
	return p.writer.Close()
}
