package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// OrderEvent é a notificação leve publicada após cada transição comitada
type OrderEvent struct {
	EventType     string    `json:"event_type"`
	OrderNumber   string    `json:"order_number"`
	UserID        string    `json:"user_id"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	TotalAmount   int64     `json:"total_amount"`
	Currency      string    `json:"currency"`
	Timestamp     time.Time `json:"timestamp"`
}

// OrderEventType representa os tipos de evento de pedido
const (
	EventOrderCreated              = "ORDER_CREATED"
	EventOrderItemAdded            = "ORDER_ITEM_ADDED"
	EventOrderItemRemoved          = "ORDER_ITEM_REMOVED"
	EventOrderCancelled            = "ORDER_CANCELLED"
	EventOrderStatusUpdated        = "ORDER_STATUS_UPDATED"
	EventOrderPaymentStatusUpdated = "ORDER_PAYMENT_STATUS_UPDATED"
)

// EventPublisher abstrai a publicação de eventos de pedido
type EventPublisher interface {
	Publish(ctx context.Context, event OrderEvent) error
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
func (p *KafkaEventPublisher) Publish(ctx context.Context, event OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderNumber),
		Value: payload,
	})
}

// Close fecha o writer Kafka
func (p *KafkaEventPublisher) Close() error {
	return p.writer.Close()
}
