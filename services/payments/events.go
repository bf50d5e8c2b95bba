package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// PaymentEvent é a notificação leve publicada após cada transição comitada
type PaymentEvent struct {
	EventType             string    `json:"event_type"`
	PaymentID             string    `json:"payment_id"`
	OrderID               string    `json:"order_id"`
	UserID                string    `json:"user_id"`
	Status                string    `json:"status"`
	Amount                int64     `json:"amount"`
	Currency              string    `json:"currency"`
	RefundStatus          string    `json:"refund_status,omitempty"`
	RefundAmount          int64     `json:"refund_amount,omitempty"`
	ProviderTransactionID string    `json:"provider_transaction_id,omitempty"`
	Timestamp             time.Time `json:"timestamp"`
}

// PaymentEventType representa os tipos de evento de pagamento
const (
	EventPaymentCreated   = "PAYMENT_CREATED"
	EventPaymentCompleted = "PAYMENT_COMPLETED"
	EventPaymentFailed    = "PAYMENT_FAILED"
	EventPaymentCancelled = "PAYMENT_CANCELLED"
	EventPaymentExpired   = "PAYMENT_EXPIRED"
	EventRefundInitiated  = "REFUND_INITIATED"
	EventRefundCompleted  = "REFUND_COMPLETED"
	EventRefundFailed     = "REFUND_FAILED"
)

// EventPublisher abstrai a publicação de eventos de pagamento
type EventPublisher interface {
	Publish(ctx context.Context, event PaymentEvent) error
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
func (p *KafkaEventPublisher) Publish(ctx context.Context, event PaymentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.PaymentID),
		Value: payload,
	})
}

// Close fecha o writer Kafka
func (p *KafkaEventPublisher) Close() error {
	return p.writer.Close()
}
