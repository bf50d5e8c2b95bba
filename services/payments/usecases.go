package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNotFound       = errors.New("payment not found")
	ErrInvalidState   = errors.New("invalid payment state")
	ErrValidation     = errors.New("validation error")
	ErrPaymentExpired = errors.New("payment expired")
)

// PaymentUseCase contém a lógica de negócio de pagamentos
type PaymentUseCase struct {
	repository       PaymentRepository
	provider         PaymentProvider
	idempotencyStore IdempotencyStore
	publisher        EventPublisher
	processedCounter metric.Int64Counter
	idempotentHits   metric.Int64Counter
}

// NewPaymentUseCase cria uma nova instância de PaymentUseCase
func NewPaymentUseCase(
	repository PaymentRepository,
	provider PaymentProvider,
	idempotencyStore IdempotencyStore,
	publisher EventPublisher,
	meter metric.Meter,
) *PaymentUseCase {
	uc := &PaymentUseCase{
		repository:       repository,
		provider:         provider,
		idempotencyStore: idempotencyStore,
		publisher:        publisher,
	}

	if meter != nil {
		uc.processedCounter, _ = meter.Int64Counter("payments.processed")
		uc.idempotentHits, _ = meter.Int64Counter("payments.idempotency_hits")
	}

	return uc
}

// CreatePayment registra um novo pagamento em estado PENDING com prazo de 24h
func (uc *PaymentUseCase) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*Payment, error) {
	log.Printf("➡️ [CREATE PAYMENT] OrderID: %s | UserID: %s | Amount: %d", req.OrderID, req.UserID, req.Amount)

	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if req.IdempotencyKey == "" {
		return nil, fmt.Errorf("%w: idempotency key is required", ErrValidation)
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	payment := NewPayment(req.OrderID, req.UserID, req.IdempotencyKey, currency, req.Amount)

	if err := uc.repository.CreatePayment(ctx, payment); err != nil {
		log.Printf("❌ Failed to create payment for order %s: %v", req.OrderID, err)
		return nil, err
	}

	uc.publishEvent(ctx, payment, EventPaymentCreated)

	log.Printf("✅ [CREATE PAYMENT] Success: PaymentID=%s", payment.PaymentID)
	return payment, nil
}

// ProcessPayment conduz um pagamento PENDING até COMPLETED ou FAILED.
// O resultado FAILED é um desfecho comitado, não um erro: a tentativa em
// si é um fato registrado no agregado e publicado como evento.
func (uc *PaymentUseCase) ProcessPayment(ctx context.Context, paymentID string) (*Payment, error) {
	log.Printf("➡️ [PROCESS PAYMENT] PaymentID: %s", paymentID)

	// 1. Transiciona PENDING -> PROCESSING em transação própria, sem
	// segurar o lock da linha durante a chamada externa ao provedor
	payment, err := uc.markProcessing(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	// 2. Invoca o gateway resiliente (timeout + retry + circuit breaker)
	response, err := uc.provider.Charge(ctx, payment)
	if err != nil {
		// Falha de transporte não tratada pelo gateway vira FAILED
		response = &ChargeResponse{Success: false, ErrorMessage: err.Error()}
	}

	// 3. Registra o desfecho em nova transação
	payment, err = uc.recordChargeOutcome(ctx, paymentID, response)
	if err != nil {
		return nil, err
	}

	eventType := EventPaymentCompleted
	if payment.IsFailed() {
		eventType = EventPaymentFailed
	}
	uc.publishEvent(ctx, payment, eventType)
	uc.countProcessed(ctx, payment.Status)

	if payment.IsCompleted() {
		log.Printf("✅ [PROCESS PAYMENT] Completed: PaymentID=%s | TxnID=%s", paymentID, payment.ProviderTransactionID)
	} else {
		log.Printf("❌ [PROCESS PAYMENT] Failed: PaymentID=%s | Reason=%s", paymentID, payment.FailureReason)
	}

	return payment, nil
}

// markProcessing valida o estado do pagamento e comita a transição para PROCESSING
func (uc *PaymentUseCase) markProcessing(ctx context.Context, paymentID string) (*Payment, error) {
	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback()

	payment, err := uc.repository.GetPaymentForUpdate(ctx, tx, paymentID)
	if err != nil {
		if errors.Is(err, ErrPaymentRowNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, paymentID)
		}
		return nil, err
	}

	if !payment.IsPending() {
		log.Printf("ℹ️ [PROCESS PAYMENT] Rejected in status %s: PaymentID=%s", payment.Status, paymentID)
		return nil, fmt.Errorf("%w: cannot process payment in status %s", ErrInvalidState, payment.Status)
	}

	// Checagem preguiçosa do prazo: expirar é uma transição comitada
	if payment.IsExpired() {
		payment.UpdateStatus(PaymentStatusExpired)
		if err := uc.repository.SavePayment(ctx, tx, payment); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("erro ao comitar expiração: %w", err)
		}

		uc.publishEvent(ctx, payment, EventPaymentExpired)
		log.Printf("ℹ️ [PROCESS PAYMENT] Expired: PaymentID=%s", paymentID)
		return nil, fmt.Errorf("%w: %s", ErrPaymentExpired, paymentID)
	}

	payment.UpdateStatus(PaymentStatusProcessing)
	if err := uc.repository.SavePayment(ctx, tx, payment); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("erro ao comitar processamento: %w", err)
	}

	return payment, nil
}

// recordChargeOutcome comita COMPLETED ou FAILED com os dados do provedor
func (uc *PaymentUseCase) recordChargeOutcome(ctx context.Context, paymentID string, response *ChargeResponse) (*Payment, error) {
	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback()

	payment, err := uc.repository.GetPaymentForUpdate(ctx, tx, paymentID)
	if err != nil {
		return nil, err
	}

	payment.ProviderTransactionID = response.TransactionID
	payment.ProviderResponse = response.Response

	if response.Success {
		payment.UpdateStatus(PaymentStatusCompleted)
	} else {
		payment.UpdateStatusWithReason(PaymentStatusFailed, response.ErrorMessage)
	}

	if err := uc.repository.SavePayment(ctx, tx, payment); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("erro ao comitar desfecho: %w", err)
	}

	return payment, nil
}

// ProcessPaymentWithIdempotency consulta a chave antes de qualquer
// processamento: um hit devolve o resultado armazenado sem nenhuma chamada
// ao provedor. É o mecanismo que faz uma requisição re-tentada produzir
// exatamente uma cobrança.
func (uc *PaymentUseCase) ProcessPaymentWithIdempotency(ctx context.Context, paymentID, idempotencyKey string) (*Payment, error) {
	log.Printf("➡️ [PROCESS PAYMENT] PaymentID: %s | IdempotencyKey: %s", paymentID, idempotencyKey)

	stored, err := uc.idempotencyStore.Get(ctx, idempotencyKey)
	if err != nil {
		// Falha do cache degrada para caminho sem idempotência: o agregado
		// no banco continua sendo a fonte de verdade
		log.Printf("❌ Idempotency store lookup failed for key %s: %v", idempotencyKey, err)
	}
	if stored != nil {
		log.Printf("ℹ️ [IDEMPOTENCY] Payment already processed for key %s: PaymentID=%s | Status=%s",
			idempotencyKey, stored.PaymentID, stored.Status)
		if uc.idempotentHits != nil {
			uc.idempotentHits.Add(ctx, 1)
		}
		return stored, nil
	}

	payment, err := uc.ProcessPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	// Armazena o desfecho (COMPLETED ou FAILED, tanto faz) sob a chave
	if err := uc.idempotencyStore.Put(ctx, idempotencyKey, payment, idempotencyKeyTTL); err != nil {
		log.Printf("❌ Failed to store idempotency entry for key %s: %v", idempotencyKey, err)
	}

	return payment, nil
}

// RefundPayment inicia e conclui o reembolso de um pagamento completado
func (uc *PaymentUseCase) RefundPayment(ctx context.Context, paymentID string, amount int64) (*Payment, error) {
	log.Printf("➡️ [REFUND PAYMENT] PaymentID: %s | Amount: %d", paymentID, amount)

	if amount <= 0 {
		return nil, fmt.Errorf("%w: refund amount must be positive", ErrValidation)
	}

	// 1. Valida e comita refund_status=PENDING
	payment, err := uc.markRefundPending(ctx, paymentID, amount)
	if err != nil {
		return nil, err
	}

	uc.publishEvent(ctx, payment, EventRefundInitiated)

	// 2. Invoca o provedor fora do lock
	response, err := uc.provider.Refund(ctx, payment, amount)
	if err != nil {
		response = &RefundResponse{Success: false, ErrorMessage: err.Error()}
	}

	// 3. Registra o desfecho do reembolso
	payment, err = uc.recordRefundOutcome(ctx, paymentID, amount, response)
	if err != nil {
		return nil, err
	}

	eventType := EventRefundCompleted
	if payment.RefundStatus == RefundStatusFailed {
		eventType = EventRefundFailed
	}
	uc.publishEvent(ctx, payment, eventType)

	if payment.RefundStatus == RefundStatusCompleted {
		log.Printf("✅ [REFUND] Success: PaymentID=%s | Amount=%d", paymentID, amount)
	} else {
		log.Printf("❌ [REFUND] Failed: PaymentID=%s | Reason=%s", paymentID, response.ErrorMessage)
	}

	return payment, nil
}

func (uc *PaymentUseCase) markRefundPending(ctx context.Context, paymentID string, amount int64) (*Payment, error) {
	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback()

	payment, err := uc.repository.GetPaymentForUpdate(ctx, tx, paymentID)
	if err != nil {
		if errors.Is(err, ErrPaymentRowNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, paymentID)
		}
		return nil, err
	}

	if !payment.CanBeRefunded() {
		log.Printf("ℹ️ [REFUND] Rejected: PaymentID=%s | Status=%s | RefundStatus=%s",
			paymentID, payment.Status, payment.RefundStatus)
		return nil, fmt.Errorf("%w: cannot refund payment in status %s with refund status %s",
			ErrInvalidState, payment.Status, payment.RefundStatus)
	}

	if amount > payment.Amount {
		return nil, fmt.Errorf("%w: refund amount %d exceeds payment amount %d",
			ErrValidation, amount, payment.Amount)
	}

	payment.UpdateRefundStatus(RefundStatusPending, amount)
	if err := uc.repository.SavePayment(ctx, tx, payment); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("erro ao comitar início de reembolso: %w", err)
	}

	return payment, nil
}

func (uc *PaymentUseCase) recordRefundOutcome(ctx context.Context, paymentID string, amount int64, response *RefundResponse) (*Payment, error) {
	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback()

	payment, err := uc.repository.GetPaymentForUpdate(ctx, tx, paymentID)
	if err != nil {
		return nil, err
	}

	if response.Success {
		payment.UpdateRefundStatus(RefundStatusCompleted, amount)
	} else {
		payment.UpdateRefundStatus(RefundStatusFailed, amount)
	}

	if err := uc.repository.SavePayment(ctx, tx, payment); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("erro ao comitar desfecho de reembolso: %w", err)
	}

	return payment, nil
}

// CancelPayment cancela um pagamento ainda PENDING
func (uc *PaymentUseCase) CancelPayment(ctx context.Context, paymentID string) (*Payment, error) {
	log.Printf("↩️ [CANCEL PAYMENT] PaymentID: %s", paymentID)

	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback()

	payment, err := uc.repository.GetPaymentForUpdate(ctx, tx, paymentID)
	if err != nil {
		if errors.Is(err, ErrPaymentRowNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, paymentID)
		}
		return nil, err
	}

	if !payment.IsPending() {
		return nil, fmt.Errorf("%w: cannot cancel payment in status %s", ErrInvalidState, payment.Status)
	}

	payment.UpdateStatus(PaymentStatusCancelled)
	if err := uc.repository.SavePayment(ctx, tx, payment); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("erro ao comitar cancelamento: %w", err)
	}

	uc.publishEvent(ctx, payment, EventPaymentCancelled)

	log.Printf("✅ [CANCEL] Success: PaymentID=%s", paymentID)
	return payment, nil
}

// GetPayment busca um pagamento pelo seu identificador
func (uc *PaymentUseCase) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	payment, err := uc.repository.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, ErrPaymentRowNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, paymentID)
		}
		return nil, err
	}
	return payment, nil
}

// publishEvent publica o evento em melhor esforço: falha é logada e
// descartada, nunca reverte a transição já comitada
func (uc *PaymentUseCase) publishEvent(ctx context.Context, payment *Payment, eventType string) {
	event := PaymentEvent{
		EventType:             eventType,
		PaymentID:             payment.PaymentID,
		OrderID:               payment.OrderID,
		UserID:                payment.UserID,
		Status:                payment.Status,
		Amount:                payment.Amount,
		Currency:              payment.Currency,
		RefundStatus:          payment.RefundStatus,
		RefundAmount:          payment.RefundAmount,
		ProviderTransactionID: payment.ProviderTransactionID,
		Timestamp:             payment.UpdatedAt,
	}

	if err := uc.publisher.Publish(ctx, event); err != nil {
		log.Printf("❌ Failed to publish payment event %s for payment %s: %v",
			eventType, payment.PaymentID, err)
	}
}

func (uc *PaymentUseCase) countProcessed(ctx context.Context, status string) {
	if uc.processedCounter != nil {
		uc.processedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
}
