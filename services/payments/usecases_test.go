package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// fakeTx implementa Tx sem banco real
type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit() error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback() error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

// fakePaymentRepository mantém pagamentos em memória
type fakePaymentRepository struct {
	payments map[string]*Payment
	lastTx   *fakeTx
	saves    int
}

func newFakePaymentRepository() *fakePaymentRepository {
	return &fakePaymentRepository{payments: make(map[string]*Payment)}
}

func (r *fakePaymentRepository) BeginTx(ctx context.Context) (Tx, error) {
	r.lastTx = &fakeTx{}
	return r.lastTx, nil
}

func (r *fakePaymentRepository) CreatePayment(ctx context.Context, payment *Payment) error {
	copied := *payment
	r.payments[payment.PaymentID] = &copied
	return nil
}

func (r *fakePaymentRepository) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	payment, ok := r.payments[paymentID]
	if !ok {
		return nil, ErrPaymentRowNotFound
	}
	copied := *payment
	return &copied, nil
}

func (r *fakePaymentRepository) GetPaymentForUpdate(ctx context.Context, tx Tx, paymentID string) (*Payment, error) {
	return r.GetPayment(ctx, paymentID)
}

func (r *fakePaymentRepository) SavePayment(ctx context.Context, tx Tx, payment *Payment) error {
	copied := *payment
	r.payments[payment.PaymentID] = &copied
	r.saves++
	return nil
}

// stubProvider devolve respostas pré-programadas e conta chamadas
type stubProvider struct {
	chargeResponse *ChargeResponse
	chargeErr      error
	refundResponse *RefundResponse
	refundErr      error
	chargeCalls    int
	refundCalls    int
}

func (p *stubProvider) Charge(ctx context.Context, payment *Payment) (*ChargeResponse, error) {
	p.chargeCalls++
	if p.chargeErr != nil {
		return nil, p.chargeErr
	}
	return p.chargeResponse, nil
}

func (p *stubProvider) Refund(ctx context.Context, payment *Payment, amount int64) (*RefundResponse, error) {
	p.refundCalls++
	if p.refundErr != nil {
		return nil, p.refundErr
	}
	return p.refundResponse, nil
}

// fakeIdempotencyStore guarda entradas em memória, com falha injetável
type fakeIdempotencyStore struct {
	entries map[string]*Payment
	getErr  error
	putErr  error
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{entries: make(map[string]*Payment)}
}

func (s *fakeIdempotencyStore) Put(ctx context.Context, key string, payment *Payment, ttl time.Duration) error {
	if s.putErr != nil {
		return s.putErr
	}
	copied := *payment
	s.entries[key] = &copied
	return nil
}

func (s *fakeIdempotencyStore) Get(ctx context.Context, key string) (*Payment, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	payment, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	copied := *payment
	return &copied, nil
}

func (s *fakeIdempotencyStore) Delete(ctx context.Context, key string) error {
	delete(s.entries, key)
	return nil
}

func (s *fakeIdempotencyStore) ExtendTTL(ctx context.Context, key string, ttl time.Duration) error {
	return nil
}

// MockEventPublisher simula o publisher de eventos
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event PaymentEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func approvingProvider() *stubProvider {
	return &stubProvider{
		chargeResponse: &ChargeResponse{Success: true, TransactionID: "txn-123", Response: "approved"},
		refundResponse: &RefundResponse{Success: true, RefundID: "ref-123"},
	}
}

func seededUseCase(payment *Payment, provider PaymentProvider, store IdempotencyStore, publisher EventPublisher) (*PaymentUseCase, *fakePaymentRepository) {
	repo := newFakePaymentRepository()
	if payment != nil {
		repo.payments[payment.PaymentID] = payment
	}
	return NewPaymentUseCase(repo, provider, store, publisher, nil), repo
}

func TestCreatePayment(t *testing.T) {
	// Arrange
	publisher := new(MockEventPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	uc, repo := seededUseCase(nil, approvingProvider(), newFakeIdempotencyStore(), publisher)

	// Act
	payment, err := uc.CreatePayment(context.Background(), CreatePaymentRequest{
		OrderID: "order-1", UserID: "user-1", Amount: 1000, Currency: "USD", IdempotencyKey: "idem-1",
	})

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, PaymentStatusPending, payment.Status)
	assert.Contains(t, repo.payments, payment.PaymentID)

	publisher.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(e PaymentEvent) bool {
		return e.EventType == EventPaymentCreated && e.OrderID == "order-1"
	}))
}

func TestCreatePaymentValidation(t *testing.T) {
	publisher := new(MockEventPublisher)
	uc, repo := seededUseCase(nil, approvingProvider(), newFakeIdempotencyStore(), publisher)

	_, err := uc.CreatePayment(context.Background(), CreatePaymentRequest{
		OrderID: "order-1", UserID: "user-1", Amount: 0, IdempotencyKey: "idem-1",
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = uc.CreatePayment(context.Background(), CreatePaymentRequest{
		OrderID: "order-1", UserID: "user-1", Amount: 1000,
	})
	assert.ErrorIs(t, err, ErrValidation)

	assert.Empty(t, repo.payments)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestProcessPaymentCompletes(t *testing.T) {
	// Arrange
	pending := NewPayment("order-1", "user-1", "idem-1", "USD", 1000)
	provider := approvingProvider()
	publisher := new(MockEventPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	uc, repo := seededUseCase(pending, provider, newFakeIdempotencyStore(), publisher)

	// Act
	payment, err := uc.ProcessPayment(context.Background(), pending.PaymentID)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, PaymentStatusCompleted, payment.Status)
	assert.Equal(t, "txn-123", payment.ProviderTransactionID)
	assert.NotNil(t, payment.ProcessedAt)
	assert.Equal(t, 1, provider.chargeCalls)
	assert.Equal(t, PaymentStatusCompleted, repo.payments[pending.PaymentID].Status)

	publisher.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(e PaymentEvent) bool {
		return e.EventType == EventPaymentCompleted
	}))
}

func TestProcessPaymentDeclinedIsCommittedOutcome(t *testing.T) {
	// Recusa do provedor vira FAILED persistido, devolvido sem erro
	pending := NewPayment("order-1", "user-1", "idem-1", "USD", 1000)
	provider := &stubProvider{
		chargeResponse: &ChargeResponse{Success: false, ErrorMessage: "insufficient funds"},
	}
	publisher := new(MockEventPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	uc, repo := seededUseCase(pending, provider, newFakeIdempotencyStore(), publisher)

	payment, err := uc.ProcessPayment(context.Background(), pending.PaymentID)

	assert.NoError(t, err)
	assert.Equal(t, PaymentStatusFailed, payment.Status)
	assert.Equal(t, "insufficient funds", payment.FailureReason)
	assert.NotNil(t, payment.ProcessedAt)
	assert.Equal(t, PaymentStatusFailed, repo.payments[pending.PaymentID].Status)

	publisher.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(e PaymentEvent) bool {
		return e.EventType == EventPaymentFailed
	}))
}

func TestProcessPaymentInvalidState(t *testing.T) {
	completed := NewPayment("order-1", "user-1", "idem-1", "USD", 1000)
	completed.UpdateStatus(PaymentStatusCompleted)
	provider := approvingProvider()
	publisher := new(MockEventPublisher)
	uc, _ := seededUseCase(completed, provider, newFakeIdempotencyStore(), publisher)

	_, err := uc.ProcessPayment(context.Background(), completed.PaymentID)

	// Provedor nunca é invocado para pagamento fora de PENDING
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 0, provider.chargeCalls)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestProcessPaymentExpired(t *testing.T) {
	// Arrange: pagamento PENDING com prazo vencido
	expired := NewPayment("order-1", "user-1", "idem-1", "USD", 1000)
	expired.ExpiresAt = time.Now().Add(-1 * time.Hour)
	provider := approvingProvider()
	publisher := new(MockEventPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	uc, repo := seededUseCase(expired, provider, newFakeIdempotencyStore(), publisher)

	// Act
	_, err := uc.ProcessPayment(context.Background(), expired.PaymentID)

	// Assert: transição EXPIRED comitada, provedor intocado
	assert.ErrorIs(t, err, ErrPaymentExpired)
	assert.Equal(t, PaymentStatusExpired, repo.payments[expired.PaymentID].Status)
	assert.Equal(t, 0, provider.chargeCalls)

	publisher.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(e PaymentEvent) bool {
		return e.EventType == EventPaymentExpired
	}))
}

func TestProcessPaymentNotFound(t *testing.T) {
	publisher := new(MockEventPublisher)
	uc, _ := seededUseCase(nil, approvingProvider(), newFakeIdempotencyStore(), publisher)

	_, err := uc.ProcessPayment(context.Background(), "PAY-MISSING")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIdempotentProcessingChargesOnce(t *testing.T) {
	// Arrange
	pending := NewPayment("order-1", "user-1", "idem-1", "USD", 1000)
	provider := approvingProvider()
	store := newFakeIdempotencyStore()
	publisher := new(MockEventPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	uc, _ := seededUseCase(pending, provider, store, publisher)

	// Act: mesma chave, duas chamadas
	first, err := uc.ProcessPaymentWithIdempotency(context.Background(), pending.PaymentID, "idem-1")
	assert.NoError(t, err)
	second, err := uc.ProcessPaymentWithIdempotency(context.Background(), pending.PaymentID, "idem-1")
	assert.NoError(t, err)

	// Assert: uma única cobrança, resultados idênticos
	assert.Equal(t, 1, provider.chargeCalls)
	assert.Equal(t, first.PaymentID, second.PaymentID)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.ProviderTransactionID, second.ProviderTransactionID)
}

func TestIdempotencyHitSkipsProvider(t *testing.T) {
	// Arrange: resultado já armazenado sob a chave
	stored := NewPayment("order-1", "user-1", "idem-1", "USD", 1000)
	stored.UpdateStatus(PaymentStatusCompleted)
	stored.ProviderTransactionID = "txn-999"
	store := newFakeIdempotencyStore()
	store.entries["idem-1"] = stored
	provider := approvingProvider()
	publisher := new(MockEventPublisher)
	uc, _ := seededUseCase(nil, provider, store, publisher)

	// Act
	payment, err := uc.ProcessPaymentWithIdempotency(context.Background(), stored.PaymentID, "idem-1")

	// Assert: resposta devolvida do cache, zero chamadas ao provedor
	assert.NoError(t, err)
	assert.Equal(t, "txn-999", payment.ProviderTransactionID)
	assert.Equal(t, 0, provider.chargeCalls)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestIdempotencyCachesFailedOutcome(t *testing.T) {
	// FAILED também é cacheado: retentativa com a mesma chave devolve a
	// falha registrada sem nova cobrança
	pending := NewPayment("order-1", "user-1", "idem-1", "USD", 1000)
	provider := &stubProvider{
		chargeResponse: &ChargeResponse{Success: false, ErrorMessage: "card declined"},
	}
	store := newFakeIdempotencyStore()
	publisher := new(MockEventPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	uc, _ := seededUseCase(pending, provider, store, publisher)

	first, err := uc.ProcessPaymentWithIdempotency(context.Background(), pending.PaymentID, "idem-1")
	assert.NoError(t, err)
	assert.Equal(t, PaymentStatusFailed, first.Status)

	second, err := uc.ProcessPaymentWithIdempotency(context.Background(), pending.PaymentID, "idem-1")
	assert.NoError(t, err)
	assert.Equal(t, PaymentStatusFailed, second.Status)
	assert.Equal(t, 1, provider.chargeCalls)
}

func TestIdempotencyStoreFailureDegrades(t *testing.T) {
	// Falha do cache não bloqueia o processamento
	pending := NewPayment("order-1", "user-1", "idem-1", "USD", 1000)
	provider := approvingProvider()
	store := newFakeIdempotencyStore()
	store.getErr = errors.New("redis unavailable")
	store.putErr = errors.New("redis unavailable")
	publisher := new(MockEventPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	uc, _ := seededUseCase(pending, provider, store, publisher)

	payment, err := uc.ProcessPaymentWithIdempotency(context.Background(), pending.PaymentID, "idem-1")

	assert.NoError(t, err)
	assert.Equal(t, PaymentStatusCompleted, payment.Status)
	assert.Equal(t, 1, provider.chargeCalls)
}

func TestRefundPayment(t *testing.T) {
	// Arrange
	completed := NewPayment("order-1", "user-1", "idem-1", "USD", 1000)
	completed.UpdateStatus(PaymentStatusCompleted)
	completed.ProviderTransactionID = "txn-123"
	provider := approvingProvider()
	publisher := new(MockEventPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	uc, repo := seededUseCase(completed, provider, newFakeIdempotencyStore(), publisher)

	// Act
	payment, err := uc.RefundPayment(context.Background(), completed.PaymentID, 400)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, RefundStatusCompleted, payment.RefundStatus)
	assert.Equal(t, int64(400), payment.RefundAmount)
	assert.Equal(t, 1, provider.refundCalls)
	assert.Equal(t, RefundStatusCompleted, repo.payments[completed.PaymentID].RefundStatus)

	publisher.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(e PaymentEvent) bool {
		return e.EventType == EventRefundInitiated
	}))
	publisher.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(e PaymentEvent) bool {
		return e.EventType == EventRefundCompleted
	}))
}

func TestRefundPaymentRejectedWhenNotCompleted(t *testing.T) {
	pending := NewPayment("order-1", "user-1", "idem-1", "USD", 1000)
	provider := approvingProvider()
	publisher := new(MockEventPublisher)
	uc, _ := seededUseCase(pending, provider, newFakeIdempotencyStore(), publisher)

	_, err := uc.RefundPayment(context.Background(), pending.PaymentID, 400)

	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 0, provider.refundCalls)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestRefundPaymentAmountExceedsPayment(t *testing.T) {
	completed := NewPayment("order-1", "user-1", "idem-1", "USD", 1000)
	completed.UpdateStatus(PaymentStatusCompleted)
	provider := approvingProvider()
	publisher := new(MockEventPublisher)
	uc, repo := seededUseCase(completed, provider, newFakeIdempotencyStore(), publisher)

	_, err := uc.RefundPayment(context.Background(), completed.PaymentID, 1500)

	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, provider.refundCalls)
	assert.Equal(t, RefundStatusNone, repo.payments[completed.PaymentID].RefundStatus)
}

func TestCancelPayment(t *testing.T) {
	pending := NewPayment("order-1", "user-1", "idem-1", "USD", 1000)
	publisher := new(MockEventPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	uc, repo := seededUseCase(pending, approvingProvider(), newFakeIdempotencyStore(), publisher)

	payment, err := uc.CancelPayment(context.Background(), pending.PaymentID)

	assert.NoError(t, err)
	assert.Equal(t, PaymentStatusCancelled, payment.Status)
	assert.Equal(t, PaymentStatusCancelled, repo.payments[pending.PaymentID].Status)

	publisher.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(e PaymentEvent) bool {
		return e.EventType == EventPaymentCancelled
	}))
}

func TestCancelPaymentRejectedInProgress(t *testing.T) {
	processing := NewPayment("order-1", "user-1", "idem-1", "USD", 1000)
	processing.UpdateStatus(PaymentStatusProcessing)
	publisher := new(MockEventPublisher)
	uc, _ := seededUseCase(processing, approvingProvider(), newFakeIdempotencyStore(), publisher)

	_, err := uc.CancelPayment(context.Background(), processing.PaymentID)

	assert.ErrorIs(t, err, ErrInvalidState)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestPublishFailureDoesNotFailPayment(t *testing.T) {
	// Evento é melhor esforço: falha de publicação nunca derruba a operação
	pending := NewPayment("order-1", "user-1", "idem-1", "USD", 1000)
	publisher := new(MockEventPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker unavailable"))
	uc, _ := seededUseCase(pending, approvingProvider(), newFakeIdempotencyStore(), publisher)

	payment, err := uc.ProcessPayment(context.Background(), pending.PaymentID)

	assert.NoError(t, err)
	assert.Equal(t, PaymentStatusCompleted, payment.Status)
	publisher.AssertExpectations(t)
}
