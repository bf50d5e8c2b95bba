package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentRepository define a interface para operações de banco de dados de pagamentos
type PaymentRepository interface {
	CreatePayment(ctx context.Context, payment *Payment) error
	GetPayment(ctx context.Context, paymentID string) (*Payment, error)
	GetPaymentForUpdate(ctx context.Context, tx Tx, paymentID string) (*Payment, error)
	SavePayment(ctx context.Context, tx Tx, payment *Payment) error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx interface para transações
type Tx interface {
	Commit() error
	Rollback() error
}

// ErrPaymentRowNotFound indica que a linha do pagamento não existe no banco
var ErrPaymentRowNotFound = errors.New("payment row not found")

// PostgresPaymentRepository implementa PaymentRepository usando PostgreSQL
type PostgresPaymentRepository struct {
	db *pgxpool.Pool
}

// NewPaymentRepository cria uma nova instância de PostgresPaymentRepository
func NewPaymentRepository(db *pgxpool.Pool) PaymentRepository {
	return &PostgresPaymentRepository{
		db: db,
	}
}

// PostgresTx implementa a interface Tx
type PostgresTx struct {
	tx pgx.Tx
}

func (t *PostgresTx) Commit() error {
	return t.tx.Commit(context.Background())
}

func (t *PostgresTx) Rollback() error {
	return t.tx.Rollback(context.Background())
}

// BeginTx inicia uma nova transação
func (r *PostgresPaymentRepository) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &PostgresTx{tx: tx}, nil
}

const paymentColumns = `id, payment_id, order_id, user_id, status, amount, currency,
	idempotency_key, provider_transaction_id, provider_response, failure_reason,
	refund_status, refund_amount, processed_at, expires_at, created_at, updated_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var payment Payment
	err := row.Scan(
		&payment.ID,
		&payment.PaymentID,
		&payment.OrderID,
		&payment.UserID,
		&payment.Status,
		&payment.Amount,
		&payment.Currency,
		&payment.IdempotencyKey,
		&payment.ProviderTransactionID,
		&payment.ProviderResponse,
		&payment.FailureReason,
		&payment.RefundStatus,
		&payment.RefundAmount,
		&payment.ProcessedAt,
		&payment.ExpiresAt,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentRowNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// CreatePayment insere um novo pagamento
func (r *PostgresPaymentRepository) CreatePayment(ctx context.Context, payment *Payment) error {
	query := `
		INSERT INTO payments (id, payment_id, order_id, user_id, status, amount, currency,
			idempotency_key, provider_transaction_id, provider_response, failure_reason,
			refund_status, refund_amount, processed_at, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.db.Exec(ctx, query,
		payment.ID, payment.PaymentID, payment.OrderID, payment.UserID, payment.Status,
		payment.Amount, payment.Currency, payment.IdempotencyKey,
		payment.ProviderTransactionID, payment.ProviderResponse, payment.FailureReason,
		payment.RefundStatus, payment.RefundAmount, payment.ProcessedAt,
		payment.ExpiresAt, payment.CreatedAt, payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// GetPayment busca um pagamento pelo payment_id
func (r *PostgresPaymentRepository) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM payments
		WHERE payment_id = $1
	`, paymentColumns)

	return scanPayment(r.db.QueryRow(ctx, query, paymentID))
}

// GetPaymentForUpdate obtém o pagamento com lock pessimista (FOR UPDATE),
// serializando transições concorrentes sobre o mesmo agregado
func (r *PostgresPaymentRepository) GetPaymentForUpdate(ctx context.Context, tx Tx, paymentID string) (*Payment, error) {
	pgTx := tx.(*PostgresTx).tx

	query := fmt.Sprintf(`
		SELECT %s
		FROM payments
		WHERE payment_id = $1
		FOR UPDATE
	`, paymentColumns)

	return scanPayment(pgTx.QueryRow(ctx, query, paymentID))
}

// SavePayment persiste as transições de status do pagamento
func (r *PostgresPaymentRepository) SavePayment(ctx context.Context, tx Tx, payment *Payment) error {
	pgTx := tx.(*PostgresTx).tx

	query := `
		UPDATE payments
		SET status = $1,
		    provider_transaction_id = $2,
		    provider_response = $3,
		    failure_reason = $4,
		    refund_status = $5,
		    refund_amount = $6,
		    processed_at = $7,
		    updated_at = NOW()
		WHERE payment_id = $8
	`

	_, err := pgTx.Exec(ctx, query,
		payment.Status, payment.ProviderTransactionID, payment.ProviderResponse,
		payment.FailureReason, payment.RefundStatus, payment.RefundAmount,
		payment.ProcessedAt, payment.PaymentID,
	)
	if err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}

	return nil
}
