package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderRepository define a interface para operações de banco de dados de pedidos
type OrderRepository interface {
	CreateOrder(ctx context.Context, tx Tx, order *Order) error
	GetOrder(ctx context.Context, orderNumber string) (*Order, error)
	GetOrderForUpdate(ctx context.Context, tx Tx, orderNumber string) (*Order, error)
	SaveOrder(ctx context.Context, tx Tx, order *Order) error
	ReplaceItems(ctx context.Context, tx Tx, order *Order) error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx interface para transações
type Tx interface {
	Commit() error
	Rollback() error
}

// ErrOrderRowNotFound indica que a linha do pedido não existe no banco
var ErrOrderRowNotFound = errors.New("order row not found")

// PostgresOrderRepository implementa OrderRepository usando PostgreSQL
type PostgresOrderRepository struct {
	db *pgxpool.Pool
}

// NewOrderRepository cria uma nova instância de PostgresOrderRepository
func NewOrderRepository(db *pgxpool.Pool) OrderRepository {
	return &PostgresOrderRepository{
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
func (r *PostgresOrderRepository) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &PostgresTx{tx: tx}, nil
}

const orderColumns = `id, order_number, user_id, status, payment_status, currency,
	total_amount, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var order Order
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.Status,
		&order.PaymentStatus,
		&order.Currency,
		&order.TotalAmount,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderRowNotFound
		}
		return nil, err
	}
	return &order, nil
}

// CreateOrder insere o pedido e seus itens na mesma transação
func (r *PostgresOrderRepository) CreateOrder(ctx context.Context, tx Tx, order *Order) error {
	pgTx := tx.(*PostgresTx).tx

	query := `
		INSERT INTO orders (id, order_number, user_id, status, payment_status, currency,
			total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := pgTx.Exec(ctx, query,
		order.ID, order.OrderNumber, order.UserID, order.Status, order.PaymentStatus,
		order.Currency, order.TotalAmount, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return r.insertItems(ctx, pgTx, order)
}

func (r *PostgresOrderRepository) insertItems(ctx context.Context, pgTx pgx.Tx, order *Order) error {
	query := `
		INSERT INTO order_items (id, order_id, product_id, product_name, sku, quantity,
			unit_price, discount_amount, tax_amount, total_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	for i := range order.Items {
		item := &order.Items[i]
		_, err := pgTx.Exec(ctx, query,
			item.ID, item.OrderID, item.ProductID, item.ProductName, item.SKU,
			item.Quantity, item.UnitPrice, item.DiscountAmount, item.TaxAmount,
			item.TotalPrice, item.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return nil
}

// GetOrder busca o pedido e carrega seus itens
func (r *PostgresOrderRepository) GetOrder(ctx context.Context, orderNumber string) (*Order, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM orders
		WHERE order_number = $1
	`, orderColumns)

	order, err := scanOrder(r.db.QueryRow(ctx, query, orderNumber))
	if err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

// GetOrderForUpdate obtém o pedido com lock pessimista (FOR UPDATE),
// serializando mutações concorrentes sobre o mesmo agregado
func (r *PostgresOrderRepository) GetOrderForUpdate(ctx context.Context, tx Tx, orderNumber string) (*Order, error) {
	pgTx := tx.(*PostgresTx).tx

	query := fmt.Sprintf(`
		SELECT %s
		FROM orders
		WHERE order_number = $1
		FOR UPDATE
	`, orderColumns)

	order, err := scanOrder(pgTx.QueryRow(ctx, query, orderNumber))
	if err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *PostgresOrderRepository) loadItems(ctx context.Context, order *Order) error {
	query := `
		SELECT id, order_id, product_id, product_name, sku, quantity,
			unit_price, discount_amount, tax_amount, total_price, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, order.ID)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	order.Items = []OrderItem{}
	for rows.Next() {
		var item OrderItem
		err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.SKU,
			&item.Quantity, &item.UnitPrice, &item.DiscountAmount, &item.TaxAmount,
			&item.TotalPrice, &item.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}

	return rows.Err()
}

// SaveOrder persiste o cabeçalho do pedido
func (r *PostgresOrderRepository) SaveOrder(ctx context.Context, tx Tx, order *Order) error {
	pgTx := tx.(*PostgresTx).tx

	query := `
		UPDATE orders
		SET status = $1,
		    payment_status = $2,
		    total_amount = $3,
		    updated_at = NOW()
		WHERE order_number = $4
	`

	_, err := pgTx.Exec(ctx, query,
		order.Status, order.PaymentStatus, order.TotalAmount, order.OrderNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}

	return nil
}

// ReplaceItems regrava o conjunto de itens do pedido na transação corrente
func (r *PostgresOrderRepository) ReplaceItems(ctx context.Context, tx Tx, order *Order) error {
	pgTx := tx.(*PostgresTx).tx

	if _, err := pgTx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, order.ID); err != nil {
		return fmt.Errorf("failed to clear order items: %w", err)
	}

	return r.insertItems(ctx, pgTx, order)
}
