package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InventoryRepository define a interface para operações de banco de dados de inventário
type InventoryRepository interface {
	GetItem(ctx context.Context, productID, location string) (*InventoryItem, error)
	GetItemForUpdate(ctx context.Context, tx Tx, productID, location string) (*InventoryItem, error)
	CreateItem(ctx context.Context, tx Tx, item *InventoryItem) error
	SaveItem(ctx context.Context, tx Tx, item *InventoryItem) error
	InsertMovement(ctx context.Context, tx Tx, movement *StockMovement) error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx interface para transações
type Tx interface {
	Commit() error
	Rollback() error
}

// ErrItemRowNotFound indica que a linha de estoque não existe no banco
var ErrItemRowNotFound = errors.New("inventory item row not found")

// PostgresInventoryRepository implementa InventoryRepository usando PostgreSQL
type PostgresInventoryRepository struct {
	db *pgxpool.Pool
}

// NewInventoryRepository cria uma nova instância de PostgresInventoryRepository
func NewInventoryRepository(db *pgxpool.Pool) InventoryRepository {
	return &PostgresInventoryRepository{
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
func (r *PostgresInventoryRepository) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &PostgresTx{tx: tx}, nil
}

const itemColumns = `id, product_id, sku, location, quantity, reserved_quantity,
	available_quantity, reorder_point, last_restocked, last_sold, created_at, updated_at`

func scanItem(row pgx.Row) (*InventoryItem, error) {
	var item InventoryItem
	err := row.Scan(
		&item.ID,
		&item.ProductID,
		&item.SKU,
		&item.Location,
		&item.Quantity,
		&item.ReservedQuantity,
		&item.AvailableQuantity,
		&item.ReorderPoint,
		&item.LastRestocked,
		&item.LastSold,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemRowNotFound
		}
		return nil, err
	}
	return &item, nil
}

// GetItem busca o estoque de um produto em uma localização
func (r *PostgresInventoryRepository) GetItem(ctx context.Context, productID, location string) (*InventoryItem, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM inventory_items
		WHERE product_id = $1 AND location = $2
	`, itemColumns)

	return scanItem(r.db.QueryRow(ctx, query, productID, location))
}

// GetItemForUpdate obtém a linha de estoque com lock pessimista (FOR UPDATE).
// A linha fica bloqueada até o Commit ou Rollback, serializando as operações
// concorrentes sobre o mesmo (produto, localização).
func (r *PostgresInventoryRepository) GetItemForUpdate(ctx context.Context, tx Tx, productID, location string) (*InventoryItem, error) {
	pgTx := tx.(*PostgresTx).tx

	query := fmt.Sprintf(`
		SELECT %s
		FROM inventory_items
		WHERE product_id = $1 AND location = $2
		FOR UPDATE
	`, itemColumns)

	return scanItem(pgTx.QueryRow(ctx, query, productID, location))
}

// CreateItem insere uma nova linha de estoque
func (r *PostgresInventoryRepository) CreateItem(ctx context.Context, tx Tx, item *InventoryItem) error {
	pgTx := tx.(*PostgresTx).tx

	query := `
		INSERT INTO inventory_items (id, product_id, sku, location, quantity, reserved_quantity,
			available_quantity, reorder_point, last_restocked, last_sold, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := pgTx.Exec(ctx, query,
		item.ID, item.ProductID, item.SKU, item.Location, item.Quantity, item.ReservedQuantity,
		item.AvailableQuantity, item.ReorderPoint, item.LastRestocked, item.LastSold,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create inventory item: %w", err)
	}

	return nil
}

// SaveItem persiste as quantidades mutadas da linha de estoque
func (r *PostgresInventoryRepository) SaveItem(ctx context.Context, tx Tx, item *InventoryItem) error {
	pgTx := tx.(*PostgresTx).tx

	query := `
		UPDATE inventory_items
		SET quantity = $1,
		    reserved_quantity = $2,
		    available_quantity = $3,
		    last_restocked = $4,
		    last_sold = $5,
		    updated_at = NOW()
		WHERE id = $6
	`

	_, err := pgTx.Exec(ctx, query,
		item.Quantity, item.ReservedQuantity, item.AvailableQuantity,
		item.LastRestocked, item.LastSold, item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to save inventory item: %w", err)
	}

	return nil
}

// InsertMovement insere o registro de movimentação de estoque
func (r *PostgresInventoryRepository) InsertMovement(ctx context.Context, tx Tx, movement *StockMovement) error {
	pgTx := tx.(*PostgresTx).tx

	query := `
		INSERT INTO stock_movements (id, item_id, order_id, change_quantity, movement_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := pgTx.Exec(ctx, query,
		movement.ID, movement.ItemID, movement.OrderID,
		movement.ChangeQuantity, movement.MovementType, movement.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert movement record: %w", err)
	}

	return nil
}
