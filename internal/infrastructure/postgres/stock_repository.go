package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/bc-sync-api/internal/domain/entity"
	"github.com/jhoicas/bc-sync-api/internal/domain/repository"
)

var (
	_ repository.StockRepository            = (*StockRepo)(nil)
	_ repository.StockTransactionRepository = (*StockTransactionRepo)(nil)
)

// StockRepo saldo por (producto, comercial) sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

// Get obtiene el saldo; saldo cero si no hay fila.
func (r *StockRepo) Get(ctx context.Context, productID, salespersonID int64) (*entity.StockTotal, error) {
	const query = `
		SELECT product_id, salesperson_id, total_stock, updated_at
		FROM stock_totals WHERE product_id = $1 AND salesperson_id = $2`
	var s entity.StockTotal
	err := r.q.QueryRow(ctx, query, productID, salespersonID).Scan(
		&s.ProductID, &s.SalespersonID, &s.TotalStock, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.StockTotal{ProductID: productID, SalespersonID: salespersonID, TotalStock: decimal.Zero}, nil
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return &s, nil
}

// Increment suma qty en una sola sentencia (upsert atómico, sin leer antes).
func (r *StockRepo) Increment(ctx context.Context, productID, salespersonID int64, qty decimal.Decimal) (*entity.StockTotal, error) {
	const query = `
		INSERT INTO stock_totals (product_id, salesperson_id, total_stock, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (product_id, salesperson_id)
		DO UPDATE SET total_stock = stock_totals.total_stock + EXCLUDED.total_stock, updated_at = now()
		RETURNING product_id, salesperson_id, total_stock, updated_at`
	var s entity.StockTotal
	err := r.q.QueryRow(ctx, query, productID, salespersonID, qty).Scan(
		&s.ProductID, &s.SalespersonID, &s.TotalStock, &s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("increment stock: %w", err)
	}
	return &s, nil
}

// Decrement resta qty recortando en cero. Si no hay fila se crea en cero.
func (r *StockRepo) Decrement(ctx context.Context, productID, salespersonID int64, qty decimal.Decimal) (*entity.StockTotal, error) {
	const query = `
		INSERT INTO stock_totals (product_id, salesperson_id, total_stock, updated_at)
		VALUES ($1, $2, 0, now())
		ON CONFLICT (product_id, salesperson_id)
		DO UPDATE SET total_stock = GREATEST(stock_totals.total_stock - $3, 0), updated_at = now()
		RETURNING product_id, salesperson_id, total_stock, updated_at`
	var s entity.StockTotal
	err := r.q.QueryRow(ctx, query, productID, salespersonID, qty).Scan(
		&s.ProductID, &s.SalespersonID, &s.TotalStock, &s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("decrement stock: %w", err)
	}
	return &s, nil
}

// StockTransactionRepo libro de movimientos (solo INSERT y SELECT).
type StockTransactionRepo struct {
	q Querier
}

// NewStockTransactionRepository construye el adaptador del libro de stock.
func NewStockTransactionRepository(q Querier) *StockTransactionRepo {
	return &StockTransactionRepo{q: q}
}

const stockTransactionColumns = `
	id, product_id, salesperson_id, type, quantity,
	purchase_order_id, delivery_note_id, return_invoice_id, sale_id,
	actor_kind, actor_user_id, created_at`

// sourceColumns reparte el origen en las cuatro columnas (exactamente una no nula).
func sourceColumns(src entity.StockSource) (po, dn, ri, sale *int64) {
	id := src.ID
	switch src.Type {
	case entity.SourcePurchaseOrder:
		po = &id
	case entity.SourceDeliveryNote:
		dn = &id
	case entity.SourceReturnInvoice:
		ri = &id
	case entity.SourceSale:
		sale = &id
	}
	return
}

func sourceFromColumns(po, dn, ri, sale *int64) entity.StockSource {
	switch {
	case po != nil:
		return entity.StockSource{Type: entity.SourcePurchaseOrder, ID: *po}
	case dn != nil:
		return entity.StockSource{Type: entity.SourceDeliveryNote, ID: *dn}
	case ri != nil:
		return entity.StockSource{Type: entity.SourceReturnInvoice, ID: *ri}
	case sale != nil:
		return entity.StockSource{Type: entity.SourceSale, ID: *sale}
	}
	return entity.StockSource{}
}

// Create inserta el movimiento y asigna ID y fecha.
func (r *StockTransactionRepo) Create(ctx context.Context, t *entity.StockTransaction) error {
	if !t.Source.Valid() {
		return fmt.Errorf("insert stock transaction: origen inválido %q", t.Source.Type)
	}
	po, dn, ri, sale := sourceColumns(t.Source)
	kind, user := t.CreatedBy.Columns()
	const query = `
		INSERT INTO stock_transactions
			(product_id, salesperson_id, type, quantity,
			 purchase_order_id, delivery_note_id, return_invoice_id, sale_id,
			 actor_kind, actor_user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`
	err := r.q.QueryRow(ctx, query,
		t.ProductID, t.SalespersonID, t.Type, t.Quantity,
		po, dn, ri, sale, kind, user,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert stock transaction: %w", err)
	}
	return nil
}

// ListByProductAndSalesperson movimientos más recientes primero.
func (r *StockTransactionRepo) ListByProductAndSalesperson(ctx context.Context, productID, salespersonID int64, limit, offset int) ([]*entity.StockTransaction, error) {
	query := `SELECT ` + stockTransactionColumns + `
		FROM stock_transactions
		WHERE product_id = $1 AND salesperson_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`
	return r.list(ctx, query, productID, salespersonID, limit, offset)
}

// ListBySource movimientos generados por un documento.
func (r *StockTransactionRepo) ListBySource(ctx context.Context, source entity.StockSource) ([]*entity.StockTransaction, error) {
	var column string
	switch source.Type {
	case entity.SourcePurchaseOrder:
		column = "purchase_order_id"
	case entity.SourceDeliveryNote:
		column = "delivery_note_id"
	case entity.SourceReturnInvoice:
		column = "return_invoice_id"
	case entity.SourceSale:
		column = "sale_id"
	default:
		return nil, fmt.Errorf("list stock transactions: origen inválido %q", source.Type)
	}
	query := `SELECT ` + stockTransactionColumns + `
		FROM stock_transactions WHERE ` + column + ` = $1 ORDER BY id`
	return r.list(ctx, query, source.ID)
}

func (r *StockTransactionRepo) list(ctx context.Context, query string, args ...any) ([]*entity.StockTransaction, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock transactions: %w", err)
	}
	defer rows.Close()

	var out []*entity.StockTransaction
	for rows.Next() {
		var t entity.StockTransaction
		var po, dn, ri, sale *int64
		var kind, user *string
		if err := rows.Scan(&t.ID, &t.ProductID, &t.SalespersonID, &t.Type, &t.Quantity,
			&po, &dn, &ri, &sale, &kind, &user, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stock transaction: %w", err)
		}
		t.Source = sourceFromColumns(po, dn, ri, sale)
		t.CreatedBy = scanActor(kind, user)
		out = append(out, &t)
	}
	return out, rows.Err()
}
