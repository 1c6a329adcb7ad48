package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/bc-sync-api/internal/domain/entity"
)

// StockRepository mantiene el saldo materializado por (producto, comercial).
// Usado dentro de transacciones junto con StockTransactionRepository.
type StockRepository interface {
	// Get devuelve el saldo; si no existe fila devuelve saldo cero.
	Get(ctx context.Context, productID, salespersonID int64) (*entity.StockTotal, error)
	// Increment suma qty creando la fila si no existe.
	Increment(ctx context.Context, productID, salespersonID int64, qty decimal.Decimal) (*entity.StockTotal, error)
	// Decrement resta qty recortando el saldo en cero.
	Decrement(ctx context.Context, productID, salespersonID int64, qty decimal.Decimal) (*entity.StockTotal, error)
}

// StockTransactionRepository libro de movimientos: solo inserción y lectura.
type StockTransactionRepository interface {
	Create(ctx context.Context, tx *entity.StockTransaction) error
	ListByProductAndSalesperson(ctx context.Context, productID, salespersonID int64, limit, offset int) ([]*entity.StockTransaction, error)
	ListBySource(ctx context.Context, source entity.StockSource) ([]*entity.StockTransaction, error)
}
