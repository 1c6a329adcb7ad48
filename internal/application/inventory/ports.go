package inventory

import (
	"context"

	"github.com/jhoicas/bc-sync-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Saldo y libro de movimientos se escriben siempre juntos.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		stockRepo repository.StockRepository,
		txnRepo repository.StockTransactionRepository,
	) error) error
}
