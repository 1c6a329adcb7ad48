package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/bc-sync-api/internal/domain/entity"
)

// PurchaseOrderRepository define el puerto de persistencia de pedidos de compra y sus líneas.
// GetByID devuelve (nil, nil) si el pedido no existe.
type PurchaseOrderRepository interface {
	Create(ctx context.Context, order *entity.PurchaseOrder, lines []*entity.PurchaseOrderLine) error
	NextNumber(ctx context.Context) (int64, error)
	GetByID(ctx context.Context, id int64) (*entity.PurchaseOrder, error)
	GetLines(ctx context.Context, orderID int64) ([]*entity.PurchaseOrderLine, error)
	ListByStatus(ctx context.Context, status string, limit int) ([]*entity.PurchaseOrder, error)

	// MarkSubmitted aplica non_valide → envoye_bc con los campos remotos.
	// Es una actualización condicional: devuelve false si el estado ya no era non_valide.
	MarkSubmitted(ctx context.Context, id int64, sub entity.Submission) (bool, error)

	// TransitionStatus actualiza el estado solo si el actual es from (compare-and-swap).
	TransitionStatus(ctx context.Context, id int64, from, to string) (bool, error)

	// UpdateRemoteStatus persiste los campos bc_* sin condición (último en escribir gana).
	UpdateRemoteStatus(ctx context.Context, id int64, rs entity.RemoteStatus) error

	UpdateLineQuantity(ctx context.Context, lineID int64, qte decimal.Decimal) error
	UpdateLineReceived(ctx context.Context, lineID int64, qteRecue decimal.Decimal) error
}
