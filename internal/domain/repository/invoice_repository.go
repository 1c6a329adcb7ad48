package repository

import (
	"context"

	"github.com/jhoicas/bc-sync-api/internal/domain/entity"
)

// PurchaseInvoiceRepository persistencia de facturas materializadas desde el ERP.
// Create inserta cabecera y líneas; devuelve domain.ErrDuplicate si el pedido ya tiene factura.
type PurchaseInvoiceRepository interface {
	Create(ctx context.Context, inv *entity.PurchaseInvoice) error
	GetByID(ctx context.Context, id int64) (*entity.PurchaseInvoice, error)
	GetByPurchaseOrderID(ctx context.Context, orderID int64) (*entity.PurchaseInvoice, error)
	ExistsForOrder(ctx context.Context, orderID int64) (bool, error)
}

// ReturnInvoiceRepository persistencia de devoluciones (una por pedido).
type ReturnInvoiceRepository interface {
	Create(ctx context.Context, ret *entity.ReturnInvoice) error
	GetByPurchaseOrderID(ctx context.Context, orderID int64) (*entity.ReturnInvoice, error)
}
