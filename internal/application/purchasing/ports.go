package purchasing

import (
	"context"
	"errors"

	"github.com/jhoicas/bc-sync-api/internal/domain/erp"
	"github.com/jhoicas/bc-sync-api/internal/domain/repository"
)

// ERPGateway operaciones del ERP que usa el flujo de pedidos de compra.
// Los errores envuelven una de las clases de erp (ErrNotFound, ErrTransient, ...).
type ERPGateway interface {
	CreateSalesOrder(ctx context.Context, in erp.SalesOrderInput) (*erp.SalesOrder, error)
	GetSalesOrder(ctx context.Context, id string) (*erp.SalesOrder, error)
	DeleteSalesOrder(ctx context.Context, id string) error
	CreateSalesOrderLine(ctx context.Context, orderID string, in erp.SalesOrderLineInput) (*erp.SalesOrderLine, error)
	UpdateSalesOrderLineLocation(ctx context.Context, orderID, lineID, etag, locationID string) error

	FindShipmentsByOrderNumber(ctx context.Context, orderNumber string) ([]erp.Shipment, error)
	ListShipmentLines(ctx context.Context, shipmentID string) ([]erp.DocumentLine, error)

	FindInvoiceByOrderNumber(ctx context.Context, orderNumber string) (*erp.Invoice, error)
	FindInvoiceByNumber(ctx context.Context, number string) (*erp.Invoice, error)
	ListInvoiceLines(ctx context.Context, invoiceID string) ([]erp.DocumentLine, error)

	CreateCreditMemo(ctx context.Context, in erp.CreditMemoInput) (*erp.CreditMemo, error)
	CreateCreditMemoLine(ctx context.Context, memoID string, in erp.SalesOrderLineInput) error
}

// TxRunner ejecuta fn dentro de una transacción con todos los repos que escribe el flujo de compras.
type TxRunner interface {
	RunPurchasing(ctx context.Context, fn func(
		orderRepo repository.PurchaseOrderRepository,
		stockRepo repository.StockRepository,
		txnRepo repository.StockTransactionRepository,
		invoiceRepo repository.PurchaseInvoiceRepository,
		returnRepo repository.ReturnInvoiceRepository,
	) error) error
}

// ErrLockHeld lo devuelve OrderLocker cuando otro proceso tiene el lock.
var ErrLockHeld = errors.New("lock en uso")

// OrderLocker lock distribuido por clave. release nunca es nil cuando err == nil.
type OrderLocker interface {
	Obtain(ctx context.Context, key string) (release func(), err error)
}
