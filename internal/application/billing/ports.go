package billing

import (
	"context"

	"github.com/jhoicas/bc-sync-api/internal/domain/entity"
)

// InvoiceLineForPDF línea de factura enriquecida con los datos del producto para imprimir.
type InvoiceLineForPDF struct {
	entity.PurchaseInvoiceLine
	ProductReference string
	ProductName      string
}

// InvoiceDocument todo lo necesario para la representación gráfica de una factura de compra.
type InvoiceDocument struct {
	Invoice     *entity.PurchaseInvoice
	Salesperson *entity.Salesperson
	OrderNumber string
	Lines       []InvoiceLineForPDF
}

// InvoicePDFGenerator genera el PDF de una factura de compra.
type InvoicePDFGenerator interface {
	GeneratePurchaseInvoicePDF(ctx context.Context, doc InvoiceDocument) ([]byte, error)
}
