package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseInvoice copia local de la factura remota de un pedido (a lo sumo una por pedido).
type PurchaseInvoice struct {
	ID              int64
	Number          string
	PurchaseOrderID int64
	SalespersonID   int64
	BCInvoiceID     string
	BCInvoiceNumber string
	TotalHT         decimal.Decimal
	TotalTVA        decimal.Decimal
	Timbre          decimal.Decimal
	TotalTTC        decimal.Decimal // total con impuestos del ERP + timbre fiscal
	InvoiceDate     time.Time
	CreatedBy       Actor
	CreatedAt       time.Time
	Lines           []PurchaseInvoiceLine
}

// PurchaseInvoiceLine línea de factura. Matched=false cuando no hubo línea remota
// equivalente y se usaron las cantidades locales con precio cero.
type PurchaseInvoiceLine struct {
	ID                 int64
	InvoiceID          int64
	ProductID          int64
	Quantity           decimal.Decimal
	UnitPrice          decimal.Decimal
	DiscountAmount     decimal.Decimal
	DiscountPercent    decimal.Decimal
	TaxPercent         decimal.Decimal
	AmountExcludingTax decimal.Decimal
	TaxAmount          decimal.Decimal
	AmountIncludingTax decimal.Decimal
	Matched            bool
}
