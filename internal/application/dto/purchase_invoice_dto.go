package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseInvoiceLineResponse línea de factura de compra.
type PurchaseInvoiceLineResponse struct {
	ProductID          int64           `json:"product_id"`
	Quantity           decimal.Decimal `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	DiscountPercent    decimal.Decimal `json:"discount_percent"`
	TaxPercent         decimal.Decimal `json:"tax_percent"`
	AmountExcludingTax decimal.Decimal `json:"amount_excluding_tax"`
	TaxAmount          decimal.Decimal `json:"tax_amount"`
	AmountIncludingTax decimal.Decimal `json:"amount_including_tax"`
	Matched            bool            `json:"matched"`
}

// PurchaseInvoiceResponse factura de compra materializada desde el ERP.
type PurchaseInvoiceResponse struct {
	ID              int64                         `json:"id"`
	Number          string                        `json:"number"`
	PurchaseOrderID int64                         `json:"purchase_order_id"`
	SalespersonID   int64                         `json:"salesperson_id"`
	BCInvoiceID     string                        `json:"bc_invoice_id"`
	BCInvoiceNumber string                        `json:"bc_invoice_number"`
	TotalHT         decimal.Decimal               `json:"total_ht"`
	TotalTVA        decimal.Decimal               `json:"total_tva"`
	Timbre          decimal.Decimal               `json:"timbre"`
	TotalTTC        decimal.Decimal               `json:"total_ttc"`
	InvoiceDate     time.Time                     `json:"invoice_date"`
	CreatedBy       string                        `json:"created_by"`
	CreatedAt       time.Time                     `json:"created_at"`
	Lines           []PurchaseInvoiceLineResponse `json:"lines"`
}
