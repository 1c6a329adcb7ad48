package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReturnInvoice devolución de un pedido expedido, espejada como abono (credit memo) en el ERP.
type ReturnInvoice struct {
	ID              int64
	PurchaseOrderID int64
	SalespersonID   int64
	BCCreditMemoID  string
	BCCreditMemoNo  string
	Reason          string
	CreatedBy       Actor
	CreatedAt       time.Time
	Lines           []ReturnInvoiceLine
}

// ReturnInvoiceLine producto y cantidad devueltos.
type ReturnInvoiceLine struct {
	ID        int64
	ReturnID  int64
	ProductID int64
	Quantity  decimal.Decimal
}
