package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de stock.
const (
	StockTransactionEntree = "entree"
	StockTransactionSortie = "sortie"
)

// Documentos de origen de un movimiento de stock.
const (
	SourcePurchaseOrder = "purchase_order"
	SourceDeliveryNote  = "delivery_note"
	SourceReturnInvoice = "return_invoice"
	SourceSale          = "sale"
)

// StockSource documento que originó el movimiento.
type StockSource struct {
	Type string
	ID   int64
}

// Valid indica si el tipo de origen es conocido y tiene id.
func (s StockSource) Valid() bool {
	switch s.Type {
	case SourcePurchaseOrder, SourceDeliveryNote, SourceReturnInvoice, SourceSale:
		return s.ID > 0
	}
	return false
}

// StockTransaction asiento del libro de stock. Solo inserción: nunca se actualiza ni borra.
// Quantity es siempre la cantidad solicitada, aunque el saldo se haya recortado a cero.
type StockTransaction struct {
	ID            int64
	ProductID     int64
	SalespersonID int64
	Type          string
	Quantity      decimal.Decimal
	Source        StockSource
	CreatedBy     Actor
	CreatedAt     time.Time
}
