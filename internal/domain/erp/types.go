package erp

import (
	"time"

	"github.com/shopspring/decimal"
)

// Company empresa del tenant resuelta en un entorno concreto.
type Company struct {
	ID          string
	Name        string
	Environment string
}

// SalesOrderInput cabecera del pedido de venta a crear en el ERP.
type SalesOrderInput struct {
	CustomerNumber         string
	ExternalDocumentNumber string
	OrderDate              time.Time
}

// SalesOrder cabecera remota.
type SalesOrder struct {
	ID           string
	Number       string
	Status       string
	FullyShipped bool
	ETag         string
	LastModified *time.Time
}

// SalesOrderLineInput línea a crear. Se envía ItemNumber si existe, si no ItemID.
type SalesOrderLineInput struct {
	ItemNumber string
	ItemID     string
	Quantity   decimal.Decimal
}

// SalesOrderLine línea remota creada.
type SalesOrderLine struct {
	ID   string
	ETag string
}

// Shipment envío remoto (salesShipments).
type Shipment struct {
	ID     string
	Number string
}

// Invoice factura remota (salesInvoices) con sus totales.
type Invoice struct {
	ID                      string
	Number                  string
	OrderNumber             string
	InvoiceDate             *time.Time
	TotalAmountExcludingTax decimal.Decimal
	TotalTaxAmount          decimal.Decimal
	TotalAmountIncludingTax decimal.Decimal
}

// DocumentLine línea remota normalizada (envío, factura o abono). Los nombres
// de campo del JSON se resuelven con estrategias ordenadas en el adaptador.
type DocumentLine struct {
	ItemNumber         string
	ItemID             string
	Quantity           decimal.Decimal
	UnitPrice          decimal.Decimal
	DiscountAmount     decimal.Decimal
	DiscountPercent    decimal.Decimal
	TaxPercent         decimal.Decimal
	AmountExcludingTax decimal.Decimal
	TaxAmount          decimal.Decimal
	AmountIncludingTax decimal.Decimal
}

// CreditMemoInput cabecera de abono.
type CreditMemoInput struct {
	CustomerNumber         string
	ExternalDocumentNumber string
	Date                   time.Time
}

// CreditMemo abono remoto creado.
type CreditMemo struct {
	ID     string
	Number string
}

// Snapshot foto del estado remoto de un pedido. Es el resultado de una lectura pura:
// obtenerla nunca modifica el estado local.
type Snapshot struct {
	OrderID        string
	OrderNumber    string
	Status         string
	ETag           string
	LastModified   *time.Time
	HeaderMissing  bool // la cabecera respondió 404
	FullyShipped   bool
	ShipmentNumber string
	Invoiced       bool
	InvoiceNumber  string
	ShipmentLines  []DocumentLine // cantidades enviadas agregadas por artículo
	FetchedAt      time.Time
}
