package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreatePurchaseOrderLineRequest línea de un pedido nuevo.
type CreatePurchaseOrderLineRequest struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Qte       decimal.Decimal `json:"qte"`
}

// CreatePurchaseOrderRequest body para POST /api/purchase-orders.
// Number es opcional: si viene vacío se genera BC-<yyyymmdd>-<seq>.
type CreatePurchaseOrderRequest struct {
	Number           string                           `json:"number" validate:"omitempty,max=50"`
	SalespersonID    int64                            `json:"salesperson_id" validate:"required,gt=0"`
	ChargementTypeID *int64                           `json:"chargement_type_id" validate:"omitempty,gt=0"`
	Remark           string                           `json:"remark" validate:"max=500"`
	Lines            []CreatePurchaseOrderLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// LineRevision cantidad revisada de una línea antes del envío.
type LineRevision struct {
	LineID int64           `json:"line_id" validate:"required,gt=0"`
	Qte    decimal.Decimal `json:"qte"`
}

// ValidatePurchaseOrderRequest body para POST /api/purchase-orders/:id/validate.
type ValidatePurchaseOrderRequest struct {
	Lines []LineRevision `json:"lines" validate:"omitempty,dive"`
}

// PurchaseOrderLineResponse salida de una línea.
type PurchaseOrderLineResponse struct {
	ID        int64            `json:"id"`
	ProductID int64            `json:"product_id"`
	Qte       decimal.Decimal  `json:"qte"`
	QteRecue  *decimal.Decimal `json:"qte_recue"`
}

// PurchaseOrderResponse salida de un pedido con sus campos de correlación remota.
type PurchaseOrderResponse struct {
	ID               int64                       `json:"id"`
	Number           string                      `json:"number"`
	SalespersonID    int64                       `json:"salesperson_id"`
	ChargementTypeID *int64                      `json:"chargement_type_id,omitempty"`
	Status           string                      `json:"status"`
	Remark           string                      `json:"remark"`
	BCID             string                      `json:"bc_id,omitempty"`
	BCNumber         string                      `json:"bc_number,omitempty"`
	BCEtag           string                      `json:"bc_etag,omitempty"`
	BCStatus         string                      `json:"bc_status,omitempty"`
	BCFullyShipped   bool                        `json:"bc_fully_shipped"`
	BCShipmentNumber string                      `json:"bc_shipment_number,omitempty"`
	BCInvoiced       bool                        `json:"bc_invoiced"`
	BCInvoiceNumber  string                      `json:"bc_invoice_number,omitempty"`
	BCLastModified   *time.Time                  `json:"bc_last_modified,omitempty"`
	ValidatedBy      string                      `json:"validated_by,omitempty"`
	CreatedAt        time.Time                   `json:"created_at"`
	ValidatedAt      *time.Time                  `json:"validated_at,omitempty"`
	SubmittedAt      *time.Time                  `json:"submitted_at,omitempty"`
	ExpediedAt       *time.Time                  `json:"expedied_at,omitempty"`
	Lines            []PurchaseOrderLineResponse `json:"lines"`
}

// SubmissionLineResponse resultado del envío de una línea.
type SubmissionLineResponse struct {
	LineID          int64           `json:"line_id"`
	ProductID       int64           `json:"product_id"`
	Qte             decimal.Decimal `json:"qte"`
	Sent            bool            `json:"sent"`
	BCLineID        string          `json:"bc_line_id,omitempty"`
	LocationID      string          `json:"location_id,omitempty"`
	LocationApplied bool            `json:"location_applied"`
	Error           string          `json:"error,omitempty"`
}

// SubmissionResponse salida de la validación/envío.
type SubmissionResponse struct {
	Order PurchaseOrderResponse    `json:"order"`
	Lines []SubmissionLineResponse `json:"lines"`
}

// ShippedLineResponse cantidad enviada agregada por artículo.
type ShippedLineResponse struct {
	ItemNumber string          `json:"item_number,omitempty"`
	ItemID     string          `json:"item_id,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// SideEffectResponse resultado de un efecto secundario de la reconciliación.
type SideEffectResponse struct {
	Name    string `json:"name"`
	Applied bool   `json:"applied"`
	Error   string `json:"error,omitempty"`
}

// ReconcileResponse cambios aplicados localmente.
type ReconcileResponse struct {
	RemoteUpdated bool                 `json:"remote_updated"`
	LinesUpdated  int                  `json:"lines_updated"`
	SideEffects   []SideEffectResponse `json:"side_effects"`
}

// BCStatusResponse foto del estado remoto y, si hubo, lo que se aplicó localmente.
type BCStatusResponse struct {
	OrderID        int64                 `json:"order_id"`
	BCID           string                `json:"bc_id"`
	BCNumber       string                `json:"bc_number"`
	Status         string                `json:"status"`
	ETag           string                `json:"etag,omitempty"`
	LastModified   *time.Time            `json:"last_modified,omitempty"`
	HeaderMissing  bool                  `json:"header_missing"`
	FullyShipped   bool                  `json:"fully_shipped"`
	ShipmentNumber string                `json:"shipment_number,omitempty"`
	Invoiced       bool                  `json:"invoiced"`
	InvoiceNumber  string                `json:"invoice_number,omitempty"`
	ShipmentLines  []ShippedLineResponse `json:"shipment_lines"`
	FetchedAt      time.Time             `json:"fetched_at"`
	Applied        *ReconcileResponse    `json:"applied,omitempty"`
}

// StockCreditResponse crédito aplicado a una línea al expedir.
type StockCreditResponse struct {
	LineID     int64           `json:"line_id"`
	ProductID  int64           `json:"product_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	TotalStock decimal.Decimal `json:"total_stock"`
}

// MarkExpedieResponse salida de POST /api/purchase-orders/:id/mark-as-expedie.
type MarkExpedieResponse struct {
	OrderID      int64                 `json:"order_id"`
	Status       string                `json:"status"`
	Credits      []StockCreditResponse `json:"credits"`
	SkippedLines []int64               `json:"skipped_lines,omitempty"`
}

// ReturnLineRequest producto y cantidad a devolver.
type ReturnLineRequest struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// CreateReturnRequest body para POST /api/purchase-orders/:id/returns.
type CreateReturnRequest struct {
	Reason string              `json:"reason" validate:"max=500"`
	Lines  []ReturnLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// ReturnLineResponse línea devuelta.
type ReturnLineResponse struct {
	ProductID int64           `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// ReturnInvoiceResponse salida de una devolución.
type ReturnInvoiceResponse struct {
	ID              int64                `json:"id"`
	PurchaseOrderID int64                `json:"purchase_order_id"`
	BCCreditMemoID  string               `json:"bc_credit_memo_id"`
	BCCreditMemoNo  string               `json:"bc_credit_memo_no"`
	Reason          string               `json:"reason"`
	CreatedBy       string               `json:"created_by"`
	CreatedAt       time.Time            `json:"created_at"`
	Lines           []ReturnLineResponse `json:"lines"`
}
