package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del pedido de compra.
const (
	OrderStatusNonValide = "non_valide" // creado localmente, aún no enviado
	OrderStatusEnvoyeBC  = "envoye_bc"  // cabecera creada en Business Central
	OrderStatusExpedie   = "expedie"    // stock acreditado al comercial
)

// BCStatusInvoiced es el estado remoto terminal que se registra cuando la cabecera
// desapareció del ERP (404) porque el pedido pasó a factura.
const BCStatusInvoiced = "Invoiced"

// PurchaseOrder representa la cabecera de un pedido de compra de un comercial.
// Una vez fijado BCID el pedido se considera enviado y nunca se reenvía.
type PurchaseOrder struct {
	ID               int64
	Number           string
	SalespersonID    int64
	ChargementTypeID *int64
	Status           string
	Remark           string

	BCID             string
	BCNumber         string
	BCEtag           string
	BCStatus         string
	BCFullyShipped   bool
	BCShipmentNumber string
	BCInvoiced       bool
	BCInvoiceNumber  string
	BCLastModified   *time.Time

	ValidatedBy *Actor
	CreatedAt   time.Time
	ValidatedAt *time.Time
	SubmittedAt *time.Time
	ExpediedAt  *time.Time
	UpdatedAt   time.Time
}

// Submitted indica si el pedido ya tiene contraparte en el ERP.
func (o *PurchaseOrder) Submitted() bool {
	return o.BCID != ""
}

// PurchaseOrderLine línea de un pedido de compra.
// QteRecue es nil hasta que la reconciliación observa un envío remoto.
type PurchaseOrderLine struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Qte       decimal.Decimal
	QteRecue  *decimal.Decimal
}

// CreditQuantity devuelve la cantidad a acreditar en stock: la recibida si es positiva,
// si no la pedida (ERPs que no informan recepción parcial).
func (l *PurchaseOrderLine) CreditQuantity() decimal.Decimal {
	if l.QteRecue != nil && l.QteRecue.GreaterThan(decimal.Zero) {
		return *l.QteRecue
	}
	return l.Qte
}

// RemoteStatus campos de correlación con el ERP que la reconciliación persiste (último en escribir gana).
type RemoteStatus struct {
	BCEtag           string
	BCStatus         string
	BCFullyShipped   bool
	BCShipmentNumber string
	BCInvoiced       bool
	BCInvoiceNumber  string
	BCLastModified   *time.Time
}

// Submission datos que fija la transición non_valide → envoye_bc.
type Submission struct {
	BCID        string
	BCNumber    string
	BCEtag      string
	BCStatus    string
	SubmittedAt time.Time
	ValidatedBy Actor
}
