package purchasing

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/bc-sync-api/internal/domain/entity"
	"github.com/jhoicas/bc-sync-api/internal/domain/erp"
)

// LineUpdate nueva cantidad recibida de una línea.
type LineUpdate struct {
	LineID   int64
	QteRecue decimal.Decimal
}

// ReconciliationPlan cambios locales derivados de una foto remota.
type ReconciliationPlan struct {
	Remote        entity.RemoteStatus
	LineUpdates   []LineUpdate
	CreateInvoice bool
	MarkExpedie   bool
}

// PlanReconciliation calcula, sin efectos, qué hay que aplicar localmente.
//
//   - Los campos remotos se copian siempre (último en escribir gana); ETag y fecha de
//     modificación se conservan si la cabecera ya no existe.
//   - qte_recue se actualiza solo si cambió, buscando la línea remota por número de
//     artículo y luego por id.
//   - CreateInvoice: facturado, sin factura local y con número de factura conocido.
//   - MarkExpedie: enviado por completo y el pedido sigue en envoye_bc.
func PlanReconciliation(
	order *entity.PurchaseOrder,
	lines []*entity.PurchaseOrderLine,
	products map[int64]*entity.Product,
	snap *erp.Snapshot,
	hasInvoice bool,
) ReconciliationPlan {
	plan := ReconciliationPlan{
		Remote: entity.RemoteStatus{
			BCEtag:           snap.ETag,
			BCStatus:         snap.Status,
			BCFullyShipped:   snap.FullyShipped,
			BCShipmentNumber: snap.ShipmentNumber,
			BCInvoiced:       snap.Invoiced,
			BCInvoiceNumber:  snap.InvoiceNumber,
			BCLastModified:   snap.LastModified,
		},
	}
	if plan.Remote.BCEtag == "" {
		plan.Remote.BCEtag = order.BCEtag
	}
	if plan.Remote.BCLastModified == nil {
		plan.Remote.BCLastModified = order.BCLastModified
	}

	shipped := newDocumentIndex(snap.ShipmentLines)
	for _, l := range lines {
		remote, ok := shipped.find(products[l.ProductID])
		if !ok {
			continue
		}
		if l.QteRecue != nil && l.QteRecue.Equal(remote.Quantity) {
			continue
		}
		plan.LineUpdates = append(plan.LineUpdates, LineUpdate{LineID: l.ID, QteRecue: remote.Quantity})
	}

	plan.CreateInvoice = snap.Invoiced && !hasInvoice && snap.InvoiceNumber != ""
	plan.MarkExpedie = snap.FullyShipped && order.Status == entity.OrderStatusEnvoyeBC
	return plan
}

// documentIndex búsqueda de líneas remotas por número de artículo y por id.
type documentIndex struct {
	byNumber map[string]erp.DocumentLine
	byID     map[string]erp.DocumentLine
}

func newDocumentIndex(lines []erp.DocumentLine) documentIndex {
	idx := documentIndex{
		byNumber: make(map[string]erp.DocumentLine, len(lines)),
		byID:     make(map[string]erp.DocumentLine, len(lines)),
	}
	for _, l := range lines {
		if l.ItemNumber != "" {
			if _, dup := idx.byNumber[l.ItemNumber]; !dup {
				idx.byNumber[l.ItemNumber] = l
			}
		}
		if l.ItemID != "" {
			if _, dup := idx.byID[l.ItemID]; !dup {
				idx.byID[l.ItemID] = l
			}
		}
	}
	return idx
}

func (idx documentIndex) find(p *entity.Product) (erp.DocumentLine, bool) {
	if p == nil {
		return erp.DocumentLine{}, false
	}
	if p.BCItemNumber != "" {
		if l, ok := idx.byNumber[p.BCItemNumber]; ok {
			return l, true
		}
	}
	if p.BCItemID != "" {
		if l, ok := idx.byID[p.BCItemID]; ok {
			return l, true
		}
	}
	return erp.DocumentLine{}, false
}
