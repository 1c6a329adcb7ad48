package purchasing

import (
	"github.com/jhoicas/bc-sync-api/internal/application/dto"
	"github.com/jhoicas/bc-sync-api/internal/domain/entity"
	"github.com/jhoicas/bc-sync-api/internal/domain/erp"
)

// ToPurchaseOrderResponse convierte pedido y líneas a su DTO.
func ToPurchaseOrderResponse(o *entity.PurchaseOrder, lines []*entity.PurchaseOrderLine) *dto.PurchaseOrderResponse {
	resp := &dto.PurchaseOrderResponse{
		ID:               o.ID,
		Number:           o.Number,
		SalespersonID:    o.SalespersonID,
		ChargementTypeID: o.ChargementTypeID,
		Status:           o.Status,
		Remark:           o.Remark,
		BCID:             o.BCID,
		BCNumber:         o.BCNumber,
		BCEtag:           o.BCEtag,
		BCStatus:         o.BCStatus,
		BCFullyShipped:   o.BCFullyShipped,
		BCShipmentNumber: o.BCShipmentNumber,
		BCInvoiced:       o.BCInvoiced,
		BCInvoiceNumber:  o.BCInvoiceNumber,
		BCLastModified:   o.BCLastModified,
		CreatedAt:        o.CreatedAt,
		ValidatedAt:      o.ValidatedAt,
		SubmittedAt:      o.SubmittedAt,
		ExpediedAt:       o.ExpediedAt,
		Lines:            make([]dto.PurchaseOrderLineResponse, 0, len(lines)),
	}
	if o.ValidatedBy != nil {
		resp.ValidatedBy = o.ValidatedBy.String()
	}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, dto.PurchaseOrderLineResponse{
			ID:        l.ID,
			ProductID: l.ProductID,
			Qte:       l.Qte,
			QteRecue:  l.QteRecue,
		})
	}
	return resp
}

// ToSubmissionResponse convierte el resultado del envío a su DTO.
func ToSubmissionResponse(r *SubmissionResult) *dto.SubmissionResponse {
	resp := &dto.SubmissionResponse{
		Order: *ToPurchaseOrderResponse(r.Order, r.Lines),
		Lines: ToSubmissionLines(r.Submitted),
	}
	return resp
}

// ToSubmissionLines convierte el detalle por línea (también usado en errores de envío).
func ToSubmissionLines(lines []LineSubmission) []dto.SubmissionLineResponse {
	out := make([]dto.SubmissionLineResponse, 0, len(lines))
	for _, l := range lines {
		item := dto.SubmissionLineResponse{
			LineID:          l.LineID,
			ProductID:       l.ProductID,
			Qte:             l.Qte,
			Sent:            l.Sent,
			BCLineID:        l.BCLineID,
			LocationID:      l.LocationID,
			LocationApplied: l.LocationApplied,
		}
		if l.Err != nil {
			item.Error = l.Err.Error()
		}
		out = append(out, item)
	}
	return out
}

// ToBCStatusResponse convierte la foto remota (y lo aplicado, si hubo) a su DTO.
func ToBCStatusResponse(orderID int64, snap *erp.Snapshot, applied *ReconcileResult) *dto.BCStatusResponse {
	resp := &dto.BCStatusResponse{
		OrderID:        orderID,
		BCID:           snap.OrderID,
		BCNumber:       snap.OrderNumber,
		Status:         snap.Status,
		ETag:           snap.ETag,
		LastModified:   snap.LastModified,
		HeaderMissing:  snap.HeaderMissing,
		FullyShipped:   snap.FullyShipped,
		ShipmentNumber: snap.ShipmentNumber,
		Invoiced:       snap.Invoiced,
		InvoiceNumber:  snap.InvoiceNumber,
		ShipmentLines:  make([]dto.ShippedLineResponse, 0, len(snap.ShipmentLines)),
		FetchedAt:      snap.FetchedAt,
	}
	for _, l := range snap.ShipmentLines {
		resp.ShipmentLines = append(resp.ShipmentLines, dto.ShippedLineResponse{
			ItemNumber: l.ItemNumber,
			ItemID:     l.ItemID,
			Quantity:   l.Quantity,
		})
	}
	if applied != nil {
		r := &dto.ReconcileResponse{
			RemoteUpdated: true,
			LinesUpdated:  len(applied.Plan.LineUpdates),
			SideEffects:   make([]dto.SideEffectResponse, 0, len(applied.SideEffects)),
		}
		for _, se := range applied.SideEffects {
			item := dto.SideEffectResponse{Name: se.Name, Applied: se.Applied}
			if se.Err != nil {
				item.Error = se.Err.Error()
			}
			r.SideEffects = append(r.SideEffects, item)
		}
		resp.Applied = r
	}
	return resp
}

// ToMarkExpedieResponse convierte el resultado de la expedición a su DTO.
func ToMarkExpedieResponse(r *ExpedieResult) *dto.MarkExpedieResponse {
	resp := &dto.MarkExpedieResponse{
		OrderID:      r.OrderID,
		Status:       entity.OrderStatusExpedie,
		Credits:      make([]dto.StockCreditResponse, 0, len(r.Credits)),
		SkippedLines: r.SkippedLines,
	}
	for _, c := range r.Credits {
		resp.Credits = append(resp.Credits, dto.StockCreditResponse{
			LineID:     c.LineID,
			ProductID:  c.ProductID,
			Quantity:   c.Quantity,
			TotalStock: c.TotalStock,
		})
	}
	return resp
}

// ToReturnInvoiceResponse convierte una devolución a su DTO.
func ToReturnInvoiceResponse(r *entity.ReturnInvoice) *dto.ReturnInvoiceResponse {
	resp := &dto.ReturnInvoiceResponse{
		ID:              r.ID,
		PurchaseOrderID: r.PurchaseOrderID,
		BCCreditMemoID:  r.BCCreditMemoID,
		BCCreditMemoNo:  r.BCCreditMemoNo,
		Reason:          r.Reason,
		CreatedBy:       r.CreatedBy.String(),
		CreatedAt:       r.CreatedAt,
		Lines:           make([]dto.ReturnLineResponse, 0, len(r.Lines)),
	}
	for _, l := range r.Lines {
		resp.Lines = append(resp.Lines, dto.ReturnLineResponse{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return resp
}
