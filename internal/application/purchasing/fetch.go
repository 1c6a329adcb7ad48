package purchasing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/bc-sync-api/internal/domain"
	"github.com/jhoicas/bc-sync-api/internal/domain/entity"
	"github.com/jhoicas/bc-sync-api/internal/domain/erp"
)

// FetchStatus lee el estado remoto del pedido sin escribir nada localmente.
//
// Si la cabecera ya no existe en el ERP (404) se vuelve a consultar la factura: cuando
// existe, el pedido pasó a factura y se informa entity.BCStatusInvoiced en lugar del 404.
func (uc *PurchaseOrderUseCase) FetchStatus(ctx context.Context, orderID int64) (*erp.Snapshot, error) {
	order, err := uc.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Submitted() {
		return nil, fmt.Errorf("%w: pedido %d", domain.ErrNotSubmitted, orderID)
	}
	return uc.fetchSnapshot(ctx, order)
}

func (uc *PurchaseOrderUseCase) fetchSnapshot(ctx context.Context, order *entity.PurchaseOrder) (*erp.Snapshot, error) {
	snap := &erp.Snapshot{
		OrderID:     order.BCID,
		OrderNumber: order.BCNumber,
		FetchedAt:   uc.now(),
	}

	header, err := uc.gateway.GetSalesOrder(ctx, order.BCID)
	switch {
	case err == nil:
		snap.Status = header.Status
		snap.ETag = header.ETag
		snap.LastModified = header.LastModified
		snap.FullyShipped = header.FullyShipped
		if snap.OrderNumber == "" {
			snap.OrderNumber = header.Number
		}
	case errors.Is(err, erp.ErrNotFound):
		snap.HeaderMissing = true
	default:
		return nil, fmt.Errorf("leer pedido en el ERP: %w", err)
	}

	if snap.OrderNumber == "" {
		if snap.HeaderMissing {
			return nil, fmt.Errorf("pedido %d sin número remoto: %w", order.ID, err)
		}
		return snap, nil
	}

	shipments, err := uc.gateway.FindShipmentsByOrderNumber(ctx, snap.OrderNumber)
	if err != nil {
		return nil, fmt.Errorf("buscar envíos en el ERP: %w", err)
	}
	if len(shipments) > 0 {
		snap.FullyShipped = true
		snap.ShipmentNumber = shipments[0].Number
		var all []erp.DocumentLine
		for _, s := range shipments {
			lines, err := uc.gateway.ListShipmentLines(ctx, s.ID)
			if err != nil {
				return nil, fmt.Errorf("leer líneas del envío %s: %w", s.Number, err)
			}
			all = append(all, lines...)
		}
		snap.ShipmentLines = aggregateShipped(all)
	}

	invoice, err := uc.gateway.FindInvoiceByOrderNumber(ctx, snap.OrderNumber)
	if err != nil {
		return nil, fmt.Errorf("buscar factura en el ERP: %w", err)
	}
	if invoice != nil {
		snap.Invoiced = true
		snap.InvoiceNumber = invoice.Number
	}

	if snap.HeaderMissing {
		if !snap.Invoiced {
			return nil, fmt.Errorf("%w: el pedido %s no existe en el ERP y no tiene factura", erp.ErrNotFound, snap.OrderNumber)
		}
		snap.Status = entity.BCStatusInvoiced
	}
	return snap, nil
}

// aggregateShipped suma las cantidades enviadas por artículo (número, o id si no hay número).
// Se descartan las líneas sin artículo (comentarios, cargos).
func aggregateShipped(lines []erp.DocumentLine) []erp.DocumentLine {
	index := make(map[string]int)
	var out []erp.DocumentLine
	for _, l := range lines {
		key := ""
		switch {
		case l.ItemNumber != "":
			key = "no:" + l.ItemNumber
		case l.ItemID != "":
			key = "id:" + l.ItemID
		default:
			continue
		}
		if i, ok := index[key]; ok {
			out[i].Quantity = out[i].Quantity.Add(l.Quantity)
			if out[i].ItemID == "" {
				out[i].ItemID = l.ItemID
			}
			continue
		}
		index[key] = len(out)
		out = append(out, erp.DocumentLine{ItemNumber: l.ItemNumber, ItemID: l.ItemID, Quantity: l.Quantity})
	}
	return out
}
