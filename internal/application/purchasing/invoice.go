package purchasing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/bc-sync-api/internal/domain"
	"github.com/jhoicas/bc-sync-api/internal/domain/entity"
	"github.com/jhoicas/bc-sync-api/internal/domain/erp"
	"github.com/jhoicas/bc-sync-api/internal/domain/repository"
)

// MaterializeInvoice crea la factura local a partir de la factura remota del pedido.
// Si ya existe devuelve la existente.
func (uc *PurchaseOrderUseCase) MaterializeInvoice(ctx context.Context, orderID int64, actor entity.Actor) (*entity.PurchaseInvoice, error) {
	order, err := uc.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if existing, err := uc.invoices.GetByPurchaseOrderID(ctx, orderID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}
	number := order.BCInvoiceNumber
	if number == "" {
		if order.BCNumber == "" {
			return nil, fmt.Errorf("%w: pedido %d", domain.ErrNotSubmitted, orderID)
		}
		remote, err := uc.gateway.FindInvoiceByOrderNumber(ctx, order.BCNumber)
		if err != nil {
			return nil, fmt.Errorf("buscar factura en el ERP: %w", err)
		}
		if remote == nil {
			return nil, fmt.Errorf("%w: el pedido %s aún no está facturado", erp.ErrNotFound, order.BCNumber)
		}
		number = remote.Number
	}
	inv, _, err := uc.materializeInvoice(ctx, order, number, actor)
	return inv, err
}

// materializeInvoice copia cabecera y líneas de la factura remota. Las líneas locales sin
// equivalente remoto se guardan con su cantidad y precio cero (Matched=false). Una factura
// duplicada se considera ya presente: devuelve la existente y created=false.
func (uc *PurchaseOrderUseCase) materializeInvoice(ctx context.Context, order *entity.PurchaseOrder, invoiceNumber string, actor entity.Actor) (inv *entity.PurchaseInvoice, created bool, err error) {
	remote, err := uc.gateway.FindInvoiceByNumber(ctx, invoiceNumber)
	if err != nil {
		return nil, false, fmt.Errorf("leer factura %s: %w", invoiceNumber, err)
	}
	if remote == nil {
		return nil, false, fmt.Errorf("%w: factura %s", erp.ErrNotFound, invoiceNumber)
	}
	remoteLines, err := uc.gateway.ListInvoiceLines(ctx, remote.ID)
	if err != nil {
		return nil, false, fmt.Errorf("leer líneas de la factura %s: %w", invoiceNumber, err)
	}

	lines, err := uc.orders.GetLines(ctx, order.ID)
	if err != nil {
		return nil, false, err
	}
	productIDs := make([]int64, 0, len(lines))
	for _, l := range lines {
		productIDs = append(productIDs, l.ProductID)
	}
	products, err := uc.products.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, false, err
	}

	inv = &entity.PurchaseInvoice{
		Number:          fmt.Sprintf("%s-%s", uc.cfg.InvoicePrefix, remote.Number),
		PurchaseOrderID: order.ID,
		SalespersonID:   order.SalespersonID,
		BCInvoiceID:     remote.ID,
		BCInvoiceNumber: remote.Number,
		TotalHT:         remote.TotalAmountExcludingTax,
		TotalTVA:        remote.TotalTaxAmount,
		Timbre:          uc.cfg.FiscalStamp,
		TotalTTC:        remote.TotalAmountIncludingTax.Add(uc.cfg.FiscalStamp),
		InvoiceDate:     uc.now(),
		CreatedBy:       actor,
	}
	if remote.InvoiceDate != nil {
		inv.InvoiceDate = *remote.InvoiceDate
	}

	idx := newDocumentIndex(remoteLines)
	for _, l := range lines {
		rl, ok := idx.find(products[l.ProductID])
		if !ok {
			uc.log.Warn().Int64("order_id", order.ID).Int64("product_id", l.ProductID).
				Msg("línea sin equivalente en la factura remota, se registra con precio cero")
			inv.Lines = append(inv.Lines, entity.PurchaseInvoiceLine{
				ProductID:          l.ProductID,
				Quantity:           l.CreditQuantity(),
				UnitPrice:          decimal.Zero,
				DiscountAmount:     decimal.Zero,
				DiscountPercent:    decimal.Zero,
				TaxPercent:         decimal.Zero,
				AmountExcludingTax: decimal.Zero,
				TaxAmount:          decimal.Zero,
				AmountIncludingTax: decimal.Zero,
				Matched:            false,
			})
			continue
		}
		inv.Lines = append(inv.Lines, entity.PurchaseInvoiceLine{
			ProductID:          l.ProductID,
			Quantity:           rl.Quantity,
			UnitPrice:          rl.UnitPrice,
			DiscountAmount:     rl.DiscountAmount,
			DiscountPercent:    rl.DiscountPercent,
			TaxPercent:         rl.TaxPercent,
			AmountExcludingTax: rl.AmountExcludingTax,
			TaxAmount:          rl.TaxAmount,
			AmountIncludingTax: rl.AmountIncludingTax,
			Matched:            true,
		})
	}

	err = uc.txRunner.RunPurchasing(ctx, func(
		_ repository.PurchaseOrderRepository,
		_ repository.StockRepository,
		_ repository.StockTransactionRepository,
		invoiceRepo repository.PurchaseInvoiceRepository,
		_ repository.ReturnInvoiceRepository,
	) error {
		return invoiceRepo.Create(ctx, inv)
	})
	if errors.Is(err, domain.ErrDuplicate) {
		existing, gErr := uc.invoices.GetByPurchaseOrderID(ctx, order.ID)
		if gErr != nil {
			return nil, false, gErr
		}
		if existing != nil {
			return existing, false, nil
		}
		return nil, false, err
	}
	if err != nil {
		return nil, false, err
	}
	uc.log.Info().Int64("order_id", order.ID).Str("invoice_number", inv.Number).
		Str("total_ttc", inv.TotalTTC.String()).Msg("factura de compra creada")
	return inv, true, nil
}
