package purchasing

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/bc-sync-api/internal/application/dto"
	"github.com/jhoicas/bc-sync-api/internal/application/inventory"
	"github.com/jhoicas/bc-sync-api/internal/domain"
	"github.com/jhoicas/bc-sync-api/internal/domain/entity"
	"github.com/jhoicas/bc-sync-api/internal/domain/erp"
	"github.com/jhoicas/bc-sync-api/internal/domain/repository"
)

// CreateReturn registra la devolución de un pedido expedido: abono en el ERP y salida
// de stock del comercial. Solo se admite una devolución por pedido.
func (uc *PurchaseOrderUseCase) CreateReturn(ctx context.Context, orderID int64, in dto.CreateReturnRequest, actor entity.Actor) (*entity.ReturnInvoice, error) {
	order, err := uc.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderStatusExpedie {
		return nil, fmt.Errorf("%w: solo se devuelven pedidos expedidos (estado %s)", domain.ErrInvalidTransition, order.Status)
	}
	if existing, err := uc.returns.GetByPurchaseOrderID(ctx, orderID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("%w: el pedido %d ya tiene devolución", domain.ErrDuplicate, orderID)
	}
	if len(in.Lines) == 0 {
		return nil, fmt.Errorf("%w: la devolución no tiene líneas", domain.ErrInvalidInput)
	}

	lines, err := uc.orders.GetLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	credited := make(map[int64]decimal.Decimal)
	for _, l := range lines {
		credited[l.ProductID] = credited[l.ProductID].Add(l.CreditQuantity())
	}
	requested := make(map[int64]decimal.Decimal)
	productIDs := make([]int64, 0, len(in.Lines))
	for _, rl := range in.Lines {
		if !rl.Quantity.GreaterThan(decimal.Zero) {
			return nil, fmt.Errorf("%w: cantidad del producto %d debe ser positiva", domain.ErrInvalidInput, rl.ProductID)
		}
		limit, ok := credited[rl.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: el producto %d no está en el pedido", domain.ErrInvalidInput, rl.ProductID)
		}
		if _, seen := requested[rl.ProductID]; !seen {
			productIDs = append(productIDs, rl.ProductID)
		}
		requested[rl.ProductID] = requested[rl.ProductID].Add(rl.Quantity)
		if requested[rl.ProductID].GreaterThan(limit) {
			return nil, fmt.Errorf("%w: producto %d (%s > %s)", domain.ErrQuantityExceedsOrdered,
				rl.ProductID, requested[rl.ProductID], limit)
		}
	}

	sp, err := uc.salespersons.GetByID(ctx, order.SalespersonID)
	if err != nil {
		return nil, err
	}
	if sp == nil || strings.TrimSpace(sp.BCCustomerNumber) == "" {
		return nil, fmt.Errorf("%w: el comercial %d no tiene cliente en el ERP", domain.ErrMissingERPLink, order.SalespersonID)
	}
	products, err := uc.products.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range productIDs {
		if p := products[id]; p == nil || !p.LinkedToERP() {
			return nil, fmt.Errorf("%w: el producto %d no tiene artículo en el ERP", domain.ErrMissingERPLink, id)
		}
	}

	// ── Abono remoto: cabecera y todas las líneas ─────────────────────────────
	memo, err := uc.gateway.CreateCreditMemo(ctx, erp.CreditMemoInput{
		CustomerNumber:         sp.BCCustomerNumber,
		ExternalDocumentNumber: order.Number,
		Date:                   uc.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("crear abono en el ERP: %w", err)
	}
	log := uc.log.With().Int64("order_id", orderID).Str("credit_memo_id", memo.ID).Logger()
	for _, id := range productIDs {
		p := products[id]
		if err := uc.gateway.CreateCreditMemoLine(ctx, memo.ID, erp.SalesOrderLineInput{
			ItemNumber: p.BCItemNumber,
			ItemID:     p.BCItemID,
			Quantity:   requested[id],
		}); err != nil {
			log.Error().Err(err).Int64("product_id", id).Msg("línea de abono rechazada, el abono queda en borrador en el ERP")
			return nil, fmt.Errorf("crear línea de abono para el producto %d: %w", id, err)
		}
	}

	ret := &entity.ReturnInvoice{
		PurchaseOrderID: orderID,
		SalespersonID:   order.SalespersonID,
		BCCreditMemoID:  memo.ID,
		BCCreditMemoNo:  memo.Number,
		Reason:          in.Reason,
		CreatedBy:       actor,
	}
	for _, id := range productIDs {
		ret.Lines = append(ret.Lines, entity.ReturnInvoiceLine{ProductID: id, Quantity: requested[id]})
	}

	err = uc.txRunner.RunPurchasing(ctx, func(
		_ repository.PurchaseOrderRepository,
		stockRepo repository.StockRepository,
		txnRepo repository.StockTransactionRepository,
		_ repository.PurchaseInvoiceRepository,
		returnRepo repository.ReturnInvoiceRepository,
	) error {
		if err := returnRepo.Create(ctx, ret); err != nil {
			return err
		}
		for _, l := range ret.Lines {
			if _, err := uc.ledger.DebitInTx(ctx, stockRepo, txnRepo, inventory.Movement{
				ProductID:     l.ProductID,
				SalespersonID: order.SalespersonID,
				Quantity:      l.Quantity,
				Source:        entity.StockSource{Type: entity.SourceReturnInvoice, ID: ret.ID},
				Actor:         actor,
			}); err != nil {
				return fmt.Errorf("descontar producto %d: %w", l.ProductID, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("abono creado en el ERP pero la devolución no se registró localmente")
		return nil, err
	}
	log.Info().Int("lines", len(ret.Lines)).Str("actor", actor.String()).Msg("devolución registrada")
	return ret, nil
}
