package purchasing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/bc-sync-api/internal/application/inventory"
	"github.com/jhoicas/bc-sync-api/internal/domain"
	"github.com/jhoicas/bc-sync-api/internal/domain/entity"
	"github.com/jhoicas/bc-sync-api/internal/domain/repository"
)

// StockCredit crédito aplicado por una línea.
type StockCredit struct {
	LineID     int64
	ProductID  int64
	Quantity   decimal.Decimal
	TotalStock decimal.Decimal
}

// ExpedieResult créditos aplicados al expedir.
type ExpedieResult struct {
	OrderID      int64
	Credits      []StockCredit
	SkippedLines []int64
}

// MarkAsExpedie pasa el pedido de envoye_bc a expedie y acredita el stock del comercial.
//
// Todo ocurre en una transacción: el cambio de estado condicional, el saldo y el libro
// de cada línea. Si algo falla no queda nada aplicado y la llamada puede repetirse;
// tras un éxito, una segunda llamada falla con domain.ErrInvalidTransition.
func (uc *PurchaseOrderUseCase) MarkAsExpedie(ctx context.Context, orderID int64, actor entity.Actor) (*ExpedieResult, error) {
	order, err := uc.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	log := uc.log.With().Int64("order_id", orderID).Logger()

	result := &ExpedieResult{OrderID: orderID}
	err = uc.txRunner.RunPurchasing(ctx, func(
		orderRepo repository.PurchaseOrderRepository,
		stockRepo repository.StockRepository,
		txnRepo repository.StockTransactionRepository,
		_ repository.PurchaseInvoiceRepository,
		_ repository.ReturnInvoiceRepository,
	) error {
		ok, err := orderRepo.TransitionStatus(ctx, orderID, entity.OrderStatusEnvoyeBC, entity.OrderStatusExpedie)
		if err != nil {
			return err
		}
		if !ok {
			current := order.Status
			if fresh, err := orderRepo.GetByID(ctx, orderID); err == nil && fresh != nil {
				current = fresh.Status
			}
			return fmt.Errorf("%w: el pedido está en %s", domain.ErrInvalidTransition, current)
		}

		lines, err := orderRepo.GetLines(ctx, orderID)
		if err != nil {
			return err
		}
		for _, l := range lines {
			qty := l.CreditQuantity()
			if !qty.GreaterThan(decimal.Zero) {
				log.Warn().Int64("line_id", l.ID).Int64("product_id", l.ProductID).
					Msg("línea sin cantidad a acreditar, se omite")
				result.SkippedLines = append(result.SkippedLines, l.ID)
				continue
			}
			total, err := uc.ledger.CreditInTx(ctx, stockRepo, txnRepo, inventory.Movement{
				ProductID:     l.ProductID,
				SalespersonID: order.SalespersonID,
				Quantity:      qty,
				Source:        entity.StockSource{Type: entity.SourcePurchaseOrder, ID: orderID},
				Actor:         actor,
			})
			if err != nil {
				return fmt.Errorf("acreditar línea %d: %w", l.ID, err)
			}
			result.Credits = append(result.Credits, StockCredit{
				LineID:     l.ID,
				ProductID:  l.ProductID,
				Quantity:   qty,
				TotalStock: total.TotalStock,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int("credits", len(result.Credits)).Int("skipped", len(result.SkippedLines)).
		Str("actor", actor.String()).Msg("pedido expedido, stock acreditado")
	return result, nil
}
