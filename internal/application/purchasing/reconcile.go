package purchasing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/bc-sync-api/internal/domain"
	"github.com/jhoicas/bc-sync-api/internal/domain/entity"
	"github.com/jhoicas/bc-sync-api/internal/domain/erp"
	"github.com/jhoicas/bc-sync-api/internal/domain/repository"
)

// Efectos secundarios de la reconciliación.
const (
	SideEffectCreateInvoice = "create_invoice"
	SideEffectMarkExpedie   = "mark_expedie"
)

// SideEffect resultado de un efecto secundario. Err no nulo no hace fallar la reconciliación.
type SideEffect struct {
	Name    string
	Applied bool
	Err     error
}

// ReconcileResult lo aplicado localmente a partir de una foto remota.
type ReconcileResult struct {
	Plan        ReconciliationPlan
	SideEffects []SideEffect
}

// RefreshResult foto remota más lo aplicado.
type RefreshResult struct {
	Snapshot  *erp.Snapshot
	Reconcile *ReconcileResult
}

// Reconcile aplica una foto remota al pedido: persiste los campos bc_* y las cantidades
// recibidas en una transacción y luego ejecuta los efectos secundarios (factura, expedición).
// Los fallos de los efectos secundarios se registran y se devuelven en el resultado.
func (uc *PurchaseOrderUseCase) Reconcile(ctx context.Context, orderID int64, snap *erp.Snapshot, actor entity.Actor) (*ReconcileResult, error) {
	release, err := uc.lockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer release()

	order, err := uc.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	lines, err := uc.orders.GetLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	productIDs := make([]int64, 0, len(lines))
	for _, l := range lines {
		productIDs = append(productIDs, l.ProductID)
	}
	products, err := uc.products.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	hasInvoice, err := uc.invoices.ExistsForOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	plan := PlanReconciliation(order, lines, products, snap, hasInvoice)

	err = uc.txRunner.RunPurchasing(ctx, func(
		orderRepo repository.PurchaseOrderRepository,
		_ repository.StockRepository,
		_ repository.StockTransactionRepository,
		_ repository.PurchaseInvoiceRepository,
		_ repository.ReturnInvoiceRepository,
	) error {
		if err := orderRepo.UpdateRemoteStatus(ctx, orderID, plan.Remote); err != nil {
			return err
		}
		for _, u := range plan.LineUpdates {
			if err := orderRepo.UpdateLineReceived(ctx, u.LineID, u.QteRecue); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := uc.log.With().Int64("order_id", orderID).Logger()
	result := &ReconcileResult{Plan: plan}

	if plan.CreateInvoice {
		se := SideEffect{Name: SideEffectCreateInvoice}
		if _, _, err := uc.materializeInvoice(ctx, order, snap.InvoiceNumber, actor); err != nil {
			log.Error().Err(err).Str("invoice_number", snap.InvoiceNumber).Msg("no se pudo crear la factura local")
			se.Err = err
		} else {
			se.Applied = true
		}
		result.SideEffects = append(result.SideEffects, se)
	}
	if plan.MarkExpedie {
		se := SideEffect{Name: SideEffectMarkExpedie}
		if _, err := uc.MarkAsExpedie(ctx, orderID, actor); err != nil {
			log.Error().Err(err).Msg("no se pudo expedir el pedido automáticamente")
			se.Err = err
		} else {
			se.Applied = true
		}
		result.SideEffects = append(result.SideEffects, se)
	}

	log.Debug().
		Str("bc_status", plan.Remote.BCStatus).Int("lines_updated", len(plan.LineUpdates)).
		Int("side_effects", len(result.SideEffects)).
		Msg("pedido reconciliado")
	return result, nil
}

// RefreshStatus lee el estado remoto y lo aplica (FetchStatus + Reconcile).
func (uc *PurchaseOrderUseCase) RefreshStatus(ctx context.Context, orderID int64, actor entity.Actor) (*RefreshResult, error) {
	snap, err := uc.FetchStatus(ctx, orderID)
	if err != nil {
		return nil, err
	}
	res, err := uc.Reconcile(ctx, orderID, snap, actor)
	if err != nil {
		return nil, err
	}
	return &RefreshResult{Snapshot: snap, Reconcile: res}, nil
}

// SweepSummary resumen de una pasada sobre los pedidos pendientes.
type SweepSummary struct {
	Checked int
	Skipped int
	Failed  int
}

// ReconcilePending refresca secuencialmente los pedidos en envoye_bc como actor de sistema.
// Un fallo en un pedido no detiene la pasada.
func (uc *PurchaseOrderUseCase) ReconcilePending(ctx context.Context, limit int) (SweepSummary, error) {
	var sum SweepSummary
	orders, err := uc.orders.ListByStatus(ctx, entity.OrderStatusEnvoyeBC, limit)
	if err != nil {
		return sum, err
	}
	actor := entity.SystemActor()
	for _, o := range orders {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Checked++
		_, err := uc.RefreshStatus(ctx, o.ID, actor)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrReconcileInProgress):
			sum.Skipped++
		case errors.Is(err, erp.ErrCredentialsMissing), errors.Is(err, erp.ErrCredentialsRejected):
			// Sin credenciales no tiene sentido seguir.
			sum.Failed++
			return sum, err
		default:
			sum.Failed++
			uc.log.Error().Err(err).Int64("order_id", o.ID).Msg("reconciliación fallida")
		}
	}
	return sum, nil
}

// lockOrder obtiene el lock de reconciliación del pedido. Sin locker o con el backend
// caído se continúa: la transición condicional de estado sigue protegiendo.
func (uc *PurchaseOrderUseCase) lockOrder(ctx context.Context, orderID int64) (func(), error) {
	noop := func() {}
	if uc.locker == nil {
		return noop, nil
	}
	release, err := uc.locker.Obtain(ctx, fmt.Sprintf("purchase-order:%d:reconcile", orderID))
	switch {
	case err == nil:
		return release, nil
	case errors.Is(err, ErrLockHeld):
		return nil, fmt.Errorf("%w: pedido %d", domain.ErrReconcileInProgress, orderID)
	default:
		uc.log.Warn().Err(err).Int64("order_id", orderID).Msg("lock no disponible, se continúa sin lock")
		return noop, nil
	}
}
