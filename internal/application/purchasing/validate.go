package purchasing

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/bc-sync-api/internal/application/dto"
	"github.com/jhoicas/bc-sync-api/internal/domain"
	"github.com/jhoicas/bc-sync-api/internal/domain/entity"
	"github.com/jhoicas/bc-sync-api/internal/domain/erp"
	"github.com/jhoicas/bc-sync-api/internal/domain/repository"
)

// LineSubmission resultado del envío de una línea.
type LineSubmission struct {
	LineID          int64
	ProductID       int64
	Qte             decimal.Decimal
	Sent            bool
	BCLineID        string
	LocationID      string
	LocationApplied bool
	Err             error
}

// SubmissionResult pedido ya en envoye_bc y detalle por línea.
type SubmissionResult struct {
	Order     *entity.PurchaseOrder
	Lines     []*entity.PurchaseOrderLine
	Submitted []LineSubmission
}

// SubmissionError todas las líneas fueron rechazadas por el ERP. El pedido sigue en non_valide.
type SubmissionError struct {
	OrderID     int64
	BCID        string
	Compensated bool
	Lines       []LineSubmission
}

func (e *SubmissionError) Error() string {
	parts := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		if l.Err != nil {
			parts = append(parts, fmt.Sprintf("línea %d: %v", l.LineID, l.Err))
		}
	}
	return fmt.Sprintf("%v: pedido %d, ninguna línea aceptada (%s)",
		domain.ErrSubmissionFailed, e.OrderID, strings.Join(parts, "; "))
}

func (e *SubmissionError) Unwrap() error { return domain.ErrSubmissionFailed }

// pendingLine línea a enviar con su cantidad efectiva.
type pendingLine struct {
	line    *entity.PurchaseOrderLine
	product *entity.Product
	qte     decimal.Decimal
}

// Validate revisa cantidades y envía el pedido al ERP (non_valide → envoye_bc).
//
// Todas las comprobaciones locales se hacen antes de la primera llamada remota. Cada
// línea se envía de forma independiente: basta una aceptada para confirmar el pedido.
// Si ninguna se acepta, la cabecera remota se borra (si CompensateOrphans) y se
// devuelve *SubmissionError.
func (uc *PurchaseOrderUseCase) Validate(ctx context.Context, orderID int64, in dto.ValidatePurchaseOrderRequest, actor entity.Actor) (*SubmissionResult, error) {
	order, err := uc.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderStatusNonValide {
		return nil, fmt.Errorf("%w: el pedido está en %s", domain.ErrInvalidTransition, order.Status)
	}
	if order.Submitted() {
		return nil, fmt.Errorf("%w: bc_id %s", domain.ErrAlreadySubmitted, order.BCID)
	}

	lines, err := uc.orders.GetLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	revised, err := applyRevisions(lines, in.Lines)
	if err != nil {
		return nil, err
	}

	sp, err := uc.salespersons.GetByID(ctx, order.SalespersonID)
	if err != nil {
		return nil, err
	}
	if sp == nil || strings.TrimSpace(sp.BCCustomerNumber) == "" {
		return nil, fmt.Errorf("%w: el comercial %d no tiene cliente en el ERP", domain.ErrMissingERPLink, order.SalespersonID)
	}

	pending, err := uc.pendingLines(ctx, lines, revised)
	if err != nil {
		return nil, err
	}
	locations := uc.locationResolver(ctx, order)

	// ── Cabecera remota ───────────────────────────────────────────────────────
	now := uc.now()
	header, err := uc.gateway.CreateSalesOrder(ctx, erp.SalesOrderInput{
		CustomerNumber:         sp.BCCustomerNumber,
		ExternalDocumentNumber: order.Number,
		OrderDate:              now,
	})
	if err != nil {
		return nil, fmt.Errorf("crear pedido en el ERP: %w", err)
	}
	if header == nil || header.ID == "" {
		return nil, fmt.Errorf("%w: el ERP no devolvió id de cabecera", domain.ErrSubmissionFailed)
	}
	log := uc.log.With().Int64("order_id", orderID).Str("bc_id", header.ID).Logger()

	// ── Líneas, una por una ───────────────────────────────────────────────────
	submitted := make([]LineSubmission, 0, len(pending))
	sent := 0
	for _, p := range pending {
		res := LineSubmission{LineID: p.line.ID, ProductID: p.line.ProductID, Qte: p.qte}
		remote, err := uc.gateway.CreateSalesOrderLine(ctx, header.ID, erp.SalesOrderLineInput{
			ItemNumber: p.product.BCItemNumber,
			ItemID:     p.product.BCItemID,
			Quantity:   p.qte,
		})
		if err != nil {
			log.Warn().Err(err).Int64("line_id", p.line.ID).Msg("línea rechazada por el ERP")
			res.Err = err
			submitted = append(submitted, res)
			continue
		}
		sent++
		res.Sent = true
		res.BCLineID = remote.ID
		res.LocationID = locations(p.line.ProductID)
		if res.LocationID != "" {
			if err := uc.gateway.UpdateSalesOrderLineLocation(ctx, header.ID, remote.ID, remote.ETag, res.LocationID); err != nil {
				log.Warn().Err(err).Int64("line_id", p.line.ID).Str("location_id", res.LocationID).
					Msg("no se pudo asignar la ubicación de la línea")
			} else {
				res.LocationApplied = true
			}
		}
		submitted = append(submitted, res)
	}

	if sent == 0 {
		subErr := &SubmissionError{OrderID: orderID, BCID: header.ID, Lines: submitted}
		if uc.cfg.CompensateOrphans {
			if err := uc.gateway.DeleteSalesOrder(ctx, header.ID); err != nil {
				log.Error().Err(err).Msg("no se pudo borrar la cabecera huérfana en el ERP")
			} else {
				subErr.Compensated = true
			}
		} else {
			log.Warn().Msg("cabecera huérfana en el ERP (compensación desactivada)")
		}
		return nil, subErr
	}

	// ── Confirmación local ────────────────────────────────────────────────────
	err = uc.txRunner.RunPurchasing(ctx, func(
		orderRepo repository.PurchaseOrderRepository,
		_ repository.StockRepository,
		_ repository.StockTransactionRepository,
		_ repository.PurchaseInvoiceRepository,
		_ repository.ReturnInvoiceRepository,
	) error {
		ok, err := orderRepo.MarkSubmitted(ctx, orderID, entity.Submission{
			BCID:        header.ID,
			BCNumber:    header.Number,
			BCEtag:      header.ETag,
			BCStatus:    header.Status,
			SubmittedAt: now,
			ValidatedBy: actor,
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: el pedido %d cambió de estado durante el envío", domain.ErrConflict, orderID)
		}
		for _, l := range lines {
			if q, ok := revised[l.ID]; ok && !q.Equal(l.Qte) {
				if err := orderRepo.UpdateLineQuantity(ctx, l.ID, q); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("pedido creado en el ERP pero no confirmado localmente")
		return nil, err
	}
	log.Info().Int("lines_sent", sent).Int("lines_failed", len(pending)-sent).Str("actor", actor.String()).
		Msg("pedido enviado al ERP")

	order, err = uc.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	lines, err = uc.orders.GetLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &SubmissionResult{Order: order, Lines: lines, Submitted: submitted}, nil
}

// applyRevisions valida las cantidades revisadas y devuelve la cantidad efectiva por línea.
func applyRevisions(lines []*entity.PurchaseOrderLine, revisions []dto.LineRevision) (map[int64]decimal.Decimal, error) {
	byID := make(map[int64]*entity.PurchaseOrderLine, len(lines))
	effective := make(map[int64]decimal.Decimal, len(lines))
	for _, l := range lines {
		byID[l.ID] = l
		effective[l.ID] = l.Qte
	}
	for _, r := range revisions {
		l, ok := byID[r.LineID]
		if !ok {
			return nil, fmt.Errorf("%w: la línea %d no pertenece al pedido", domain.ErrInvalidInput, r.LineID)
		}
		if r.Qte.IsNegative() {
			return nil, fmt.Errorf("%w: línea %d", domain.ErrNegativeQuantity, r.LineID)
		}
		if r.Qte.GreaterThan(l.Qte) {
			return nil, fmt.Errorf("%w: línea %d (%s > %s)", domain.ErrQuantityExceedsOrdered, r.LineID, r.Qte, l.Qte)
		}
		effective[r.LineID] = r.Qte
	}
	return effective, nil
}

// pendingLines líneas con cantidad > 0 y su producto vinculado al ERP.
func (uc *PurchaseOrderUseCase) pendingLines(ctx context.Context, lines []*entity.PurchaseOrderLine, qtes map[int64]decimal.Decimal) ([]pendingLine, error) {
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		if qtes[l.ID].GreaterThan(decimal.Zero) {
			ids = append(ids, l.ProductID)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: todas las líneas quedaron en cero", domain.ErrInvalidInput)
	}
	products, err := uc.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]pendingLine, 0, len(ids))
	for _, l := range lines {
		q := qtes[l.ID]
		if !q.GreaterThan(decimal.Zero) {
			continue
		}
		p := products[l.ProductID]
		if p == nil || !p.LinkedToERP() {
			return nil, fmt.Errorf("%w: el producto %d no tiene artículo en el ERP", domain.ErrMissingERPLink, l.ProductID)
		}
		out = append(out, pendingLine{line: l, product: p, qte: q})
	}
	return out, nil
}

// locationResolver devuelve la ubicación por producto: excepción de la plantilla,
// ubicación de la plantilla o la ubicación por defecto.
func (uc *PurchaseOrderUseCase) locationResolver(ctx context.Context, order *entity.PurchaseOrder) func(productID int64) string {
	var ct *entity.ChargementType
	if order.ChargementTypeID != nil && uc.chargementTypes != nil {
		var err error
		ct, err = uc.chargementTypes.GetByID(ctx, *order.ChargementTypeID)
		if err != nil {
			uc.log.Warn().Err(err).Int64("order_id", order.ID).Msg("no se pudo leer el tipo de carga, se usa la ubicación por defecto")
			ct = nil
		}
	}
	return func(productID int64) string {
		if ct != nil {
			if loc := ct.LocationFor(productID); loc != "" {
				return loc
			}
		}
		return uc.cfg.DefaultLocationID
	}
}
