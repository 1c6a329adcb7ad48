package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/bc-sync-api/internal/domain"
	"github.com/jhoicas/bc-sync-api/internal/domain/entity"
	"github.com/jhoicas/bc-sync-api/internal/domain/repository"
)

var _ repository.PurchaseOrderRepository = (*PurchaseOrderRepo)(nil)

// PurchaseOrderRepo implementación de PurchaseOrderRepository sobre PostgreSQL (usable con pool o tx).
type PurchaseOrderRepo struct {
	q Querier
}

// NewPurchaseOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPurchaseOrderRepository(q Querier) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{q: q}
}

const purchaseOrderColumns = `
	id, number, salesperson_id, chargement_type_id, status, remark,
	bc_id, bc_number, bc_etag, bc_status, bc_fully_shipped, bc_shipment_number,
	bc_invoiced, bc_invoice_number, bc_last_modified,
	validated_by_kind, validated_by_user,
	created_at, validated_at, submitted_at, expedied_at, updated_at`

func scanPurchaseOrder(row pgx.Row) (*entity.PurchaseOrder, error) {
	var o entity.PurchaseOrder
	var kind, user *string
	err := row.Scan(
		&o.ID, &o.Number, &o.SalespersonID, &o.ChargementTypeID, &o.Status, &o.Remark,
		&o.BCID, &o.BCNumber, &o.BCEtag, &o.BCStatus, &o.BCFullyShipped, &o.BCShipmentNumber,
		&o.BCInvoiced, &o.BCInvoiceNumber, &o.BCLastModified,
		&kind, &user,
		&o.CreatedAt, &o.ValidatedAt, &o.SubmittedAt, &o.ExpediedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if kind != nil {
		actor := scanActor(kind, user)
		o.ValidatedBy = &actor
	}
	return &o, nil
}

// Create inserta cabecera y líneas. Asigna IDs y fechas en las entidades.
func (r *PurchaseOrderRepo) Create(ctx context.Context, order *entity.PurchaseOrder, lines []*entity.PurchaseOrderLine) error {
	const query = `
		INSERT INTO purchase_orders (number, salesperson_id, chargement_type_id, status, remark)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	err := r.q.QueryRow(ctx, query,
		order.Number, order.SalespersonID, order.ChargementTypeID, order.Status, order.Remark,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert purchase order: %w", err)
	}

	const lineQuery = `
		INSERT INTO purchase_order_lines (order_id, product_id, qte)
		VALUES ($1, $2, $3)
		RETURNING id`
	for _, l := range lines {
		l.OrderID = order.ID
		if err := r.q.QueryRow(ctx, lineQuery, l.OrderID, l.ProductID, l.Qte).Scan(&l.ID); err != nil {
			return fmt.Errorf("insert purchase order line: %w", err)
		}
	}
	return nil
}

// NextNumber siguiente valor de la secuencia de numeración.
func (r *PurchaseOrderRepo) NextNumber(ctx context.Context) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, `SELECT nextval('purchase_order_number_seq')`).Scan(&n); err != nil {
		return 0, fmt.Errorf("next purchase order number: %w", err)
	}
	return n, nil
}

// GetByID obtiene un pedido por ID. (nil, nil) si no existe.
func (r *PurchaseOrderRepo) GetByID(ctx context.Context, id int64) (*entity.PurchaseOrder, error) {
	query := `SELECT ` + purchaseOrderColumns + ` FROM purchase_orders WHERE id = $1`
	o, err := scanPurchaseOrder(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get purchase order: %w", err)
	}
	return o, nil
}

// GetLines devuelve las líneas del pedido ordenadas por id.
func (r *PurchaseOrderRepo) GetLines(ctx context.Context, orderID int64) ([]*entity.PurchaseOrderLine, error) {
	const query = `
		SELECT id, order_id, product_id, qte, qte_recue
		FROM purchase_order_lines WHERE order_id = $1 ORDER BY id`
	rows, err := r.q.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list purchase order lines: %w", err)
	}
	defer rows.Close()

	var out []*entity.PurchaseOrderLine
	for rows.Next() {
		var l entity.PurchaseOrderLine
		var recue *decimal.Decimal
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Qte, &recue); err != nil {
			return nil, fmt.Errorf("scan purchase order line: %w", err)
		}
		l.QteRecue = recue
		out = append(out, &l)
	}
	return out, rows.Err()
}

// ListByStatus pedidos en un estado, los más antiguos primero.
func (r *PurchaseOrderRepo) ListByStatus(ctx context.Context, status string, limit int) ([]*entity.PurchaseOrder, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + purchaseOrderColumns + `
		FROM purchase_orders WHERE status = $1
		ORDER BY submitted_at NULLS LAST, id
		LIMIT $2`
	rows, err := r.q.Query(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	defer rows.Close()

	var out []*entity.PurchaseOrder
	for rows.Next() {
		o, err := scanPurchaseOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// MarkSubmitted aplica non_valide → envoye_bc solo si el pedido sigue en non_valide y sin bc_id.
func (r *PurchaseOrderRepo) MarkSubmitted(ctx context.Context, id int64, sub entity.Submission) (bool, error) {
	kind, user := sub.ValidatedBy.Columns()
	const query = `
		UPDATE purchase_orders
		SET status            = $2,
		    bc_id             = $3,
		    bc_number         = $4,
		    bc_etag           = $5,
		    bc_status         = $6,
		    submitted_at      = $7,
		    validated_at      = $7,
		    validated_by_kind = $8,
		    validated_by_user = $9,
		    updated_at        = now()
		WHERE id = $1 AND status = $10 AND bc_id = ''`
	tag, err := r.q.Exec(ctx, query,
		id, entity.OrderStatusEnvoyeBC,
		sub.BCID, sub.BCNumber, sub.BCEtag, sub.BCStatus,
		sub.SubmittedAt, kind, user,
		entity.OrderStatusNonValide,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, domain.ErrDuplicate
		}
		return false, fmt.Errorf("mark purchase order submitted: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// TransitionStatus compare-and-swap del estado. Al pasar a expedie fija expedied_at.
func (r *PurchaseOrderRepo) TransitionStatus(ctx context.Context, id int64, from, to string) (bool, error) {
	const query = `
		UPDATE purchase_orders
		SET status      = $3,
		    expedied_at = CASE WHEN $3 = 'expedie' THEN now() ELSE expedied_at END,
		    updated_at  = now()
		WHERE id = $1 AND status = $2`
	tag, err := r.q.Exec(ctx, query, id, from, to)
	if err != nil {
		return false, fmt.Errorf("transition purchase order status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateRemoteStatus persiste los campos bc_* sin condición.
func (r *PurchaseOrderRepo) UpdateRemoteStatus(ctx context.Context, id int64, rs entity.RemoteStatus) error {
	const query = `
		UPDATE purchase_orders
		SET bc_etag            = $2,
		    bc_status          = $3,
		    bc_fully_shipped   = $4,
		    bc_shipment_number = $5,
		    bc_invoiced        = $6,
		    bc_invoice_number  = $7,
		    bc_last_modified   = $8,
		    updated_at         = now()
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, id,
		rs.BCEtag, rs.BCStatus, rs.BCFullyShipped, rs.BCShipmentNumber,
		rs.BCInvoiced, rs.BCInvoiceNumber, rs.BCLastModified,
	)
	if err != nil {
		return fmt.Errorf("update purchase order remote status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateLineQuantity fija la cantidad revisada en la validación.
func (r *PurchaseOrderRepo) UpdateLineQuantity(ctx context.Context, lineID int64, qte decimal.Decimal) error {
	_, err := r.q.Exec(ctx, `UPDATE purchase_order_lines SET qte = $2 WHERE id = $1`, lineID, qte)
	if err != nil {
		return fmt.Errorf("update purchase order line qte: %w", err)
	}
	return nil
}

// UpdateLineReceived fija la cantidad recibida observada en el ERP.
func (r *PurchaseOrderRepo) UpdateLineReceived(ctx context.Context, lineID int64, qteRecue decimal.Decimal) error {
	_, err := r.q.Exec(ctx, `UPDATE purchase_order_lines SET qte_recue = $2 WHERE id = $1`, lineID, qteRecue)
	if err != nil {
		return fmt.Errorf("update purchase order line qte_recue: %w", err)
	}
	return nil
}
