package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/bc-sync-api/internal/domain"
	"github.com/jhoicas/bc-sync-api/internal/domain/entity"
	"github.com/jhoicas/bc-sync-api/internal/domain/repository"
)

var (
	_ repository.PurchaseInvoiceRepository = (*PurchaseInvoiceRepo)(nil)
	_ repository.ReturnInvoiceRepository   = (*ReturnInvoiceRepo)(nil)
)

// PurchaseInvoiceRepo facturas materializadas (usable con pool o tx).
type PurchaseInvoiceRepo struct {
	q Querier
}

// NewPurchaseInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPurchaseInvoiceRepository(q Querier) *PurchaseInvoiceRepo {
	return &PurchaseInvoiceRepo{q: q}
}

// Create persiste cabecera y líneas. Debe ejecutarse dentro de una tx para que sea atómico.
func (r *PurchaseInvoiceRepo) Create(ctx context.Context, inv *entity.PurchaseInvoice) error {
	kind, user := inv.CreatedBy.Columns()
	const query = `
		INSERT INTO purchase_invoices
			(number, purchase_order_id, salesperson_id, bc_invoice_id, bc_invoice_number,
			 total_ht, total_tva, timbre, total_ttc, invoice_date, actor_kind, actor_user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`
	err := r.q.QueryRow(ctx, query,
		inv.Number, inv.PurchaseOrderID, inv.SalespersonID, inv.BCInvoiceID, inv.BCInvoiceNumber,
		inv.TotalHT, inv.TotalTVA, inv.Timbre, inv.TotalTTC, inv.InvoiceDate, kind, user,
	).Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert purchase invoice: %w", err)
	}

	const lineQuery = `
		INSERT INTO purchase_invoice_lines
			(invoice_id, product_id, quantity, unit_price, discount_amount, discount_percent,
			 tax_percent, amount_excluding_tax, tax_amount, amount_including_tax, matched)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`
	for i := range inv.Lines {
		l := &inv.Lines[i]
		l.InvoiceID = inv.ID
		err := r.q.QueryRow(ctx, lineQuery,
			l.InvoiceID, l.ProductID, l.Quantity, l.UnitPrice, l.DiscountAmount, l.DiscountPercent,
			l.TaxPercent, l.AmountExcludingTax, l.TaxAmount, l.AmountIncludingTax, l.Matched,
		).Scan(&l.ID)
		if err != nil {
			return fmt.Errorf("insert purchase invoice line: %w", err)
		}
	}
	return nil
}

const purchaseInvoiceColumns = `
	id, number, purchase_order_id, salesperson_id, bc_invoice_id, bc_invoice_number,
	total_ht, total_tva, timbre, total_ttc, invoice_date, actor_kind, actor_user_id, created_at`

// GetByID factura con líneas. (nil, nil) si no existe.
func (r *PurchaseInvoiceRepo) GetByID(ctx context.Context, id int64) (*entity.PurchaseInvoice, error) {
	return r.getOne(ctx, `SELECT `+purchaseInvoiceColumns+` FROM purchase_invoices WHERE id = $1`, id)
}

// GetByPurchaseOrderID factura del pedido con líneas. (nil, nil) si no existe.
func (r *PurchaseInvoiceRepo) GetByPurchaseOrderID(ctx context.Context, orderID int64) (*entity.PurchaseInvoice, error) {
	return r.getOne(ctx, `SELECT `+purchaseInvoiceColumns+` FROM purchase_invoices WHERE purchase_order_id = $1`, orderID)
}

// ExistsForOrder consulta ligera usada por la reconciliación.
func (r *PurchaseInvoiceRepo) ExistsForOrder(ctx context.Context, orderID int64) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM purchase_invoices WHERE purchase_order_id = $1)`, orderID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("purchase invoice exists: %w", err)
	}
	return exists, nil
}

func (r *PurchaseInvoiceRepo) getOne(ctx context.Context, query string, arg int64) (*entity.PurchaseInvoice, error) {
	var inv entity.PurchaseInvoice
	var kind, user *string
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&inv.ID, &inv.Number, &inv.PurchaseOrderID, &inv.SalespersonID, &inv.BCInvoiceID, &inv.BCInvoiceNumber,
		&inv.TotalHT, &inv.TotalTVA, &inv.Timbre, &inv.TotalTTC, &inv.InvoiceDate, &kind, &user, &inv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get purchase invoice: %w", err)
	}
	inv.CreatedBy = scanActor(kind, user)

	rows, err := r.q.Query(ctx, `
		SELECT id, invoice_id, product_id, quantity, unit_price, discount_amount, discount_percent,
		       tax_percent, amount_excluding_tax, tax_amount, amount_including_tax, matched
		FROM purchase_invoice_lines WHERE invoice_id = $1 ORDER BY id`, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("list purchase invoice lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l entity.PurchaseInvoiceLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.ProductID, &l.Quantity, &l.UnitPrice,
			&l.DiscountAmount, &l.DiscountPercent, &l.TaxPercent,
			&l.AmountExcludingTax, &l.TaxAmount, &l.AmountIncludingTax, &l.Matched); err != nil {
			return nil, fmt.Errorf("scan purchase invoice line: %w", err)
		}
		inv.Lines = append(inv.Lines, l)
	}
	return &inv, rows.Err()
}

// ReturnInvoiceRepo devoluciones (usable con pool o tx).
type ReturnInvoiceRepo struct {
	q Querier
}

// NewReturnInvoiceRepository construye el adaptador de devoluciones.
func NewReturnInvoiceRepository(q Querier) *ReturnInvoiceRepo {
	return &ReturnInvoiceRepo{q: q}
}

// Create persiste cabecera y líneas. domain.ErrDuplicate si el pedido ya tiene devolución.
func (r *ReturnInvoiceRepo) Create(ctx context.Context, ret *entity.ReturnInvoice) error {
	kind, user := ret.CreatedBy.Columns()
	const query = `
		INSERT INTO return_invoices
			(purchase_order_id, salesperson_id, bc_credit_memo_id, bc_credit_memo_no, reason, actor_kind, actor_user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	err := r.q.QueryRow(ctx, query,
		ret.PurchaseOrderID, ret.SalespersonID, ret.BCCreditMemoID, ret.BCCreditMemoNo, ret.Reason, kind, user,
	).Scan(&ret.ID, &ret.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert return invoice: %w", err)
	}
	for i := range ret.Lines {
		l := &ret.Lines[i]
		l.ReturnID = ret.ID
		err := r.q.QueryRow(ctx,
			`INSERT INTO return_invoice_lines (return_id, product_id, quantity) VALUES ($1, $2, $3) RETURNING id`,
			l.ReturnID, l.ProductID, l.Quantity,
		).Scan(&l.ID)
		if err != nil {
			return fmt.Errorf("insert return invoice line: %w", err)
		}
	}
	return nil
}

// GetByPurchaseOrderID devolución del pedido con líneas. (nil, nil) si no existe.
func (r *ReturnInvoiceRepo) GetByPurchaseOrderID(ctx context.Context, orderID int64) (*entity.ReturnInvoice, error) {
	var ret entity.ReturnInvoice
	var kind, user *string
	err := r.q.QueryRow(ctx, `
		SELECT id, purchase_order_id, salesperson_id, bc_credit_memo_id, bc_credit_memo_no, reason,
		       actor_kind, actor_user_id, created_at
		FROM return_invoices WHERE purchase_order_id = $1`, orderID,
	).Scan(&ret.ID, &ret.PurchaseOrderID, &ret.SalespersonID, &ret.BCCreditMemoID, &ret.BCCreditMemoNo,
		&ret.Reason, &kind, &user, &ret.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get return invoice: %w", err)
	}
	ret.CreatedBy = scanActor(kind, user)

	rows, err := r.q.Query(ctx,
		`SELECT id, return_id, product_id, quantity FROM return_invoice_lines WHERE return_id = $1 ORDER BY id`, ret.ID)
	if err != nil {
		return nil, fmt.Errorf("list return invoice lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l entity.ReturnInvoiceLine
		if err := rows.Scan(&l.ID, &l.ReturnID, &l.ProductID, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scan return invoice line: %w", err)
		}
		ret.Lines = append(ret.Lines, l)
	}
	return &ret, rows.Err()
}
