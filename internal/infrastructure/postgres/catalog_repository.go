package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/bc-sync-api/internal/domain/entity"
	"github.com/jhoicas/bc-sync-api/internal/domain/repository"
)

var (
	_ repository.ProductRepository        = (*ProductRepo)(nil)
	_ repository.SalespersonRepository    = (*SalespersonRepo)(nil)
	_ repository.ChargementTypeRepository = (*ChargementTypeRepo)(nil)
)

// ProductRepo lectura de productos (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de productos.
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

const productColumns = `id, reference, name, bc_item_number, bc_item_id, created_at, updated_at`

// GetByID obtiene un producto por ID. (nil, nil) si no existe.
func (r *ProductRepo) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	var p entity.Product
	err := r.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id).Scan(
		&p.ID, &p.Reference, &p.Name, &p.BCItemNumber, &p.BCItemID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// GetByIDs carga varios productos en una sola consulta.
func (r *ProductRepo) GetByIDs(ctx context.Context, ids []int64) (map[int64]*entity.Product, error) {
	out := make(map[int64]*entity.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.q.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p entity.Product
		if err := rows.Scan(&p.ID, &p.Reference, &p.Name, &p.BCItemNumber, &p.BCItemID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out[p.ID] = &p
	}
	return out, rows.Err()
}

// SalespersonRepo lectura de comerciales.
type SalespersonRepo struct {
	q Querier
}

// NewSalespersonRepository construye el adaptador de comerciales.
func NewSalespersonRepository(q Querier) *SalespersonRepo {
	return &SalespersonRepo{q: q}
}

// GetByID obtiene un comercial. (nil, nil) si no existe.
func (r *SalespersonRepo) GetByID(ctx context.Context, id int64) (*entity.Salesperson, error) {
	var s entity.Salesperson
	err := r.q.QueryRow(ctx,
		`SELECT id, name, bc_customer_number FROM salespersons WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.BCCustomerNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get salesperson: %w", err)
	}
	return &s, nil
}

// ChargementTypeRepo lectura de plantillas de carga.
type ChargementTypeRepo struct {
	q Querier
}

// NewChargementTypeRepository construye el adaptador de plantillas de carga.
func NewChargementTypeRepository(q Querier) *ChargementTypeRepo {
	return &ChargementTypeRepo{q: q}
}

// GetByID obtiene la plantilla con sus excepciones por producto. (nil, nil) si no existe.
func (r *ChargementTypeRepo) GetByID(ctx context.Context, id int64) (*entity.ChargementType, error) {
	var ct entity.ChargementType
	err := r.q.QueryRow(ctx,
		`SELECT id, name, bc_location_id FROM chargement_types WHERE id = $1`, id,
	).Scan(&ct.ID, &ct.Name, &ct.BCLocationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chargement type: %w", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT product_id, bc_location_id
		FROM chargement_type_items WHERE chargement_type_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("list chargement type items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.ChargementTypeItem
		if err := rows.Scan(&it.ProductID, &it.BCLocationID); err != nil {
			return nil, fmt.Errorf("scan chargement type item: %w", err)
		}
		ct.Items = append(ct.Items, it)
	}
	return &ct, rows.Err()
}
