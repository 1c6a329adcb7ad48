package repository

import (
	"context"

	"github.com/jhoicas/bc-sync-api/internal/domain/entity"
)

// ProductRepository consulta de productos y su vínculo con el ERP.
type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Product, error)
	// GetByIDs devuelve los productos encontrados indexados por id (los ausentes no figuran).
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*entity.Product, error)
}

// SalespersonRepository consulta de comerciales.
type SalespersonRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Salesperson, error)
}

// ChargementTypeRepository consulta de plantillas de carga con sus excepciones por producto.
type ChargementTypeRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.ChargementType, error)
}
