package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockQuery parámetros de GET /api/stock y GET /api/stock/transactions.
type StockQuery struct {
	ProductID     int64 `query:"product_id" validate:"required,gt=0"`
	SalespersonID int64 `query:"salesperson_id" validate:"required,gt=0"`
}

// StockKeyRequest par (producto, comercial) de una consulta por lote.
type StockKeyRequest struct {
	ProductID     int64 `json:"product_id" validate:"required,gt=0"`
	SalespersonID int64 `json:"salesperson_id" validate:"required,gt=0"`
}

// StockLookupRequest body para POST /api/stock/lookup.
type StockLookupRequest struct {
	Items []StockKeyRequest `json:"items" validate:"required,min=1,max=200,dive"`
}

// StockOutRequest body para POST /api/stock/out (venta o nota de entrega).
type StockOutRequest struct {
	ProductID     int64           `json:"product_id" validate:"required,gt=0"`
	SalespersonID int64           `json:"salesperson_id" validate:"required,gt=0"`
	Quantity      decimal.Decimal `json:"quantity"`
	SourceType    string          `json:"source_type" validate:"required,oneof=sale delivery_note"`
	SourceID      int64           `json:"source_id" validate:"required,gt=0"`
}

// StockTotalResponse saldo de un comercial para un producto.
type StockTotalResponse struct {
	ProductID     int64           `json:"product_id"`
	SalespersonID int64           `json:"salesperson_id"`
	TotalStock    decimal.Decimal `json:"total_stock"`
	UpdatedAt     *time.Time      `json:"updated_at,omitempty"`
}

// StockTransactionResponse asiento del libro de stock.
type StockTransactionResponse struct {
	ID            int64           `json:"id"`
	ProductID     int64           `json:"product_id"`
	SalespersonID int64           `json:"salesperson_id"`
	Type          string          `json:"type"`
	Quantity      decimal.Decimal `json:"quantity"`
	SourceType    string          `json:"source_type"`
	SourceID      int64           `json:"source_id"`
	CreatedBy     string          `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

// StockTransactionListResponse lista paginada de movimientos.
type StockTransactionListResponse struct {
	Items []StockTransactionResponse `json:"items"`
	Page  PageResponse               `json:"page"`
}
