package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockTotal saldo materializado por (producto, comercial). Nunca negativo.
type StockTotal struct {
	ProductID     int64
	SalespersonID int64
	TotalStock    decimal.Decimal
	UpdatedAt     time.Time
}
