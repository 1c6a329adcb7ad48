package inventory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/bc-sync-api/internal/domain"
	"github.com/jhoicas/bc-sync-api/internal/domain/entity"
	"github.com/jhoicas/bc-sync-api/internal/domain/repository"
)

// Movement movimiento de stock a aplicar sobre el saldo de un comercial.
type Movement struct {
	ProductID     int64
	SalespersonID int64
	Quantity      decimal.Decimal
	Source        entity.StockSource
	Actor         entity.Actor
}

func (m Movement) validate() error {
	if m.ProductID <= 0 || m.SalespersonID <= 0 {
		return fmt.Errorf("%w: producto y comercial son obligatorios", domain.ErrInvalidInput)
	}
	if !m.Quantity.GreaterThan(decimal.Zero) {
		return fmt.Errorf("%w: la cantidad debe ser positiva", domain.ErrInvalidInput)
	}
	if !m.Source.Valid() {
		return fmt.Errorf("%w: documento de origen inválido", domain.ErrInvalidInput)
	}
	return nil
}

// StockLedger aplica movimientos sobre saldo + libro usando los repos de la tx del llamador.
// Nunca abre transacciones propias.
type StockLedger struct {
	log zerolog.Logger
}

// NewStockLedger construye el ledger.
func NewStockLedger(log zerolog.Logger) *StockLedger {
	return &StockLedger{log: log.With().Str("component", "stock_ledger").Logger()}
}

// CreditInTx suma la cantidad al saldo (upsert atómico) y registra una entrée.
func (l *StockLedger) CreditInTx(
	ctx context.Context,
	stockRepo repository.StockRepository,
	txnRepo repository.StockTransactionRepository,
	m Movement,
) (*entity.StockTotal, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	total, err := stockRepo.Increment(ctx, m.ProductID, m.SalespersonID, m.Quantity)
	if err != nil {
		return nil, err
	}
	if err := txnRepo.Create(ctx, &entity.StockTransaction{
		ProductID:     m.ProductID,
		SalespersonID: m.SalespersonID,
		Type:          entity.StockTransactionEntree,
		Quantity:      m.Quantity,
		Source:        m.Source,
		CreatedBy:     m.Actor,
	}); err != nil {
		return nil, err
	}
	return total, nil
}

// DebitInTx resta la cantidad recortando el saldo en cero. El movimiento registra
// siempre la cantidad solicitada completa.
func (l *StockLedger) DebitInTx(
	ctx context.Context,
	stockRepo repository.StockRepository,
	txnRepo repository.StockTransactionRepository,
	m Movement,
) (*entity.StockTotal, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	before, err := stockRepo.Get(ctx, m.ProductID, m.SalespersonID)
	if err != nil {
		return nil, err
	}
	if before.TotalStock.LessThan(m.Quantity) {
		l.log.Warn().
			Int64("product_id", m.ProductID).Int64("salesperson_id", m.SalespersonID).
			Str("available", before.TotalStock.String()).Str("requested", m.Quantity.String()).
			Str("source", m.Source.Type).Int64("source_id", m.Source.ID).
			Msg("salida mayor que el saldo, se recorta en cero")
	}
	total, err := stockRepo.Decrement(ctx, m.ProductID, m.SalespersonID, m.Quantity)
	if err != nil {
		return nil, err
	}
	if err := txnRepo.Create(ctx, &entity.StockTransaction{
		ProductID:     m.ProductID,
		SalespersonID: m.SalespersonID,
		Type:          entity.StockTransactionSortie,
		Quantity:      m.Quantity,
		Source:        m.Source,
		CreatedBy:     m.Actor,
	}); err != nil {
		return nil, err
	}
	return total, nil
}
