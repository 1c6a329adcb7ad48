package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/bc-sync-api/internal/application/dto"
	"github.com/jhoicas/bc-sync-api/internal/domain"
	"github.com/jhoicas/bc-sync-api/internal/domain/entity"
	"github.com/jhoicas/bc-sync-api/internal/domain/repository"
)

// lookupConcurrency lecturas simultáneas máximas en una consulta por lote.
const lookupConcurrency = 8

// StockUseCase consultas de saldo y salidas manuales (venta, nota de entrega).
type StockUseCase struct {
	txRunner        TxRunner
	ledger          *StockLedger
	stockRepo       repository.StockRepository
	txnRepo         repository.StockTransactionRepository
	productRepo     repository.ProductRepository
	salespersonRepo repository.SalespersonRepository
	log             zerolog.Logger
}

// NewStockUseCase construye el caso de uso. stockRepo y txnRepo son los de lectura (pool).
func NewStockUseCase(
	txRunner TxRunner,
	ledger *StockLedger,
	stockRepo repository.StockRepository,
	txnRepo repository.StockTransactionRepository,
	productRepo repository.ProductRepository,
	salespersonRepo repository.SalespersonRepository,
	log zerolog.Logger,
) *StockUseCase {
	return &StockUseCase{
		txRunner:        txRunner,
		ledger:          ledger,
		stockRepo:       stockRepo,
		txnRepo:         txnRepo,
		productRepo:     productRepo,
		salespersonRepo: salespersonRepo,
		log:             log,
	}
}

// Get saldo de un comercial para un producto (cero si nunca tuvo movimientos).
func (uc *StockUseCase) Get(ctx context.Context, productID, salespersonID int64) (*dto.StockTotalResponse, error) {
	total, err := uc.stockRepo.Get(ctx, productID, salespersonID)
	if err != nil {
		return nil, err
	}
	return toStockTotalResponse(total), nil
}

// LookupBatch consulta varios saldos en paralelo (máximo lookupConcurrency a la vez).
// El resultado respeta el orden de la petición; el primer error cancela el resto.
func (uc *StockUseCase) LookupBatch(ctx context.Context, in dto.StockLookupRequest) ([]dto.StockTotalResponse, error) {
	out := make([]dto.StockTotalResponse, len(in.Items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)
	for i, key := range in.Items {
		g.Go(func() error {
			total, err := uc.stockRepo.Get(gctx, key.ProductID, key.SalespersonID)
			if err != nil {
				return fmt.Errorf("stock %d/%d: %w", key.ProductID, key.SalespersonID, err)
			}
			out[i] = *toStockTotalResponse(total)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTransactions movimientos de un (producto, comercial), más recientes primero.
func (uc *StockUseCase) ListTransactions(ctx context.Context, q dto.StockQuery, page dto.PageRequest) (*dto.StockTransactionListResponse, error) {
	page.DefaultPage()
	// una fila extra para saber si hay página siguiente
	txns, err := uc.txnRepo.ListByProductAndSalesperson(ctx, q.ProductID, q.SalespersonID, page.Limit+1, page.Offset)
	if err != nil {
		return nil, err
	}
	hasMore := len(txns) > page.Limit
	if hasMore {
		txns = txns[:page.Limit]
	}
	items := make([]dto.StockTransactionResponse, 0, len(txns))
	for _, t := range txns {
		items = append(items, ToStockTransactionResponse(t))
	}
	return &dto.StockTransactionListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, HasMore: hasMore},
	}, nil
}

// RegisterOut registra una salida por venta o nota de entrega.
func (uc *StockUseCase) RegisterOut(ctx context.Context, in dto.StockOutRequest, actor entity.Actor) (*dto.StockTotalResponse, error) {
	if !in.Quantity.GreaterThan(decimal.Zero) {
		return nil, fmt.Errorf("%w: la cantidad debe ser positiva", domain.ErrInvalidInput)
	}
	if in.SourceType != entity.SourceSale && in.SourceType != entity.SourceDeliveryNote {
		return nil, fmt.Errorf("%w: origen %q no admitido", domain.ErrInvalidInput, in.SourceType)
	}
	product, err := uc.productRepo.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	sp, err := uc.salespersonRepo.GetByID(ctx, in.SalespersonID)
	if err != nil {
		return nil, err
	}
	if sp == nil {
		return nil, domain.ErrNotFound
	}

	var (
		total   *entity.StockTotal
		clamped bool
	)
	err = uc.txRunner.Run(ctx, func(
		stockRepo repository.StockRepository,
		txnRepo repository.StockTransactionRepository,
	) error {
		before, err := stockRepo.Get(ctx, in.ProductID, in.SalespersonID)
		if err != nil {
			return err
		}
		clamped = before.TotalStock.LessThan(in.Quantity)
		total, err = uc.ledger.DebitInTx(ctx, stockRepo, txnRepo, Movement{
			ProductID:     in.ProductID,
			SalespersonID: in.SalespersonID,
			Quantity:      in.Quantity,
			Source:        entity.StockSource{Type: in.SourceType, ID: in.SourceID},
			Actor:         actor,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	ev := uc.log.Info()
	if clamped {
		ev = uc.log.Warn()
	}
	ev.Int64("product_id", in.ProductID).Int64("salesperson_id", in.SalespersonID).
		Str("quantity", in.Quantity.String()).Str("source", in.SourceType).Int64("source_id", in.SourceID).
		Bool("clamped", clamped).Str("total_stock", total.TotalStock.String()).
		Msg("salida de stock registrada")
	return toStockTotalResponse(total), nil
}

func toStockTotalResponse(s *entity.StockTotal) *dto.StockTotalResponse {
	resp := &dto.StockTotalResponse{
		ProductID:     s.ProductID,
		SalespersonID: s.SalespersonID,
		TotalStock:    s.TotalStock,
	}
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		resp.UpdatedAt = &t
	}
	return resp
}

// ToStockTransactionResponse convierte un asiento del libro a su DTO.
func ToStockTransactionResponse(t *entity.StockTransaction) dto.StockTransactionResponse {
	return dto.StockTransactionResponse{
		ID:            t.ID,
		ProductID:     t.ProductID,
		SalespersonID: t.SalespersonID,
		Type:          t.Type,
		Quantity:      t.Quantity,
		SourceType:    t.Source.Type,
		SourceID:      t.Source.ID,
		CreatedBy:     t.CreatedBy.String(),
		CreatedAt:     t.CreatedAt.In(time.UTC),
	}
}
