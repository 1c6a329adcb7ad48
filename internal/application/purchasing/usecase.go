package purchasing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/bc-sync-api/internal/application/dto"
	"github.com/jhoicas/bc-sync-api/internal/application/inventory"
	"github.com/jhoicas/bc-sync-api/internal/domain"
	"github.com/jhoicas/bc-sync-api/internal/domain/entity"
	"github.com/jhoicas/bc-sync-api/internal/domain/repository"
)

// Config parámetros del flujo de compras.
type Config struct {
	// DefaultLocationID ubicación del ERP cuando la plantilla de carga no define una.
	DefaultLocationID string
	// CompensateOrphans borra la cabecera remota si todas las líneas fallaron.
	CompensateOrphans bool
	// FiscalStamp timbre fiscal sumado al total con impuestos de la factura.
	FiscalStamp decimal.Decimal
	// InvoicePrefix prefijo del número local de factura.
	InvoicePrefix string
}

// Deps dependencias del caso de uso. Los repos son los de lectura (pool); las escrituras
// pasan siempre por TxRunner.
type Deps struct {
	Orders          repository.PurchaseOrderRepository
	Products        repository.ProductRepository
	Salespersons    repository.SalespersonRepository
	ChargementTypes repository.ChargementTypeRepository
	Invoices        repository.PurchaseInvoiceRepository
	Returns         repository.ReturnInvoiceRepository
	TxRunner        TxRunner
	Gateway         ERPGateway
	Locker          OrderLocker // opcional
	Ledger          *inventory.StockLedger
	Logger          zerolog.Logger
}

// PurchaseOrderUseCase ciclo de vida del pedido de compra y su sincronización con Business Central.
type PurchaseOrderUseCase struct {
	orders          repository.PurchaseOrderRepository
	products        repository.ProductRepository
	salespersons    repository.SalespersonRepository
	chargementTypes repository.ChargementTypeRepository
	invoices        repository.PurchaseInvoiceRepository
	returns         repository.ReturnInvoiceRepository
	txRunner        TxRunner
	gateway         ERPGateway
	locker          OrderLocker
	ledger          *inventory.StockLedger
	cfg             Config
	log             zerolog.Logger
	now             func() time.Time
}

// NewPurchaseOrderUseCase construye el caso de uso.
func NewPurchaseOrderUseCase(deps Deps, cfg Config) *PurchaseOrderUseCase {
	if cfg.InvoicePrefix == "" {
		cfg.InvoicePrefix = "FA"
	}
	ledger := deps.Ledger
	if ledger == nil {
		ledger = inventory.NewStockLedger(deps.Logger)
	}
	return &PurchaseOrderUseCase{
		orders:          deps.Orders,
		products:        deps.Products,
		salespersons:    deps.Salespersons,
		chargementTypes: deps.ChargementTypes,
		invoices:        deps.Invoices,
		returns:         deps.Returns,
		txRunner:        deps.TxRunner,
		gateway:         deps.Gateway,
		locker:          deps.Locker,
		ledger:          ledger,
		cfg:             cfg,
		log:             deps.Logger.With().Str("component", "purchasing").Logger(),
		now:             time.Now,
	}
}

// loadOrder obtiene el pedido o domain.ErrNotFound.
func (uc *PurchaseOrderUseCase) loadOrder(ctx context.Context, id int64) (*entity.PurchaseOrder, error) {
	order, err := uc.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: pedido %d", domain.ErrNotFound, id)
	}
	return order, nil
}

// CreateOrder crea un pedido en non_valide.
func (uc *PurchaseOrderUseCase) CreateOrder(ctx context.Context, in dto.CreatePurchaseOrderRequest, actor entity.Actor) (*dto.PurchaseOrderResponse, error) {
	if len(in.Lines) == 0 {
		return nil, fmt.Errorf("%w: el pedido no tiene líneas", domain.ErrInvalidInput)
	}
	productIDs := make([]int64, 0, len(in.Lines))
	for _, l := range in.Lines {
		if !l.Qte.GreaterThan(decimal.Zero) {
			return nil, fmt.Errorf("%w: cantidad del producto %d debe ser positiva", domain.ErrInvalidInput, l.ProductID)
		}
		productIDs = append(productIDs, l.ProductID)
	}

	sp, err := uc.salespersons.GetByID(ctx, in.SalespersonID)
	if err != nil {
		return nil, err
	}
	if sp == nil {
		return nil, fmt.Errorf("%w: comercial %d", domain.ErrNotFound, in.SalespersonID)
	}
	if in.ChargementTypeID != nil {
		ct, err := uc.chargementTypes.GetByID(ctx, *in.ChargementTypeID)
		if err != nil {
			return nil, err
		}
		if ct == nil {
			return nil, fmt.Errorf("%w: tipo de carga %d", domain.ErrNotFound, *in.ChargementTypeID)
		}
	}
	products, err := uc.products.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range productIDs {
		if products[id] == nil {
			return nil, fmt.Errorf("%w: producto %d", domain.ErrNotFound, id)
		}
	}

	number := in.Number
	if number == "" {
		seq, err := uc.orders.NextNumber(ctx)
		if err != nil {
			return nil, err
		}
		number = fmt.Sprintf("BC-%s-%04d", uc.now().Format("20060102"), seq)
	}

	order := &entity.PurchaseOrder{
		Number:           number,
		SalespersonID:    in.SalespersonID,
		ChargementTypeID: in.ChargementTypeID,
		Status:           entity.OrderStatusNonValide,
		Remark:           in.Remark,
	}
	lines := make([]*entity.PurchaseOrderLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, &entity.PurchaseOrderLine{ProductID: l.ProductID, Qte: l.Qte})
	}
	err = uc.txRunner.RunPurchasing(ctx, func(
		orderRepo repository.PurchaseOrderRepository,
		_ repository.StockRepository,
		_ repository.StockTransactionRepository,
		_ repository.PurchaseInvoiceRepository,
		_ repository.ReturnInvoiceRepository,
	) error {
		return orderRepo.Create(ctx, order, lines)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Int64("order_id", order.ID).Str("number", order.Number).Str("actor", actor.String()).
		Msg("pedido de compra creado")
	return ToPurchaseOrderResponse(order, lines), nil
}

// GetOrder pedido con sus líneas.
func (uc *PurchaseOrderUseCase) GetOrder(ctx context.Context, id int64) (*dto.PurchaseOrderResponse, error) {
	order, err := uc.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	lines, err := uc.orders.GetLines(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToPurchaseOrderResponse(order, lines), nil
}
