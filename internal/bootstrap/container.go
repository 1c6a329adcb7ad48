// Package bootstrap arma el grafo de dependencias compartido por cmd/api y cmd/reconcile.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/bc-sync-api/internal/application/billing"
	"github.com/jhoicas/bc-sync-api/internal/application/inventory"
	"github.com/jhoicas/bc-sync-api/internal/application/purchasing"
	"github.com/jhoicas/bc-sync-api/internal/infrastructure/businesscentral"
	infrapdf "github.com/jhoicas/bc-sync-api/internal/infrastructure/pdf"
	"github.com/jhoicas/bc-sync-api/internal/infrastructure/postgres"
	"github.com/jhoicas/bc-sync-api/internal/infrastructure/redislock"
	"github.com/jhoicas/bc-sync-api/pkg/config"
	"github.com/jhoicas/bc-sync-api/pkg/logger"
)

// Container casos de uso listos para usar y los recursos que hay que cerrar.
type Container struct {
	PurchaseOrders   *purchasing.PurchaseOrderUseCase
	PurchaseInvoices *billing.PurchaseInvoiceUseCase
	Stock            *inventory.StockUseCase
	BC               *businesscentral.Client

	pool  *pgxpool.Pool
	redis *redis.Client
}

// New conecta PostgreSQL (y Redis si está configurado) y construye los casos de uso.
// Redis es opcional: si no responde se sigue sin lock distribuido.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	c := &Container{pool: pool}

	orderRepo := postgres.NewPurchaseOrderRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	salespersonRepo := postgres.NewSalespersonRepository(pool)
	chargementRepo := postgres.NewChargementTypeRepository(pool)
	stockRepo := postgres.NewStockRepository(pool)
	txnRepo := postgres.NewStockTransactionRepository(pool)
	invoiceRepo := postgres.NewPurchaseInvoiceRepository(pool)
	returnRepo := postgres.NewReturnInvoiceRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	c.BC = businesscentral.NewClient(businesscentral.Config{
		TenantID:     cfg.BC.TenantID,
		ClientID:     cfg.BC.ClientID,
		ClientSecret: cfg.BC.ClientSecret,
		Environment:  cfg.BC.Environment,
		CompanyName:  cfg.BC.CompanyName,
		CompanyID:    cfg.BC.CompanyID,
		APIHost:      cfg.BC.APIHost,
		LoginHost:    cfg.BC.LoginHost,
		Timeout:      cfg.BC.Timeout,
		MaxAttempts:  cfg.BC.MaxAttempts,
	}, businesscentral.WithLogger(log.Component("businesscentral")))
	if !c.BC.Configured() {
		log.Warn().Msg("Business Central sin credenciales: las operaciones remotas responderán 503")
	}

	var locker purchasing.OrderLocker
	if cfg.Redis.Enabled() {
		rdb, err := redislock.Connect(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn().Err(err).Msg("redis no disponible, reconciliación sin lock distribuido")
		} else {
			c.redis = rdb
			locker = redislock.New(rdb, cfg.Reconcile.LockTTL, log.Zerolog())
		}
	}

	ledger := inventory.NewStockLedger(log.Component("stock-ledger"))

	c.PurchaseOrders = purchasing.NewPurchaseOrderUseCase(purchasing.Deps{
		Orders:          orderRepo,
		Products:        productRepo,
		Salespersons:    salespersonRepo,
		ChargementTypes: chargementRepo,
		Invoices:        invoiceRepo,
		Returns:         returnRepo,
		TxRunner:        txRunner,
		Gateway:         c.BC,
		Locker:          locker,
		Ledger:          ledger,
		Logger:          log.Component("purchasing"),
	}, purchasing.Config{
		DefaultLocationID: cfg.BC.DefaultLocationID,
		CompensateOrphans: cfg.BC.CompensateOrphans,
		FiscalStamp:       cfg.Invoice.FiscalStamp,
		InvoicePrefix:     cfg.Invoice.NumberPrefix,
	})

	c.Stock = inventory.NewStockUseCase(txRunner, ledger, stockRepo, txnRepo, productRepo, salespersonRepo, log.Component("stock"))

	c.PurchaseInvoices = billing.NewPurchaseInvoiceUseCase(
		invoiceRepo, orderRepo, salespersonRepo, productRepo,
		infrapdf.NewMarotoPDFGenerator(cfg.App.Name),
	)

	return c, nil
}

// Close libera el pool y el cliente Redis.
func (c *Container) Close() {
	if c.redis != nil {
		_ = c.redis.Close()
	}
	c.pool.Close()
}
