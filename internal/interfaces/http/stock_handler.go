package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/bc-sync-api/internal/application/dto"
	"github.com/jhoicas/bc-sync-api/internal/domain/entity"
)

type stockService interface {
	Get(ctx context.Context, productID, salespersonID int64) (*dto.StockTotalResponse, error)
	LookupBatch(ctx context.Context, in dto.StockLookupRequest) ([]dto.StockTotalResponse, error)
	ListTransactions(ctx context.Context, q dto.StockQuery, page dto.PageRequest) (*dto.StockTransactionListResponse, error)
	RegisterOut(ctx context.Context, in dto.StockOutRequest, actor entity.Actor) (*dto.StockTotalResponse, error)
}

// StockHandler saldos y movimientos del stock por comercial (protegido).
type StockHandler struct {
	uc  stockService
	log zerolog.Logger
}

// NewStockHandler construye el handler.
func NewStockHandler(uc stockService, log zerolog.Logger) *StockHandler {
	return &StockHandler{uc: uc, log: log}
}

func forbiddenStock(c *fiber.Ctx) error {
	return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "stock de otro comercial"})
}

// Get saldo de un producto para un comercial.
// GET /api/stock?product_id=&salesperson_id=
func (h *StockHandler) Get(c *fiber.Ctx) error {
	var q dto.StockQuery
	if ok, err := parseQuery(c, &q); !ok {
		return err
	}
	if !ownsSalesperson(c, q.SalespersonID) {
		return forbiddenStock(c)
	}
	total, err := h.uc.Get(c.UserContext(), q.ProductID, q.SalespersonID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(total)
}

// Lookup saldos de varios pares (producto, comercial) en una sola llamada.
// POST /api/stock/lookup
func (h *StockHandler) Lookup(c *fiber.Ctx) error {
	var in dto.StockLookupRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	for _, it := range in.Items {
		if !ownsSalesperson(c, it.SalespersonID) {
			return forbiddenStock(c)
		}
	}
	items, err := h.uc.LookupBatch(c.UserContext(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"items": items})
}

// RegisterOut registra una salida por venta o nota de entrega.
// POST /api/stock/out
func (h *StockHandler) RegisterOut(c *fiber.Ctx) error {
	var in dto.StockOutRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	if !ownsSalesperson(c, in.SalespersonID) {
		return forbiddenStock(c)
	}
	total, err := h.uc.RegisterOut(c.UserContext(), in, actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(total)
}

// ListTransactions movimientos de un producto para un comercial, más recientes primero.
// GET /api/stock/transactions?product_id=&salesperson_id=&limit=&offset=
func (h *StockHandler) ListTransactions(c *fiber.Ctx) error {
	var q dto.StockQuery
	if ok, err := parseQuery(c, &q); !ok {
		return err
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "paginación inválida"})
	}
	page.DefaultPage()
	if ok, err := checkStruct(c, &page); !ok {
		return err
	}
	if !ownsSalesperson(c, q.SalespersonID) {
		return forbiddenStock(c)
	}
	list, err := h.uc.ListTransactions(c.UserContext(), q, page)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(list)
}
