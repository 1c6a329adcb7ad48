package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/bc-sync-api/internal/application/dto"
	"github.com/jhoicas/bc-sync-api/internal/application/purchasing"
	"github.com/jhoicas/bc-sync-api/internal/domain/entity"
	"github.com/jhoicas/bc-sync-api/internal/domain/erp"
)

// purchaseOrderService lo que el handler necesita del caso de uso de compras.
type purchaseOrderService interface {
	CreateOrder(ctx context.Context, in dto.CreatePurchaseOrderRequest, actor entity.Actor) (*dto.PurchaseOrderResponse, error)
	GetOrder(ctx context.Context, id int64) (*dto.PurchaseOrderResponse, error)
	Validate(ctx context.Context, orderID int64, in dto.ValidatePurchaseOrderRequest, actor entity.Actor) (*purchasing.SubmissionResult, error)
	MarkAsExpedie(ctx context.Context, orderID int64, actor entity.Actor) (*purchasing.ExpedieResult, error)
	FetchStatus(ctx context.Context, orderID int64) (*erp.Snapshot, error)
	RefreshStatus(ctx context.Context, orderID int64, actor entity.Actor) (*purchasing.RefreshResult, error)
	CreateReturn(ctx context.Context, orderID int64, in dto.CreateReturnRequest, actor entity.Actor) (*entity.ReturnInvoice, error)
}

// PurchaseOrderHandler maneja las peticiones HTTP de pedidos de compra (protegido).
type PurchaseOrderHandler struct {
	uc  purchaseOrderService
	log zerolog.Logger
}

// NewPurchaseOrderHandler construye el handler.
func NewPurchaseOrderHandler(uc purchaseOrderService, log zerolog.Logger) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{uc: uc, log: log}
}

// Create crea un pedido en non_valide.
// POST /api/purchase-orders
func (h *PurchaseOrderHandler) Create(c *fiber.Ctx) error {
	var in dto.CreatePurchaseOrderRequest
	if isCommercial(c) {
		// se rellena antes de validar: el comercial puede omitir su propio id
		in.SalespersonID = GetSalespersonID(c)
	}
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	if !ownsSalesperson(c, in.SalespersonID) {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "solo puede crear pedidos propios"})
	}
	order, err := h.uc.CreateOrder(c.UserContext(), in, actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

// GetByID obtiene un pedido con sus líneas.
// GET /api/purchase-orders/:id
func (h *PurchaseOrderHandler) GetByID(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id inválido"})
	}
	order, err := h.uc.GetOrder(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if !ownsSalesperson(c, order.SalespersonID) {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "pedido de otro comercial"})
	}
	return c.JSON(order)
}

// Validate revisa cantidades y envía el pedido a Business Central.
// POST /api/purchase-orders/:id/validate
func (h *PurchaseOrderHandler) Validate(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id inválido"})
	}
	var in dto.ValidatePurchaseOrderRequest
	if len(c.Body()) > 0 {
		if ok, err := parseBody(c, &in); !ok {
			return err
		}
	}
	res, err := h.uc.Validate(c.UserContext(), id, in, actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(purchasing.ToSubmissionResponse(res))
}

// MarkAsExpedie acredita el stock del comercial y pasa el pedido a expedie.
// POST /api/purchase-orders/:id/mark-as-expedie
func (h *PurchaseOrderHandler) MarkAsExpedie(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id inválido"})
	}
	res, err := h.uc.MarkAsExpedie(c.UserContext(), id, actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(purchasing.ToMarkExpedieResponse(res))
}

// BCStatus lee el estado remoto y lo aplica localmente.
// GET /api/purchase-orders/:id/bc-status
func (h *PurchaseOrderHandler) BCStatus(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id inválido"})
	}
	res, err := h.uc.RefreshStatus(c.UserContext(), id, actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(purchasing.ToBCStatusResponse(id, res.Snapshot, res.Reconcile))
}

// BCStatusPreview solo lectura del estado remoto, sin tocar la base.
// GET /api/purchase-orders/:id/bc-status/preview
func (h *PurchaseOrderHandler) BCStatusPreview(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id inválido"})
	}
	if isCommercial(c) {
		order, err := h.uc.GetOrder(c.UserContext(), id)
		if err != nil {
			return writeError(c, h.log, err)
		}
		if !ownsSalesperson(c, order.SalespersonID) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "pedido de otro comercial"})
		}
	}
	snap, err := h.uc.FetchStatus(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(purchasing.ToBCStatusResponse(id, snap, nil))
}

// CreateReturn devuelve mercancía de un pedido expedido (nota de crédito en el ERP).
// POST /api/purchase-orders/:id/returns
func (h *PurchaseOrderHandler) CreateReturn(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id inválido"})
	}
	var in dto.CreateReturnRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	ret, err := h.uc.CreateReturn(c.UserContext(), id, in, actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(purchasing.ToReturnInvoiceResponse(ret))
}
