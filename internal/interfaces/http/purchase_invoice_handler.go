package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/bc-sync-api/internal/application/dto"
)

type purchaseInvoiceService interface {
	GetByID(ctx context.Context, id int64) (*dto.PurchaseInvoiceResponse, error)
	DownloadPDF(ctx context.Context, id int64) ([]byte, string, error)
}

// PurchaseInvoiceHandler consulta de facturas de compra (protegido).
type PurchaseInvoiceHandler struct {
	uc  purchaseInvoiceService
	log zerolog.Logger
}

// NewPurchaseInvoiceHandler construye el handler.
func NewPurchaseInvoiceHandler(uc purchaseInvoiceService, log zerolog.Logger) *PurchaseInvoiceHandler {
	return &PurchaseInvoiceHandler{uc: uc, log: log}
}

// GetByID obtiene una factura con sus líneas.
// GET /api/purchase-invoices/:id
func (h *PurchaseInvoiceHandler) GetByID(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id inválido"})
	}
	inv, err := h.uc.GetByID(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if !ownsSalesperson(c, inv.SalespersonID) {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "factura de otro comercial"})
	}
	return c.JSON(inv)
}

// DownloadPDF descarga la representación gráfica de la factura.
// GET /api/purchase-invoices/:id/pdf
func (h *PurchaseInvoiceHandler) DownloadPDF(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id inválido"})
	}
	if isCommercial(c) {
		inv, err := h.uc.GetByID(c.UserContext(), id)
		if err != nil {
			return writeError(c, h.log, err)
		}
		if !ownsSalesperson(c, inv.SalespersonID) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "factura de otro comercial"})
		}
	}
	pdf, filename, err := h.uc.DownloadPDF(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdf)
}
