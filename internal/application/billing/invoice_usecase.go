package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/bc-sync-api/internal/application/dto"
	"github.com/jhoicas/bc-sync-api/internal/domain"
	"github.com/jhoicas/bc-sync-api/internal/domain/entity"
	"github.com/jhoicas/bc-sync-api/internal/domain/repository"
)

// PurchaseInvoiceUseCase consulta y PDF de las facturas de compra materializadas desde el ERP.
type PurchaseInvoiceUseCase struct {
	invoiceRepo     repository.PurchaseInvoiceRepository
	orderRepo       repository.PurchaseOrderRepository
	salespersonRepo repository.SalespersonRepository
	productRepo     repository.ProductRepository
	generator       InvoicePDFGenerator
}

// NewPurchaseInvoiceUseCase construye el caso de uso inyectando todas sus dependencias.
func NewPurchaseInvoiceUseCase(
	invoiceRepo repository.PurchaseInvoiceRepository,
	orderRepo repository.PurchaseOrderRepository,
	salespersonRepo repository.SalespersonRepository,
	productRepo repository.ProductRepository,
	generator InvoicePDFGenerator,
) *PurchaseInvoiceUseCase {
	return &PurchaseInvoiceUseCase{
		invoiceRepo:     invoiceRepo,
		orderRepo:       orderRepo,
		salespersonRepo: salespersonRepo,
		productRepo:     productRepo,
		generator:       generator,
	}
}

// GetByID devuelve la factura con sus líneas o domain.ErrNotFound.
func (uc *PurchaseInvoiceUseCase) GetByID(ctx context.Context, id int64) (*dto.PurchaseInvoiceResponse, error) {
	inv, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToPurchaseInvoiceResponse(inv), nil
}

// GetByOrder devuelve la factura de un pedido o domain.ErrNotFound si aún no se materializó.
func (uc *PurchaseInvoiceUseCase) GetByOrder(ctx context.Context, orderID int64) (*dto.PurchaseInvoiceResponse, error) {
	inv, err := uc.invoiceRepo.GetByPurchaseOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("%w: el pedido %d no tiene factura", domain.ErrNotFound, orderID)
	}
	return ToPurchaseInvoiceResponse(inv), nil
}

// DownloadPDF genera la representación gráfica de la factura.
//
// Retorna:
//   - (pdfBytes, filename, nil)  si todo sale bien.
//   - domain.ErrNotFound         si la factura no existe.
func (uc *PurchaseInvoiceUseCase) DownloadPDF(ctx context.Context, id int64) (pdfBytes []byte, filename string, err error) {
	// ── 1. Factura ────────────────────────────────────────────────────────────
	inv, err := uc.load(ctx, id)
	if err != nil {
		return nil, "", err
	}

	// ── 2. Comercial y pedido ─────────────────────────────────────────────────
	sp, err := uc.salespersonRepo.GetByID(ctx, inv.SalespersonID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener comercial: %w", err)
	}
	if sp == nil {
		sp = &entity.Salesperson{ID: inv.SalespersonID, Name: fmt.Sprintf("Commercial %d", inv.SalespersonID)}
	}
	orderNumber := ""
	if order, err := uc.orderRepo.GetByID(ctx, inv.PurchaseOrderID); err == nil && order != nil {
		orderNumber = order.Number
	}

	// ── 3. Líneas + nombre de producto ────────────────────────────────────────
	ids := make([]int64, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		ids = append(ids, l.ProductID)
	}
	products, err := uc.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener productos: %w", err)
	}
	lines := make([]InvoiceLineForPDF, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		item := InvoiceLineForPDF{PurchaseInvoiceLine: l, ProductName: fmt.Sprintf("Produit %d", l.ProductID)}
		if p := products[l.ProductID]; p != nil {
			item.ProductName = p.Name
			item.ProductReference = p.Reference
		}
		lines = append(lines, item)
	}

	// ── 4. PDF ────────────────────────────────────────────────────────────────
	pdfBytes, err = uc.generator.GeneratePurchaseInvoicePDF(ctx, InvoiceDocument{
		Invoice:     inv,
		Salesperson: sp,
		OrderNumber: orderNumber,
		Lines:       lines,
	})
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generación fallida: %w", err)
	}
	return pdfBytes, fmt.Sprintf("facture_%s.pdf", inv.Number), nil
}

func (uc *PurchaseInvoiceUseCase) load(ctx context.Context, id int64) (*entity.PurchaseInvoice, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("%w: factura %d", domain.ErrNotFound, id)
	}
	return inv, nil
}

// ToPurchaseInvoiceResponse convierte la factura a su DTO.
func ToPurchaseInvoiceResponse(inv *entity.PurchaseInvoice) *dto.PurchaseInvoiceResponse {
	resp := &dto.PurchaseInvoiceResponse{
		ID:              inv.ID,
		Number:          inv.Number,
		PurchaseOrderID: inv.PurchaseOrderID,
		SalespersonID:   inv.SalespersonID,
		BCInvoiceID:     inv.BCInvoiceID,
		BCInvoiceNumber: inv.BCInvoiceNumber,
		TotalHT:         inv.TotalHT,
		TotalTVA:        inv.TotalTVA,
		Timbre:          inv.Timbre,
		TotalTTC:        inv.TotalTTC,
		InvoiceDate:     inv.InvoiceDate,
		CreatedBy:       inv.CreatedBy.String(),
		CreatedAt:       inv.CreatedAt,
		Lines:           make([]dto.PurchaseInvoiceLineResponse, 0, len(inv.Lines)),
	}
	for _, l := range inv.Lines {
		resp.Lines = append(resp.Lines, dto.PurchaseInvoiceLineResponse{
			ProductID:          l.ProductID,
			Quantity:           l.Quantity,
			UnitPrice:          l.UnitPrice,
			DiscountAmount:     l.DiscountAmount,
			DiscountPercent:    l.DiscountPercent,
			TaxPercent:         l.TaxPercent,
			AmountExcludingTax: l.AmountExcludingTax,
			TaxAmount:          l.TaxAmount,
			AmountIncludingTax: l.AmountIncludingTax,
			Matched:            l.Matched,
		})
	}
	return resp
}
