package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	PurchaseOrders   purchaseOrderService
	PurchaseInvoices purchaseInvoiceService
	Stock            stockService
	ERP              erpChecker // opcional
	JWTSecret        string
	Logger           zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	anyRole := RequireRole(RoleAdmin, RoleGestionnaire, RoleCommercial)
	managers := RequireRole(RoleAdmin, RoleGestionnaire)
	erpReady := RequireERP(deps.ERP)

	// Purchase orders
	orders := protected.Group("/purchase-orders")
	orderHandler := NewPurchaseOrderHandler(deps.PurchaseOrders, deps.Logger)
	orders.Post("/", anyRole, orderHandler.Create)
	orders.Get("/:id", anyRole, orderHandler.GetByID)
	orders.Post("/:id/validate", managers, erpReady, orderHandler.Validate)
	orders.Post("/:id/mark-as-expedie", managers, orderHandler.MarkAsExpedie)
	orders.Get("/:id/bc-status", managers, erpReady, orderHandler.BCStatus)
	orders.Get("/:id/bc-status/preview", anyRole, erpReady, orderHandler.BCStatusPreview)
	orders.Post("/:id/returns", managers, erpReady, orderHandler.CreateReturn)

	// Purchase invoices
	invoices := protected.Group("/purchase-invoices")
	invoiceHandler := NewPurchaseInvoiceHandler(deps.PurchaseInvoices, deps.Logger)
	invoices.Get("/:id", anyRole, invoiceHandler.GetByID)
	invoices.Get("/:id/pdf", anyRole, invoiceHandler.DownloadPDF)

	// Stock por comercial
	stock := protected.Group("/stock")
	stockHandler := NewStockHandler(deps.Stock, deps.Logger)
	stock.Get("/", anyRole, stockHandler.Get)
	stock.Get("/transactions", anyRole, stockHandler.ListTransactions)
	stock.Post("/lookup", anyRole, stockHandler.Lookup)
	stock.Post("/out", anyRole, stockHandler.RegisterOut)
}
