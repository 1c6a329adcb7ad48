package businesscentral

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/bc-sync-api/internal/domain/erp"
)

type documentRefDTO struct {
	ID     string `json:"id"`
	Number string `json:"number"`
}

type invoiceDTO struct {
	ID                      string      `json:"id"`
	Number                  string      `json:"number"`
	OrderNumber             string      `json:"orderNumber"`
	InvoiceDate             string      `json:"invoiceDate"`
	TotalAmountExcludingTax json.Number `json:"totalAmountExcludingTax"`
	TotalTaxAmount          json.Number `json:"totalTaxAmount"`
	TotalAmountIncludingTax json.Number `json:"totalAmountIncludingTax"`
}

func (d invoiceDTO) toDomain() *erp.Invoice {
	return &erp.Invoice{
		ID:                      d.ID,
		Number:                  d.Number,
		OrderNumber:             d.OrderNumber,
		InvoiceDate:             parseTime(d.InvoiceDate),
		TotalAmountExcludingTax: numberToDecimal(d.TotalAmountExcludingTax),
		TotalTaxAmount:          numberToDecimal(d.TotalTaxAmount),
		TotalAmountIncludingTax: numberToDecimal(d.TotalAmountIncludingTax),
	}
}

func numberToDecimal(n json.Number) decimal.Decimal {
	if n == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FindShipmentsByOrderNumber lista los envíos registrados para un número de pedido.
func (c *Client) FindShipmentsByOrderNumber(ctx context.Context, orderNumber string) ([]erp.Shipment, error) {
	u, err := c.resourceURL(ctx, "salesShipments", odataFilter("orderNumber", orderNumber))
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodGet, u, nil, nil)
	if err != nil {
		return nil, err
	}
	var out collection[documentRefDTO]
	if err := decodeJSON(resp.body, &out); err != nil {
		return nil, err
	}
	shipments := make([]erp.Shipment, 0, len(out.Value))
	for _, s := range out.Value {
		shipments = append(shipments, erp.Shipment{ID: s.ID, Number: s.Number})
	}
	return shipments, nil
}

// ListShipmentLines devuelve las líneas de un envío.
func (c *Client) ListShipmentLines(ctx context.Context, shipmentID string) ([]erp.DocumentLine, error) {
	return c.listLines(ctx, fmt.Sprintf("salesShipments(%s)/salesShipmentLines", shipmentID))
}

// FindInvoiceByOrderNumber devuelve la primera factura del pedido o nil si no hay.
func (c *Client) FindInvoiceByOrderNumber(ctx context.Context, orderNumber string) (*erp.Invoice, error) {
	return c.findInvoice(ctx, odataFilter("orderNumber", orderNumber))
}

// FindInvoiceByNumber busca una factura por su número o nil si no existe.
func (c *Client) FindInvoiceByNumber(ctx context.Context, number string) (*erp.Invoice, error) {
	return c.findInvoice(ctx, odataFilter("number", number))
}

func (c *Client) findInvoice(ctx context.Context, filter string) (*erp.Invoice, error) {
	u, err := c.resourceURL(ctx, "salesInvoices", filter)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodGet, u, nil, nil)
	if err != nil {
		return nil, err
	}
	var out collection[invoiceDTO]
	if err := decodeJSON(resp.body, &out); err != nil {
		return nil, err
	}
	if len(out.Value) == 0 {
		return nil, nil
	}
	return out.Value[0].toDomain(), nil
}

// ListInvoiceLines devuelve las líneas de una factura.
func (c *Client) ListInvoiceLines(ctx context.Context, invoiceID string) ([]erp.DocumentLine, error) {
	return c.listLines(ctx, fmt.Sprintf("salesInvoices(%s)/salesInvoiceLines", invoiceID))
}

// CreateCreditMemo crea la cabecera de un abono.
func (c *Client) CreateCreditMemo(ctx context.Context, in erp.CreditMemoInput) (*erp.CreditMemo, error) {
	u, err := c.resourceURL(ctx, "salesCreditMemos", "")
	if err != nil {
		return nil, err
	}
	body := map[string]any{"customerNumber": in.CustomerNumber}
	if in.ExternalDocumentNumber != "" {
		body["externalDocumentNumber"] = in.ExternalDocumentNumber
	}
	if !in.Date.IsZero() {
		body["creditMemoDate"] = in.Date.Format("2006-01-02")
	}
	resp, err := c.do(ctx, http.MethodPost, u, body, nil)
	if err != nil {
		return nil, err
	}
	var dto documentRefDTO
	if err := decodeJSON(resp.body, &dto); err != nil {
		return nil, err
	}
	return &erp.CreditMemo{ID: dto.ID, Number: dto.Number}, nil
}

// CreateCreditMemoLine agrega una línea de artículo al abono.
func (c *Client) CreateCreditMemoLine(ctx context.Context, memoID string, in erp.SalesOrderLineInput) error {
	u, err := c.resourceURL(ctx, fmt.Sprintf("salesCreditMemos(%s)/salesCreditMemoLines", memoID), "")
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, u, itemLineBody(in), nil)
	return err
}

func (c *Client) listLines(ctx context.Context, resource string) ([]erp.DocumentLine, error) {
	u, err := c.resourceURL(ctx, resource, "")
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodGet, u, nil, nil)
	if err != nil {
		return nil, err
	}
	var out collection[map[string]any]
	if err := decodeJSON(resp.body, &out); err != nil {
		return nil, err
	}
	return parseDocumentLines(out.Value), nil
}
