package businesscentral

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jhoicas/bc-sync-api/internal/domain/erp"
)

type salesOrderDTO struct {
	ID           string `json:"id"`
	Number       string `json:"number"`
	Status       string `json:"status"`
	FullyShipped bool   `json:"fullyShipped"`
	LastModified string `json:"lastModifiedDateTime"`
	ETag         string `json:"@odata.etag"`
}

func (d salesOrderDTO) toDomain(headerETag string) *erp.SalesOrder {
	return &erp.SalesOrder{
		ID:           d.ID,
		Number:       d.Number,
		Status:       d.Status,
		FullyShipped: d.FullyShipped,
		ETag:         firstNonEmpty(d.ETag, headerETag),
		LastModified: parseTime(d.LastModified),
	}
}

type lineDTO struct {
	ID   string `json:"id"`
	ETag string `json:"@odata.etag"`
}

// CreateSalesOrder crea la cabecera del pedido de venta.
func (c *Client) CreateSalesOrder(ctx context.Context, in erp.SalesOrderInput) (*erp.SalesOrder, error) {
	u, err := c.resourceURL(ctx, "salesOrders", "")
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"customerNumber": in.CustomerNumber,
	}
	if in.ExternalDocumentNumber != "" {
		body["externalDocumentNumber"] = in.ExternalDocumentNumber
	}
	if !in.OrderDate.IsZero() {
		body["orderDate"] = in.OrderDate.Format("2006-01-02")
	}
	resp, err := c.do(ctx, http.MethodPost, u, body, nil)
	if err != nil {
		return nil, err
	}
	var dto salesOrderDTO
	if err := decodeJSON(resp.body, &dto); err != nil {
		return nil, err
	}
	return dto.toDomain(resp.etag), nil
}

// GetSalesOrder lee la cabecera. Devuelve un error que envuelve erp.ErrNotFound si ya no existe.
func (c *Client) GetSalesOrder(ctx context.Context, id string) (*erp.SalesOrder, error) {
	u, err := c.resourceURL(ctx, fmt.Sprintf("salesOrders(%s)", id), "")
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodGet, u, nil, nil)
	if err != nil {
		return nil, err
	}
	var dto salesOrderDTO
	if err := decodeJSON(resp.body, &dto); err != nil {
		return nil, err
	}
	return dto.toDomain(resp.etag), nil
}

// DeleteSalesOrder borra la cabecera (compensación de envíos fallidos).
func (c *Client) DeleteSalesOrder(ctx context.Context, id string) error {
	u, err := c.resourceURL(ctx, fmt.Sprintf("salesOrders(%s)", id), "")
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodDelete, u, nil, ifMatch(""))
	return err
}

// CreateSalesOrderLine agrega una línea de tipo artículo. Se identifica por número
// de artículo si existe, si no por id.
func (c *Client) CreateSalesOrderLine(ctx context.Context, orderID string, in erp.SalesOrderLineInput) (*erp.SalesOrderLine, error) {
	u, err := c.resourceURL(ctx, fmt.Sprintf("salesOrders(%s)/salesOrderLines", orderID), "")
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPost, u, itemLineBody(in), nil)
	if err != nil {
		return nil, err
	}
	var dto lineDTO
	if err := decodeJSON(resp.body, &dto); err != nil {
		return nil, err
	}
	return &erp.SalesOrderLine{ID: dto.ID, ETag: firstNonEmpty(dto.ETag, resp.etag)}, nil
}

// UpdateSalesOrderLineLocation asigna el almacén de una línea ya creada.
func (c *Client) UpdateSalesOrderLineLocation(ctx context.Context, orderID, lineID, etag, locationID string) error {
	u, err := c.resourceURL(ctx, fmt.Sprintf("salesOrders(%s)/salesOrderLines(%s)", orderID, lineID), "")
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPatch, u, map[string]any{"locationId": locationID}, ifMatch(etag))
	return err
}

func itemLineBody(in erp.SalesOrderLineInput) map[string]any {
	body := map[string]any{
		"lineType": "Item",
		"quantity": decimalNumber(in.Quantity),
	}
	if in.ItemNumber != "" {
		body["lineObjectNumber"] = in.ItemNumber
	} else {
		body["itemId"] = in.ItemID
	}
	return body
}
