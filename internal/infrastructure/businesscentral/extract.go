package businesscentral

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/bc-sync-api/internal/domain/erp"
)

// Los nombres de campo de las líneas varían según la versión de la API y las
// extensiones instaladas en el tenant. Cada campo se resuelve probando, en orden,
// la lista de claves siguiente; gana la primera presente y no vacía.
var (
	itemNumberKeys         = []string{"lineObjectNumber", "itemNumber", "no"}
	itemIDKeys             = []string{"itemId", "item_id"}
	quantityKeys           = []string{"quantity", "shippedQuantity", "invoiceQuantity"}
	unitPriceKeys          = []string{"unitPrice", "unitPriceExcludingTax"}
	discountAmountKeys     = []string{"discountAmount", "lineDiscountAmount"}
	discountPercentKeys    = []string{"discountPercent", "lineDiscountPercent"}
	taxPercentKeys         = []string{"taxPercent", "vatPercent"}
	amountExcludingTaxKeys = []string{"amountExcludingTax", "netAmount", "lineAmount"}
	taxAmountKeys          = []string{"totalTaxAmount", "taxAmount"}
	amountIncludingTaxKeys = []string{"amountIncludingTax", "netAmountIncludingTax"}
)

const zeroGUID = "00000000-0000-0000-0000-000000000000"

// collection envoltorio OData {"value": [...]}.
type collection[T any] struct {
	Value []T `json:"value"`
}

// decodeJSON decodifica preservando los números como json.Number.
func decodeJSON(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("erp: respuesta inválida: %w", err)
	}
	return nil
}

// parseDocumentLines normaliza las líneas crudas de un documento remoto.
func parseDocumentLines(raw []map[string]any) []erp.DocumentLine {
	lines := make([]erp.DocumentLine, 0, len(raw))
	for _, r := range raw {
		lines = append(lines, parseDocumentLine(r))
	}
	return lines
}

func parseDocumentLine(r map[string]any) erp.DocumentLine {
	itemID := firstString(r, itemIDKeys)
	if strings.EqualFold(itemID, zeroGUID) {
		itemID = ""
	}
	return erp.DocumentLine{
		ItemNumber:         firstString(r, itemNumberKeys),
		ItemID:             itemID,
		Quantity:           firstDecimal(r, quantityKeys),
		UnitPrice:          firstDecimal(r, unitPriceKeys),
		DiscountAmount:     firstDecimal(r, discountAmountKeys),
		DiscountPercent:    firstDecimal(r, discountPercentKeys),
		TaxPercent:         firstDecimal(r, taxPercentKeys),
		AmountExcludingTax: firstDecimal(r, amountExcludingTaxKeys),
		TaxAmount:          firstDecimal(r, taxAmountKeys),
		AmountIncludingTax: firstDecimal(r, amountIncludingTaxKeys),
	}
}

func firstString(r map[string]any, keys []string) string {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case json.Number:
			s = t.String()
		case float64:
			s = strconv.FormatFloat(t, 'f', -1, 64)
		default:
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func firstDecimal(r map[string]any, keys []string) decimal.Decimal {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case json.Number:
			if d, err := decimal.NewFromString(t.String()); err == nil {
				return d
			}
		case string:
			if d, err := decimal.NewFromString(strings.TrimSpace(t)); err == nil {
				return d
			}
		case float64:
			return decimal.NewFromFloat(t)
		}
	}
	return decimal.Zero
}

// parseTime acepta RFC3339 y fechas "2006-01-02"; nil si vacío o inválido.
func parseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "0001-01-01") {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// decimalNumber serializa un decimal como número JSON (no como string).
func decimalNumber(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
