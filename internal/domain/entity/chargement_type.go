package entity

// ChargementType plantilla de carga: define la ubicación de stock del ERP
// por defecto y excepciones por producto.
type ChargementType struct {
	ID           int64
	Name         string
	BCLocationID string
	Items        []ChargementTypeItem
}

// ChargementTypeItem excepción de ubicación para un producto.
type ChargementTypeItem struct {
	ProductID    int64
	BCLocationID string
}

// LocationFor devuelve la ubicación aplicable a un producto (excepción o la de la plantilla).
func (c *ChargementType) LocationFor(productID int64) string {
	for _, it := range c.Items {
		if it.ProductID == productID && it.BCLocationID != "" {
			return it.BCLocationID
		}
	}
	return c.BCLocationID
}
