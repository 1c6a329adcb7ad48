package entity

import "time"

// Product producto del catálogo con su vínculo opcional al artículo del ERP.
type Product struct {
	ID           int64
	Reference    string
	Name         string
	BCItemNumber string // número de artículo en Business Central (lineObjectNumber)
	BCItemID     string // GUID del artículo en Business Central
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LinkedToERP indica si el producto puede enviarse como línea de pedido remoto.
func (p *Product) LinkedToERP() bool {
	return p.BCItemNumber != "" || p.BCItemID != ""
}
