package entity

// Salesperson comercial dueño de pedidos y de su propio stock.
// BCCustomerNumber es el cliente del ERP al que se emiten sus pedidos.
type Salesperson struct {
	ID               int64
	Name             string
	BCCustomerNumber string
}
