package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")
)

// Errores del ciclo de vida del pedido de compra y su sincronización con el ERP.
var (
	ErrInvalidTransition      = errors.New("transición de estado inválida")
	ErrQuantityExceedsOrdered = errors.New("la cantidad revisada supera la cantidad pedida")
	ErrNegativeQuantity       = errors.New("la cantidad no puede ser negativa")
	ErrMissingERPLink         = errors.New("falta el vínculo con el ERP")
	ErrAlreadySubmitted       = errors.New("el pedido ya fue enviado al ERP")
	ErrNotSubmitted           = errors.New("el pedido aún no fue enviado al ERP")
	ErrSubmissionFailed       = errors.New("el envío al ERP falló")
	ErrReconcileInProgress    = errors.New("hay una reconciliación en curso para este pedido")
)
