// Package erp define los tipos y la taxonomía de errores del ERP externo
// (Business Central) sin depender del transporte.
package erp

import (
	"errors"
	"fmt"
	"net/http"
)

// Clases de error del ERP. Las implementaciones envuelven siempre una de ellas.
var (
	ErrCredentialsMissing  = errors.New("erp: credenciales no configuradas")
	ErrCredentialsRejected = errors.New("erp: credenciales rechazadas")
	ErrBadRequest          = errors.New("erp: solicitud rechazada")
	ErrForbidden           = errors.New("erp: acceso denegado")
	ErrNotFound            = errors.New("erp: recurso no encontrado")
	ErrTransient           = errors.New("erp: fallo transitorio")
)

// APIError respuesta HTTP no exitosa del ERP. Conserva el cuerpo para mostrarlo al operador.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("erp: %s %s -> %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Unwrap clasifica el error por código de estado para usar con errors.Is.
func (e *APIError) Unwrap() error {
	return ClassifyStatus(e.StatusCode)
}

// ClassifyStatus asocia un código HTTP a su clase de error (nil para 2xx).
func ClassifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized:
		return ErrCredentialsRejected
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusTooManyRequests || code >= 500:
		return ErrTransient
	default:
		return ErrBadRequest
	}
}

// Retryable indica si un código HTTP se reintenta (429 y 5xx).
func Retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
