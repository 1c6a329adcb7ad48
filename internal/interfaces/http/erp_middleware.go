package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/bc-sync-api/internal/application/dto"
)

// erpChecker es el contrato mínimo que necesita el middleware para saber si el ERP
// está configurado. Lo implementa *businesscentral.Client.
type erpChecker interface {
	Configured() bool
}

// RequireERP corta con 503 las rutas que hablan con Business Central cuando no hay
// credenciales, sin llegar al caso de uso.
//
// Si checker es nil, el middleware no hace nada.
func RequireERP(checker erpChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if checker == nil || checker.Configured() {
			return c.Next()
		}
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
			Code:    "ERP_NOT_CONFIGURED",
			Message: "credenciales de Business Central no configuradas",
		})
	}
}
