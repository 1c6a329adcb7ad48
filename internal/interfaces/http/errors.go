package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/bc-sync-api/internal/application/dto"
	"github.com/jhoicas/bc-sync-api/internal/application/purchasing"
	"github.com/jhoicas/bc-sync-api/internal/domain"
	"github.com/jhoicas/bc-sync-api/internal/domain/erp"
)

// SubmissionErrorResponse 400 cuando el ERP rechazó todas las líneas del pedido.
type SubmissionErrorResponse struct {
	Code        string                       `json:"code"`
	Message     string                       `json:"message"`
	Compensated bool                         `json:"compensated"`
	Lines       []dto.SubmissionLineResponse `json:"lines"`
}

// errorMapping código HTTP y código de error para una clase de error.
type errorMapping struct {
	target error
	status int
	code   string
}

// El orden importa: las clases locales ganan a las del ERP.
var errorMappings = []errorMapping{
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrInvalidTransition, fiber.StatusBadRequest, "INVALID_TRANSITION"},
	{domain.ErrQuantityExceedsOrdered, fiber.StatusBadRequest, "QUANTITY_EXCEEDS_ORDERED"},
	{domain.ErrNegativeQuantity, fiber.StatusBadRequest, "NEGATIVE_QUANTITY"},
	{domain.ErrMissingERPLink, fiber.StatusBadRequest, "MISSING_ERP_LINK"},
	{domain.ErrNotSubmitted, fiber.StatusBadRequest, "NOT_SUBMITTED"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrSubmissionFailed, fiber.StatusBadRequest, "SUBMISSION_FAILED"},
	{domain.ErrAlreadySubmitted, fiber.StatusConflict, "ALREADY_SUBMITTED"},
	{domain.ErrReconcileInProgress, fiber.StatusConflict, "RECONCILE_IN_PROGRESS"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{erp.ErrCredentialsMissing, fiber.StatusServiceUnavailable, "ERP_NOT_CONFIGURED"},
	{erp.ErrCredentialsRejected, fiber.StatusServiceUnavailable, "ERP_CREDENTIALS_REJECTED"},
	{erp.ErrNotFound, fiber.StatusNotFound, "ERP_NOT_FOUND"},
	{erp.ErrBadRequest, fiber.StatusBadRequest, "ERP_REJECTED"},
	{erp.ErrForbidden, fiber.StatusBadRequest, "ERP_FORBIDDEN"},
	{erp.ErrTransient, fiber.StatusBadGateway, "ERP_UNAVAILABLE"},
}

// writeError traduce un error de caso de uso a la respuesta HTTP.
func writeError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	var subErr *purchasing.SubmissionError
	if errors.As(err, &subErr) {
		return c.Status(fiber.StatusBadRequest).JSON(SubmissionErrorResponse{
			Code:        "SUBMISSION_FAILED",
			Message:     "el ERP rechazó todas las líneas del pedido",
			Compensated: subErr.Compensated,
			Lines:       purchasing.ToSubmissionLines(subErr.Lines),
		})
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			if m.status >= fiber.StatusInternalServerError {
				log.Warn().Err(err).Str("path", c.Path()).Msg(m.code)
			}
			return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: err.Error()})
		}
	}
	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}
