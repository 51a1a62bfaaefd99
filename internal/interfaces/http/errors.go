package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/fulfillment-ledger/internal/application/dto"
	"github.com/jhoicas/fulfillment-ledger/internal/domain"
)

// writeError traduce errores de dominio a HTTP. Las violaciones de invariante y los
// errores no clasificados responden 500 sin detalle.
func writeError(c *fiber.Ctx, err error) error {
	status, body := mapError(err)
	return c.Status(status).JSON(body)
}

func mapError(err error) (int, dto.ErrorResponse) {
	var insufficient *domain.InsufficientBalanceError
	var bucket *domain.InsufficientBucketError
	var tooLarge *domain.BatchTooLargeError

	switch {
	case errors.As(err, &insufficient):
		return fiber.StatusPaymentRequired, dto.ErrorResponse{Code: "INSUFFICIENT_BALANCE", Message: insufficient.Error()}
	case errors.As(err, &bucket):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "INSUFFICIENT_QUANTITY", Message: bucket.Error()}
	case errors.As(err, &tooLarge):
		return fiber.StatusRequestEntityTooLarge, dto.ErrorResponse{Code: "BATCH_TOO_LARGE", Message: tooLarge.Error()}
	case errors.Is(err, domain.ErrInvariantViolation), errors.Is(err, domain.ErrBatchAborted):
		return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: "error interno, operación abortada"}
	case errors.Is(err, domain.ErrInvalidAmount):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "INVALID_AMOUNT", Message: err.Error()}
	case errors.Is(err, domain.ErrInvalidQuantity):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "INVALID_QUANTITY", Message: err.Error()}
	case errors.Is(err, domain.ErrInvalidBucket):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "INVALID_BUCKET", Message: err.Error()}
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"}
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"}
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"}
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"}
	case errors.Is(err, domain.ErrConfiguration):
		return fiber.StatusUnprocessableEntity, dto.ErrorResponse{Code: "PRICING_NOT_CONFIGURED", Message: err.Error()}
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()}
	}
	return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"}
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
