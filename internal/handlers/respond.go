package handlers

import (
	"errors"

	"fulfillment/internal/apperrors"

	"github.com/gofiber/fiber/v2"
)

// statusForError maps the engine's error kinds onto HTTP status codes for
// the synchronous caller surface. Webhook endpoints apply their own rules
// on top (see the webhook handlers).
func statusForError(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, apperrors.ErrUnauthorized):
		return fiber.StatusForbidden
	case errors.Is(err, apperrors.ErrInvalidStatusTransition),
		errors.Is(err, apperrors.ErrInvalidPaymentState):
		return fiber.StatusConflict
	case errors.Is(err, apperrors.ErrConcurrentModification):
		return fiber.StatusConflict
	case errors.Is(err, apperrors.ErrRefundFailed),
		errors.Is(err, apperrors.ErrPaymentProcessing):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, message string, err error) error {
	return c.Status(statusForError(err)).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}
