package handlers

import (
	"errors"

	"fulfillment/internal/apperrors"
	"fulfillment/internal/middleware"
	"fulfillment/internal/models"
	"fulfillment/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// PaymentHandler handles HTTP requests for payments, including the
// gateway webhook ingestion endpoint.
type PaymentHandler struct {
	service  *services.PaymentService
	validate *validator.Validate
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the authenticated payment routes.
func (h *PaymentHandler) RegisterRoutes(router fiber.Router) {
	paymentRoutes := router.Group("/orders/:id")
	paymentRoutes.Post("/payment", h.HandleInitiatePayment)
	paymentRoutes.Post("/refund", h.HandleRefund)
}

// RegisterWebhookRoutes registers the unauthenticated ingestion path the
// payment gateway delivers to.
func (h *PaymentHandler) RegisterWebhookRoutes(router fiber.Router) {
	router.Post("/payment-gateway", h.HandleGatewayWebhook)
}

// HandleInitiatePayment starts payment for an order.
func (h *PaymentHandler) HandleInitiatePayment(c *fiber.Ctx) error {
	var body struct {
		Method models.PaymentMethod `json:"method" validate:"required"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if body.Method == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Payment method is required.",
		})
	}

	payment, handle, err := h.service.InitiatePayment(c.Params("id"), body.Method, middleware.ActorFromCtx(c))
	if err != nil {
		log.Warn().Err(err).Str("order_id", c.Params("id")).Msg("payment initiation rejected")
		return respondError(c, "Could not initiate payment", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"payment": payment,
		"gateway": handle,
	})
}

// HandleRefund refunds the full remaining payment of an order (admin-only).
func (h *PaymentHandler) HandleRefund(c *fiber.Ctx) error {
	payment, err := h.service.Refund(c.Params("id"), middleware.ActorFromCtx(c))
	if err != nil {
		log.Warn().Err(err).Str("order_id", c.Params("id")).Msg("refund rejected")
		return respondError(c, "Could not refund payment", err)
	}
	return c.JSON(payment)
}

// HandleGatewayWebhook ingests a normalized payment-gateway event.
// Duplicates and unresolvable targets are acknowledged with 200 to stop
// provider retry storms; disallowed transitions and optimistic-lock
// exhaustion return retryable failures so the provider resends.
func (h *PaymentHandler) HandleGatewayWebhook(c *fiber.Ctx) error {
	var event models.GatewayEvent
	if err := c.BodyParser(&event); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid webhook payload",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(event); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Webhook payload is missing required fields",
			"error":   err.Error(),
		})
	}

	payment, err := h.service.ApplyGatewayEvent(event)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrDuplicateEvent):
			return c.JSON(fiber.Map{"status": "acknowledged", "detail": "duplicate event"})
		case errors.Is(err, apperrors.ErrNotFound):
			log.Warn().Str("event_id", event.EventID).Msg("gateway event for unknown payment acknowledged")
			return c.JSON(fiber.Map{"status": "acknowledged", "detail": "no matching payment"})
		default:
			log.Error().Err(err).Str("event_id", event.EventID).Msg("gateway event failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Event could not be applied",
				"error":   err.Error(),
			})
		}
	}
	return c.JSON(fiber.Map{"status": "processed", "payment": payment})
}
