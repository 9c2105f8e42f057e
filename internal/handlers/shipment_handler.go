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

// ShipmentHandler handles HTTP requests for shipments, including the
// carrier webhook ingestion endpoint.
type ShipmentHandler struct {
	service  *services.ShipmentService
	validate *validator.Validate
}

// NewShipmentHandler creates a new ShipmentHandler.
func NewShipmentHandler(service *services.ShipmentService) *ShipmentHandler {
	return &ShipmentHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the authenticated shipment routes.
func (h *ShipmentHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/orders/:id/shipments", h.HandleCreateShipment)
}

// RegisterWebhookRoutes registers the unauthenticated ingestion path the
// shipping carrier delivers to.
func (h *ShipmentHandler) RegisterWebhookRoutes(router fiber.Router) {
	router.Post("/carrier", h.HandleCarrierWebhook)
}

// HandleCreateShipment books a shipment for a processing order.
func (h *ShipmentHandler) HandleCreateShipment(c *fiber.Ctx) error {
	var body struct {
		CarrierCode string `json:"carrier_code"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if body.CarrierCode == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Carrier code is required.",
		})
	}

	shipment, err := h.service.CreateShipment(c.Params("id"), body.CarrierCode, middleware.ActorFromCtx(c))
	if err != nil {
		log.Warn().Err(err).Str("order_id", c.Params("id")).Msg("shipment creation rejected")
		return respondError(c, "Could not create shipment", err)
	}
	return c.Status(fiber.StatusCreated).JSON(shipment)
}

// HandleCarrierWebhook ingests a normalized shipping-carrier event with
// the same acknowledgement rules as the gateway webhook: duplicates and
// unknown tracking numbers are acknowledged, real failures are retryable.
func (h *ShipmentHandler) HandleCarrierWebhook(c *fiber.Ctx) error {
	var event models.CarrierEvent
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

	shipment, err := h.service.ApplyCarrierEvent(event)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrDuplicateEvent):
			return c.JSON(fiber.Map{"status": "acknowledged", "detail": "duplicate event"})
		case errors.Is(err, apperrors.ErrNotFound):
			log.Warn().Str("event_id", event.EventID).Str("tracking_number", event.TrackingNumber).
				Msg("carrier event for unknown shipment acknowledged")
			return c.JSON(fiber.Map{"status": "acknowledged", "detail": "no matching shipment"})
		default:
			log.Error().Err(err).Str("event_id", event.EventID).Msg("carrier event failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Event could not be applied",
				"error":   err.Error(),
			})
		}
	}
	return c.JSON(fiber.Map{"status": "processed", "shipment": shipment})
}
