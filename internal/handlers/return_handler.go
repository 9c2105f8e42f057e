package handlers

import (
	"fulfillment/internal/middleware"
	"fulfillment/internal/models"
	"fulfillment/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// ReturnHandler handles HTTP requests for the return-request workflow.
type ReturnHandler struct {
	service *services.ReturnService
}

// NewReturnHandler creates a new ReturnHandler.
func NewReturnHandler(service *services.ReturnService) *ReturnHandler {
	return &ReturnHandler{
		service: service,
	}
}

// RegisterRoutes registers the return-request routes with the Fiber app.
func (h *ReturnHandler) RegisterRoutes(router fiber.Router) {
	returnRoutes := router.Group("/returns")
	returnRoutes.Post("/", h.HandleCreateReturnRequest)
	returnRoutes.Get("/:id", h.HandleGetReturnRequest)
	returnRoutes.Patch("/:id", h.HandleResolveReturnRequest)
}

// HandleCreateReturnRequest files a return for one delivered order item.
func (h *ReturnHandler) HandleCreateReturnRequest(c *fiber.Ctx) error {
	var body struct {
		OrderItemID string `json:"order_item_id"`
		Reason      string `json:"reason"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if body.OrderItemID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "order_item_id is required.",
		})
	}

	request, err := h.service.CreateReturnRequest(body.OrderItemID, body.Reason, middleware.ActorFromCtx(c))
	if err != nil {
		log.Warn().Err(err).Str("order_item_id", body.OrderItemID).Msg("return request rejected")
		return respondError(c, "Could not create return request", err)
	}
	return c.Status(fiber.StatusCreated).JSON(request)
}

// HandleGetReturnRequest retrieves a single return request.
func (h *ReturnHandler) HandleGetReturnRequest(c *fiber.Ctx) error {
	request, err := h.service.GetReturnRequest(c.Params("id"), middleware.ActorFromCtx(c))
	if err != nil {
		return respondError(c, "Could not retrieve return request", err)
	}
	return c.JSON(request)
}

// HandleResolveReturnRequest moves a return request to its next status
// (admin-only).
func (h *ReturnHandler) HandleResolveReturnRequest(c *fiber.Ctx) error {
	var body struct {
		Status models.ReturnStatus `json:"status"`
		Notes  string              `json:"notes"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if body.Status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Status is required.",
		})
	}

	request, err := h.service.ResolveReturnRequest(c.Params("id"), body.Status, body.Notes, middleware.ActorFromCtx(c))
	if err != nil {
		log.Warn().Err(err).Str("return_id", c.Params("id")).Msg("return resolution rejected")
		return respondError(c, "Could not resolve return request", err)
	}
	return c.JSON(request)
}
