package handlers

import (
	"fmt"

	"fulfillment/internal/middleware"
	"fulfillment/internal/models"
	"fulfillment/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Get("/", h.HandleListOrders)
	orderRoutes.Get("/:id", h.HandleGetOrder)
	orderRoutes.Post("/:id/cancel", h.HandleCancelOrder)
	orderRoutes.Patch("/:id/status", h.HandleUpdateOrderStatus)
}

// HandleCreateOrder places a new order for the acting customer.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var input services.CreateOrderInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(input); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}

	order, err := h.service.CreateOrder(input, middleware.ActorFromCtx(c))
	if err != nil {
		log.Warn().Err(err).Msg("order creation rejected")
		return respondError(c, "Could not create order", err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

// HandleListOrders lists the acting customer's orders; admins may pass
// ?customer_id= to inspect another customer.
func (h *OrderHandler) HandleListOrders(c *fiber.Ctx) error {
	actor := middleware.ActorFromCtx(c)
	customerID := c.Query("customer_id", actor.ID)

	orders, err := h.service.GetOrdersByCustomer(customerID, actor)
	if err != nil {
		return respondError(c, "Could not retrieve orders", err)
	}
	return c.JSON(orders)
}

// HandleGetOrder retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrder(c *fiber.Ctx) error {
	order, err := h.service.GetOrder(c.Params("id"), middleware.ActorFromCtx(c))
	if err != nil {
		return respondError(c, "Could not retrieve order", err)
	}
	return c.JSON(order)
}

// HandleCancelOrder cancels an order under the lifecycle rules.
func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	order, err := h.service.CancelOrder(c.Params("id"), middleware.ActorFromCtx(c))
	if err != nil {
		log.Warn().Err(err).Str("order_id", c.Params("id")).Msg("order cancellation rejected")
		return respondError(c, "Could not cancel order", err)
	}
	return c.JSON(order)
}

// HandleUpdateOrderStatus is the admin override for an order's status.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	var body struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body for status update",
			"error":   err.Error(),
		})
	}
	if body.Status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Status is required for order status update.",
		})
	}

	order, err := h.service.UpdateOrderStatus(c.Params("id"), body.Status, middleware.ActorFromCtx(c))
	if err != nil {
		return respondError(c, "Could not update order status", err)
	}
	return c.JSON(order)
}
