package order

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
	"github.com/wichananm65/park-shop-backend/internal/auth"
)

// RecipientLookup resolves a saved address of userID into a recipient.
type RecipientLookup func(ctx context.Context, userID, addressID int) (Recipient, error)

// Handler exposes checkout and order endpoints.
type Handler struct {
	engine     *Engine
	service    *Service
	recipients RecipientLookup
}

func NewHandler(engine *Engine, service *Service, recipients RecipientLookup) *Handler {
	return &Handler{engine: engine, service: service, recipients: recipients}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Post("/api/v1/cart/orders", h.checkout)
	app.Get("/api/v1/orders", h.getOrders)
	app.Get("/api/v1/orders/:orderNumber", h.getOrder)
	app.Patch("/api/v1/orders/:orderNumber", h.updateStatus)
}

// RegisterAdminRoutes expects r to be guarded by auth.RequireAdmin.
func (h *Handler) RegisterAdminRoutes(r fiber.Router) {
	r.Patch("/orders/:orderNumber", h.updateStatus)
}

type checkoutRequest struct {
	Consignee    string `json:"consignee"`
	Tel          string `json:"tel"`
	Address      string `json:"address"`
	AddressID    int    `json:"addressId"`
	UserID       int    `json:"userId"`
	TargetUserID int    `json:"targetUserId"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) checkout(c *fiber.Ctx) error {
	caller, err := auth.IdentityFromCtx(c)
	if err != nil {
		return apperror.Respond(c, err)
	}
	payload := new(checkoutRequest)
	if err := c.BodyParser(payload); err != nil {
		return apperror.Respond(c, apperror.Validation("invalid request body"))
	}

	target := payload.TargetUserID
	if target == 0 {
		target = payload.UserID
	}
	recipient := Recipient{Name: payload.Consignee, Phone: payload.Tel, Address: payload.Address}

	if payload.AddressID > 0 && h.recipients != nil {
		owner, err := auth.ResolveTarget(caller, target)
		if err != nil {
			return apperror.Respond(c, err)
		}
		saved, err := h.recipients(c.UserContext(), owner, payload.AddressID)
		if err != nil {
			return apperror.Respond(c, err)
		}
		recipient = fillRecipient(recipient, saved)
	}

	conf, err := h.engine.Checkout(c.UserContext(), caller, target, recipient, c.Get("Idempotency-Key"))
	if err != nil {
		return apperror.Respond(c, err)
	}

	status, message := fiber.StatusCreated, "order placed"
	if conf.Replayed {
		status, message = fiber.StatusOK, "order already placed"
	}
	return c.Status(status).JSON(fiber.Map{
		"message":     message,
		"orderNumber": conf.OrderNumber,
		"order":       conf.Order,
	})
}

// fillRecipient keeps fields given inline and takes the rest from saved.
func fillRecipient(inline, saved Recipient) Recipient {
	if inline.Name == "" {
		inline.Name = saved.Name
	}
	if inline.Phone == "" {
		inline.Phone = saved.Phone
	}
	if inline.Address == "" {
		inline.Address = saved.Address
	}
	return inline
}

func (h *Handler) getOrders(c *fiber.Ctx) error {
	caller, err := auth.IdentityFromCtx(c)
	if err != nil {
		return apperror.Respond(c, err)
	}

	orders, err := h.service.ListOrders(c.UserContext(), caller, c.QueryInt("targetUserId"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(orders)
}

func (h *Handler) getOrder(c *fiber.Ctx) error {
	caller, err := auth.IdentityFromCtx(c)
	if err != nil {
		return apperror.Respond(c, err)
	}

	o, err := h.service.GetOrder(c.UserContext(), caller, c.Params("orderNumber"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(o)
}

func (h *Handler) updateStatus(c *fiber.Ctx) error {
	caller, err := auth.IdentityFromCtx(c)
	if err != nil {
		return apperror.Respond(c, err)
	}
	payload := new(statusRequest)
	if err := c.BodyParser(payload); err != nil {
		return apperror.Respond(c, apperror.Validation("invalid request body"))
	}

	o, err := h.service.UpdateStatus(c.UserContext(), caller, c.Params("orderNumber"), payload.Status)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "order status updated", "order": o})
}
