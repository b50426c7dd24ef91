package cart

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
	"github.com/wichananm65/park-shop-backend/internal/auth"
)

// Handler delegates cart operations to the cart service.
type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Get("/api/v1/cart", h.getCart)
	app.Post("/api/v1/cart", h.addToCart)
	app.Patch("/api/v1/cart", h.setQuantity)
	app.Delete("/api/v1/cart/:productId<int>", h.removeLine)
}

type cartRequest struct {
	ProductID    int  `json:"productId"`
	Qty          *int `json:"qty"`
	TargetUserID int  `json:"targetUserId"`
}

// target resolves the cart owner from the JWT and an optional targetUserId.
func target(c *fiber.Ctx, requested int) (int, error) {
	caller, err := auth.IdentityFromCtx(c)
	if err != nil {
		return 0, err
	}
	return auth.ResolveTarget(caller, requested)
}

func (h *Handler) getCart(c *fiber.Ctx) error {
	userID, err := target(c, c.QueryInt("targetUserId"))
	if err != nil {
		return apperror.Respond(c, err)
	}

	lines, err := h.service.GetCart(c.UserContext(), userID)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(lines)
}

func (h *Handler) addToCart(c *fiber.Ctx) error {
	payload := new(cartRequest)
	if err := c.BodyParser(payload); err != nil {
		return apperror.Respond(c, apperror.Validation("invalid request body"))
	}
	userID, err := target(c, payload.TargetUserID)
	if err != nil {
		return apperror.Respond(c, err)
	}
	if payload.ProductID <= 0 {
		return apperror.Respond(c, apperror.Validation("invalid productId"))
	}
	qty := 1
	if payload.Qty != nil {
		qty = *payload.Qty
	}

	lines, err := h.service.AddToCart(c.UserContext(), userID, payload.ProductID, qty)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(lines)
}

func (h *Handler) setQuantity(c *fiber.Ctx) error {
	payload := new(cartRequest)
	if err := c.BodyParser(payload); err != nil {
		return apperror.Respond(c, apperror.Validation("invalid request body"))
	}
	userID, err := target(c, payload.TargetUserID)
	if err != nil {
		return apperror.Respond(c, err)
	}
	if payload.ProductID <= 0 || payload.Qty == nil {
		return apperror.Respond(c, apperror.Validation("productId and qty are required"))
	}

	lines, err := h.service.SetQuantity(c.UserContext(), userID, payload.ProductID, *payload.Qty)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(lines)
}

func (h *Handler) removeLine(c *fiber.Ctx) error {
	userID, err := target(c, c.QueryInt("targetUserId"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	productID, err := strconv.Atoi(c.Params("productId"))
	if err != nil {
		return apperror.Respond(c, apperror.Validation("invalid productId"))
	}

	lines, err := h.service.RemoveLine(c.UserContext(), userID, productID)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(lines)
}
