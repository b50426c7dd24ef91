package category

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get("/api/v1/categories", h.getCategories)
}

func (h *Handler) getCategories(c *fiber.Ctx) error {
	items, err := h.service.List(c.UserContext(), c.QueryInt("limit"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(items)
}
