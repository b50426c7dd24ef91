package product

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get("/api/v1/products", h.getProducts)
	app.Get("/api/v1/products/:id<int>", h.getProduct)
}

// RegisterAdminRoutes expects r to be guarded by auth.RequireAdmin.
func (h *Handler) RegisterAdminRoutes(r fiber.Router) {
	r.Post("/products", h.createProduct)
	r.Patch("/products/:id<int>", h.updateProduct)
	r.Delete("/products/:id<int>", h.deleteProduct)
}

func (h *Handler) getProducts(c *fiber.Ctx) error {
	products, err := h.service.List(c.UserContext())
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(products)
}

func (h *Handler) getProduct(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return apperror.Respond(c, apperror.Validation("invalid product id"))
	}

	p, err := h.service.GetByID(c.UserContext(), id)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(p)
}

func (h *Handler) createProduct(c *fiber.Ctx) error {
	var p Product
	if err := c.BodyParser(&p); err != nil {
		return apperror.Respond(c, apperror.Validation("invalid request body"))
	}

	created, err := h.service.Create(c.UserContext(), p)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handler) updateProduct(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return apperror.Respond(c, apperror.Validation("invalid product id"))
	}

	var patch Patch
	if err := c.BodyParser(&patch); err != nil {
		return apperror.Respond(c, apperror.Validation("invalid request body"))
	}

	updated, err := h.service.Update(c.UserContext(), id, patch)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(updated)
}

func (h *Handler) deleteProduct(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return apperror.Respond(c, apperror.Validation("invalid product id"))
	}

	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "product deleted"})
}
