package address

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
	"github.com/wichananm65/park-shop-backend/internal/auth"
)

// Handler delegates address operations to the address service.
type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Get("/api/v1/address", h.getAddresses)
	app.Post("/api/v1/address", h.addAddress)
	app.Patch("/api/v1/address", h.updateAddress)
	app.Delete("/api/v1/address", h.deleteAddress)
}

type addressRequest struct {
	AddressID    int    `json:"addressId"`
	Consignee    string `json:"consignee"`
	Tel          string `json:"tel"`
	Address      string `json:"address"`
	TargetUserID int    `json:"targetUserId"`
}

func (r addressRequest) fields() Fields {
	return Fields{Consignee: r.Consignee, Tel: r.Tel, Address: r.Address}
}

// owner resolves whose addresses a request touches. Admins may pass
// targetUserId; everyone else works on their own.
func owner(c *fiber.Ctx, target int) (int, error) {
	caller, err := auth.IdentityFromCtx(c)
	if err != nil {
		return 0, err
	}
	return auth.ResolveTarget(caller, target)
}

func (h *Handler) getAddresses(c *fiber.Ctx) error {
	userID, err := owner(c, c.QueryInt("targetUserId"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	addrs, err := h.service.List(c.UserContext(), userID)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(addrs)
}

func (h *Handler) addAddress(c *fiber.Ctx) error {
	payload := new(addressRequest)
	if err := c.BodyParser(payload); err != nil {
		return apperror.Respond(c, apperror.Validation("invalid request body"))
	}
	userID, err := owner(c, payload.TargetUserID)
	if err != nil {
		return apperror.Respond(c, err)
	}

	addr, err := h.service.Add(c.UserContext(), userID, payload.fields())
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(addr)
}

func (h *Handler) updateAddress(c *fiber.Ctx) error {
	payload := new(addressRequest)
	if err := c.BodyParser(payload); err != nil {
		return apperror.Respond(c, apperror.Validation("invalid request body"))
	}
	userID, err := owner(c, payload.TargetUserID)
	if err != nil {
		return apperror.Respond(c, err)
	}

	addr, err := h.service.Update(c.UserContext(), userID, payload.AddressID, payload.fields())
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(addr)
}

func (h *Handler) deleteAddress(c *fiber.Ctx) error {
	payload := new(addressRequest)
	if err := c.BodyParser(payload); err != nil {
		return apperror.Respond(c, apperror.Validation("invalid request body"))
	}
	userID, err := owner(c, payload.TargetUserID)
	if err != nil {
		return apperror.Respond(c, err)
	}

	if err := h.service.Delete(c.UserContext(), userID, payload.AddressID); err != nil {
		return apperror.Respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
