package user

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
	"github.com/wichananm65/park-shop-backend/internal/auth"
)

type Handler struct {
	service *Service
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

type profileUpdateRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Post("/api/v1/sign-in", h.login)
	app.Post("/api/v1/sign-up", h.register)
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Get("/api/v1/profile", h.getProfile)
	app.Patch("/api/v1/profile", h.updateProfile)
}

// RegisterAdminRoutes expects r to be guarded by auth.RequireAdmin.
func (h *Handler) RegisterAdminRoutes(r fiber.Router) {
	r.Get("/users", h.getUsers)
}

func (h *Handler) login(c *fiber.Ctx) error {
	payload := new(loginRequest)
	if err := c.BodyParser(payload); err != nil {
		return apperror.Respond(c, apperror.Validation("invalid request body"))
	}

	session, err := h.service.Authenticate(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return apperror.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"user":    session.User,
		"token":   session.Token,
	})
}

func (h *Handler) register(c *fiber.Ctx) error {
	payload := new(registerRequest)
	if err := c.BodyParser(payload); err != nil {
		return apperror.Respond(c, apperror.Validation("invalid request body"))
	}
	if payload.Email == "" || payload.Password == "" || payload.Name == "" {
		return apperror.Respond(c, apperror.Validation("email, password and name are required"))
	}

	created, err := h.service.Register(c.UserContext(), User{
		Email:    payload.Email,
		Password: payload.Password,
		Name:     payload.Name,
		Phone:    payload.Phone,
	})
	if err != nil {
		return apperror.Respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// getProfile returns the user record for the currently authenticated user.
func (h *Handler) getProfile(c *fiber.Ctx) error {
	caller, err := auth.IdentityFromCtx(c)
	if err != nil {
		return apperror.Respond(c, err)
	}

	user, err := h.service.GetProfile(c.UserContext(), caller.UserID)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(user)
}

func (h *Handler) updateProfile(c *fiber.Ctx) error {
	caller, err := auth.IdentityFromCtx(c)
	if err != nil {
		return apperror.Respond(c, err)
	}
	payload := new(profileUpdateRequest)
	if err := c.BodyParser(payload); err != nil {
		return apperror.Respond(c, apperror.Validation("invalid request body"))
	}

	existing, err := h.service.GetProfile(c.UserContext(), caller.UserID)
	if err != nil {
		return apperror.Respond(c, err)
	}
	name, phone := existing.Name, existing.Phone
	if payload.Name != nil {
		name = *payload.Name
	}
	if payload.Phone != nil {
		phone = *payload.Phone
	}

	updated, err := h.service.UpdateProfile(c.UserContext(), caller.UserID, name, phone)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(updated)
}

func (h *Handler) getUsers(c *fiber.Ctx) error {
	users, err := h.service.List(c.UserContext())
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(users)
}
