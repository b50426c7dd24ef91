package auth

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/golang-jwt/jwt/v4"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
)

// Identity is the verified caller of a request.
type Identity struct {
	UserID  int
	IsAdmin bool
}

// CanActFor reports whether the caller may read or change data owned by userID.
func (i Identity) CanActFor(userID int) bool {
	return i.IsAdmin || i.UserID == userID
}

// ResolveTarget returns the user a request operates on. A zero target means
// the caller. Only admins may name another user.
func ResolveTarget(caller Identity, target int) (int, error) {
	if target <= 0 {
		return caller.UserID, nil
	}
	if !caller.CanActFor(target) {
		return 0, apperror.Authorization("cannot act on behalf of another user")
	}
	return target, nil
}

// IssueToken signs an HS256 token carrying user_id, email, is_admin and exp.
func IssueToken(secret string, ttl time.Duration, userID int, email string, isAdmin bool) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  userID,
		"email":    email,
		"is_admin": isAdmin,
		"exp":      time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Middleware verifies the bearer token and stores it under c.Locals("user").
func Middleware(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:    []byte(secret),
		SigningMethod: "HS256",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
		},
	})
}

// RequireAdmin rejects callers without the is_admin claim.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := IdentityFromCtx(c)
		if err != nil {
			return apperror.Respond(c, err)
		}
		if !id.IsAdmin {
			return apperror.Respond(c, apperror.Authorization("admin only"))
		}
		return c.Next()
	}
}

// IdentityFromCtx reads the claims placed in the context by the JWT middleware.
func IdentityFromCtx(c *fiber.Ctx) (Identity, error) {
	unauthorized := apperror.Unauthenticated("unauthorized")

	tok, ok := c.Locals("user").(*jwt.Token)
	if !ok || tok == nil {
		return Identity{}, unauthorized
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, unauthorized
	}

	userID, ok := claimInt(claims["user_id"])
	if !ok || userID <= 0 {
		return Identity{}, unauthorized
	}
	isAdmin, _ := claims["is_admin"].(bool)
	return Identity{UserID: userID, IsAdmin: isAdmin}, nil
}

func claimInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case string:
		id, err := strconv.Atoi(v)
		return id, err == nil
	default:
		return 0, false
	}
}
