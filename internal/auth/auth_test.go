package auth

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
)

const secret = "test-secret"

func newApp() *fiber.App {
	app := fiber.New()
	app.Use(Middleware(secret))
	app.Get("/me", func(c *fiber.Ctx) error {
		id, err := IdentityFromCtx(c)
		if err != nil {
			return apperror.Respond(c, err)
		}
		return c.JSON(fiber.Map{"userId": id.UserID, "isAdmin": id.IsAdmin})
	})
	app.Get("/admin", RequireAdmin(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func get(t *testing.T, app *fiber.App, path, token string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := app.Test(req)
	require.NoError(t, err)
	b, _ := io.ReadAll(res.Body)
	return res.StatusCode, string(b)
}

func TestMiddleware_AcceptsIssuedToken(t *testing.T) {
	token, err := IssueToken(secret, time.Hour, 7, "a@park.test", false)
	require.NoError(t, err)

	status, body := get(t, newApp(), "/me", token)

	assert.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"userId":7,"isAdmin":false}`, body)
}

func TestMiddleware_RejectsMissingOrForeignToken(t *testing.T) {
	app := newApp()

	status, body := get(t, app, "/me", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.JSONEq(t, `{"message":"unauthorized"}`, body)

	forged, err := IssueToken("other-secret", time.Hour, 7, "a@park.test", true)
	require.NoError(t, err)
	status, _ = get(t, app, "/me", forged)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestMiddleware_RejectsExpiredToken(t *testing.T) {
	token, err := IssueToken(secret, -time.Minute, 7, "a@park.test", false)
	require.NoError(t, err)

	status, _ := get(t, newApp(), "/me", token)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestRequireAdmin(t *testing.T) {
	app := newApp()
	user, _ := IssueToken(secret, time.Hour, 7, "a@park.test", false)
	admin, _ := IssueToken(secret, time.Hour, 1, "root@park.test", true)

	status, _ := get(t, app, "/admin", user)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = get(t, app, "/admin", admin)
	assert.Equal(t, fiber.StatusNoContent, status)
}

func TestResolveTarget(t *testing.T) {
	user := Identity{UserID: 7}
	admin := Identity{UserID: 1, IsAdmin: true}

	got, err := ResolveTarget(user, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	got, err = ResolveTarget(user, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	_, err = ResolveTarget(user, 8)
	assert.ErrorIs(t, err, apperror.ErrAuthorization)

	got, err = ResolveTarget(admin, 8)
	require.NoError(t, err)
	assert.Equal(t, 8, got)
}
