package user

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

// makeAppWithUserHandler injects a jwt.Token into locals when X-User-ID is
// set, so tests do not need the full jwtware middleware.
func makeAppWithUserHandler(uHandler *Handler) *fiber.App {
	app := fiber.New()
	uHandler.RegisterPublicRoutes(app)
	app.Use(func(c *fiber.Ctx) error {
		if v := c.Get("X-User-ID"); v != "" {
			id, err := strconv.Atoi(v)
			if err == nil {
				claims := jwt.MapClaims{"user_id": id}
				tok := &jwt.Token{Claims: claims}
				c.Locals("user", tok)
			}
		}
		return c.Next()
	})
	uHandler.RegisterProtectedRoutes(app)
	return app
}

func newTestService(seed []User) *Service {
	svc := NewService(NewInMemoryRepository(seed), testSecret, time.Hour)
	svc.hashCost = bcrypt.MinCost
	return svc
}

func post(t *testing.T, app *fiber.App, method, path, body, userID string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	b, _ := io.ReadAll(res.Body)
	return res.StatusCode, b
}

func TestSignUpAndSignIn(t *testing.T) {
	app := makeAppWithUserHandler(NewHandler(newTestService(nil)))

	status, body := post(t, app, "POST", "/api/v1/sign-up", `{"email":"Jenny@Example.com","password":"s3cret-pass","name":"Jenny"}`, "")
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", status, body)
	}
	if strings.Contains(string(body), "s3cret") || strings.Contains(string(body), `"password"`) {
		t.Fatalf("password leaked: %s", body)
	}

	status, _ = post(t, app, "POST", "/api/v1/sign-up", `{"email":"jenny@example.com","password":"another-pass","name":"J"}`, "")
	if status != fiber.StatusConflict {
		t.Fatalf("expected 409 for duplicate email got %d", status)
	}

	status, _ = post(t, app, "POST", "/api/v1/sign-in", `{"email":"jenny@example.com","password":"wrong-pass"}`, "")
	if status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password got %d", status)
	}

	status, body = post(t, app, "POST", "/api/v1/sign-in", `{"email":"jenny@example.com","password":"s3cret-pass"}`, "")
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", status, body)
	}
	var out struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}

	tok, err := jwt.Parse(out.Token, func(*jwt.Token) (interface{}, error) { return []byte(testSecret), nil })
	if err != nil || !tok.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	claims := tok.Claims.(jwt.MapClaims)
	if claims["user_id"] != float64(out.User.ID) || claims["is_admin"] != false {
		t.Fatalf("unexpected claims %v", claims)
	}
}

func TestSignUp_Validation(t *testing.T) {
	app := makeAppWithUserHandler(NewHandler(newTestService(nil)))

	cases := []string{
		`{"email":"","password":"s3cret-pass","name":"A"}`,
		`{"email":"not-an-email","password":"s3cret-pass","name":"A"}`,
		`{"email":"a@example.com","password":"short","name":"A"}`,
	}
	for _, body := range cases {
		if status, _ := post(t, app, "POST", "/api/v1/sign-up", body, ""); status != fiber.StatusBadRequest {
			t.Fatalf("expected 400 for %s got %d", body, status)
		}
	}
}

func TestProfileRoute(t *testing.T) {
	seed := []User{{ID: 7, Email: "j@example.com", Password: "$2a$hash", Name: "Jenny", Phone: "123"}}
	app := makeAppWithUserHandler(NewHandler(newTestService(seed)))

	req := httptest.NewRequest("GET", "/api/v1/profile", nil)
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("profile request failed: %v", err)
	}
	if res.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected unauthorized status, got %d", res.StatusCode)
	}

	status, body := post(t, app, "GET", "/api/v1/profile", "", "7")
	if status != fiber.StatusOK || !strings.Contains(string(body), "j@example.com") {
		t.Fatalf("unexpected profile %d %s", status, body)
	}
	if strings.Contains(string(body), "$2a$hash") {
		t.Fatalf("password hash leaked: %s", body)
	}

	status, body = post(t, app, "PATCH", "/api/v1/profile", `{"phone":"0900000000"}`, "7")
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 got %d", status)
	}
	var updated User
	if err := json.Unmarshal(body, &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Name != "Jenny" || updated.Phone != "0900000000" {
		t.Fatalf("unexpected update %+v", updated)
	}

	if status, _ = post(t, app, "GET", "/api/v1/profile", "", "99"); status != fiber.StatusNotFound {
		t.Fatalf("expected 404 for unknown user got %d", status)
	}
}
