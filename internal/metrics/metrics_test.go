package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_CountsByRoutePattern(t *testing.T) {
	m := New()
	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/api/v1/orders/:orderNumber", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	for _, n := range []string{"1111111111", "2222222222"} {
		_, err := app.Test(httptest.NewRequest("GET", "/api/v1/orders/"+n, nil))
		require.NoError(t, err)
	}

	got := testutil.ToFloat64(m.Requests.WithLabelValues("GET", "/api/v1/orders/:orderNumber", "204"))
	assert.Equal(t, float64(2), got)
}

func TestObserveCheckout(t *testing.T) {
	m := New()
	m.ObserveCheckout("created", 12*time.Millisecond)
	m.ObserveCheckout("created", 8*time.Millisecond)
	m.ObserveCheckout("empty_cart", time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Checkouts.WithLabelValues("created")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Checkouts.WithLabelValues("empty_cart")))
}

func TestHandler_ExposesRegistry(t *testing.T) {
	m := New()
	m.ObserveCheckout("created", time.Millisecond)
	app := fiber.New()
	app.Get("/metrics", m.Handler())

	res, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	b, _ := io.ReadAll(res.Body)
	assert.True(t, strings.Contains(string(b), `parkshop_checkouts_total{outcome="created"} 1`))
}
