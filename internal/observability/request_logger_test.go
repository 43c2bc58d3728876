package observability

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/academia-portal/pkg/util"
)

func TestRequestLoggerCountsRequests(t *testing.T) {
	metrics := NewMetrics()
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return c.Status(errorStatus(err)).SendString(err.Error())
		}
		return nil
	})
	app.Use(RequestLogger(zap.NewNop(), metrics))
	app.Get("/ok/:id", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/denied", func(*fiber.Ctx) error { return apperrors.NewForbidden("no") })

	for _, path := range []string{"/ok/1", "/ok/2", "/denied", "/missing"} {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil), -1)
		require.NoError(t, err)
		_ = resp.Body.Close()
	}

	requests := metrics.Snapshot()["requests"]
	assert.Equal(t, int64(2), requests["/ok/:id|GET|200"])
	assert.Equal(t, int64(1), requests["/denied|GET|403"])
	assert.Equal(t, int64(1), requests["/missing|GET|404"])
}
