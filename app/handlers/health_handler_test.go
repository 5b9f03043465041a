package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	ok := func(context.Context) error { return nil }

	t.Run("healthy", func(t *testing.T) {
		app := fiber.New()
		app.Get("/api/health", NewHealthHandler("mailpiece", BuildInfo{Version: "1.2.0", Commit: "9f2c1ab", BuildTime: "2026-10-01T08:00:00Z"}, map[string]HealthCheck{"database": ok}).Health)

		resp, envelope := doJSON(t, app, http.MethodGet, "/api/health", nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		data := dataMap(t, envelope)
		assert.Equal(t, "ok", data["status"])
		assert.Equal(t, "1.2.0", data["version"])
		assert.Equal(t, "9f2c1ab", data["commit"])
		assert.Equal(t, "2026-10-01T08:00:00Z", data["buildTime"])
		assert.Equal(t, map[string]any{"database": "ok"}, data["dependencies"])
	})

	t.Run("no checks", func(t *testing.T) {
		app := fiber.New()
		app.Get("/api/health", NewHealthHandler("mailpiece", BuildInfo{Version: "dev"}, nil).Health)

		resp, _ := doJSON(t, app, http.MethodGet, "/api/health", nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("degraded", func(t *testing.T) {
		app := fiber.New()
		app.Get("/api/health", NewHealthHandler("mailpiece", BuildInfo{Version: "dev"}, map[string]HealthCheck{
			"database": ok,
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		}).Health)

		resp, envelope := doJSON(t, app, http.MethodGet, "/api/health", nil)
		assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "DEPENDENCY_DOWN", errorCode(t, envelope))

		details := envelope.Error.(map[string]any)["details"].(map[string]any)
		assert.Equal(t, "degraded", details["status"])
		deps := details["dependencies"].(map[string]any)
		assert.Equal(t, "down: connection refused", deps["redis"])
	})
}
