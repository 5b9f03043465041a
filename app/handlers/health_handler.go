package handlers

import (
	"context"
	"time"

	"github.com/amirphl/mailpiece/utils"
	"github.com/gofiber/fiber/v3"
)

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// BuildInfo identifies the running binary
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// HealthHandler reports liveness together with the state of each dependency
type HealthHandler struct {
	baseHandler
	service string
	build   BuildInfo
	checks  map[string]HealthCheck
}

// NewHealthHandler creates a health handler. Checks may be nil or empty.
func NewHealthHandler(service string, build BuildInfo, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(),
		service:     service,
		build:       build,
		checks:      checks,
	}
}

// Health runs every registered check
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} dto.APIResponse "Service is healthy"
// @Failure 503 {object} dto.APIResponse "A dependency is down"
// @Router /api/health [get]
func (h *HealthHandler) Health(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	dependencies := make(fiber.Map, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			dependencies[name] = "down: " + err.Error()
			healthy = false
			continue
		}
		dependencies[name] = "ok"
	}

	data := fiber.Map{
		"status":       "ok",
		"timestamp":    utils.UTCNow().Unix(),
		"version":      h.build.Version,
		"commit":       h.build.Commit,
		"buildTime":    h.build.BuildTime,
		"service":      h.service,
		"dependencies": dependencies,
	}
	if !healthy {
		data["status"] = "degraded"
		return h.ErrorResponse(c, fiber.StatusServiceUnavailable, "Service is degraded", "DEPENDENCY_DOWN", data)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Service is healthy", data)
}
