package handlers

import (
	"github.com/amirphl/mailpiece/app/dto"
	businessflow "github.com/amirphl/mailpiece/business_flow"
	"github.com/gofiber/fiber/v3"
)

// CanvasSessionHandler parks canvas payloads too large for a URL
type CanvasSessionHandler struct {
	baseHandler
	canvasSessionFlow businessflow.CanvasSessionFlow
}

// NewCanvasSessionHandler creates a new canvas session handler
func NewCanvasSessionHandler(canvasSessionFlow businessflow.CanvasSessionFlow) *CanvasSessionHandler {
	return &CanvasSessionHandler{
		baseHandler:       newBaseHandler(),
		canvasSessionFlow: canvasSessionFlow,
	}
}

// Create stores a payload and returns its session id
// @Summary Create canvas session
// @Tags Canvas Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateCanvasSessionRequest true "Canvas payload"
// @Success 201 {object} dto.APIResponse{data=dto.CreateCanvasSessionResponse} "Session created"
// @Failure 400 {object} dto.APIResponse "Invalid payload"
// @Failure 413 {object} dto.APIResponse "Payload too large"
// @Failure 503 {object} dto.APIResponse "Session storage unavailable"
// @Router /api/canvas-session/create [post]
func (h *CanvasSessionHandler) Create(c fiber.Ctx) error {
	var req dto.CreateCanvasSessionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if errs := h.validationErrors(&req); errs != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", errs)
	}

	customerID, ok := h.customerID(c)
	if !ok {
		return h.missingCustomer(c)
	}
	req.CustomerID = customerID

	ctx, cancel := h.requestContext(c, "/api/canvas-session/create")
	defer cancel()

	result, err := h.canvasSessionFlow.Create(ctx, &req)
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Failed to create canvas session", "CANVAS_SESSION_CREATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Canvas session created", result)
}

// Get returns a stored payload to its owner
// @Summary Get canvas session
// @Tags Canvas Sessions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session id"
// @Success 200 {object} dto.APIResponse{data=dto.CanvasSessionResponse} "Session"
// @Failure 404 {object} dto.APIResponse "Session not found or expired"
// @Router /api/canvas-session/{id} [get]
func (h *CanvasSessionHandler) Get(c fiber.Ctx) error {
	customerID, ok := h.customerID(c)
	if !ok {
		return h.missingCustomer(c)
	}

	ctx, cancel := h.requestContext(c, "/api/canvas-session/:id")
	defer cancel()

	result, err := h.canvasSessionFlow.Get(ctx, customerID, c.Params("id"))
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Failed to load canvas session", "CANVAS_SESSION_GET_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Canvas session retrieved", result)
}
