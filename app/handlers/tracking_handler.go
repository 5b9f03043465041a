package handlers

import (
	"github.com/amirphl/mailpiece/app/dto"
	businessflow "github.com/amirphl/mailpiece/business_flow"
	"github.com/gofiber/fiber/v3"
)

// TrackingHandler attributes visits and conversions to recipients. Its routes are public.
type TrackingHandler struct {
	baseHandler
	trackingFlow businessflow.TrackingFlow
}

// NewTrackingHandler creates a new tracking handler
func NewTrackingHandler(trackingFlow businessflow.TrackingFlow) *TrackingHandler {
	return &TrackingHandler{
		baseHandler:  newBaseHandler(),
		trackingFlow: trackingFlow,
	}
}

// Visit records a QR scan and returns the microsite payload
// @Summary Record visit
// @Tags Tracking
// @Produce json
// @Param trackingId path string true "32 hex character tracking id"
// @Success 200 {object} dto.APIResponse{data=dto.MicrositeResponse} "Visit recorded"
// @Failure 400 {object} dto.APIResponse "Malformed tracking id"
// @Failure 404 {object} dto.APIResponse "Unknown tracking id"
// @Router /t/{trackingId} [get]
func (h *TrackingHandler) Visit(c fiber.Ctx) error {
	req := dto.RecordVisitRequest{
		TrackingID: c.Params("trackingId"),
		IPAddress:  c.IP(),
		UserAgent:  c.Get("User-Agent"),
	}
	if errs := h.validationErrors(&req); errs != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid tracking id", "INVALID_TRACKING_ID", errs)
	}

	ctx, cancel := h.requestContext(c, "/t/:trackingId")
	defer cancel()

	result, err := h.trackingFlow.RecordVisit(ctx, &req)
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Failed to record visit", "RECORD_VISIT_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Visit recorded", result)
}

// RecordConversion attributes a conversion to a tracking id
// @Summary Record conversion
// @Tags Tracking
// @Accept json
// @Produce json
// @Param request body dto.RecordConversionRequest true "Conversion"
// @Success 201 {object} dto.APIResponse{data=dto.RecordConversionResponse} "Conversion recorded"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Unknown tracking id"
// @Router /api/tracking/conversions [post]
func (h *TrackingHandler) RecordConversion(c fiber.Ctx) error {
	var req dto.RecordConversionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if errs := h.validationErrors(&req); errs != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", errs)
	}
	req.IPAddress = c.IP()
	req.UserAgent = c.Get("User-Agent")

	ctx, cancel := h.requestContext(c, "/api/tracking/conversions")
	defer cancel()

	result, err := h.trackingFlow.RecordConversion(ctx, &req)
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Failed to record conversion", "RECORD_CONVERSION_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Conversion recorded", result)
}
