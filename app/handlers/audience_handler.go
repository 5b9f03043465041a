package handlers

import (
	"github.com/amirphl/mailpiece/app/dto"
	businessflow "github.com/amirphl/mailpiece/business_flow"
	"github.com/gofiber/fiber/v3"
)

// AudienceHandlerInterface defines the contract for audience handlers
type AudienceHandlerInterface interface {
	Count(c fiber.Ctx) error
	Purchase(c fiber.Ctx) error
	Save(c fiber.Ctx) error
	ListSaved(c fiber.Ctx) error
}

// AudienceHandler handles audience counting, purchase and saved audiences
type AudienceHandler struct {
	baseHandler
	audienceFlow businessflow.AudienceFlow
}

// NewAudienceHandler creates a new audience handler
func NewAudienceHandler(audienceFlow businessflow.AudienceFlow) *AudienceHandler {
	return &AudienceHandler{
		baseHandler:  newBaseHandler(),
		audienceFlow: audienceFlow,
	}
}

// Count estimates and prices an audience
// @Summary Count audience
// @Description Estimate the number of contacts matching the filters and price them. Margin is only returned to admins.
// @Tags Audience
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.AudienceFilters true "Audience filters"
// @Success 200 {object} dto.APIResponse{data=dto.AudienceCountResponse} "Audience counted"
// @Failure 400 {object} dto.APIResponse "Invalid filters"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 502 {object} dto.APIResponse "Contact provider unavailable"
// @Router /api/audience/count [post]
func (h *AudienceHandler) Count(c fiber.Ctx) error {
	var req dto.AudienceCountRequest
	if err := c.Bind().JSON(&req.AudienceFilters); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	customerID, ok := h.customerID(c)
	if !ok {
		return h.missingCustomer(c)
	}
	req.CustomerID = customerID
	req.IsAdmin = h.isAdmin(c)

	ctx, cancel := h.requestContext(c, "/api/audience/count")
	defer cancel()

	result, err := h.audienceFlow.Count(ctx, &req)
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Audience count failed", "AUDIENCE_COUNT_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Audience counted", result)
}

// Purchase buys contacts into a new recipient list
// @Summary Purchase audience
// @Description Re-count and re-price the audience, debit credits and import the contacts into a recipient list
// @Tags Audience
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.PurchaseAudienceRequest true "Purchase request"
// @Success 201 {object} dto.APIResponse{data=dto.PurchaseAudienceResponse} "Audience purchased"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 402 {object} dto.APIResponse "Insufficient credits"
// @Failure 422 {object} dto.APIResponse "No contacts available"
// @Failure 502 {object} dto.APIResponse "Contact provider unavailable"
// @Router /api/audience/purchase [post]
func (h *AudienceHandler) Purchase(c fiber.Ctx) error {
	var req dto.PurchaseAudienceRequest
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

	ctx, cancel := h.requestContext(c, "/api/audience/purchase")
	defer cancel()

	result, err := h.audienceFlow.Purchase(ctx, &req, h.clientMetadata(c))
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Audience purchase failed", "AUDIENCE_PURCHASE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Audience purchased", result)
}

// Save stores a named audience
// @Summary Save audience
// @Tags Audience
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SaveAudienceRequest true "Saved audience"
// @Success 201 {object} dto.APIResponse{data=dto.SavedAudienceResponse} "Audience saved"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/audience/save [post]
func (h *AudienceHandler) Save(c fiber.Ctx) error {
	var req dto.SaveAudienceRequest
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

	ctx, cancel := h.requestContext(c, "/api/audience/save")
	defer cancel()

	result, err := h.audienceFlow.Save(ctx, &req, h.clientMetadata(c))
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Failed to save audience", "SAVE_AUDIENCE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Audience saved", result)
}

// ListSaved pages through saved audiences
// @Summary List saved audiences
// @Tags Audience
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.ListSavedAudiencesResponse} "Saved audiences"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/audience/saved [get]
func (h *AudienceHandler) ListSaved(c fiber.Ctx) error {
	customerID, ok := h.customerID(c)
	if !ok {
		return h.missingCustomer(c)
	}
	page, limit := pageParams(c)

	ctx, cancel := h.requestContext(c, "/api/audience/saved")
	defer cancel()

	result, err := h.audienceFlow.ListSaved(ctx, &dto.ListSavedAudiencesRequest{CustomerID: customerID, Page: page, Limit: limit})
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Failed to list saved audiences", "LIST_SAVED_AUDIENCES_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Saved audiences retrieved", result)
}
