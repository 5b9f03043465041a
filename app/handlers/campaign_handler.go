package handlers

import (
	"github.com/amirphl/mailpiece/app/dto"
	businessflow "github.com/amirphl/mailpiece/business_flow"
	"github.com/gofiber/fiber/v3"
)

// CampaignHandlerInterface defines the contract for campaign handlers
type CampaignHandlerInterface interface {
	CreateCampaign(c fiber.Ctx) error
	UpdateCampaign(c fiber.Ctx) error
	GetCampaign(c fiber.Ctx) error
	ListCampaigns(c fiber.Ctx) error
	GetPerformance(c fiber.Ctx) error
}

// CampaignHandler handles campaign-related HTTP requests
type CampaignHandler struct {
	baseHandler
	campaignFlow businessflow.CampaignFlow
	trackingFlow businessflow.TrackingFlow
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaignFlow businessflow.CampaignFlow, trackingFlow businessflow.TrackingFlow) *CampaignHandler {
	return &CampaignHandler{
		baseHandler:  newBaseHandler(),
		campaignFlow: campaignFlow,
		trackingFlow: trackingFlow,
	}
}

// CreateCampaign handles the campaign creation process
// @Summary Create Campaign
// @Description Create a campaign from a design template, a recipient list and variable mappings. A schedule date makes it scheduled.
// @Tags Campaigns
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateCampaignRequest true "Campaign creation data"
// @Success 201 {object} dto.APIResponse{data=dto.CampaignResponse} "Campaign created successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 401 {object} dto.APIResponse "Unauthorized - customer not found or inactive"
// @Failure 404 {object} dto.APIResponse "Design template or recipient list not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/campaigns [post]
func (h *CampaignHandler) CreateCampaign(c fiber.Ctx) error {
	var req dto.CreateCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	// Validate request
	if errs := h.validationErrors(&req); errs != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", errs)
	}

	// Get authenticated customer ID from context
	customerID, ok := h.customerID(c)
	if !ok {
		return h.missingCustomer(c)
	}
	req.CustomerID = customerID

	ctx, cancel := h.requestContext(c, "/api/campaigns")
	defer cancel()

	result, err := h.campaignFlow.CreateCampaign(ctx, &req, h.clientMetadata(c))
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Campaign creation failed", "CAMPAIGN_CREATION_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Campaign created successfully", result)
}

// UpdateCampaign handles the campaign update process
// @Summary Update Campaign
// @Description Patch a campaign. Content changes need a draft or scheduled campaign; status changes follow the lifecycle.
// @Tags Campaigns
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Campaign UUID"
// @Param request body dto.UpdateCampaignRequest true "Campaign update data"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignResponse} "Campaign updated successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 403 {object} dto.APIResponse "Forbidden - campaign access denied"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 409 {object} dto.APIResponse "Update not allowed in current status"
// @Router /api/campaigns/{id} [patch]
func (h *CampaignHandler) UpdateCampaign(c fiber.Ctx) error {
	campaignID := c.Params("id")
	if campaignID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign id is required", "MISSING_CAMPAIGN_ID", nil)
	}

	var req dto.UpdateCampaignRequest
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
	req.UUID = campaignID
	req.CustomerID = customerID

	ctx, cancel := h.requestContext(c, "/api/campaigns/:id")
	defer cancel()

	result, err := h.campaignFlow.UpdateCampaign(ctx, &req, h.clientMetadata(c))
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Campaign update failed", "CAMPAIGN_UPDATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign updated successfully", result)
}

// GetCampaign returns one campaign
// @Summary Get Campaign
// @Tags Campaigns
// @Produce json
// @Security BearerAuth
// @Param id path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignResponse} "Campaign"
// @Failure 403 {object} dto.APIResponse "Forbidden"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/campaigns/{id} [get]
func (h *CampaignHandler) GetCampaign(c fiber.Ctx) error {
	customerID, ok := h.customerID(c)
	if !ok {
		return h.missingCustomer(c)
	}

	ctx, cancel := h.requestContext(c, "/api/campaigns/:id")
	defer cancel()

	result, err := h.campaignFlow.GetCampaign(ctx, &dto.GetCampaignRequest{UUID: c.Params("id"), CustomerID: customerID})
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Failed to retrieve campaign", "GET_CAMPAIGN_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign retrieved", result)
}

// ListCampaigns lists the caller's campaigns
// @Summary List Campaigns
// @Tags Campaigns
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param orderby query string false "newest or oldest" default(newest)
// @Param status query string false "Filter by status"
// @Success 200 {object} dto.APIResponse{data=dto.ListCampaignsResponse} "Campaigns"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Router /api/campaigns [get]
func (h *CampaignHandler) ListCampaigns(c fiber.Ctx) error {
	customerID, ok := h.customerID(c)
	if !ok {
		return h.missingCustomer(c)
	}

	page, limit := pageParams(c)
	req := dto.ListCampaignsRequest{
		CustomerID: customerID,
		Page:       page,
		Limit:      limit,
		OrderBy:    c.Query("orderby", "newest"),
	}
	if status := c.Query("status"); status != "" {
		req.Status = &status
	}
	if errs := h.validationErrors(&req); errs != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", errs)
	}

	ctx, cancel := h.requestContext(c, "/api/campaigns")
	defer cancel()

	result, err := h.campaignFlow.ListCampaigns(ctx, &req)
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Failed to list campaigns", "LIST_CAMPAIGNS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaigns retrieved", result)
}

// GetPerformance returns attribution stats for a campaign
// @Summary Campaign performance
// @Description Visits, conversions, conversion rate and its percentile rank among all campaigns with recipients
// @Tags Campaigns
// @Produce json
// @Security BearerAuth
// @Param id path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignPerformanceResponse} "Performance"
// @Failure 403 {object} dto.APIResponse "Forbidden"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/campaigns/{id}/performance [get]
func (h *CampaignHandler) GetPerformance(c fiber.Ctx) error {
	customerID, ok := h.customerID(c)
	if !ok {
		return h.missingCustomer(c)
	}

	ctx, cancel := h.requestContext(c, "/api/campaigns/:id/performance")
	defer cancel()

	result, err := h.trackingFlow.GetPerformance(ctx, customerID, c.Params("id"))
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Failed to retrieve performance", "GET_PERFORMANCE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Performance retrieved", result)
}
