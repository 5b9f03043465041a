package handlers

import (
	"github.com/amirphl/mailpiece/app/dto"
	businessflow "github.com/amirphl/mailpiece/business_flow"
	"github.com/gofiber/fiber/v3"
)

// DesignTemplateHandlerInterface defines the contract for design template handlers
type DesignTemplateHandlerInterface interface {
	SaveTemplate(c fiber.Ctx) error
	GetTemplate(c fiber.Ctx) error
	ListTemplates(c fiber.Ctx) error
}

// DesignTemplateHandler stores postcard designs
type DesignTemplateHandler struct {
	baseHandler
	designTemplateFlow businessflow.DesignTemplateFlow
}

// NewDesignTemplateHandler creates a new design template handler
func NewDesignTemplateHandler(designTemplateFlow businessflow.DesignTemplateFlow) *DesignTemplateHandler {
	return &DesignTemplateHandler{
		baseHandler:        newBaseHandler(),
		designTemplateFlow: designTemplateFlow,
	}
}

// SaveTemplate creates a template, or updates it in place when an id is sent
// @Summary Save design template
// @Tags Design Templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SaveDesignTemplateRequest true "Design template"
// @Success 200 {object} dto.APIResponse{data=dto.DesignTemplateResponse} "Template saved"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Template not found"
// @Router /api/design-templates [post]
func (h *DesignTemplateHandler) SaveTemplate(c fiber.Ctx) error {
	var req dto.SaveDesignTemplateRequest
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

	ctx, cancel := h.requestContext(c, "/api/design-templates")
	defer cancel()

	result, err := h.designTemplateFlow.SaveTemplate(ctx, &req, h.clientMetadata(c))
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Failed to save design template", "SAVE_TEMPLATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Design template saved", result)
}

// GetTemplate returns one template including its canvas
// @Summary Get design template
// @Tags Design Templates
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template UUID"
// @Success 200 {object} dto.APIResponse{data=dto.DesignTemplateResponse} "Template"
// @Failure 404 {object} dto.APIResponse "Template not found"
// @Router /api/design-templates/{id} [get]
func (h *DesignTemplateHandler) GetTemplate(c fiber.Ctx) error {
	customerID, ok := h.customerID(c)
	if !ok {
		return h.missingCustomer(c)
	}

	ctx, cancel := h.requestContext(c, "/api/design-templates/:id")
	defer cancel()

	result, err := h.designTemplateFlow.GetTemplate(ctx, customerID, c.Params("id"))
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Failed to retrieve design template", "GET_TEMPLATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Design template retrieved", result)
}

// ListTemplates pages through templates without their canvas bodies
// @Summary List design templates
// @Tags Design Templates
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.ListDesignTemplatesResponse} "Templates"
// @Router /api/design-templates [get]
func (h *DesignTemplateHandler) ListTemplates(c fiber.Ctx) error {
	customerID, ok := h.customerID(c)
	if !ok {
		return h.missingCustomer(c)
	}
	page, limit := pageParams(c)

	ctx, cancel := h.requestContext(c, "/api/design-templates")
	defer cancel()

	result, err := h.designTemplateFlow.ListTemplates(ctx, &dto.ListDesignTemplatesRequest{CustomerID: customerID, Page: page, Limit: limit})
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Failed to list design templates", "LIST_TEMPLATES_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Design templates retrieved", result)
}
