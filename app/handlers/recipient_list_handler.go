package handlers

import (
	"strconv"

	"github.com/amirphl/mailpiece/app/dto"
	businessflow "github.com/amirphl/mailpiece/business_flow"
	"github.com/gofiber/fiber/v3"
)

// RecipientListHandler serves purchased recipient lists
type RecipientListHandler struct {
	baseHandler
	recipientListFlow businessflow.RecipientListFlow
}

// NewRecipientListHandler creates a new recipient list handler
func NewRecipientListHandler(recipientListFlow businessflow.RecipientListFlow) *RecipientListHandler {
	return &RecipientListHandler{
		baseHandler:       newBaseHandler(),
		recipientListFlow: recipientListFlow,
	}
}

// GetRecipientList returns a list and one page of its contacts
// @Summary Get recipient list
// @Tags Recipient Lists
// @Produce json
// @Security BearerAuth
// @Param id path string true "Recipient list UUID"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.RecipientListResponse} "Recipient list"
// @Failure 404 {object} dto.APIResponse "Recipient list not found"
// @Router /api/recipient-lists/{id} [get]
func (h *RecipientListHandler) GetRecipientList(c fiber.Ctx) error {
	customerID, ok := h.customerID(c)
	if !ok {
		return h.missingCustomer(c)
	}
	page, limit := pageParams(c)

	ctx, cancel := h.requestContext(c, "/api/recipient-lists/:id")
	defer cancel()

	result, err := h.recipientListFlow.GetRecipientList(ctx, &dto.GetRecipientListRequest{
		UUID:       c.Params("id"),
		CustomerID: customerID,
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Failed to retrieve recipient list", "GET_RECIPIENT_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Recipient list retrieved", result)
}

// ExportRecipientList downloads the whole list as a spreadsheet
// @Summary Export recipient list
// @Tags Recipient Lists
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param id path string true "Recipient list UUID"
// @Success 200 {file} file "XLSX workbook"
// @Failure 404 {object} dto.APIResponse "Recipient list not found"
// @Router /api/recipient-lists/{id}/export [get]
func (h *RecipientListHandler) ExportRecipientList(c fiber.Ctx) error {
	customerID, ok := h.customerID(c)
	if !ok {
		return h.missingCustomer(c)
	}

	ctx, cancel := h.requestContext(c, "/api/recipient-lists/:id/export")
	defer cancel()

	export, err := h.recipientListFlow.ExportRecipientList(ctx, customerID, c.Params("id"), h.clientMetadata(c))
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Failed to export recipient list", "EXPORT_RECIPIENT_LIST_FAILED")
	}

	c.Set("Content-Type", export.ContentType)
	c.Set("Content-Disposition", "attachment; filename="+strconv.Quote(export.FileName))
	return c.Status(fiber.StatusOK).Send(export.Data)
}
