package handlers

import (
	"github.com/amirphl/mailpiece/app/dto"
	businessflow "github.com/amirphl/mailpiece/business_flow"
	"github.com/gofiber/fiber/v3"
)

// CreditsHandlerInterface defines the contract for credit handlers
type CreditsHandlerInterface interface {
	GetBalance(c fiber.Ctx) error
	Deposit(c fiber.Ctx) error
	History(c fiber.Ctx) error
	CheckAdmin(c fiber.Ctx) error
}

// CreditsHandler exposes the organization's credit balance
type CreditsHandler struct {
	baseHandler
	creditFlow businessflow.CreditFlow
}

// NewCreditsHandler creates a new credits handler
func NewCreditsHandler(creditFlow businessflow.CreditFlow) *CreditsHandler {
	return &CreditsHandler{
		baseHandler: newBaseHandler(),
		creditFlow:  creditFlow,
	}
}

// GetBalance returns the caller's credit balance
// @Summary Get credit balance
// @Tags Credits
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.CreditBalanceResponse} "Credit balance"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/organization/credits [get]
func (h *CreditsHandler) GetBalance(c fiber.Ctx) error {
	customerID, ok := h.customerID(c)
	if !ok {
		return h.missingCustomer(c)
	}

	ctx, cancel := h.requestContext(c, "/api/organization/credits")
	defer cancel()

	result, err := h.creditFlow.GetBalance(ctx, customerID)
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Failed to retrieve credits", "GET_CREDITS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Credits retrieved", result)
}

// Deposit credits a customer's wallet
// @Summary Deposit credits (admin)
// @Tags Credits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.DepositCreditsRequest true "Deposit"
// @Success 201 {object} dto.APIResponse{data=dto.DepositCreditsResponse} "Credits deposited"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 403 {object} dto.APIResponse "Admin privileges required"
// @Router /api/organization/credits/deposit [post]
func (h *CreditsHandler) Deposit(c fiber.Ctx) error {
	var req dto.DepositCreditsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if errs := h.validationErrors(&req); errs != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", errs)
	}

	adminID, ok := h.customerID(c)
	if !ok {
		return h.missingCustomer(c)
	}
	if !h.isAdmin(c) {
		return h.ErrorResponse(c, fiber.StatusForbidden, "Admin privileges required", "ADMIN_REQUIRED", nil)
	}
	req.AdminID = adminID

	ctx, cancel := h.requestContext(c, "/api/organization/credits/deposit")
	defer cancel()

	result, err := h.creditFlow.Deposit(ctx, &req, h.clientMetadata(c))
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Credit deposit failed", "DEPOSIT_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Credits deposited", result)
}

// History pages through the caller's balance changes
// @Summary Credit history
// @Tags Credits
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.CreditHistoryResponse} "Credit history"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/organization/credits/history [get]
func (h *CreditsHandler) History(c fiber.Ctx) error {
	customerID, ok := h.customerID(c)
	if !ok {
		return h.missingCustomer(c)
	}
	page, limit := pageParams(c)

	ctx, cancel := h.requestContext(c, "/api/organization/credits/history")
	defer cancel()

	result, err := h.creditFlow.History(ctx, &dto.CreditHistoryRequest{CustomerID: customerID, Page: page, Limit: limit})
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Failed to retrieve credit history", "CREDIT_HISTORY_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Credit history retrieved", result)
}

// CheckAdmin reports the admin flag of the caller's token without touching the database
// @Summary Check admin
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.CheckAdminResponse} "Admin flag"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/auth/check-admin [get]
func (h *CreditsHandler) CheckAdmin(c fiber.Ctx) error {
	if _, ok := h.customerID(c); !ok {
		return h.missingCustomer(c)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Admin status retrieved", dto.CheckAdminResponse{IsAdmin: h.isAdmin(c)})
}
