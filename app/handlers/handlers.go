// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/amirphl/mailpiece/app/dto"
	businessflow "github.com/amirphl/mailpiece/business_flow"
	"github.com/amirphl/mailpiece/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

const defaultRequestTimeout = 30 * time.Second

// baseHandler carries the response helpers every handler shares
type baseHandler struct {
	validator *validator.Validate
}

func newBaseHandler() baseHandler {
	return baseHandler{validator: validator.New()}
}

func (h baseHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h baseHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// validationErrors returns human readable messages, or nil when req is valid
func (h baseHandler) validationErrors(req any) []string {
	err := h.validator.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return []string{err.Error()}
	}
	messages := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		messages = append(messages, getValidationErrorMessage(fe))
	}
	return messages
}

// requestContext creates a context with a timeout and request-scoped values for observability
func (h baseHandler) requestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)

	ctx = context.WithValue(ctx, utils.RequestIDKey, requestID(c))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, defaultRequestTimeout)

	return ctx, cancel
}

func (h baseHandler) clientMetadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	if id := requestID(c); id != "" {
		metadata.SetRequestID(id)
	}
	return metadata
}

// customerID reads the authenticated customer set by the auth middleware
func (h baseHandler) customerID(c fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("customer_id").(uint)
	return id, ok && id != 0
}

func (h baseHandler) isAdmin(c fiber.Ctx) bool {
	isAdmin, _ := c.Locals("is_admin").(bool)
	return isAdmin
}

func (h baseHandler) missingCustomer(c fiber.Ctx) error {
	return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
}

// BusinessErrorResponse maps business sentinels onto HTTP statuses. Unknown errors become 500 with fallbackCode.
func (h baseHandler) BusinessErrorResponse(c fiber.Ctx, err error, fallbackMessage, fallbackCode string) error {
	status, message, code := fiber.StatusInternalServerError, fallbackMessage, fallbackCode

	switch {
	case businessflow.IsCustomerNotFound(err):
		status, message, code = fiber.StatusUnauthorized, "Customer not found", "CUSTOMER_NOT_FOUND"
	case businessflow.IsAccountInactive(err):
		status, message, code = fiber.StatusUnauthorized, "Customer account is inactive", "ACCOUNT_INACTIVE"
	case businessflow.IsAdminRequired(err):
		status, message, code = fiber.StatusForbidden, "Admin privileges required", "ADMIN_REQUIRED"
	case businessflow.IsInsufficientFunds(err):
		status, message, code = fiber.StatusPaymentRequired, businessMessage(err, "Insufficient credits"), "INSUFFICIENT_FUNDS"
	case businessflow.IsAmountTooLow(err):
		status, message, code = fiber.StatusBadRequest, "Amount is too low", "AMOUNT_TOO_LOW"
	case businessflow.IsEmptyFilters(err):
		status, message, code = fiber.StatusBadRequest, "At least one filter criterion is required", "EMPTY_FILTERS"
	case businessflow.IsInvalidFilters(err):
		status, message, code = fiber.StatusBadRequest, businessMessage(err, "Invalid filters"), "INVALID_FILTERS"
	case businessflow.IsMaxContactsInvalid(err):
		status, message, code = fiber.StatusBadRequest, "maxContacts must be positive", "MAX_CONTACTS_INVALID"
	case businessflow.IsNoContactsAvailable(err):
		status, message, code = fiber.StatusUnprocessableEntity, "No contacts match the filters", "NO_CONTACTS_AVAILABLE"
	case businessflow.IsProviderUnavailable(err):
		status, message, code = fiber.StatusBadGateway, "Contact provider is unavailable", "PROVIDER_UNAVAILABLE"
	case businessflow.IsSavedAudienceName(err):
		status, message, code = fiber.StatusBadRequest, "Audience name is required", "SAVED_AUDIENCE_NAME_REQUIRED"
	case businessflow.IsCampaignNotFound(err):
		status, message, code = fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND"
	case businessflow.IsCampaignAccessDenied(err):
		status, message, code = fiber.StatusForbidden, "Access denied: campaign belongs to another customer", "CAMPAIGN_ACCESS_DENIED"
	case businessflow.IsCampaignUpdateNotAllowed(err):
		status, message, code = fiber.StatusConflict, "Campaign cannot be updated in current status", "CAMPAIGN_UPDATE_NOT_ALLOWED"
	case businessflow.IsInvalidStatusTransition(err):
		status, message, code = fiber.StatusConflict, "Invalid campaign status transition", "INVALID_STATUS_TRANSITION"
	case businessflow.IsCampaignNameRequired(err):
		status, message, code = fiber.StatusBadRequest, "Campaign name is required", "CAMPAIGN_NAME_REQUIRED"
	case businessflow.IsScheduleTimeTooSoon(err):
		status, message, code = fiber.StatusBadRequest, "Schedule time must be in the future", "SCHEDULE_TIME_TOO_SOON"
	case businessflow.IsScheduleTimeRequired(err):
		status, message, code = fiber.StatusBadRequest, "Schedule time is required", "SCHEDULE_TIME_REQUIRED"
	case businessflow.IsInvalidVariableMapping(err):
		status, message, code = fiber.StatusBadRequest, "Variable mappings reference unknown fields", "INVALID_VARIABLE_MAPPING"
	case businessflow.IsDesignTemplateNotFound(err):
		status, message, code = fiber.StatusNotFound, "Design template not found", "DESIGN_TEMPLATE_NOT_FOUND"
	case businessflow.IsInvalidCanvasJSON(err):
		status, message, code = fiber.StatusBadRequest, "Canvas payload is not valid JSON", "INVALID_CANVAS_JSON"
	case businessflow.IsCanvasPayloadTooLarge(err):
		status, message, code = fiber.StatusRequestEntityTooLarge, "Canvas payload is too large", "CANVAS_PAYLOAD_TOO_LARGE"
	case businessflow.IsCanvasSessionNotFound(err):
		status, message, code = fiber.StatusNotFound, "Canvas session not found or expired", "CANVAS_SESSION_NOT_FOUND"
	case businessflow.IsRecipientListNotFound(err):
		status, message, code = fiber.StatusNotFound, "Recipient list not found", "RECIPIENT_LIST_NOT_FOUND"
	case businessflow.IsTrackingIDNotFound(err):
		status, message, code = fiber.StatusNotFound, "Tracking id not found", "TRACKING_ID_NOT_FOUND"
	case businessflow.IsCacheNotAvailable(err):
		status, message, code = fiber.StatusServiceUnavailable, "Session storage is not available", "CACHE_NOT_AVAILABLE"
	case errors.Is(err, context.DeadlineExceeded):
		status, message, code = fiber.StatusGatewayTimeout, "Request timed out", "REQUEST_TIMEOUT"
	}

	if status >= fiber.StatusInternalServerError {
		log.Printf("%s: %v", fallbackCode, err)
	}
	return h.ErrorResponse(c, status, message, code, nil)
}

// businessMessage prefers the message carried by a BusinessError
func businessMessage(err error, fallback string) string {
	var be *businessflow.BusinessError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return fallback
}

func requestID(c fiber.Ctx) string {
	if id, ok := c.Locals("request_id").(string); ok && id != "" {
		return id
	}
	if id, ok := c.Locals("requestid").(string); ok && id != "" {
		return id
	}
	return c.Get("X-Request-ID")
}

// pageParams reads page and limit query parameters, ignoring malformed values
func pageParams(c fiber.Ctx) (int, int) {
	page, limit := 1, 20
	if v, err := strconv.Atoi(c.Query("page", "1")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(c.Query("limit", "20")); err == nil && v > 0 {
		limit = v
	}
	return page, limit
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "min":
		return err.Field() + " must be at least " + err.Param()
	case "max":
		return err.Field() + " must be at most " + err.Param()
	case "len":
		return err.Field() + " must be exactly " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "uuid":
		return err.Field() + " must be a valid UUID"
	case "url":
		return err.Field() + " must be a valid URL"
	case "hexadecimal":
		return err.Field() + " must be hexadecimal"
	case "numeric":
		return err.Field() + " must contain only numbers"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}
