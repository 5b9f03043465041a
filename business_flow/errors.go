// Package businessflow contains the core business logic and use cases for audience, credit, campaign and tracking workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Customer-related errors
	ErrCustomerNotFound = errors.New("customer not found")
	ErrAccountInactive  = errors.New("account is inactive")
	ErrAdminRequired    = errors.New("admin privileges required")

	// Wallet errors
	ErrWalletNotFound          = errors.New("wallet not found")
	ErrBalanceSnapshotNotFound = errors.New("balance snapshot not found")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrAmountTooLow            = errors.New("amount must be at least one cent")

	// Audience errors
	ErrEmptyFilters        = errors.New("at least one filter criterion is required")
	ErrInvalidFilters      = errors.New("invalid audience filters")
	ErrMaxContactsInvalid  = errors.New("maxContacts must be positive")
	ErrProviderUnavailable = errors.New("contact provider unavailable")
	ErrNoContactsAvailable = errors.New("no contacts match the filters")
	ErrSavedAudienceName   = errors.New("saved audience name is required")

	// Campaign errors
	ErrCampaignNotFound         = errors.New("campaign not found")
	ErrCampaignAccessDenied     = errors.New("access denied to campaign")
	ErrCampaignUpdateNotAllowed = errors.New("campaign cannot be updated in current status")
	ErrInvalidStatusTransition  = errors.New("invalid campaign status transition")
	ErrCampaignNameRequired     = errors.New("campaign name is required")
	ErrScheduleTimeTooSoon      = errors.New("schedule time must be in the future")
	ErrScheduleTimeRequired     = errors.New("scheduled campaigns need a schedule time")
	ErrInvalidVariableMapping   = errors.New("variable mapping refers to an unknown contact field")

	// Design template and canvas errors
	ErrDesignTemplateNotFound = errors.New("design template not found")
	ErrInvalidCanvasJSON      = errors.New("canvas payload is not valid JSON")
	ErrCanvasSessionNotFound  = errors.New("canvas session not found or expired")
	ErrCanvasPayloadTooLarge  = errors.New("canvas payload too large")

	// Recipient list and tracking errors
	ErrRecipientListNotFound = errors.New("recipient list not found")
	ErrTrackingIDNotFound    = errors.New("tracking id not found")

	// Infrastructure errors
	ErrCacheNotAvailable = errors.New("cache not available")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsCustomerNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsAdminRequired(err error) bool {
	return errors.Is(err, ErrAdminRequired)
}

func IsWalletNotFound(err error) bool {
	return errors.Is(err, ErrWalletNotFound)
}

func IsBalanceSnapshotNotFound(err error) bool {
	return errors.Is(err, ErrBalanceSnapshotNotFound)
}

func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

func IsAmountTooLow(err error) bool {
	return errors.Is(err, ErrAmountTooLow)
}

func IsEmptyFilters(err error) bool {
	return errors.Is(err, ErrEmptyFilters)
}

func IsInvalidFilters(err error) bool {
	return errors.Is(err, ErrInvalidFilters)
}

func IsMaxContactsInvalid(err error) bool {
	return errors.Is(err, ErrMaxContactsInvalid)
}

func IsProviderUnavailable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}

func IsNoContactsAvailable(err error) bool {
	return errors.Is(err, ErrNoContactsAvailable)
}

func IsSavedAudienceName(err error) bool {
	return errors.Is(err, ErrSavedAudienceName)
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsCampaignAccessDenied(err error) bool {
	return errors.Is(err, ErrCampaignAccessDenied)
}

func IsCampaignUpdateNotAllowed(err error) bool {
	return errors.Is(err, ErrCampaignUpdateNotAllowed)
}

func IsInvalidStatusTransition(err error) bool {
	return errors.Is(err, ErrInvalidStatusTransition)
}

func IsCampaignNameRequired(err error) bool {
	return errors.Is(err, ErrCampaignNameRequired)
}

func IsScheduleTimeTooSoon(err error) bool {
	return errors.Is(err, ErrScheduleTimeTooSoon)
}

func IsScheduleTimeRequired(err error) bool {
	return errors.Is(err, ErrScheduleTimeRequired)
}

func IsInvalidVariableMapping(err error) bool {
	return errors.Is(err, ErrInvalidVariableMapping)
}

func IsDesignTemplateNotFound(err error) bool {
	return errors.Is(err, ErrDesignTemplateNotFound)
}

func IsInvalidCanvasJSON(err error) bool {
	return errors.Is(err, ErrInvalidCanvasJSON)
}

func IsCanvasSessionNotFound(err error) bool {
	return errors.Is(err, ErrCanvasSessionNotFound)
}

func IsCanvasPayloadTooLarge(err error) bool {
	return errors.Is(err, ErrCanvasPayloadTooLarge)
}

func IsRecipientListNotFound(err error) bool {
	return errors.Is(err, ErrRecipientListNotFound)
}

func IsTrackingIDNotFound(err error) bool {
	return errors.Is(err, ErrTrackingIDNotFound)
}

func IsCacheNotAvailable(err error) bool {
	return errors.Is(err, ErrCacheNotAvailable)
}
