// Package businessflow contains the business logic for the application.
package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/amirphl/mailpiece/models"
	"github.com/amirphl/mailpiece/repository"
	"github.com/amirphl/mailpiece/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ClientMetadata holds client information for audit logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// createAuditLog writes an audit entry. Failures are logged and returned but never abort the caller.
func createAuditLog(ctx context.Context, auditRepo repository.AuditLogRepository, customer *models.Customer, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	var customerID *uint
	if customer != nil {
		customerID = &customer.ID
	}

	ipAddress := ""
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		CustomerID:   customerID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}

	if metadata != nil && len(metadata.Additional) > 0 {
		if raw, err := json.Marshal(metadata.Additional); err == nil {
			audit.Metadata = raw
		}
	}

	// Extract request ID from context if available
	if requestID, ok := ctx.Value(utils.RequestIDKey).(string); ok && requestID != "" {
		audit.RequestID = &requestID
	} else if metadata != nil && metadata.RequestID != "" {
		audit.RequestID = &metadata.RequestID
	}

	if err := auditRepo.Save(ctx, audit); err != nil {
		log.Printf("failed to write audit log %s: %v", action, err)
		return err
	}

	return nil
}

// getCustomer loads an active customer
func getCustomer(ctx context.Context, customerRepo repository.CustomerRepository, customerID uint) (models.Customer, error) {
	customer, err := customerRepo.ByID(ctx, customerID)
	if err != nil {
		return models.Customer{}, err
	}
	if customer == nil {
		return models.Customer{}, ErrCustomerNotFound
	}
	if customer.IsActive != nil && !*customer.IsActive {
		return models.Customer{}, ErrAccountInactive
	}
	return *customer, nil
}

func getWallet(ctx context.Context, walletRepo repository.WalletRepository, customerID uint) (*models.Wallet, error) {
	wallet, err := walletRepo.ByCustomerID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, ErrWalletNotFound
	}
	return wallet, nil
}

// getLatestBalanceSnapshot returns the authoritative balance of a wallet
func getLatestBalanceSnapshot(ctx context.Context, balanceSnapshotRepo repository.BalanceSnapshotRepository, walletID uint) (*models.BalanceSnapshot, error) {
	snapshot, err := balanceSnapshotRepo.GetLatestByWalletID(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, ErrBalanceSnapshotNotFound
	}
	return snapshot, nil
}

// normalizePage clamps page and limit to sane values and returns the offset
func normalizePage(page, limit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit, (page - 1) * limit
}

func errMessage(format string, err error) *string {
	msg := fmt.Sprintf(format, err.Error())
	return &msg
}
