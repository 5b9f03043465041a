package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"    // Credits purchased
	TransactionTypeDebit      TransactionType = "debit"      // Contact purchase
	TransactionTypeRefund     TransactionType = "refund"     // Returned credits
	TransactionTypeAdjustment TransactionType = "adjustment" // Manual balance adjustments
)

// TransactionStatus represents the current status of a transaction
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusReversed  TransactionStatus = "reversed"
)

// Transaction represents an immutable credit movement
type Transaction struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID          uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`
	CorrelationID uuid.UUID `gorm:"type:uuid;index;not null" json:"correlation_id"`

	Type     TransactionType   `gorm:"type:varchar(20);not null;index" json:"type"`
	Status   TransactionStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Amount   uint64            `gorm:"not null" json:"amount"` // cents
	Currency string            `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`

	WalletID   uint `gorm:"not null;index" json:"wallet_id"`
	CustomerID uint `gorm:"not null;index" json:"customer_id"`

	// Balances before and after the movement
	BalanceBefore json.RawMessage `gorm:"type:jsonb;not null" json:"balance_before"`
	BalanceAfter  json.RawMessage `gorm:"type:jsonb;not null" json:"balance_after"`

	// Recipient list created by a purchase
	RecipientListID *uint `gorm:"index" json:"recipient_list_id,omitempty"`

	Description string          `gorm:"type:text" json:"description"`
	Metadata    json.RawMessage `gorm:"type:jsonb;default:'{}'" json:"metadata"`

	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Wallet   Wallet   `gorm:"foreignKey:WalletID;constraint:OnDelete:CASCADE" json:"wallet,omitempty"`
	Customer Customer `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"customer,omitempty"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// BeforeCreate ensures UUID and CorrelationID are set
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	if t.CorrelationID == uuid.Nil {
		t.CorrelationID = uuid.New()
	}
	return nil
}

// IsCompleted returns true if the transaction is in a final state
func (t *Transaction) IsCompleted() bool {
	return t.Status == TransactionStatusCompleted ||
		t.Status == TransactionStatusFailed ||
		t.Status == TransactionStatusReversed
}

// TransactionFilter represents filter criteria for transaction queries
type TransactionFilter struct {
	ID              *uint              `json:"id,omitempty"`
	CorrelationID   *uuid.UUID         `json:"correlation_id,omitempty"`
	Type            *TransactionType   `json:"type,omitempty"`
	Status          *TransactionStatus `json:"status,omitempty"`
	WalletID        *uint              `json:"wallet_id,omitempty"`
	CustomerID      *uint              `json:"customer_id,omitempty"`
	RecipientListID *uint              `json:"recipient_list_id,omitempty"`
	CreatedAfter    *time.Time         `json:"created_after,omitempty"`
	CreatedBefore   *time.Time         `json:"created_before,omitempty"`

	// metadata filters
	Source    *string `json:"source,omitempty"`
	Operation *string `json:"operation,omitempty"`
}
