package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BalanceSnapshot represents an immutable snapshot of wallet credits at a point in time.
// The latest snapshot of a wallet is the authoritative credit balance. All amounts are cents.
type BalanceSnapshot struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID          uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`
	CorrelationID uuid.UUID `gorm:"type:uuid;index;not null" json:"correlation_id"` // Links to transaction

	WalletID   uint `gorm:"not null;index" json:"wallet_id"`
	CustomerID uint `gorm:"not null;index" json:"customer_id"`

	FreeBalance     uint64 `gorm:"not null" json:"free_balance"`      // Spendable credits
	FrozenBalance   uint64 `gorm:"not null" json:"frozen_balance"`    // Reserved for pending operations
	SpentOnAudience uint64 `gorm:"not null" json:"spent_on_audience"` // Lifetime contact purchases
	TotalBalance    uint64 `gorm:"not null" json:"total_balance"`     // free + frozen

	Reason      string          `gorm:"type:varchar(100);not null" json:"reason"`
	Description string          `gorm:"type:text" json:"description"`
	Metadata    json.RawMessage `gorm:"type:jsonb;default:'{}'" json:"metadata"`

	// Audit fields
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Wallet   Wallet   `gorm:"foreignKey:WalletID;constraint:OnDelete:CASCADE" json:"wallet,omitempty"`
	Customer Customer `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"customer,omitempty"`
}

// BeforeCreate ensures UUID and CorrelationID are set, and calculates total balance
func (bs *BalanceSnapshot) BeforeCreate(tx *gorm.DB) error {
	if bs.UUID == uuid.Nil {
		bs.UUID = uuid.New()
	}
	if bs.CorrelationID == uuid.Nil {
		bs.CorrelationID = uuid.New()
	}
	bs.TotalBalance = bs.FreeBalance + bs.FrozenBalance
	return nil
}

// GetBalanceMap returns a map representation of balances
func (bs *BalanceSnapshot) GetBalanceMap() (json.RawMessage, error) {
	balanceMap := map[string]uint64{
		"free":              bs.FreeBalance,
		"frozen":            bs.FrozenBalance,
		"spent_on_audience": bs.SpentOnAudience,
		"total":             bs.FreeBalance + bs.FrozenBalance,
	}
	return json.Marshal(balanceMap)
}

// IsBalanceSufficient checks if the wallet has enough free credits for an amount.
// Equality is sufficient.
func (bs *BalanceSnapshot) IsBalanceSufficient(amount uint64) bool {
	return bs.FreeBalance >= amount
}

func (BalanceSnapshot) TableName() string {
	return "balance_snapshots"
}

// BalanceSnapshotFilter represents filter criteria for balance snapshot queries
type BalanceSnapshotFilter struct {
	ID            *uint      `json:"id,omitempty"`
	CorrelationID *uuid.UUID `json:"correlation_id,omitempty"`
	WalletID      *uint      `json:"wallet_id,omitempty"`
	CustomerID    *uint      `json:"customer_id,omitempty"`
	Reason        *string    `json:"reason,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
