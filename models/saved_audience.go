package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SavedAudience is a named snapshot of audience criteria for a customer.
// Rows are immutable; saving the same name again inserts a newer snapshot.
type SavedAudience struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UUID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uk_saved_audiences_uuid" json:"uuid"`
	CustomerID  uint            `gorm:"not null;index:idx_saved_audiences_customer_hash" json:"customer_id"`
	Name        string          `gorm:"size:120;not null" json:"name"`
	FiltersHash string          `gorm:"type:varchar(128);not null;index:idx_saved_audiences_customer_hash" json:"filters_hash"`
	Filters     AudienceFilters `gorm:"type:jsonb;not null" json:"filters"`
	LastCount   *int64          `json:"last_count,omitempty"`
	CreatedAt   time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

func (SavedAudience) TableName() string { return "saved_audiences" }

// BeforeCreate ensures UUID and filter hash are set
func (s *SavedAudience) BeforeCreate(tx *gorm.DB) error {
	if s.UUID == uuid.Nil {
		s.UUID = uuid.New()
	}
	if s.FiltersHash == "" {
		s.FiltersHash = s.Filters.Hash()
	}
	return nil
}

// SavedAudienceFilter represents filter criteria for saved audience queries
type SavedAudienceFilter struct {
	ID          *uint
	CustomerID  *uint
	Name        *string
	FiltersHash *string
}
