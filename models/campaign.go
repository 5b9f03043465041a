package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirphl/mailpiece/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CampaignStatus represents the status of a direct-mail campaign
type CampaignStatus string

const (
	CampaignStatusDraft        CampaignStatus = "draft"
	CampaignStatusScheduled    CampaignStatus = "scheduled"
	CampaignStatusInProduction CampaignStatus = "in-production"
	CampaignStatusMailed       CampaignStatus = "mailed"
	CampaignStatusCancelled    CampaignStatus = "cancelled"
)

// String returns the string representation of the status
func (s CampaignStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusScheduled,
		CampaignStatusInProduction, CampaignStatusMailed,
		CampaignStatusCancelled:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CampaignStatus
func (s *CampaignStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CampaignStatus(v)
	case []byte:
		*s = CampaignStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignStatus
func (s CampaignStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CampaignStatus: %s", s)
	}
	return string(s), nil
}

// VariableMappings maps canvas element tags to contact merge fields
type VariableMappings map[string]string

// Value implements the driver.Valuer interface for VariableMappings
func (m VariableMappings) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for VariableMappings
func (m *VariableMappings) Scan(value any) error {
	if value == nil {
		*m = VariableMappings{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into VariableMappings", value)
	}

	return json.Unmarshal(bytes, m)
}

// Campaign is a postcard mailing: one design sent to one recipient list
type Campaign struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	UUID             uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:uk_campaigns_uuid" json:"uuid"`
	CustomerID       uint             `gorm:"not null;index:idx_campaigns_customer_id" json:"customer_id"`
	Name             string           `gorm:"size:160;not null" json:"name"`
	DesignTemplateID uint             `gorm:"not null;index" json:"design_template_id"`
	RecipientListID  uint             `gorm:"not null;index" json:"recipient_list_id"`
	VariableMappings VariableMappings `gorm:"type:jsonb;not null;default:'{}'" json:"variable_mappings"`
	Status           CampaignStatus   `gorm:"type:varchar(20);not null;default:'draft';index:idx_campaigns_status" json:"status"`
	ScheduledAt      *time.Time       `json:"scheduled_at,omitempty"`
	CreatedAt        time.Time        `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_campaigns_created_at" json:"created_at"`
	UpdatedAt        *time.Time       `gorm:"index:idx_campaigns_updated_at" json:"updated_at,omitempty"`

	// Relations
	Customer       *Customer       `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
	DesignTemplate *DesignTemplate `gorm:"foreignKey:DesignTemplateID;references:ID" json:"design_template,omitempty"`
	RecipientList  *RecipientList  `gorm:"foreignKey:RecipientListID;references:ID" json:"recipient_list,omitempty"`
}

// TableName returns the table name for the model
func (Campaign) TableName() string {
	return "campaigns"
}

// BeforeCreate is called before creating a new record
func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CampaignStatusDraft
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Campaign) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// IsEditable checks if the campaign can be edited
func (c *Campaign) IsEditable() bool {
	return c.Status == CampaignStatusDraft ||
		c.Status == CampaignStatusScheduled
}

// CanTransitionTo checks if the campaign can transition to the given status
func (c *Campaign) CanTransitionTo(newStatus CampaignStatus) bool {
	switch c.Status {
	case CampaignStatusDraft:
		return newStatus == CampaignStatusScheduled ||
			newStatus == CampaignStatusCancelled
	case CampaignStatusScheduled:
		return newStatus == CampaignStatusDraft ||
			newStatus == CampaignStatusInProduction ||
			newStatus == CampaignStatusCancelled
	case CampaignStatusInProduction:
		return newStatus == CampaignStatusMailed
	default:
		return false
	}
}

// CampaignFilter represents filter criteria for campaigns
type CampaignFilter struct {
	ID              *uint           `json:"id,omitempty"`
	UUID            *uuid.UUID      `json:"uuid,omitempty"`
	CustomerID      *uint           `json:"customer_id,omitempty"`
	Status          *CampaignStatus `json:"status,omitempty"`
	Name            *string         `json:"name,omitempty"`
	RecipientListID *uint           `json:"recipient_list_id,omitempty"`
	ScheduledBefore *time.Time      `json:"scheduled_before,omitempty"`
	CreatedAfter    *time.Time      `json:"created_after,omitempty"`
	CreatedBefore   *time.Time      `json:"created_before,omitempty"`
}

// GetStatusDisplayName returns a human-readable status name
func (c *Campaign) GetStatusDisplayName() string {
	switch c.Status {
	case CampaignStatusDraft:
		return "Draft"
	case CampaignStatusScheduled:
		return "Scheduled"
	case CampaignStatusInProduction:
		return "In Production"
	case CampaignStatusMailed:
		return "Mailed"
	case CampaignStatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}
