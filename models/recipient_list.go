package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// RecipientListSource describes how a list was populated
type RecipientListSource string

const (
	RecipientListSourcePurchase RecipientListSource = "purchase"
	RecipientListSourceUpload   RecipientListSource = "upload"
)

// RecipientList is a set of contacts a campaign can mail to
type RecipientList struct {
	ID           uint                `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:uk_recipient_lists_uuid" json:"uuid"`
	CustomerID   uint                `gorm:"not null;index:idx_recipient_lists_customer_id" json:"customer_id"`
	Name         string              `gorm:"size:160;not null" json:"name"`
	Source       RecipientListSource `gorm:"type:varchar(20);not null" json:"source"`
	Filters      AudienceFilters     `gorm:"type:jsonb;not null" json:"filters"`
	ContactCount int                 `gorm:"not null;default:0" json:"contact_count"`
	IsMockData   bool                `gorm:"not null;default:false" json:"is_mock_data"`
	CreatedAt    time.Time           `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_recipient_lists_created_at" json:"created_at"`

	Contacts []Contact `gorm:"foreignKey:RecipientListID" json:"contacts,omitempty"`
}

func (RecipientList) TableName() string { return "recipient_lists" }

// BeforeCreate ensures UUID is set
func (r *RecipientList) BeforeCreate(tx *gorm.DB) error {
	if r.UUID == uuid.Nil {
		r.UUID = uuid.New()
	}
	return nil
}

// RecipientListFilter represents filter criteria for recipient list queries
type RecipientListFilter struct {
	ID         *uint
	UUID       *uuid.UUID
	CustomerID *uint
	Source     *RecipientListSource
}

// Contact is one mailable recipient. TrackingID keys attribution events.
type Contact struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	RecipientListID uint           `gorm:"not null;index:idx_contacts_recipient_list_id" json:"recipient_list_id"`
	TrackingID      string         `gorm:"size:32;not null;uniqueIndex:uk_contacts_tracking_id" json:"tracking_id"`
	FirstName       string         `gorm:"size:120" json:"first_name"`
	LastName        string         `gorm:"size:120" json:"last_name"`
	AddressLine1    string         `gorm:"size:255;not null" json:"address_line1"`
	AddressLine2    string         `gorm:"size:255" json:"address_line2,omitempty"`
	City            string         `gorm:"size:120;not null" json:"city"`
	State           string         `gorm:"size:2;not null" json:"state"`
	Zip             string         `gorm:"size:10;not null" json:"zip"`
	Phone           string         `gorm:"size:20" json:"phone,omitempty"`
	Interests       pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"interests"`
	CreatedAt       time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

func (Contact) TableName() string { return "contacts" }

// FullName joins first and last name
func (c *Contact) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	default:
		return c.FirstName + " " + c.LastName
	}
}

// FullAddress renders the postal address on one line
func (c *Contact) FullAddress() string {
	street := c.AddressLine1
	if c.AddressLine2 != "" {
		street += ", " + c.AddressLine2
	}
	return street + ", " + c.City + ", " + c.State + " " + c.Zip
}

// MergeFields returns the values available for mail-merge variable mapping
func (c *Contact) MergeFields() map[string]string {
	return map[string]string{
		"first_name":    c.FirstName,
		"last_name":     c.LastName,
		"full_name":     c.FullName(),
		"address_line1": c.AddressLine1,
		"address_line2": c.AddressLine2,
		"full_address":  c.FullAddress(),
		"city":          c.City,
		"state":         c.State,
		"zip":           c.Zip,
		"phone":         c.Phone,
		"tracking_id":   c.TrackingID,
	}
}
