// Package models contains domain entities and business models for the direct-mail platform
package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is an organization account that owns a wallet, audiences and campaigns
type Customer struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_customers_uuid" json:"uuid"`

	CompanyName *string `gorm:"size:120" json:"company_name,omitempty"`
	FirstName   string  `gorm:"size:255;not null" json:"first_name"`
	LastName    string  `gorm:"size:255;not null" json:"last_name"`
	Email       string  `gorm:"size:255;not null;uniqueIndex:idx_customers_email" json:"email"`
	Phone       *string `gorm:"size:20" json:"phone,omitempty"`

	// Status
	IsActive *bool `gorm:"default:true;index:idx_customers_is_active" json:"is_active"`
	IsAdmin  *bool `gorm:"default:false" json:"is_admin"`

	// Timestamps
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_customers_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	AuditLogs []AuditLog `gorm:"foreignKey:CustomerID" json:"-"`
	Wallet    *Wallet    `gorm:"foreignKey:CustomerID" json:"wallet,omitempty"`
}

func (Customer) TableName() string {
	return "customers"
}

// CustomerFilter represents filter criteria for customer queries
type CustomerFilter struct {
	ID            *uint      `json:"id,omitempty"`
	UUID          *uuid.UUID `json:"uuid,omitempty"`
	Email         *string    `json:"email,omitempty"`
	IsActive      *bool      `json:"is_active,omitempty"`
	IsAdmin       *bool      `json:"is_admin,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}

// DisplayName returns the company name when present, otherwise the contact person
func (c *Customer) DisplayName() string {
	if c.CompanyName != nil && *c.CompanyName != "" {
		return *c.CompanyName
	}
	return c.FirstName + " " + c.LastName
}
